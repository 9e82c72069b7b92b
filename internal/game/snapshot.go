package game

import (
	"github.com/samdwyer/storybattle/internal/combat"
)

// Snapshot is a read-only copy of the battle state. Mutating it has no
// effect on the engine.
type Snapshot struct {
	Active    bool
	SessionID string
	Phase     Phase
	Locked    bool
	Paused    bool
	Turn      int
	Style     combat.Style
	Terrain   string
	Outcome   Outcome

	Player combat.Combatant
	Enemy  combat.Combatant

	Barrier int
	Intent  *combat.Intent
	Summon  *combat.Summon
	Stance  Stance
	Items   map[string]int
	Skills  []string
	Special string
}

// State returns a snapshot of the active battle. Active is false when no
// battle is running.
func (e *Engine) State() Snapshot {
	s := e.session
	if s == nil {
		return Snapshot{Paused: e.timers.Paused()}
	}

	snap := Snapshot{
		Active:    true,
		SessionID: s.ID,
		Phase:     s.Phase(),
		Locked:    e.locked,
		Paused:    e.timers.Paused(),
		Turn:      s.Turn,
		Style:     s.Style,
		Terrain:   s.TerrainID,
		Outcome:   s.Outcome,
		Player:    s.Player.Clone(),
		Enemy:     s.Enemy.Clone(),
		Barrier:   e.barrier.Points(s.Enemy.Combatant),
		Stance:    s.Stance,
		Items:     s.Profile.Items.Clone(),
		Skills:    append([]string(nil), s.Profile.Skills...),
		Special:   s.Profile.Special,
	}
	if it := e.planner.Active(); it != nil {
		c := *it
		snap.Intent = &c
	}
	if s.Summon != nil {
		c := *s.Summon
		snap.Summon = &c
	}
	return snap
}

package combat

import (
	"github.com/samdwyer/storybattle/internal/dice"
	"github.com/samdwyer/storybattle/internal/gamedata"
)

// Intent is a telegraphed enemy ability counting down to execution.
type Intent struct {
	AbilityID      string
	Telegraphed    bool
	TurnsRemaining int
	Ability        *gamedata.SpecialDef
	Flavor         string
}

// Decision is the planner's verdict for one enemy turn. Exactly one of
// Execute and Attack is meaningful: an executed intent replaces the normal
// attack.
type Decision struct {
	Execute  *Intent // Release this intent now
	Announce *Intent // Newly telegraphed this turn
	Waiting  *Intent // Still counting down
	Attack   bool    // Perform a normal attack
}

// Planner decides whether the enemy telegraphs, waits on or releases an
// ability. Implementations hold per-session state.
type Planner interface {
	// Reset clears all state and loads the enemy's intent table.
	Reset(intents []gamedata.IntentDef)
	// Plan is called once per enemy turn that the enemy can act.
	Plan(turn int) Decision
	// EndTurn advances the countdown of the active intent.
	EndTurn()
	// Active returns the telegraphed intent, or nil.
	Active() *Intent
	// Interrupt cancels the active intent, starting its cooldown at turn.
	Interrupt(turn int) *Intent
}

// NoPlanner never telegraphs. The enemy always attacks normally.
type NoPlanner struct{}

func (NoPlanner) Reset([]gamedata.IntentDef) {}
func (NoPlanner) Plan(int) Decision          { return Decision{Attack: true} }
func (NoPlanner) EndTurn()                   {}
func (NoPlanner) Active() *Intent            { return nil }
func (NoPlanner) Interrupt(int) *Intent      { return nil }

// IntentPlanner rolls an enemy's intent table each turn.
type IntentPlanner struct {
	specials *gamedata.Registry[gamedata.SpecialDef]
	src      dice.Source

	// AttackOnAnnounce keeps the normal attack on the turn an ability is
	// first telegraphed.
	AttackOnAnnounce bool

	intents  []gamedata.IntentDef
	current  *Intent
	lastUsed map[string]int
}

// NewIntentPlanner creates a planner reading abilities from specials.
func NewIntentPlanner(specials *gamedata.Registry[gamedata.SpecialDef], src dice.Source) *IntentPlanner {
	return &IntentPlanner{
		specials:         specials,
		src:              src,
		AttackOnAnnounce: true,
		lastUsed:         make(map[string]int),
	}
}

// Reset implements Planner.
func (p *IntentPlanner) Reset(intents []gamedata.IntentDef) {
	p.intents = intents
	p.current = nil
	p.lastUsed = make(map[string]int)
}

// Plan implements Planner.
func (p *IntentPlanner) Plan(turn int) Decision {
	if p.current != nil {
		if p.current.TurnsRemaining <= 0 {
			exec := p.current
			p.current = nil
			p.lastUsed[exec.AbilityID] = turn
			return Decision{Execute: exec}
		}
		return Decision{Waiting: p.current, Attack: true}
	}

	for _, def := range p.intents {
		if turn < def.MinTurn {
			continue
		}
		if last, ok := p.lastUsed[def.Ability]; ok && turn-last < def.Cooldown {
			continue
		}
		ability := p.specials.GetByID(def.Ability)
		if ability == nil {
			continue
		}
		if !dice.Percent(p.src, def.Chance) {
			continue
		}
		p.current = &Intent{
			AbilityID:      def.Ability,
			Telegraphed:    true,
			TurnsRemaining: max(def.PrepTurns, 0),
			Ability:        ability,
			Flavor:         def.Flavor,
		}
		return Decision{Announce: p.current, Attack: p.AttackOnAnnounce}
	}
	return Decision{Attack: true}
}

// EndTurn implements Planner.
func (p *IntentPlanner) EndTurn() {
	if p.current != nil && p.current.TurnsRemaining > 0 {
		p.current.TurnsRemaining--
	}
}

// Active implements Planner.
func (p *IntentPlanner) Active() *Intent { return p.current }

// Interrupt implements Planner.
func (p *IntentPlanner) Interrupt(turn int) *Intent {
	cur := p.current
	if cur == nil {
		return nil
	}
	p.current = nil
	p.lastUsed[cur.AbilityID] = turn
	return cur
}

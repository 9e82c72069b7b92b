// Package game drives battle sessions: the turn scheduler that sequences
// player and enemy steps around presentation delays, and the Engine facade
// an embedding application talks to.
package game

import (
	"context"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/samdwyer/storybattle/internal/combat"
	"github.com/samdwyer/storybattle/internal/config"
	"github.com/samdwyer/storybattle/internal/entity"
	"github.com/samdwyer/storybattle/internal/gamedata"
)

// Phase is the session's scheduler state.
type Phase string

const (
	// PhasePlayer - waiting for exactly one player action
	PhasePlayer Phase = "player"
	// PhaseResolving - an action is in flight; new actions are dropped
	PhaseResolving Phase = "resolving"
	// PhaseEnded - the battle is over
	PhaseEnded Phase = "ended"
)

// Scheduler events.
const (
	evAct    = "act"
	evYield  = "yield"
	evFinish = "finish"
)

// newPhaseMachine builds the session state machine. Transitions are logged
// at debug level.
func newPhaseMachine(log *zap.Logger) *fsm.FSM {
	return fsm.NewFSM(
		string(PhasePlayer),
		fsm.Events{
			{Name: evAct, Src: []string{string(PhasePlayer)}, Dst: string(PhaseResolving)},
			{Name: evYield, Src: []string{string(PhaseResolving)}, Dst: string(PhasePlayer)},
			{Name: evFinish, Src: []string{string(PhasePlayer), string(PhaseResolving)}, Dst: string(PhaseEnded)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.Debug("phase transition",
					zap.String("event", e.Event),
					zap.String("from", e.Src),
					zap.String("to", e.Dst))
			},
		},
	)
}

// Outcome is how a battle ended.
type Outcome string

const (
	OutcomeNone Outcome = ""
	OutcomeWin  Outcome = "win"
	OutcomeLose Outcome = "lose"
	OutcomeFlee Outcome = "flee"
)

// Stance is the one-shot defensive posture the next enemy attack meets.
type Stance struct {
	Kind string // "defend" or "dodge"
	Mods combat.ActionModifiers
}

// Active reports whether a stance is set.
func (s Stance) Active() bool { return s.Kind != "" }

// Session is the mutable state of one battle. It is owned by an Engine and
// never shared between engines.
type Session struct {
	ID    string
	Turn  int
	Style combat.Style

	TerrainID string
	Terrain   *gamedata.TerrainDef

	Profile *entity.Player
	Player  *combat.Combatant
	Enemy   *entity.Enemy

	Summon           *combat.Summon
	DialogueCooldown int
	Stance           Stance

	Targets config.Targets
	Outcome Outcome
	Rules   config.Rules
	Timing  config.Timing

	machine *fsm.FSM
}

// Phase returns the current scheduler phase.
func (s *Session) Phase() Phase { return Phase(s.machine.Current()) }

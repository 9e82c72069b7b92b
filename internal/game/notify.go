package game

import (
	"github.com/samdwyer/storybattle/internal/combat"
)

// NoteKind classifies a presentation notification.
type NoteKind string

const (
	NoteLog         NoteKind = "log"
	NoteHealth      NoteKind = "health"
	NoteMana        NoteKind = "mana"
	NoteDamage      NoteKind = "damage" // Floating damage number
	NoteHeal        NoteKind = "heal"   // Floating heal number, with overheal
	NoteRoll        NoteKind = "roll"   // Attack roll breakdown
	NoteDialogue    NoteKind = "dialogue"
	NoteChargeReady NoteKind = "charge_ready"
	NoteIntent      NoteKind = "intent"
	NoteStatus      NoteKind = "status"
	NoteBarrier     NoteKind = "barrier"
	NoteTurn        NoteKind = "turn"
	NoteBattleEnded NoteKind = "battle_ended"
)

// Side names which combatant a notification concerns.
type Side string

const (
	SidePlayer Side = "player"
	SideEnemy  Side = "enemy"
	SideSummon Side = "summon"
)

// Notification is a one-way message to the presentation layer.
type Notification struct {
	Kind NoteKind
	Side Side
	Text string

	// Amount is the applied value for damage, heal and mana notes; Rolled
	// carries the pre-cap roll for overheal display.
	Amount int
	Rolled int

	Current int // Health and mana notes
	Max     int

	Attack  *combat.AttackResult // Roll notes
	Intent  *combat.Intent       // Intent notes
	Outcome Outcome              // Battle-ended notes
}

// Presenter receives notifications. Calls are one-way.
type Presenter interface {
	Notify(n Notification)
}

// Animator is implemented by presenters that animate a batch of
// notifications. The scheduler does not continue until done is called.
type Animator interface {
	Animate(batch []Notification, done func())
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(Notification)

// Notify implements Presenter.
func (f PresenterFunc) Notify(n Notification) { f(n) }

type nopPresenter struct{}

func (nopPresenter) Notify(Notification) {}

// notes accumulates the notifications of one step.
type notes []Notification

func (ns *notes) log(side Side, texts ...string) {
	for _, t := range texts {
		if t != "" {
			*ns = append(*ns, Notification{Kind: NoteLog, Side: side, Text: t})
		}
	}
}

func (ns *notes) add(n Notification) { *ns = append(*ns, n) }

func (ns *notes) health(side Side, c *combat.Combatant) {
	*ns = append(*ns, Notification{Kind: NoteHealth, Side: side, Current: c.HP, Max: c.MaxHP})
}

func (ns *notes) mana(side Side, c *combat.Combatant) {
	*ns = append(*ns, Notification{Kind: NoteMana, Side: side, Current: c.Mana, Max: c.MaxMana})
}

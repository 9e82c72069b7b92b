// Package combat provides the turn-based battle rules: attack resolution,
// status effects, stagger and special charge, and enemy intents.
package combat

import (
	"github.com/samdwyer/storybattle/internal/gamedata"
)

// MaxCharge is the special-charge value at which the special attack unlocks.
const MaxCharge = 100

// Combatant is the mutable state of one side of a battle.
//
// Invariants: 0 <= HP <= MaxHP, 0 <= Mana <= MaxMana,
// 0 <= Stagger < StaggerThreshold (when the threshold is positive),
// 0 <= Charge <= MaxCharge.
type Combatant struct {
	Name     string
	IsPlayer bool

	HP, MaxHP     int
	Mana, MaxMana int

	Defense     int
	AttackBonus int
	Damage      string // Dice expression, e.g. "1d8"
	DamageType  gamedata.DamageType

	Statuses []StatusInstance

	Stagger          int
	StaggerThreshold int // 0 disables stagger

	Passives []string

	// Charge is only meaningful for the player.
	Charge int
}

// StatusInstance is an active status effect on a combatant.
type StatusInstance struct {
	ID          string
	Duration    int // Remaining owner-turns
	Stacks      int
	JustApplied bool // Suppresses the first periodic tick
}

// IsAlive returns true if the combatant has HP remaining.
func (c *Combatant) IsAlive() bool { return c.HP > 0 }

// TakeDamage reduces HP and returns actual damage taken.
func (c *Combatant) TakeDamage(amount int) int {
	if amount <= 0 {
		return 0
	}
	actual := min(amount, c.HP)
	c.HP -= actual
	return actual
}

// Heal restores HP and returns actual amount healed.
func (c *Combatant) Heal(amount int) int {
	if amount <= 0 {
		return 0
	}
	actual := min(amount, c.MaxHP-c.HP)
	c.HP += actual
	return actual
}

// SpendMana reduces mana and returns false if insufficient.
func (c *Combatant) SpendMana(amount int) bool {
	if amount <= 0 {
		return true
	}
	if c.Mana < amount {
		return false
	}
	c.Mana -= amount
	return true
}

// RestoreMana restores mana and returns actual amount restored.
func (c *Combatant) RestoreMana(amount int) int {
	if amount <= 0 {
		return 0
	}
	actual := min(amount, c.MaxMana-c.Mana)
	c.Mana += actual
	return actual
}

// Status returns the active instance of a status, or nil.
func (c *Combatant) Status(id string) *StatusInstance {
	for i := range c.Statuses {
		if c.Statuses[i].ID == id {
			return &c.Statuses[i]
		}
	}
	return nil
}

// HasStatus reports whether the status is active.
func (c *Combatant) HasStatus(id string) bool {
	return c.Status(id) != nil
}

// RemoveStatus removes a status by id and reports whether it was present.
func (c *Combatant) RemoveStatus(id string) bool {
	for i := range c.Statuses {
		if c.Statuses[i].ID == id {
			c.Statuses = append(c.Statuses[:i], c.Statuses[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy, safe to hand to read-only consumers.
func (c *Combatant) Clone() Combatant {
	out := *c
	out.Statuses = append([]StatusInstance(nil), c.Statuses...)
	out.Passives = append([]string(nil), c.Passives...)
	return out
}

// Clamp restores the HP, mana, stagger and charge invariants.
func (c *Combatant) Clamp() {
	c.HP = clamp(c.HP, 0, c.MaxHP)
	c.Mana = clamp(c.Mana, 0, c.MaxMana)
	c.Charge = clamp(c.Charge, 0, MaxCharge)
	if c.Stagger < 0 {
		c.Stagger = 0
	}
	if c.StaggerThreshold > 0 && c.Stagger >= c.StaggerThreshold {
		c.Stagger = c.StaggerThreshold - 1
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

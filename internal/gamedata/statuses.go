package gamedata

import "github.com/gdamore/tcell/v2"

// Well-known status ids the rules engine refers to directly.
const (
	StatusStun      = "stun"
	StatusConfusion = "confusion"
)

// StatusDef defines a status effect loaded from JSON.
// Periodic amounts and stat bonuses are per stack.
type StatusDef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Stackable bool   `json:"stackable"`
	MaxStacks int    `json:"maxStacks,omitempty"` // 0 means unlimited
	Duration  int    `json:"duration"`            // Default duration in owner-turns

	DamagePerTick int `json:"damagePerTick,omitempty"`
	HealPerTick   int `json:"healPerTick,omitempty"`
	ManaPerTick   int `json:"manaPerTick,omitempty"`

	AttackBonus  int `json:"attackBonus,omitempty"`
	DefenseBonus int `json:"defenseBonus,omitempty"`
	DamageBonus  int `json:"damageBonus,omitempty"`

	SkipsTurn        bool   `json:"skipsTurn,omitempty"`
	SelfDamageChance int    `json:"selfDamageChance,omitempty"` // Percent, confusion-like effects
	SelfDamageDice   string `json:"selfDamageDice,omitempty"`

	Color   string `json:"color,omitempty"` // Hex colour for status icons
	Message string `json:"message,omitempty"` // Shown when the status wears off
}

// IsPeriodic reports whether the status does something every tick.
func (s *StatusDef) IsPeriodic() bool {
	return s.DamagePerTick != 0 || s.HealPerTick != 0 || s.ManaPerTick != 0
}

// IsConfusionLike reports whether the status rolls for self-damage each tick.
func (s *StatusDef) IsConfusionLike() bool {
	return s.SelfDamageChance > 0
}

// TCellColor returns the status colour as a tcell.Color.
func (s *StatusDef) TCellColor() tcell.Color {
	color, err := ParseHexColor(s.Color)
	if err != nil {
		return tcell.ColorWhite // fallback
	}
	return color
}

// StatusesFile represents the structure of statuses.json.
type StatusesFile struct {
	Statuses []StatusDef `json:"statuses"`
}

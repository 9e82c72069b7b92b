package combat

import (
	"math"
	"strconv"
)

// Modifier is one labelled step of a total. Additive modifiers add Value;
// multipliers multiply by Value and floor the intermediate result.
type Modifier struct {
	Value      float64
	Source     string
	Multiplier bool
}

// Add returns an additive modifier.
func Add(v int, source string) Modifier {
	return Modifier{Value: float64(v), Source: source}
}

// Mul returns a multiplicative modifier.
func Mul(v float64, source string) Modifier {
	return Modifier{Value: v, Source: source, Multiplier: true}
}

// ApplyModifiers folds mods over base in order, flooring after every
// multiplication.
func ApplyModifiers(base int, mods []Modifier) int {
	v := base
	for _, m := range mods {
		if m.Multiplier {
			v = int(math.Floor(float64(v) * m.Value))
			continue
		}
		v += int(m.Value)
	}
	return v
}

// String renders the modifier the way the battle log shows it: "+2 status"
// or "x1.5 terrain".
func (m Modifier) String() string {
	if m.Multiplier {
		return "x" + strconv.FormatFloat(m.Value, 'g', -1, 64) + " " + m.Source
	}
	v := int(m.Value)
	if v >= 0 {
		return "+" + strconv.Itoa(v) + " " + m.Source
	}
	return strconv.Itoa(v) + " " + m.Source
}

// ActionModifiers is produced by the external timing mechanism for each
// action. The rules engine treats it as opaque input.
type ActionModifiers struct {
	HitBonus           int
	DamageMultiplier   float64 // 0 is treated as 1
	ForcedMiss         bool
	DamageAdvantage    bool
	DamageDisadvantage bool
	StatusChanceBonus  int  // Percent points
	NoStatus           bool // Suppresses on-hit status rolls
	CounterAttack      bool
	DamageReduction    float64 // Fraction in [0, 1]
	Confused           bool
	EndsDefenseStance  bool
}

// Multiplier returns the damage multiplier, treating zero as neutral.
func (m ActionModifiers) Multiplier() float64 {
	if m.DamageMultiplier <= 0 {
		return 1
	}
	return m.DamageMultiplier
}

// Reduction returns the damage-reduction fraction clamped to [0, 1].
func (m ActionModifiers) Reduction() float64 {
	return math.Min(1, math.Max(0, m.DamageReduction))
}

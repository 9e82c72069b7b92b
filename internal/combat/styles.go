package combat

import (
	"github.com/samdwyer/storybattle/internal/dice"
)

// DiceStyle resolves attacks with a d20 against defense.
type DiceStyle struct {
	base
}

// NewDiceStyle creates the d20 resolver.
func NewDiceStyle(status *StatusEngine, src dice.Source) *DiceStyle {
	s := &DiceStyle{base: base{status: status, src: src}}
	s.hit = s.rollHit
	return s
}

// Style implements Resolver.
func (s *DiceStyle) Style() Style { return StyleDice }

// rollHit rolls a d20. Priority: natural 1 misses, natural 20 hits, a forced
// miss misses, a total of 20 or more hits, otherwise total >= defense.
// A natural 20 lands even through a dodge or forced miss; only modified
// totals of 20 or more lose to it. Keep natural20 ahead of ForcedMiss.
func (s *DiceStyle) rollHit(in AttackInput, res *AttackResult) {
	res.Roll = dice.D20(s.src)
	res.AttackModifiers = s.attackModifiers(in)
	res.Defense, res.DefenseModifiers = s.defense(in.Defender)

	natural20 := res.Roll == 20
	res.Fumble = res.Roll == 1
	if res.Fumble {
		res.Total = 1
	} else {
		res.Total = ApplyModifiers(res.Roll, res.AttackModifiers)
	}
	res.Critical = !res.Fumble && (natural20 || res.Total >= 20)

	switch {
	case res.Fumble:
		res.Hit = false
	case natural20:
		res.Hit = true
	case in.Mods.ForcedMiss || in.Guard.ForcedMiss:
		res.Hit = false
		res.ForcedMiss = true
	case res.Critical:
		res.Hit = true
	default:
		res.Hit = res.Total >= res.Defense
	}
	if !res.Hit {
		res.Critical = false
	}
}

// Percentile tuning for AccuracyStyle.
const (
	accuracyBase   = 70
	accuracyStep   = 5 // Percent per point of bonus or defense
	accuracyFloor  = 5
	accuracyCeil   = 95
	accuracyCrit   = 5  // Rolls at or below crit
	accuracyFumble = 96 // Rolls at or above fumble
	neutralDefense = 10
)

// AccuracyStyle resolves attacks with a percentile roll against a hit chance
// derived from the same bonuses. Damage uses the shared pipeline.
type AccuracyStyle struct {
	base
}

// NewAccuracyStyle creates the percentile resolver.
func NewAccuracyStyle(status *StatusEngine, src dice.Source) *AccuracyStyle {
	s := &AccuracyStyle{base: base{status: status, src: src}}
	s.hit = s.rollHit
	return s
}

// Style implements Resolver.
func (s *AccuracyStyle) Style() Style { return StyleAccuracy }

func (s *AccuracyStyle) rollHit(in AttackInput, res *AttackResult) {
	res.Roll = s.src.Intn(100) + 1
	res.Defense, res.DefenseModifiers = s.defense(in.Defender)

	var mods []Modifier
	for _, m := range s.attackModifiers(in) {
		mods = append(mods, Add(accuracyStep*int(m.Value), m.Source))
	}
	if d := res.Defense - neutralDefense; d != 0 {
		mods = append(mods, Add(-accuracyStep*d, "defense"))
	}
	res.AttackModifiers = mods
	res.Total = clamp(ApplyModifiers(accuracyBase, mods), accuracyFloor, accuracyCeil)

	res.Fumble = res.Roll >= accuracyFumble
	res.Critical = res.Roll <= accuracyCrit

	switch {
	case res.Fumble:
		res.Hit = false
	case res.Critical:
		res.Hit = true
	case in.Mods.ForcedMiss || in.Guard.ForcedMiss:
		res.Hit = false
		res.ForcedMiss = true
	default:
		res.Hit = res.Roll <= res.Total
	}
	if !res.Hit {
		res.Critical = false
	}
}

package combat

import (
	"errors"
	"fmt"

	"github.com/samdwyer/storybattle/internal/dice"
	"github.com/samdwyer/storybattle/internal/gamedata"
)

// ErrUnknownStyle is returned by NewResolver for an unrecognised style name.
var ErrUnknownStyle = errors.New("unknown combat style")

// Style names a resolver variant.
type Style string

const (
	StyleDice     Style = "dice"
	StyleAccuracy Style = "accuracy"
)

// Resolver computes combat outcomes without mutating combatants. The turn
// scheduler applies the returned results.
type Resolver interface {
	Style() Style
	ResolveAttack(in AttackInput) AttackResult
	ResolveSpecial(in SpecialInput) AttackResult
	ResolveSummonAttack(summon *Summon, defender *Combatant, terrain *gamedata.TerrainDef) AttackResult
	EnemyTurn(in EnemyTurnInput) EnemyTurnResult
	ApplySkill(in SkillInput) SkillResult
}

// NewResolver returns the resolver variant for style. An empty style selects
// dice.
func NewResolver(style Style, status *StatusEngine, src dice.Source) (Resolver, error) {
	switch style {
	case StyleDice, "":
		return NewDiceStyle(status, src), nil
	case StyleAccuracy:
		return NewAccuracyStyle(status, src), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStyle, style)
	}
}

// AttackInput describes one attack.
type AttackInput struct {
	Attacker *Combatant
	Defender *Combatant
	Skill    *gamedata.SkillDef // nil for a basic attack
	Mods     ActionModifiers    // attacker-side timing result
	Guard    ActionModifiers    // defender stance: reduction, forced miss
	Terrain  *gamedata.TerrainDef
}

// AttackResult is the full breakdown of one attack.
type AttackResult struct {
	Attacker string
	Defender string
	Source   string // "Attack", skill name or special name

	Roll             int
	AttackModifiers  []Modifier
	Total            int
	Defense          int
	DefenseModifiers []Modifier

	Critical   bool
	Fumble     bool
	ForcedMiss bool
	Hit        bool
	SelfHit    bool // Confused attacker struck itself

	DamageRoll      dice.Roll
	DamageBase      int
	DamageModifiers []Modifier
	Damage          int
	DamageType      gamedata.DamageType
	TypeMultiplier  float64

	// Stagger is the stagger the hit deals to the defender.
	Stagger int

	Inflicts []StatusApplication
	Messages []string
}

// Summon is an active temporary ally.
type Summon struct {
	Def       *gamedata.SummonDef
	TurnsLeft int
}

// Name returns the summon's display name.
func (s *Summon) Name() string {
	if s == nil || s.Def == nil {
		return ""
	}
	return s.Def.Name
}

// SpecialInput describes a special-charge attack or an executed enemy intent.
type SpecialInput struct {
	Attacker *Combatant
	Defender *Combatant
	Special  *gamedata.SpecialDef
	Mods     ActionModifiers
	Guard    ActionModifiers
	Terrain  *gamedata.TerrainDef
}

// SkillInput describes a non-basic action by the user.
type SkillInput struct {
	User    *Combatant
	Target  *Combatant
	Skill   *gamedata.SkillDef
	Mods    ActionModifiers
	Terrain *gamedata.TerrainDef
}

// Amount pairs the rolled value of a restoration with the value actually
// applied after capping. Only Applied mutates state.
type Amount struct {
	Rolled  int
	Applied int
}

// Overflow returns how much of the roll was lost to the cap.
func (a Amount) Overflow() int { return a.Rolled - a.Applied }

// SkillResult is the outcome of ApplySkill.
type SkillResult struct {
	Skill    *gamedata.SkillDef
	Attack   *AttackResult // attack skills
	Heal     Amount        // heal skills
	Inflicts []StatusApplication
	Messages []string
}

// EnemyTurnInput describes the enemy's action phase.
type EnemyTurnInput struct {
	Enemy   *Combatant
	Player  *Combatant
	Turn    int
	Planner Planner
	Guard   ActionModifiers // player's defend/dodge stance
	Terrain *gamedata.TerrainDef
}

// EnemyTurnResult is what the enemy did.
type EnemyTurnResult struct {
	Announced *Intent       // newly telegraphed this turn
	Executed  *Intent       // telegraphed ability released this turn
	Attack    *AttackResult // normal attack or executed special
	Messages  []string
}

// base holds everything shared by the resolver variants; only hit rolling
// differs between styles.
type base struct {
	status *StatusEngine
	src    dice.Source
	// hit fills the roll, totals and the hit/critical/fumble flags.
	hit func(in AttackInput, res *AttackResult)
}

// ResolveAttack resolves one attack. It has no side effects; statuses the
// attack would inflict are returned in Inflicts.
func (b *base) ResolveAttack(in AttackInput) AttackResult {
	res := prepare(&in)
	b.hit(in, &res)
	if res.Hit {
		b.finishHit(in, &res)
	} else if !res.Fumble {
		res.Messages = append(res.Messages, fmt.Sprintf("%s misses %s.", in.Attacker.Name, in.Defender.Name))
	}
	if res.Fumble {
		fumble(in, &res)
	}
	return res
}

func (b *base) catalog() *gamedata.Catalog { return b.status.Catalog() }

// damageInput is the hit-independent part of the damage pipeline.
type damageInput struct {
	attacker   *Combatant
	defender   *Combatant
	expr       string
	damageType gamedata.DamageType
	critical   bool
	special    *gamedata.SpecialDef
	mods       ActionModifiers
	guard      ActionModifiers
	terrain    *gamedata.TerrainDef
}

// rollDamage runs the damage pipeline: dice, flat bonus, critical, special
// multiplier, timing multiplier, type chart, terrain, guard, then the
// minimum-damage floor. Every multiplication floors.
func (b *base) rollDamage(in damageInput, res *AttackResult) {
	expr, err := dice.Parse(in.expr)
	if err != nil {
		expr = dice.Expr{Count: 1, Sides: 4}
	}
	roll := expr.Roll(b.src)
	switch {
	case in.mods.DamageAdvantage && !in.mods.DamageDisadvantage:
		if second := expr.Roll(b.src); second.Total > roll.Total {
			roll = second
		}
	case in.mods.DamageDisadvantage && !in.mods.DamageAdvantage:
		if second := expr.Roll(b.src); second.Total < roll.Total {
			roll = second
		}
	}

	mods := b.status.DamageBonus(in.attacker).Modifiers()
	if in.critical {
		mods = append(mods, Mul(2, "critical"))
	}
	if in.special != nil && in.special.DamageMultiplier() != 1 {
		mods = append(mods, Mul(in.special.DamageMultiplier(), in.special.Name))
	}
	if m := in.mods.Multiplier(); m != 1 {
		mods = append(mods, Mul(m, "timing"))
	}
	typeMult := b.catalog().Types.Multiplier(in.damageType, in.defender.DamageType)
	if typeMult != 1 {
		mods = append(mods, Mul(typeMult, fmt.Sprintf("%s vs %s", in.damageType, in.defender.DamageType)))
	}
	if m := in.terrain.DamageMultiplier(in.damageType); m != 1 {
		mods = append(mods, Mul(m, "terrain"))
	}
	if r := in.guard.Reduction(); r > 0 {
		mods = append(mods, Mul(1-r, "guard"))
	}

	total := ApplyModifiers(roll.Total, mods)
	if total < 1 {
		mods = append(mods, Add(1-total, "minimum damage"))
		total = 1
	}

	res.DamageRoll = roll
	res.DamageBase = roll.Total
	res.DamageModifiers = mods
	res.Damage = total
	res.DamageType = in.damageType
	res.TypeMultiplier = typeMult

	switch {
	case typeMult >= 2:
		res.Messages = append(res.Messages, "It's super effective!")
	case typeMult > 0 && typeMult < 1:
		res.Messages = append(res.Messages, "It's not very effective...")
	case typeMult == 0:
		res.Messages = append(res.Messages, fmt.Sprintf("%s barely feels it.", in.defender.Name))
	}
}

// defense returns the defender's effective defense and its breakdown.
func (b *base) defense(c *Combatant) (int, []Modifier) {
	mods := b.status.DefenseBonus(c).Modifiers()
	return ApplyModifiers(c.Defense, mods), mods
}

// attackModifiers builds the ordered to-hit modifier list.
func (b *base) attackModifiers(in AttackInput) []Modifier {
	var mods []Modifier
	if in.Attacker.AttackBonus != 0 {
		mods = append(mods, Add(in.Attacker.AttackBonus, "attack"))
	}
	mods = append(mods, b.status.AttackBonus(in.Attacker).Modifiers()...)
	if in.Skill != nil && in.Skill.AttackBonus != 0 {
		mods = append(mods, Add(in.Skill.AttackBonus, in.Skill.Name))
	}
	if in.Mods.HitBonus != 0 {
		mods = append(mods, Add(in.Mods.HitBonus, "timing"))
	}
	if in.Terrain != nil && in.Terrain.AccuracyPenalty != 0 {
		mods = append(mods, Add(-in.Terrain.AccuracyPenalty, in.Terrain.Name))
	}
	return mods
}

// prepare fills the identity fields and redirects a confused attack.
func prepare(in *AttackInput) AttackResult {
	res := AttackResult{Attacker: in.Attacker.Name, Source: "Attack"}
	if in.Skill != nil {
		res.Source = in.Skill.Name
	}
	if in.Mods.Confused {
		in.Defender = in.Attacker
		in.Guard = ActionModifiers{}
		res.SelfHit = true
		res.Messages = append(res.Messages, fmt.Sprintf("%s lashes out in confusion!", in.Attacker.Name))
	}
	res.Defender = in.Defender.Name
	return res
}

// finishHit rolls damage and on-hit statuses for a landed attack.
func (b *base) finishHit(in AttackInput, res *AttackResult) {
	expr, dt := in.Attacker.Damage, in.Attacker.DamageType
	if in.Skill != nil {
		if in.Skill.Damage != "" {
			expr = in.Skill.Damage
		}
		if in.Skill.DamageType != "" {
			dt = in.Skill.DamageType
		}
	}
	b.rollDamage(damageInput{
		attacker:   in.Attacker,
		defender:   in.Defender,
		expr:       expr,
		damageType: dt,
		critical:   res.Critical,
		mods:       in.Mods,
		guard:      in.Guard,
		terrain:    in.Terrain,
	}, res)

	res.Stagger = res.Damage
	if in.Skill != nil {
		res.Stagger += in.Skill.StaggerBonus
	}

	if in.Skill != nil && in.Skill.AppliesStatus() && !in.Mods.NoStatus {
		chance := in.Skill.StatusChance + in.Mods.StatusChanceBonus
		if in.Terrain != nil {
			chance += in.Terrain.StatusChanceBonus
		}
		if dice.Percent(b.src, chance) {
			res.Inflicts = append(res.Inflicts, StatusApplication{
				Target: in.Defender,
				Status: in.Skill.Status,
				Stacks: in.Skill.Stacks(),
			})
		}
	}
}

// fumble records the self-confusion of a fumbled attack.
func fumble(in AttackInput, res *AttackResult) {
	res.Inflicts = append(res.Inflicts, StatusApplication{
		Target: in.Attacker,
		Status: gamedata.StatusConfusion,
		Stacks: 1,
	})
	res.Messages = append(res.Messages, fmt.Sprintf("%s fumbles and is left reeling!", in.Attacker.Name))
}

// ResolveSpecial resolves a special attack. Auto-hit specials skip the hit
// roll but can still be dodged; others roll to hit like a basic attack.
// Specials never crit and always inflict their status on a hit.
func (b *base) ResolveSpecial(in SpecialInput) AttackResult {
	sp := in.Special
	res := AttackResult{
		Attacker: in.Attacker.Name,
		Defender: in.Defender.Name,
		Source:   sp.Name,
	}
	if sp.Flavor != "" && in.Attacker.IsPlayer {
		res.Messages = append(res.Messages, sp.Flavor)
	}

	if sp.AutoHit {
		res.Hit = !(in.Mods.ForcedMiss || in.Guard.ForcedMiss)
		res.ForcedMiss = !res.Hit
	} else {
		probe := AttackInput{
			Attacker: in.Attacker,
			Defender: in.Defender,
			Mods:     in.Mods,
			Guard:    in.Guard,
			Terrain:  in.Terrain,
		}
		b.hit(probe, &res)
		res.Critical = false
		if res.Fumble {
			fumble(probe, &res)
		}
	}

	if !res.Hit {
		res.Messages = append(res.Messages, fmt.Sprintf("%s evades %s!", in.Defender.Name, sp.Name))
		return res
	}

	b.rollDamage(damageInput{
		attacker:   in.Attacker,
		defender:   in.Defender,
		expr:       sp.Damage,
		damageType: sp.DamageType,
		special:    sp,
		mods:       in.Mods,
		guard:      in.Guard,
		terrain:    in.Terrain,
	}, &res)
	res.Stagger = res.Damage

	if sp.Status != "" && !in.Mods.NoStatus {
		res.Inflicts = append(res.Inflicts, StatusApplication{
			Target: in.Defender,
			Status: sp.Status,
			Stacks: max(sp.StatusStacks, 1),
		})
	}
	return res
}

// ResolveSummonAttack resolves an attack by the active summon. Summons cannot
// be confused, so a fumble simply misses.
func (b *base) ResolveSummonAttack(summon *Summon, defender *Combatant, terrain *gamedata.TerrainDef) AttackResult {
	attacker := &Combatant{
		Name:        summon.Name(),
		HP:          1,
		MaxHP:       1,
		AttackBonus: summon.Def.AttackBonus,
		Damage:      summon.Def.Damage,
		DamageType:  summon.Def.DamageType,
	}
	res := b.ResolveAttack(AttackInput{Attacker: attacker, Defender: defender, Terrain: terrain})
	kept := res.Inflicts[:0]
	for _, app := range res.Inflicts {
		if app.Target != attacker {
			kept = append(kept, app)
		}
	}
	res.Inflicts = kept
	res.Stagger = 0
	return res
}

// EnemyTurn consults the planner and resolves the enemy's action. The
// planner's countdown advances once at the end of the call.
func (b *base) EnemyTurn(in EnemyTurnInput) EnemyTurnResult {
	planner := in.Planner
	if planner == nil {
		planner = NoPlanner{}
	}
	defer planner.EndTurn()

	var out EnemyTurnResult
	d := planner.Plan(in.Turn)

	if d.Execute != nil {
		out.Executed = d.Execute
		res := b.ResolveSpecial(SpecialInput{
			Attacker: in.Enemy,
			Defender: in.Player,
			Special:  d.Execute.Ability,
			Guard:    in.Guard,
			Terrain:  in.Terrain,
		})
		out.Messages = append(out.Messages, fmt.Sprintf("%s unleashes %s!", in.Enemy.Name, d.Execute.Ability.Name))
		out.Attack = &res
		return out
	}

	if d.Announce != nil {
		out.Announced = d.Announce
		msg := fmt.Sprintf("%s begins preparing %s!", in.Enemy.Name, d.Announce.Ability.Name)
		if d.Announce.Flavor != "" {
			msg = d.Announce.Flavor
		}
		out.Messages = append(out.Messages, msg)
	}
	if d.Waiting != nil {
		out.Messages = append(out.Messages, fmt.Sprintf("%s's %s draws closer... (%d)", in.Enemy.Name, d.Waiting.Ability.Name, d.Waiting.TurnsRemaining))
	}

	if d.Attack {
		res := b.ResolveAttack(AttackInput{
			Attacker: in.Enemy,
			Defender: in.Player,
			Guard:    in.Guard,
			Terrain:  in.Terrain,
		})
		out.Attack = &res
	}
	return out
}

// ApplySkill resolves any skill. Attack skills go through the style's attack
// roll; heal and buff skills always succeed.
func (b *base) ApplySkill(in SkillInput) SkillResult {
	sk := in.Skill
	out := SkillResult{Skill: sk}

	switch sk.Kind {
	case gamedata.SkillHeal:
		expr := sk.Heal
		if expr == "" {
			expr = "1d4"
		}
		roll, err := dice.RollString(b.src, expr)
		if err != nil {
			roll = dice.Roll{Total: 1}
		}
		out.Heal = Amount{Rolled: roll.Total, Applied: min(roll.Total, in.User.MaxHP-in.User.HP)}
		out.Messages = append(out.Messages, fmt.Sprintf("%s casts %s and recovers %d HP.", in.User.Name, sk.Name, out.Heal.Applied))
		if sk.Status != "" {
			out.Inflicts = append(out.Inflicts, StatusApplication{Target: in.User, Status: sk.Status, Stacks: sk.Stacks()})
		}
	case gamedata.SkillBuff:
		out.Messages = append(out.Messages, fmt.Sprintf("%s uses %s!", in.User.Name, sk.Name))
		if sk.Status != "" {
			out.Inflicts = append(out.Inflicts, StatusApplication{Target: in.User, Status: sk.Status, Stacks: sk.Stacks()})
		}
	default:
		res := b.ResolveAttack(AttackInput{
			Attacker: in.User,
			Defender: in.Target,
			Skill:    sk,
			Mods:     in.Mods,
			Terrain:  in.Terrain,
		})
		out.Attack = &res
		out.Inflicts = res.Inflicts
		out.Messages = append(out.Messages, fmt.Sprintf("%s uses %s!", in.User.Name, sk.Name))
	}
	return out
}

package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samdwyer/storybattle/internal/dice"
	"github.com/samdwyer/storybattle/internal/gamedata"
)

func fighter(name string, dt gamedata.DamageType) *Combatant {
	return &Combatant{
		Name:       name,
		HP:         30,
		MaxHP:      30,
		Mana:       10,
		MaxMana:    10,
		Defense:    10,
		Damage:     "1d6",
		DamageType: dt,
	}
}

// newDice builds a dice-style resolver over the default catalog with a
// scripted source. Script values are zero-based: 14 rolls a 15 on a d20.
func newDice(t *testing.T, script ...int) (*DiceStyle, *StatusEngine, *dice.Sequence) {
	t.Helper()
	src := dice.NewSequence(script...)
	status := NewStatusEngine(gamedata.MustLoadDefaultCatalog(), src)
	return NewDiceStyle(status, src), status, src
}

func TestResolveAttackScenarios(t *testing.T) {
	tests := []struct {
		name        string
		script      []int
		attackBonus int
		defense     int
		wantTotal   int
		wantHit     bool
		wantCrit    bool
		wantFumble  bool
		wantDamage  int
	}{
		{name: "plain hit", script: []int{14, 3}, attackBonus: 2, defense: 16, wantTotal: 17, wantHit: true, wantDamage: 4},
		{name: "natural 20 ignores defense", script: []int{19, 2}, defense: 30, wantTotal: 20, wantHit: true, wantCrit: true, wantDamage: 6},
		{name: "natural 1 clamps total", script: []int{0}, attackBonus: 5, defense: 10, wantTotal: 1, wantFumble: true},
		{name: "miss under defense", script: []int{4}, attackBonus: 1, defense: 12, wantTotal: 6},
		{name: "bonus pushes into critical", script: []int{16, 0}, attackBonus: 4, defense: 25, wantTotal: 21, wantHit: true, wantCrit: true, wantDamage: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := newDice(t, tt.script...)
			attacker := fighter("Hero", gamedata.DamagePhysical)
			attacker.AttackBonus = tt.attackBonus
			defender := fighter("Goblin", gamedata.DamagePhysical)
			defender.Defense = tt.defense

			res := r.ResolveAttack(AttackInput{Attacker: attacker, Defender: defender})

			assert.Equal(t, tt.wantTotal, res.Total)
			assert.Equal(t, tt.wantHit, res.Hit)
			assert.Equal(t, tt.wantCrit, res.Critical)
			assert.Equal(t, tt.wantFumble, res.Fumble)
			assert.Equal(t, tt.wantDamage, res.Damage)
			// The resolver never mutates combatants.
			assert.Equal(t, 30, defender.HP)
			assert.Empty(t, attacker.Statuses)
		})
	}
}

func TestFumbleConfusesAttacker(t *testing.T) {
	r, status, _ := newDice(t, 0)
	attacker := fighter("Hero", gamedata.DamagePhysical)
	attacker.AttackBonus = 5

	res := r.ResolveAttack(AttackInput{Attacker: attacker, Defender: fighter("Goblin", gamedata.DamagePhysical)})
	require.Len(t, res.Inflicts, 1)
	assert.Same(t, attacker, res.Inflicts[0].Target)
	assert.Equal(t, gamedata.StatusConfusion, res.Inflicts[0].Status)

	status.ApplyAll(res.Inflicts)
	inst := attacker.Status(gamedata.StatusConfusion)
	require.NotNil(t, inst)
	assert.Equal(t, 2, inst.Duration)
}

func TestHitPriority(t *testing.T) {
	t.Run("natural 20 beats forced miss", func(t *testing.T) {
		r, _, _ := newDice(t, 19, 0)
		res := r.ResolveAttack(AttackInput{
			Attacker: fighter("Hero", gamedata.DamagePhysical),
			Defender: fighter("Goblin", gamedata.DamagePhysical),
			Mods:     ActionModifiers{ForcedMiss: true},
		})
		assert.True(t, res.Hit)
		assert.True(t, res.Critical)
	})

	t.Run("natural 1 beats bonuses", func(t *testing.T) {
		r, _, _ := newDice(t, 0)
		attacker := fighter("Hero", gamedata.DamagePhysical)
		attacker.AttackBonus = 40
		res := r.ResolveAttack(AttackInput{
			Attacker: attacker,
			Defender: fighter("Goblin", gamedata.DamagePhysical),
			Mods:     ActionModifiers{HitBonus: 10},
		})
		assert.False(t, res.Hit)
		assert.False(t, res.Critical)
		assert.Equal(t, 1, res.Total)
	})

	t.Run("forced miss beats total critical", func(t *testing.T) {
		r, _, _ := newDice(t, 17)
		attacker := fighter("Hero", gamedata.DamagePhysical)
		attacker.AttackBonus = 5
		res := r.ResolveAttack(AttackInput{
			Attacker: attacker,
			Defender: fighter("Goblin", gamedata.DamagePhysical),
			Guard:    ActionModifiers{ForcedMiss: true},
		})
		assert.False(t, res.Hit)
		assert.True(t, res.ForcedMiss)
		assert.False(t, res.Critical)
	})
}

func TestCriticalDoublesBeforeTypeChart(t *testing.T) {
	r, _, _ := newDice(t, 19, 2)
	res := r.ResolveAttack(AttackInput{
		Attacker: fighter("Mage", gamedata.DamageFire),
		Defender: fighter("Yeti", gamedata.DamageIce),
	})

	require.True(t, res.Critical)
	assert.Equal(t, 3, res.DamageBase)
	assert.Equal(t, 12, res.Damage)
	require.Len(t, res.DamageModifiers, 2)
	assert.Equal(t, "critical", res.DamageModifiers[0].Source)
	assert.Equal(t, 2.0, res.TypeMultiplier)
}

func TestMinimumDamageFloor(t *testing.T) {
	tests := []struct {
		name     string
		attack   gamedata.DamageType
		defense  gamedata.DamageType
		guard    float64
		multiply float64
	}{
		{name: "immune type", attack: gamedata.DamagePoison, defense: gamedata.DamagePoison},
		{name: "full reduction", attack: gamedata.DamagePhysical, defense: gamedata.DamagePhysical, guard: 1},
		{name: "resisted and guarded", attack: gamedata.DamageIce, defense: gamedata.DamageFire, guard: 0.5},
		{name: "tiny multiplier", attack: gamedata.DamagePhysical, defense: gamedata.DamagePhysical, multiply: 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := newDice(t, 14, 2)
			res := r.ResolveAttack(AttackInput{
				Attacker: fighter("A", tt.attack),
				Defender: fighter("B", tt.defense),
				Mods:     ActionModifiers{DamageMultiplier: tt.multiply},
				Guard:    ActionModifiers{DamageReduction: tt.guard},
			})
			require.True(t, res.Hit)
			assert.Equal(t, 1, res.Damage)
			assert.Equal(t, res.Damage, ApplyModifiers(res.DamageBase, res.DamageModifiers))
			last := res.DamageModifiers[len(res.DamageModifiers)-1]
			assert.Equal(t, "minimum damage", last.Source)
		})
	}
}

func TestDamageBreakdownMatchesTotal(t *testing.T) {
	r, status, _ := newDice(t, 14, 5)
	attacker := fighter("Hero", gamedata.DamageFire)
	attacker.Passives = []string{"brute"}
	status.Apply(attacker, "strength", 1)

	volcano := r.catalog().Terrains.GetByID("volcano")
	res := r.ResolveAttack(AttackInput{
		Attacker: attacker,
		Defender: fighter("Goblin", gamedata.DamagePhysical),
		Mods:     ActionModifiers{DamageMultiplier: 1.5},
		Terrain:  volcano,
	})

	require.True(t, res.Hit)
	assert.Equal(t, res.Damage, ApplyModifiers(res.DamageBase, res.DamageModifiers))
	assert.Equal(t, res.Total, ApplyModifiers(res.Roll, res.AttackModifiers))
}

func TestSkillStatusChance(t *testing.T) {
	cat := gamedata.MustLoadDefaultCatalog()
	venom := cat.Skills.GetByID("venom_blade")
	require.NotNil(t, venom)

	t.Run("applies on successful roll", func(t *testing.T) {
		r, _, _ := newDice(t, 14, 0, 0)
		defender := fighter("Goblin", gamedata.DamagePhysical)
		res := r.ResolveAttack(AttackInput{Attacker: fighter("Hero", gamedata.DamagePhysical), Defender: defender, Skill: venom})
		require.True(t, res.Hit)
		require.Len(t, res.Inflicts, 1)
		assert.Same(t, defender, res.Inflicts[0].Target)
		assert.Equal(t, venom.Status, res.Inflicts[0].Status)
	})

	t.Run("no-status override skips the roll", func(t *testing.T) {
		r, _, src := newDice(t, 14, 0, 0)
		res := r.ResolveAttack(AttackInput{
			Attacker: fighter("Hero", gamedata.DamagePhysical),
			Defender: fighter("Goblin", gamedata.DamagePhysical),
			Skill:    venom,
			Mods:     ActionModifiers{NoStatus: true},
		})
		assert.Empty(t, res.Inflicts)
		assert.Equal(t, 1, src.Remaining())
	})

	t.Run("miss never applies", func(t *testing.T) {
		r, _, _ := newDice(t, 1, 0)
		defender := fighter("Goblin", gamedata.DamagePhysical)
		defender.Defense = 18
		res := r.ResolveAttack(AttackInput{Attacker: fighter("Hero", gamedata.DamagePhysical), Defender: defender, Skill: venom})
		assert.False(t, res.Hit)
		assert.Empty(t, res.Inflicts)
	})
}

func TestConfusedAttackHitsSelf(t *testing.T) {
	r, _, _ := newDice(t, 14, 3)
	attacker := fighter("Hero", gamedata.DamagePhysical)
	res := r.ResolveAttack(AttackInput{
		Attacker: attacker,
		Defender: fighter("Goblin", gamedata.DamagePhysical),
		Mods:     ActionModifiers{Confused: true},
	})
	assert.True(t, res.SelfHit)
	assert.Equal(t, "Hero", res.Defender)
}

func TestResolveSpecial(t *testing.T) {
	cat := gamedata.MustLoadDefaultCatalog()
	meteor := cat.Specials.GetByID("meteor")
	require.NotNil(t, meteor)

	t.Run("auto hit skips the roll", func(t *testing.T) {
		r, _, _ := newDice(t, 1, 1, 1)
		hero := fighter("Hero", gamedata.DamagePhysical)
		hero.IsPlayer = true
		target := fighter("Yeti", gamedata.DamageIce)
		res := r.ResolveSpecial(SpecialInput{Attacker: hero, Defender: target, Special: meteor})

		require.True(t, res.Hit)
		// 3d6 of 2s = 6, x1.5 = 9, x2 fire vs ice = 18.
		assert.Equal(t, 18, res.Damage)
		assert.Equal(t, 0, res.Roll)
		require.Len(t, res.Inflicts, 1)
		assert.Equal(t, "burn", res.Inflicts[0].Status)
		assert.Contains(t, res.Messages, meteor.Flavor)
	})

	t.Run("dodge avoids auto hit", func(t *testing.T) {
		r, _, _ := newDice(t, 5)
		res := r.ResolveSpecial(SpecialInput{
			Attacker: fighter("Drake", gamedata.DamageFire),
			Defender: fighter("Hero", gamedata.DamagePhysical),
			Special:  meteor,
			Guard:    ActionModifiers{ForcedMiss: true},
		})
		assert.False(t, res.Hit)
		assert.Zero(t, res.Damage)
		assert.Empty(t, res.Inflicts)
	})
}

func TestResolveSummonAttackDropsSelfConfusion(t *testing.T) {
	r, _, _ := newDice(t, 0)
	cat := gamedata.MustLoadDefaultCatalog()
	wolf := cat.Summons.GetByID("wolf")
	require.NotNil(t, wolf)

	res := r.ResolveSummonAttack(&Summon{Def: wolf, TurnsLeft: 2}, fighter("Goblin", gamedata.DamagePhysical), nil)
	assert.True(t, res.Fumble)
	assert.Empty(t, res.Inflicts)
	assert.Equal(t, wolf.Name, res.Attacker)
}

func TestApplySkillHealReportsOverheal(t *testing.T) {
	r, _, _ := newDice(t, 7, 7)
	cat := gamedata.MustLoadDefaultCatalog()
	heal := cat.Skills.GetByID("heal")
	require.NotNil(t, heal)

	user := fighter("Cleric", gamedata.DamageHoly)
	user.HP = 27

	res := r.ApplySkill(SkillInput{User: user, Skill: heal})
	assert.Greater(t, res.Heal.Rolled, res.Heal.Applied)
	assert.Equal(t, 3, res.Heal.Applied)
	assert.Equal(t, res.Heal.Rolled-3, res.Heal.Overflow())
	assert.Equal(t, 27, user.HP, "ApplySkill must not mutate")
}

func TestApplySkillBuffTargetsUser(t *testing.T) {
	r, _, _ := newDice(t)
	cat := gamedata.MustLoadDefaultCatalog()
	cry := cat.Skills.GetByID("battle_cry")
	require.NotNil(t, cry)

	user := fighter("Hero", gamedata.DamagePhysical)
	res := r.ApplySkill(SkillInput{User: user, Skill: cry})
	require.Len(t, res.Inflicts, 1)
	assert.Same(t, user, res.Inflicts[0].Target)
	assert.Nil(t, res.Attack)
}

func TestNewResolver(t *testing.T) {
	status := NewStatusEngine(gamedata.EmptyCatalog(), dice.NewSequence())

	r, err := NewResolver("", status, dice.NewSequence())
	require.NoError(t, err)
	assert.Equal(t, StyleDice, r.Style())

	r, err = NewResolver(StyleAccuracy, status, dice.NewSequence())
	require.NoError(t, err)
	assert.Equal(t, StyleAccuracy, r.Style())

	_, err = NewResolver("meter", status, dice.NewSequence())
	assert.ErrorIs(t, err, ErrUnknownStyle)
}

func TestAccuracyStyle(t *testing.T) {
	tests := []struct {
		name     string
		roll     int // zero-based d100
		defense  int
		wantHit  bool
		wantCrit bool
		wantFumb bool
	}{
		{name: "under chance", roll: 49, defense: 10, wantHit: true},
		{name: "over chance", roll: 80, defense: 10},
		{name: "critical ignores defense", roll: 2, defense: 40, wantHit: true, wantCrit: true},
		{name: "fumble", roll: 97, defense: 0, wantFumb: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := dice.NewSequence(tt.roll, 0)
			status := NewStatusEngine(gamedata.MustLoadDefaultCatalog(), src)
			r := NewAccuracyStyle(status, src)
			defender := fighter("Goblin", gamedata.DamagePhysical)
			defender.Defense = tt.defense

			res := r.ResolveAttack(AttackInput{Attacker: fighter("Hero", gamedata.DamagePhysical), Defender: defender})
			assert.Equal(t, tt.wantHit, res.Hit)
			assert.Equal(t, tt.wantCrit, res.Critical)
			assert.Equal(t, tt.wantFumb, res.Fumble)
			assert.GreaterOrEqual(t, res.Total, accuracyFloor)
			assert.LessOrEqual(t, res.Total, accuracyCeil)
			if res.Hit {
				assert.GreaterOrEqual(t, res.Damage, 1)
			}
		})
	}
}

func TestHitsAlwaysDealDamage(t *testing.T) {
	src := dice.NewSource(99)
	cat := gamedata.MustLoadDefaultCatalog()
	status := NewStatusEngine(cat, src)
	r := NewDiceStyle(status, src)
	types := []gamedata.DamageType{
		gamedata.DamagePhysical, gamedata.DamageFire, gamedata.DamageIce,
		gamedata.DamageLightning, gamedata.DamagePoison, gamedata.DamageHoly, gamedata.DamageShadow,
	}

	for i := 0; i < 500; i++ {
		a := fighter("A", types[i%len(types)])
		d := fighter("B", types[(i/len(types))%len(types)])
		res := r.ResolveAttack(AttackInput{
			Attacker: a,
			Defender: d,
			Mods:     ActionModifiers{DamageMultiplier: 0.25},
			Guard:    ActionModifiers{DamageReduction: 0.9},
		})
		if res.Hit {
			require.GreaterOrEqual(t, res.Damage, 1)
		}
	}
}

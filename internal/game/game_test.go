package game

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samdwyer/storybattle/internal/combat"
	"github.com/samdwyer/storybattle/internal/config"
	"github.com/samdwyer/storybattle/internal/dice"
	"github.com/samdwyer/storybattle/internal/gamedata"
)

const step = 100 * time.Millisecond

// A full round with no summon and no statuses takes four steps: action,
// enemy tick, enemy action, player tick.
const round = 4 * step

type recorder struct {
	notes []Notification
}

func (r *recorder) Notify(n Notification) { r.notes = append(r.notes, n) }

func (r *recorder) has(kind NoteKind) bool {
	for _, n := range r.notes {
		if n.Kind == kind {
			return true
		}
	}
	return false
}

func (r *recorder) logged(substr string) bool {
	for _, n := range r.notes {
		if n.Kind == NoteLog && strings.Contains(n.Text, substr) {
			return true
		}
	}
	return false
}

func (r *recorder) sides(kind NoteKind) []Side {
	var out []Side
	for _, n := range r.notes {
		if n.Kind == kind {
			out = append(out, n.Side)
		}
	}
	return out
}

type animator struct {
	recorder
	done []func()
}

func (a *animator) Animate(_ []Notification, done func()) { a.done = append(a.done, done) }

func byID[T any](id func(*T) string, items ...T) *gamedata.Registry[T] {
	return gamedata.NewRegistry(items, id)
}

func fixtureCatalog() *gamedata.Catalog {
	c := gamedata.EmptyCatalog()
	c.Statuses = byID(func(d *gamedata.StatusDef) string { return d.ID },
		gamedata.StatusDef{ID: gamedata.StatusStun, Name: "Stun", Duration: 1, SkipsTurn: true},
		gamedata.StatusDef{ID: gamedata.StatusConfusion, Name: "Confusion", Duration: 2, SelfDamageChance: 50, SelfDamageDice: "1d4"},
		gamedata.StatusDef{ID: "poison", Name: "Poison", Stackable: true, MaxStacks: 3, Duration: 3, DamagePerTick: 2},
	)
	c.Skills = byID(func(d *gamedata.SkillDef) string { return d.ID },
		gamedata.SkillDef{ID: "mend", Name: "Mend", Kind: gamedata.SkillHeal, ManaCost: 5, Heal: "1d8"},
	)
	c.Items = byID(func(d *gamedata.ItemDef) string { return d.ID },
		gamedata.ItemDef{ID: "potion", Name: "Potion", Heal: "2d4"},
	)
	c.Summons = byID(func(d *gamedata.SummonDef) string { return d.ID },
		gamedata.SummonDef{ID: "wolf", Name: "Wolf", ManaCost: 4, Duration: 2, AttackBonus: 3, Damage: "1d4", DamageType: gamedata.DamagePhysical},
	)
	c.Specials = byID(func(d *gamedata.SpecialDef) string { return d.ID },
		gamedata.SpecialDef{ID: "crush", Name: "Crush", Damage: "2d6", DamageType: gamedata.DamagePhysical, AutoHit: true},
	)
	c.Enemies = byID(func(d *gamedata.EnemyDef) string { return d.ID },
		gamedata.EnemyDef{ID: "dummy", Name: "Dummy", HP: 30, Defense: 10, Damage: "1d4", DamageType: gamedata.DamagePhysical, SpawnWeight: 1},
		gamedata.EnemyDef{
			ID: "brute", Name: "Brute", HP: 30, Defense: 10, Damage: "1d4", DamageType: gamedata.DamagePhysical,
			StaggerThreshold: 3,
			Intents:          []gamedata.IntentDef{{Ability: "crush", Chance: 100, PrepTurns: 1, Cooldown: 5}},
		},
		gamedata.EnemyDef{ID: "warded", Name: "Warded", HP: 30, Defense: 10, Damage: "1d4", DamageType: gamedata.DamagePhysical, Barrier: 5},
	)
	return c
}

func battleConfig() config.Battle {
	cfg := config.DefaultBattle()
	cfg.Terrain = ""
	cfg.CarryOver = false
	cfg.Player = config.PlayerConfig{
		Name:    "Hero",
		HP:      30,
		Mana:    10,
		Defense: 10,
		Damage:  "1d6",
		Skills:  []string{"mend"},
		Special: "crush",
		Items:   map[string]int{"potion": 1},
	}
	cfg.Enemy = config.EnemyConfig{ID: "dummy"}
	cfg.Timing = config.Timing{StepDelay: step, EnemyDelay: step, TickDelay: step}
	return cfg
}

func newEngine(t *testing.T, p Presenter, script ...int) *Engine {
	t.Helper()
	return New(fixtureCatalog(), WithDice(dice.NewSequence(script...)), WithPresenter(p))
}

func start(t *testing.T, e *Engine, cfg config.Battle) {
	t.Helper()
	_, err := e.Start(context.Background(), cfg, "test")
	require.NoError(t, err)
}

func TestStartDeliversInitialState(t *testing.T) {
	rec := &recorder{}
	e := newEngine(t, rec)
	id, err := e.Start(context.Background(), battleConfig(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	snap := e.State()
	assert.True(t, snap.Active)
	assert.Equal(t, PhasePlayer, snap.Phase)
	assert.Equal(t, 1, snap.Turn)
	assert.Equal(t, 30, snap.Player.HP)
	assert.Equal(t, "Dummy", snap.Enemy.Name)
	assert.Equal(t, []Side{SidePlayer, SideEnemy}, rec.sides(NoteHealth))
	assert.True(t, rec.has(NoteTurn))

	_, err = e.Start(context.Background(), battleConfig(), "again")
	assert.ErrorIs(t, err, ErrSessionActive)
}

func TestStartRejectsUnknownStyle(t *testing.T) {
	e := newEngine(t, nil)
	cfg := battleConfig()
	cfg.Style = "chess"
	_, err := e.Start(context.Background(), cfg, "")
	assert.ErrorIs(t, err, combat.ErrUnknownStyle)
	assert.False(t, e.State().Active)
}

func TestFullRound(t *testing.T) {
	rec := &recorder{}
	// Player: d20 15 hits, 1d6 3. Enemy: d20 15 hits, 1d4 2.
	e := newEngine(t, rec, 14, 2, 14, 1)
	start(t, e, battleConfig())
	rec.notes = nil

	var results []ActionResult
	require.True(t, e.ExecuteAction(ActionAttack, ActionParams{}, func(r ActionResult) {
		results = append(results, r)
	}))

	// Nothing is presented before the step delay.
	assert.Empty(t, rec.notes)
	assert.Equal(t, PhaseResolving, e.State().Phase)
	assert.Equal(t, 27, e.State().Enemy.HP)

	e.Advance(step)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	require.NotNil(t, results[0].Attack)
	assert.True(t, results[0].Attack.Hit)
	assert.True(t, e.State().Locked)

	e.Advance(round - step)
	snap := e.State()
	assert.Equal(t, PhasePlayer, snap.Phase)
	assert.False(t, snap.Locked)
	assert.Equal(t, 2, snap.Turn)
	assert.Equal(t, 28, snap.Player.HP)
	assert.Equal(t, 15, snap.Player.Charge)

	assert.Equal(t, []Side{SidePlayer, SideEnemy}, rec.sides(NoteRoll))
	assert.Equal(t, []Side{SideEnemy, SidePlayer}, rec.sides(NoteDamage))
	last := rec.notes[len(rec.notes)-1]
	assert.Equal(t, NoteTurn, last.Kind)
	assert.Equal(t, "Turn 2", last.Text)
}

func TestActionDroppedWhileResolving(t *testing.T) {
	rec := &recorder{}
	e := newEngine(t, rec, 14, 2, 14, 1)
	start(t, e, battleConfig())

	calls := 0
	cb := func(ActionResult) { calls++ }
	require.True(t, e.ExecuteAction(ActionAttack, ActionParams{}, cb))
	before := e.State()

	assert.False(t, e.ExecuteAction(ActionAttack, ActionParams{}, cb))
	assert.False(t, e.ExecuteAction(ActionDefend, ActionParams{}, cb))
	assert.Equal(t, before, e.State())

	e.Advance(round)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []Side{SidePlayer, SideEnemy}, rec.sides(NoteRoll))
}

func TestRejectedActionLeavesStateUnchanged(t *testing.T) {
	cfg := battleConfig()
	cfg.Player.Mana = 2
	cfg.Player.Items = nil

	tests := []struct {
		name   string
		kind   ActionKind
		params ActionParams
		reason string
	}{
		{"unknown skill", ActionSkill, ActionParams{SkillID: "meteor"}, ReasonUnknownSkill},
		{"insufficient mana", ActionSkill, ActionParams{SkillID: "mend"}, ReasonNoMana},
		{"item not held", ActionItem, ActionParams{ItemID: "potion"}, ReasonNoItem},
		{"unknown item", ActionItem, ActionParams{ItemID: "elixir"}, ReasonUnknownItem},
		{"summon without mana", ActionSummon, ActionParams{SummonID: "wolf"}, ReasonNoMana},
		{"charge not ready", ActionSpecial, ActionParams{}, ReasonChargeNotReady},
		{"unknown action", ActionKind("dance"), ActionParams{}, ReasonUnknownAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			e := newEngine(t, rec)
			start(t, e, cfg)
			rec.notes = nil
			before := e.State()

			var got *ActionResult
			require.True(t, e.ExecuteAction(tt.kind, tt.params, func(r ActionResult) { got = &r }))
			require.NotNil(t, got, "rejections are reported synchronously")
			assert.False(t, got.Success)
			assert.Equal(t, tt.reason, got.Reason)
			assert.NotEmpty(t, got.Messages)

			assert.Equal(t, before, e.State())
			assert.Empty(t, rec.notes)
			assert.Zero(t, e.Advance(time.Minute))
		})
	}
}

func TestPausePreservesRemainingDelay(t *testing.T) {
	e := newEngine(t, nil, 14, 2, 14, 1)
	start(t, e, battleConfig())

	called := false
	require.True(t, e.ExecuteAction(ActionAttack, ActionParams{}, func(ActionResult) { called = true }))

	e.Advance(60 * time.Millisecond)
	e.Pause()
	assert.True(t, e.State().Paused)
	e.Advance(time.Minute)
	assert.False(t, called)

	assert.False(t, e.TogglePause())
	e.Advance(39 * time.Millisecond)
	assert.False(t, called)
	e.Advance(time.Millisecond)
	assert.True(t, called)
}

func TestEndCancelsPendingContinuations(t *testing.T) {
	rec := &recorder{}
	e := newEngine(t, rec, 14, 2, 14, 1)
	start(t, e, battleConfig())

	called, own := false, false
	require.True(t, e.ExecuteAction(ActionAttack, ActionParams{}, func(ActionResult) { called = true }))
	e.Schedule(50*time.Millisecond, func() { own = true })

	target, err := e.End(OutcomeFlee)
	require.NoError(t, err)
	assert.Equal(t, "escape", target)
	assert.True(t, rec.has(NoteBattleEnded))

	e.Advance(time.Minute)
	assert.False(t, called)
	assert.False(t, own)
	assert.False(t, e.State().Active)

	_, err = e.End(OutcomeWin)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.False(t, e.ExecuteAction(ActionAttack, ActionParams{}, nil))
}

func TestResetCancelsAndForgetsCarry(t *testing.T) {
	e := newEngine(t, nil, 14, 2, 14, 1)
	start(t, e, battleConfig())
	e.ExecuteAction(ActionAttack, ActionParams{}, nil)
	e.Advance(round)
	_, err := e.End(OutcomeWin)
	require.NoError(t, err)
	require.NotNil(t, e.Carry())

	start(t, e, battleConfig())
	called := false
	e.ExecuteAction(ActionAttack, ActionParams{}, func(ActionResult) { called = true })
	e.Pause()
	e.Reset()

	assert.False(t, e.State().Active)
	assert.False(t, e.State().Paused)
	assert.Nil(t, e.Carry())
	e.Advance(time.Minute)
	assert.False(t, called)
}

func TestEnemyDefeatEndsBattle(t *testing.T) {
	rec := &recorder{}
	e := newEngine(t, rec, 14, 2)
	cfg := battleConfig()
	cfg.Enemy.HP = 2
	start(t, e, cfg)

	require.True(t, e.ExecuteAction(ActionAttack, ActionParams{}, nil))
	assert.Equal(t, PhaseEnded, e.State().Phase)

	e.Advance(time.Minute)
	assert.True(t, rec.has(NoteBattleEnded))
	assert.Equal(t, []Side{SidePlayer}, rec.sides(NoteRoll), "the enemy never acts")
	assert.Equal(t, OutcomeWin, e.State().Outcome)
	assert.False(t, e.ExecuteAction(ActionAttack, ActionParams{}, nil))

	target, err := e.End(OutcomeLose)
	require.NoError(t, err)
	assert.Equal(t, "victory", target, "the natural outcome wins over the argument")
}

func TestPlayerDefeat(t *testing.T) {
	rec := &recorder{}
	// Player misses with a 5; enemy hits with a 15 for 4.
	e := newEngine(t, rec, 4, 14, 3)
	cfg := battleConfig()
	cfg.Player.HP = 3
	start(t, e, cfg)

	e.ExecuteAction(ActionAttack, ActionParams{}, nil)
	e.Advance(time.Minute)

	snap := e.State()
	assert.Equal(t, OutcomeLose, snap.Outcome)
	assert.Equal(t, PhaseEnded, snap.Phase)
	assert.Equal(t, 0, snap.Player.HP)

	target, err := e.End(OutcomeNone)
	require.NoError(t, err)
	assert.Equal(t, "game_over", target)
	assert.Equal(t, 1, e.Carry().HP, "a defeated player carries 1 HP")
}

func TestCarryOver(t *testing.T) {
	e := newEngine(t, nil, 14, 2, 14, 1)
	start(t, e, battleConfig())
	e.ExecuteAction(ActionAttack, ActionParams{}, nil)
	e.Advance(round)
	_, err := e.End(OutcomeWin)
	require.NoError(t, err)

	cfg := battleConfig()
	cfg.CarryOver = true
	start(t, e, cfg)
	snap := e.State()
	assert.Equal(t, 28, snap.Player.HP)
	assert.Equal(t, 15, snap.Player.Charge)
	_, err = e.End(OutcomeFlee)
	require.NoError(t, err)

	cfg.CarryOver = false
	start(t, e, cfg)
	assert.Equal(t, 30, e.State().Player.HP)
}

func TestStaggerInterruptsIntent(t *testing.T) {
	rec := &recorder{}
	// Round 1: both miss with a 5, the brute announces Crush.
	// Round 2: the player hits for 3, filling the stagger meter.
	e := newEngine(t, rec, 4, 4, 14, 2)
	cfg := battleConfig()
	cfg.Enemy.ID = "brute"
	start(t, e, cfg)

	e.ExecuteAction(ActionAttack, ActionParams{}, nil)
	e.Advance(round)
	snap := e.State()
	require.NotNil(t, snap.Intent)
	assert.Equal(t, "crush", snap.Intent.AbilityID)
	assert.Equal(t, 0, snap.Intent.TurnsRemaining)
	assert.True(t, rec.logged("begins preparing Crush"))

	require.True(t, e.ExecuteAction(ActionAttack, ActionParams{}, nil))
	assert.Nil(t, e.State().Intent)
	e.Advance(round)

	snap = e.State()
	assert.Equal(t, PhasePlayer, snap.Phase)
	assert.True(t, rec.logged("Crush is interrupted"))
	assert.True(t, rec.logged("cannot act"))
	assert.False(t, rec.logged("unleashes"))
	assert.Equal(t, 30, snap.Player.HP)
}

func TestPlayerStaggerStunsPlayer(t *testing.T) {
	rec := &recorder{}
	// The player misses with a 5; the dummy hits with a 15 for 2, filling
	// the player's meter. The stunned player loses the next round and the
	// dummy's second swing misses with a 2.
	e := newEngine(t, rec, 4, 14, 1)
	cfg := battleConfig()
	cfg.Player.StaggerThreshold = 2
	start(t, e, cfg)

	e.ExecuteAction(ActionAttack, ActionParams{}, nil)
	e.Advance(time.Minute)

	snap := e.State()
	assert.Equal(t, PhasePlayer, snap.Phase)
	assert.Equal(t, 3, snap.Turn)
	assert.Equal(t, 28, snap.Player.HP)
	assert.Zero(t, snap.Player.Stagger)
	assert.True(t, rec.logged("Hero staggers!"))
	assert.True(t, rec.logged("Hero is held by Stun and cannot act!"))
	assert.Equal(t, []Side{SidePlayer, SideEnemy, SideEnemy}, rec.sides(NoteRoll))
}

func TestPlayerStaggerDisabledByDefault(t *testing.T) {
	rec := &recorder{}
	e := newEngine(t, rec, 4, 14, 1)
	start(t, e, battleConfig())

	e.ExecuteAction(ActionAttack, ActionParams{}, nil)
	e.Advance(time.Minute)

	snap := e.State()
	assert.Equal(t, 2, snap.Turn)
	assert.Zero(t, snap.Player.Stagger)
	assert.False(t, rec.logged("staggers"))
}

func TestIntentExecutesAfterCountdown(t *testing.T) {
	rec := &recorder{}
	// Every d20 is a 5 so nothing hits; Crush rolls 2d6 as 1 and 1.
	e := newEngine(t, rec, 4, 4, 4, 0, 0)
	cfg := battleConfig()
	cfg.Enemy.ID = "brute"
	start(t, e, cfg)

	e.ExecuteAction(ActionAttack, ActionParams{}, nil)
	e.Advance(round)
	e.ExecuteAction(ActionAttack, ActionParams{}, nil)
	e.Advance(round)

	assert.True(t, rec.logged("Brute unleashes Crush!"))
	assert.Equal(t, 28, e.State().Player.HP)
	assert.Nil(t, e.State().Intent)
}

func TestAnimatorGatesNextStep(t *testing.T) {
	anim := &animator{}
	e := newEngine(t, anim, 14, 2, 14, 1)
	start(t, e, battleConfig())

	called := 0
	e.ExecuteAction(ActionAttack, ActionParams{}, func(ActionResult) { called++ })
	e.Advance(step)
	require.Len(t, anim.done, 1)
	assert.Zero(t, called)

	e.Advance(time.Minute)
	assert.Len(t, anim.done, 1, "the scheduler waits for the animation")

	anim.done[0]()
	anim.done[0]()
	assert.Equal(t, 1, called)
	assert.Equal(t, 1, e.timers.Pending())
}

func TestDefendHalvesNextHit(t *testing.T) {
	// Enemy hits with a 15 for 4, halved to 2.
	e := newEngine(t, nil, 14, 3)
	start(t, e, battleConfig())

	e.ExecuteAction(ActionDefend, ActionParams{}, nil)
	assert.Equal(t, "defend", e.State().Stance.Kind)
	e.Advance(round)

	snap := e.State()
	assert.Equal(t, 28, snap.Player.HP)
	assert.False(t, snap.Stance.Active(), "the stance is spent on one attack")
}

func TestItemReportsOverheal(t *testing.T) {
	rec := &recorder{}
	e := newEngine(t, rec, 2, 2, 4)
	start(t, e, battleConfig())

	e.ExecuteAction(ActionItem, ActionParams{ItemID: "potion"}, nil)
	assert.Zero(t, e.State().Items["potion"])
	e.Advance(step)

	var heal *Notification
	for i := range rec.notes {
		if rec.notes[i].Kind == NoteHeal {
			heal = &rec.notes[i]
		}
	}
	require.NotNil(t, heal)
	assert.Equal(t, 6, heal.Rolled)
	assert.Equal(t, 0, heal.Amount)
	assert.Equal(t, 30, e.State().Player.HP)
}

func TestSummonAttacksThenFades(t *testing.T) {
	// Wolf hits with 15+3 for 2; enemy misses with a 5.
	e := newEngine(t, nil, 14, 1, 4)
	start(t, e, battleConfig())

	require.True(t, e.ExecuteAction(ActionSummon, ActionParams{SummonID: "wolf"}, nil))
	assert.Equal(t, 6, e.State().Player.Mana)
	e.Advance(round + step)

	snap := e.State()
	assert.Equal(t, 28, snap.Enemy.HP)
	require.NotNil(t, snap.Summon)
	assert.Equal(t, 1, snap.Summon.TurnsLeft)

	var res ActionResult
	e.ExecuteAction(ActionSummon, ActionParams{SummonID: "wolf"}, func(r ActionResult) { res = r })
	assert.Equal(t, ReasonSummonActive, res.Reason)
}

func TestFleeEndsWithEscapeTarget(t *testing.T) {
	e := newEngine(t, nil, 14)
	start(t, e, battleConfig())

	e.ExecuteAction(ActionFlee, ActionParams{}, nil)
	assert.Equal(t, OutcomeFlee, e.State().Outcome)

	target, err := e.End(OutcomeNone)
	require.NoError(t, err)
	assert.Equal(t, "escape", target)
}

func TestMissingCatalogsDisableFeatures(t *testing.T) {
	catalog := fixtureCatalog()
	catalog.Specials = gamedata.NewRegistry[gamedata.SpecialDef](nil, func(d *gamedata.SpecialDef) string { return d.ID })
	catalog.Summons = gamedata.NewRegistry[gamedata.SummonDef](nil, func(d *gamedata.SummonDef) string { return d.ID })

	tests := []struct {
		name   string
		kind   ActionKind
		params ActionParams
	}{
		{"special", ActionSpecial, ActionParams{}},
		{"summon", ActionSummon, ActionParams{SummonID: "wolf"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(catalog, WithDice(dice.NewSequence()))
			start(t, e, battleConfig())
			before := e.State()

			var got ActionResult
			require.True(t, e.ExecuteAction(tt.kind, tt.params, func(r ActionResult) { got = r }))
			assert.False(t, got.Success)
			assert.Equal(t, ReasonFeatureDisabled, got.Reason)
			assert.Equal(t, before, e.State())
		})
	}
}

func TestBarrierFeatureDetection(t *testing.T) {
	cfg := battleConfig()
	cfg.Enemy.ID = "warded"

	without := newEngine(t, nil)
	start(t, without, cfg)
	assert.Zero(t, without.State().Barrier)

	rec := &recorder{}
	with := New(fixtureCatalog(),
		WithDice(dice.NewSequence(14, 2)),
		WithPresenter(rec),
		WithBarrier(combat.NewPointBarrier()))
	start(t, with, cfg)
	assert.Equal(t, 5, with.State().Barrier)

	with.ExecuteAction(ActionAttack, ActionParams{}, nil)
	snap := with.State()
	assert.Equal(t, 2, snap.Barrier)
	assert.Equal(t, 30, snap.Enemy.HP)
}

func TestSnapshotIsACopy(t *testing.T) {
	e := newEngine(t, nil)
	start(t, e, battleConfig())

	snap := e.State()
	snap.Player.HP = 1
	snap.Items["potion"] = 99
	snap.Skills[0] = "hacked"

	again := e.State()
	assert.Equal(t, 30, again.Player.HP)
	assert.Equal(t, 1, again.Items["potion"])
	assert.Equal(t, "mend", again.Skills[0])
}

package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/samdwyer/storybattle/internal/clock"
	"github.com/samdwyer/storybattle/internal/combat"
	"github.com/samdwyer/storybattle/internal/config"
	"github.com/samdwyer/storybattle/internal/dice"
	"github.com/samdwyer/storybattle/internal/entity"
	"github.com/samdwyer/storybattle/internal/gamedata"
	"github.com/samdwyer/storybattle/internal/telemetry"
)

var (
	// ErrNoSession is returned when an operation needs an active battle.
	ErrNoSession = errors.New("no active battle session")
	// ErrSessionActive is returned by Start while a battle is in progress.
	ErrSessionActive = errors.New("battle session already active")
)

// Engine is the combat facade. It owns at most one Session at a time and
// all of its timers.
//
// An Engine is not safe for concurrent use. Every call, including Advance
// which runs the scheduled continuations, must come from one goroutine.
type Engine struct {
	catalog   *gamedata.Catalog
	src       dice.Source
	presenter Presenter
	animator  Animator
	barrier   combat.Barrier
	planner   combat.Planner
	log       *zap.Logger
	tracer    trace.Tracer
	rules     *config.Rules

	status *combat.StatusEngine
	timers *clock.Timers

	session  *Session
	resolver combat.Resolver
	ctx      context.Context
	locked   bool
	gen      uint64 // Bumped on End/Reset; stale continuations compare against it
	carry    *entity.Player
	warned   map[string]bool

	hasBarrier bool
	hasPlanner bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithDice sets the random source. Tests pass a dice.Sequence.
func WithDice(src dice.Source) Option {
	return func(e *Engine) { e.src = src }
}

// WithPresenter sets the notification sink. A presenter that also
// implements Animator gates each step on its completion callback.
func WithPresenter(p Presenter) Option {
	return func(e *Engine) { e.presenter = p }
}

// WithBarrier enables enemy barriers.
func WithBarrier(b combat.Barrier) Option {
	return func(e *Engine) { e.barrier = b }
}

// WithPlanner replaces the default intent planner.
func WithPlanner(p combat.Planner) Option {
	return func(e *Engine) { e.planner = p }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithTracer sets the tracer for battle spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithRules overrides the rules of every battle config passed to Start.
func WithRules(r config.Rules) Option {
	return func(e *Engine) { e.rules = &r }
}

// New creates an Engine. Optional collaborators are resolved here, once;
// missing ones are replaced by inert implementations.
func New(catalog *gamedata.Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog: catalog,
		timers:  clock.New(),
		warned:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.catalog == nil {
		e.catalog = gamedata.EmptyCatalog()
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.tracer == nil {
		e.tracer = telemetry.NoopTracer()
	}
	if e.src == nil {
		seed, err := dice.NewSeed()
		if err != nil {
			seed = time.Now().UnixNano()
		}
		e.src = dice.NewSource(seed)
	}
	if e.presenter == nil {
		e.presenter = nopPresenter{}
	}
	if a, ok := e.presenter.(Animator); ok {
		e.animator = a
	}

	e.hasBarrier = e.barrier != nil
	if !e.hasBarrier {
		e.barrier = combat.NoBarrier{}
	}
	e.hasPlanner = e.planner != nil
	if !e.hasPlanner {
		if e.catalog.Specials.Count() > 0 {
			e.planner = combat.NewIntentPlanner(e.catalog.Specials, e.src)
			e.hasPlanner = true
		} else {
			e.planner = combat.NoPlanner{}
			e.warnOnce("planner", "specials catalog empty, enemy intents disabled")
		}
	}

	e.status = combat.NewStatusEngine(e.catalog, e.src)
	return e
}

// Start begins a battle. An empty sessionID is replaced by a generated one,
// which is returned.
func (e *Engine) Start(ctx context.Context, cfg config.Battle, sessionID string) (string, error) {
	if e.session != nil && e.session.Outcome == OutcomeNone {
		return "", ErrSessionActive
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx, span := e.tracer.Start(ctx, "battle.start")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	resolver, err := combat.NewResolver(combat.Style(cfg.Style), e.status, e.src)
	if err != nil {
		err = fmt.Errorf("start battle %s: %w", sessionID, err)
		telemetry.Fail(span, err)
		return "", err
	}

	e.cancelPending()
	e.resolver = resolver

	rules := cfg.Rules
	if e.rules != nil {
		rules = *e.rules
	}

	s := &Session{
		ID:        sessionID,
		Turn:      1,
		Style:     resolver.Style(),
		TerrainID: cfg.Terrain,
		Targets:   cfg.Targets,
		Rules:     rules,
		Timing:    cfg.Timing,
		machine:   newPhaseMachine(e.log.With(zap.String("session", sessionID))),
	}

	if cfg.Terrain != "" {
		s.Terrain = e.catalog.Terrains.GetByID(cfg.Terrain)
		if s.Terrain == nil {
			e.warnOnce("terrain:"+cfg.Terrain, "unknown terrain, battling without one", zap.String("terrain", cfg.Terrain))
		}
	}

	class := e.catalog.Classes.GetByID(cfg.Player.Class)
	if class == nil && cfg.Player.Class != "" {
		e.warnOnce("class:"+cfg.Player.Class, "unknown class, using config stats only", zap.String("class", cfg.Player.Class))
	}
	s.Profile = entity.NewPlayer(cfg.Player, class)
	if cfg.CarryOver {
		s.Profile.CarryOver(e.carry)
	}
	s.Player = s.Profile.Combatant()

	def := entity.PickEnemy(e.catalog.Enemies, cfg.Enemy.ID, e.src)
	if def == nil {
		e.warnOnce("enemy:"+cfg.Enemy.ID, "enemy template unavailable, using a fallback", zap.String("enemy", cfg.Enemy.ID))
		def = fallbackEnemy()
	}
	s.Enemy = entity.NewEnemy(def, cfg.Enemy)

	e.barrier.Clear()
	if def.Barrier > 0 {
		if e.hasBarrier {
			e.barrier.Raise(s.Enemy.Combatant, def.Barrier)
		} else {
			e.warnOnce("barrier", "barrier subsystem absent, enemy barriers disabled")
		}
	}
	if len(def.Intents) > 0 && !e.hasPlanner {
		e.warnOnce("intents", "intent planner absent, telegraphed abilities disabled")
	}
	e.planner.Reset(def.Intents)
	if p, ok := e.planner.(*combat.IntentPlanner); ok {
		p.AttackOnAnnounce = rules.AttackOnAnnounce
	}

	span.SetAttributes(
		attribute.String("enemy", def.ID),
		attribute.String("style", string(s.Style)),
		attribute.String("terrain", cfg.Terrain),
		attribute.Int("player.hp", s.Player.HP),
	)

	e.ctx = ctx
	e.session = s
	e.locked = false

	e.log.Info("battle started",
		zap.String("session", sessionID),
		zap.String("enemy", def.ID),
		zap.String("style", string(s.Style)))

	var b notes
	b.health(SidePlayer, s.Player)
	b.mana(SidePlayer, s.Player)
	b.health(SideEnemy, s.Enemy.Combatant)
	if pts := e.barrier.Points(s.Enemy.Combatant); pts > 0 {
		b.add(Notification{Kind: NoteBarrier, Side: SideEnemy, Current: pts})
	}
	b.log(SideEnemy, fmt.Sprintf("%s appears!", s.Enemy.Name))
	if s.Terrain != nil {
		b.log("", fmt.Sprintf("The battle takes place on the %s.", s.Terrain.Name))
	}
	b.add(Notification{Kind: NoteTurn, Side: SidePlayer, Text: "Turn 1"})
	e.deliver(b)

	return sessionID, nil
}

func fallbackEnemy() *gamedata.EnemyDef {
	return &gamedata.EnemyDef{
		ID:          "fallback",
		Name:        "Shade",
		HP:          20,
		Defense:     10,
		AttackBonus: 2,
		Damage:      "1d6",
		DamageType:  gamedata.DamagePhysical,
	}
}

// End finishes the active battle with result, unless it already ended on
// its own, and returns the story target for the final outcome. Pending
// continuations are discarded and the action lock is released.
func (e *Engine) End(result Outcome) (string, error) {
	s := e.session
	if s == nil {
		return "", ErrNoSession
	}
	e.cancelPending()

	if s.Outcome == OutcomeNone {
		var b notes
		e.conclude(result, &b)
		e.deliver(b)
	}

	_, span := e.tracer.Start(e.ctx, "battle.end")
	span.SetAttributes(
		attribute.String("session.id", s.ID),
		attribute.String("outcome", string(s.Outcome)),
		attribute.Int("turns", s.Turn),
		attribute.Int("player.hp", s.Player.HP),
		attribute.Int("enemy.hp", s.Enemy.HP),
	)
	span.End()

	e.log.Info("battle ended",
		zap.String("session", s.ID),
		zap.String("outcome", string(s.Outcome)),
		zap.Int("turns", s.Turn))

	e.session = nil
	e.locked = false
	return s.Targets.Target(string(s.Outcome)), nil
}

// Reset drops the active battle without an outcome and forgets carried
// player state.
func (e *Engine) Reset() {
	e.cancelPending()
	e.session = nil
	e.locked = false
	e.carry = nil
	e.barrier.Clear()
	e.planner.Reset(nil)
}

// cancelPending invalidates every scheduled continuation, including those
// the embedder scheduled, and unfreezes the clock.
func (e *Engine) cancelPending() {
	e.gen++
	if n := e.timers.CancelAll(); n > 0 {
		e.log.Debug("cancelled pending continuations", zap.Int("count", n))
	}
	e.timers.Resume()
}

// Pause freezes every pending continuation.
func (e *Engine) Pause() { e.timers.Pause() }

// Resume re-arms paused continuations with their remaining delays.
func (e *Engine) Resume() { e.timers.Resume() }

// TogglePause flips the pause state and returns true if now paused.
func (e *Engine) TogglePause() bool { return e.timers.Toggle() }

// Schedule defers fn through the engine's pausable, cancelable timers.
func (e *Engine) Schedule(delay time.Duration, fn func()) clock.Handle {
	return e.timers.Schedule(delay, fn)
}

// Advance moves the engine's clock forward, running due continuations.
func (e *Engine) Advance(d time.Duration) int { return e.timers.Advance(d) }

// Flush runs pending continuations until none are left, up to limit.
func (e *Engine) Flush(limit int) int { return e.timers.Flush(limit) }

// Carry returns the player state carried into the next battle, or nil.
func (e *Engine) Carry() *entity.Player {
	if e.carry == nil {
		return nil
	}
	return e.carry.Clone()
}

// Catalog returns the engine's catalog.
func (e *Engine) Catalog() *gamedata.Catalog { return e.catalog }

func (e *Engine) deliver(b notes) {
	for _, n := range b {
		e.presenter.Notify(n)
	}
}

func (e *Engine) warnOnce(key, msg string, fields ...zap.Field) {
	if e.warned[key] {
		return
	}
	e.warned[key] = true
	e.log.Warn(msg, fields...)
}

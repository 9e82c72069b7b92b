// Package sim plays battles headlessly, checking state invariants after
// every presented step.
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/samdwyer/storybattle/internal/combat"
	"github.com/samdwyer/storybattle/internal/config"
	"github.com/samdwyer/storybattle/internal/dice"
	"github.com/samdwyer/storybattle/internal/game"
	"github.com/samdwyer/storybattle/internal/gamedata"
	"github.com/samdwyer/storybattle/internal/telemetry"
)

// OutcomeAborted marks a run stopped by the turn cap or a stall.
const OutcomeAborted game.Outcome = "aborted"

// flushLimit bounds the continuations run between two player actions.
const flushLimit = 256

// Report summarises one simulated battle.
type Report struct {
	ID         string
	Seed       int64
	Policy     string
	Enemy      string
	Style      combat.Style
	Outcome    game.Outcome
	Turns      int
	PlayerHP   int
	EnemyHP    int
	Actions    int
	Rejected   int
	Violations []string
	CreatedAt  time.Time
}

// OK reports whether the run finished without invariant violations.
func (r Report) OK() bool { return len(r.Violations) == 0 }

// Runner plays battles from one config. It is safe for concurrent use;
// every run builds its own Engine.
type Runner struct {
	Catalog *gamedata.Catalog
	Config  config.Battle
	// Policy returns the player policy for a seed.
	Policy     func(seed int64) Policy
	PolicyName string
	Log        *zap.Logger
	Tracer     trace.Tracer
}

// NewRunner creates a Runner using the Greedy policy.
func NewRunner(catalog *gamedata.Catalog, cfg config.Battle) *Runner {
	return &Runner{
		Catalog:    catalog,
		Config:     cfg,
		Policy:     func(int64) Policy { return NewGreedy(catalog) },
		PolicyName: "greedy",
		Log:        zap.NewNop(),
		Tracer:     telemetry.NoopTracer(),
	}
}

// checker is the presenter of a simulated battle. It re-checks the
// invariants on every notification.
type checker struct {
	eng    *game.Engine
	report *Report
	seen   map[string]bool
}

func (c *checker) Notify(n game.Notification) {
	c.check(fmt.Sprintf("after %s note", n.Kind))
}

func (c *checker) check(where string) {
	for _, v := range Violations(c.eng.State()) {
		key := v + " " + where
		if !c.seen[key] {
			c.seen[key] = true
			c.report.Violations = append(c.report.Violations, key)
		}
	}
}

// Run plays one battle to completion.
func (r *Runner) Run(ctx context.Context, seed int64) (Report, error) {
	ctx, span := r.Tracer.Start(ctx, "sim.run")
	defer span.End()
	span.SetAttributes(attribute.Int64("seed", seed))

	report := Report{
		ID:        uuid.NewString(),
		Seed:      seed,
		Policy:    r.PolicyName,
		CreatedAt: time.Now().UTC(),
	}
	chk := &checker{report: &report, seen: make(map[string]bool)}
	eng := game.New(r.Catalog,
		game.WithDice(dice.NewSource(seed)),
		game.WithPresenter(chk),
		game.WithBarrier(combat.NewPointBarrier()),
		game.WithLogger(r.Log.With(zap.Int64("seed", seed))),
		game.WithTracer(r.Tracer),
	)
	chk.eng = eng

	if _, err := eng.Start(ctx, r.Config, report.ID); err != nil {
		telemetry.Fail(span, err)
		return report, fmt.Errorf("run seed %d: %w", seed, err)
	}
	policy := r.Policy(seed)

	maxTurns := r.Config.Rules.MaxTurns
	if maxTurns <= 0 {
		maxTurns = config.DefaultRules().MaxTurns
	}

	for {
		if err := ctx.Err(); err != nil {
			_, _ = eng.End(OutcomeAborted)
			return report, err
		}
		snap := eng.State()
		report.Turns = snap.Turn
		if snap.Outcome != game.OutcomeNone {
			break
		}
		if snap.Turn > maxTurns {
			report.Violations = append(report.Violations, fmt.Sprintf("battle exceeded %d turns", maxTurns))
			report.Outcome = OutcomeAborted
			break
		}
		if snap.Phase != game.PhasePlayer {
			if eng.Flush(flushLimit) == 0 {
				report.Violations = append(report.Violations, fmt.Sprintf("scheduler stalled in %s phase", snap.Phase))
				report.Outcome = OutcomeAborted
				break
			}
			continue
		}

		kind, params := policy.Choose(snap)
		var res game.ActionResult
		if !eng.ExecuteAction(kind, params, func(ar game.ActionResult) { res = ar }) {
			report.Violations = append(report.Violations, "action refused while awaiting input")
			report.Outcome = OutcomeAborted
			break
		}
		report.Actions++

		if st := eng.State(); st.Locked {
			if eng.ExecuteAction(game.ActionAttack, game.ActionParams{}, nil) {
				report.Violations = append(report.Violations, "second action accepted while resolving")
			}
		}
		eng.Flush(flushLimit)
		if !res.Success && res.Reason != "" {
			report.Rejected++
		}
		chk.check("after " + string(kind))
	}

	final := eng.State()
	report.Enemy = final.Enemy.Name
	report.Style = final.Style
	report.PlayerHP = final.Player.HP
	report.EnemyHP = final.Enemy.HP
	if report.Outcome == "" {
		report.Outcome = final.Outcome
	}
	if _, err := eng.End(report.Outcome); err != nil {
		return report, fmt.Errorf("run seed %d: %w", seed, err)
	}

	span.SetAttributes(
		attribute.String("outcome", string(report.Outcome)),
		attribute.Int("turns", report.Turns),
		attribute.Int("violations", len(report.Violations)),
	)
	if !report.OK() {
		r.Log.Warn("invariant violations",
			zap.Int64("seed", seed),
			zap.Strings("violations", report.Violations))
	}
	return report, nil
}

// Batch runs n battles with seeds base..base+n-1 on up to workers
// goroutines. Reports are returned in seed order.
func (r *Runner) Batch(ctx context.Context, n, workers int, base int64) ([]Report, error) {
	ctx, span := r.Tracer.Start(ctx, "sim.batch")
	defer span.End()
	span.SetAttributes(attribute.Int("runs", n), attribute.Int("workers", workers))

	reports := make([]Report, n)
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i := range n {
		seed := base + int64(i)
		g.Go(func() error {
			rep, err := r.Run(gctx, seed)
			if err != nil {
				return err
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		telemetry.Fail(span, err)
		return nil, fmt.Errorf("simulation batch: %w", err)
	}
	return reports, nil
}

// Violations lists the invariants snap breaks.
func Violations(snap game.Snapshot) []string {
	if !snap.Active {
		return nil
	}
	var out []string
	for _, c := range []combat.Combatant{snap.Player, snap.Enemy} {
		if c.HP < 0 || c.HP > c.MaxHP {
			out = append(out, fmt.Sprintf("%s hp %d outside [0,%d]", c.Name, c.HP, c.MaxHP))
		}
		if c.Mana < 0 || c.Mana > c.MaxMana {
			out = append(out, fmt.Sprintf("%s mana %d outside [0,%d]", c.Name, c.Mana, c.MaxMana))
		}
		if c.StaggerThreshold > 0 && (c.Stagger < 0 || c.Stagger >= c.StaggerThreshold) {
			out = append(out, fmt.Sprintf("%s stagger %d outside [0,%d)", c.Name, c.Stagger, c.StaggerThreshold))
		}
		if c.Charge < 0 || c.Charge > combat.MaxCharge {
			out = append(out, fmt.Sprintf("%s charge %d outside [0,%d]", c.Name, c.Charge, combat.MaxCharge))
		}
		for _, s := range c.Statuses {
			if s.Stacks < 1 {
				out = append(out, fmt.Sprintf("%s status %s has %d stacks", c.Name, s.ID, s.Stacks))
			}
		}
	}
	switch snap.Phase {
	case game.PhasePlayer:
		if snap.Locked {
			out = append(out, "action lock held while awaiting input")
		}
	case game.PhaseResolving, game.PhaseEnded:
	default:
		out = append(out, fmt.Sprintf("unknown phase %q", snap.Phase))
	}
	if snap.Outcome != game.OutcomeNone && snap.Phase != game.PhaseEnded {
		out = append(out, fmt.Sprintf("outcome %s but phase %s", snap.Outcome, snap.Phase))
	}
	if snap.Summon != nil && snap.Summon.TurnsLeft <= 0 {
		out = append(out, "expired summon still active")
	}
	return out
}

// Stats aggregates a batch.
type Stats struct {
	Runs       int
	Outcomes   map[game.Outcome]int
	AvgTurns   float64
	Violations int
}

// Summarize aggregates reports.
func Summarize(reports []Report) Stats {
	st := Stats{Runs: len(reports), Outcomes: make(map[game.Outcome]int)}
	turns := 0
	for _, r := range reports {
		st.Outcomes[r.Outcome]++
		turns += r.Turns
		st.Violations += len(r.Violations)
	}
	if st.Runs > 0 {
		st.AvgTurns = float64(turns) / float64(st.Runs)
	}
	return st
}

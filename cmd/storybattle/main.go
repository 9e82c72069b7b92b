// Package main is the entry point for storybattle.
//
// Usage:
//
//	storybattle [play] [-config battle.yaml]
//	storybattle sim [-n 100] [-workers 4] [-seed 1] [-policy greedy|random] [-db storybattle.db]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/samdwyer/storybattle/internal/combat"
	"github.com/samdwyer/storybattle/internal/config"
	"github.com/samdwyer/storybattle/internal/dice"
	"github.com/samdwyer/storybattle/internal/game"
	"github.com/samdwyer/storybattle/internal/gamedata"
	"github.com/samdwyer/storybattle/internal/sim"
	"github.com/samdwyer/storybattle/internal/storage/sqlite"
	"github.com/samdwyer/storybattle/internal/telemetry"
	"github.com/samdwyer/storybattle/internal/ui"
)

func main() {
	// Load .env file for local development
	if err := godotenv.Load(); err != nil {
		// Not fatal - env vars might be set directly
		log.Printf("Note: .env file not loaded: %v", err)
	}

	envCfg, err := config.LoadEnv()
	if err != nil {
		log.Fatalf("Failed to read environment: %v", err)
	}

	logger, err := newLogger(envCfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if envCfg.Telemetry {
		telemetry.ConfigureHoneycomb(envCfg.HoneycombKey, envCfg.HoneycombDataset)
		shutdown, err := telemetry.Setup(ctx)
		if err != nil {
			log.Printf("Warning: telemetry setup failed: %v", err)
			log.Printf("Battles will run without observability")
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					log.Printf("Error shutting down telemetry: %v", err)
				}
			}()
		}
	}

	catalog, warnings := gamedata.LoadDefaultCatalog()
	for _, w := range warnings {
		logger.Warn("catalog degraded", zap.String("file", w.File), zap.Error(w.Err))
	}

	cmd, args := "play", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "play":
		err = runPlay(ctx, logger, envCfg, catalog, args)
	case "sim":
		err = runSim(ctx, logger, envCfg, catalog, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (want play or sim)\n", cmd)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", zap.String("command", cmd), zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func newLogger(envCfg config.Env) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(envCfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	if envCfg.LogFormat == "json" {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}

func runPlay(ctx context.Context, logger *zap.Logger, envCfg config.Env, catalog *gamedata.Catalog, args []string) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	path := fs.String("config", envCfg.BattleFile, "battle config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadBattle(*path)
	if err != nil {
		return err
	}

	seed := envCfg.Seed
	if seed == 0 {
		if seed, err = dice.NewSeed(); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	screen, err := ui.NewScreen()
	if err != nil {
		return err
	}
	// The terminal belongs to tcell from here on.
	logger = zap.NewNop()

	view := ui.NewView(8)
	eng := game.New(catalog,
		game.WithDice(dice.NewSource(seed)),
		game.WithPresenter(view),
		game.WithBarrier(combat.NewPointBarrier()),
		game.WithLogger(logger),
		game.WithTracer(telemetry.Tracer("storybattle/game")),
	)
	app := ui.NewApp(screen, eng, view, logger)

	target, err := app.Run(ctx, cfg)
	screen.Close()
	if err != nil {
		return err
	}
	fmt.Printf("Battle over. Next scene: %s\n", target)
	return nil
}

func runSim(ctx context.Context, logger *zap.Logger, envCfg config.Env, catalog *gamedata.Catalog, args []string) error {
	fs := flag.NewFlagSet("sim", flag.ContinueOnError)
	path := fs.String("config", envCfg.BattleFile, "battle config file")
	n := fs.Int("n", 100, "number of battles")
	workers := fs.Int("workers", envCfg.SimWorkers, "parallel battles")
	seed := fs.Int64("seed", envCfg.Seed, "first seed")
	policy := fs.String("policy", "greedy", "player policy: greedy or random")
	dbPath := fs.String("db", envCfg.ReportsDB, "report database, empty to skip saving")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadBattle(*path)
	if err != nil {
		return err
	}

	runner := sim.NewRunner(catalog, cfg)
	runner.Log = logger
	runner.Tracer = telemetry.Tracer("storybattle/sim")
	switch *policy {
	case "greedy":
	case "random":
		runner.Policy = func(s int64) sim.Policy { return sim.NewRandom(catalog, s) }
		runner.PolicyName = "random"
	default:
		return fmt.Errorf("unknown policy %q", *policy)
	}

	logger.Info("simulating",
		zap.Int("battles", *n),
		zap.Int("workers", *workers),
		zap.Int64("seed", *seed),
		zap.String("policy", runner.PolicyName))

	reports, err := runner.Batch(ctx, *n, *workers, *seed)
	if err != nil {
		return err
	}

	st := sim.Summarize(reports)
	fmt.Printf("%d battles, avg %.1f turns, %d violations\n", st.Runs, st.AvgTurns, st.Violations)
	for _, o := range []game.Outcome{game.OutcomeWin, game.OutcomeLose, game.OutcomeFlee, sim.OutcomeAborted} {
		fmt.Printf("  %-8s %d\n", o, st.Outcomes[o])
	}
	for _, r := range reports {
		for _, v := range r.Violations {
			fmt.Printf("  seed %d: %s\n", r.Seed, v)
		}
	}

	if *dbPath == "" {
		return nil
	}
	store, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.SaveReports(ctx, reports...); err != nil {
		return err
	}
	total, err := store.Summary(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("stored; %d battles on record, %d failing\n", total.Runs, total.Failing)
	return nil
}

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every runtime environment variable.
const EnvPrefix = "STORYBATTLE_"

// Env is the runtime configuration read from the environment.
type Env struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"` // console or json

	Telemetry        bool   `env:"TELEMETRY" envDefault:"false"`
	HoneycombKey     string `env:"HONEYCOMB_API_KEY"`
	HoneycombDataset string `env:"HONEYCOMB_DATASET" envDefault:"storybattle"`

	BattleFile string `env:"BATTLE" envDefault:"battle.yaml"`
	ReportsDB  string `env:"REPORTS_DB" envDefault:"storybattle.db"`

	// Seed for reproducible battles. Zero draws a random seed.
	Seed       int64 `env:"SEED"`
	SimWorkers int   `env:"SIM_WORKERS" envDefault:"4"`
}

// LoadEnv parses Env from STORYBATTLE_* variables.
func LoadEnv() (Env, error) {
	var cfg Env
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

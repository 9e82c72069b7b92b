// Package config loads battle definitions from YAML and runtime settings
// from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/samdwyer/storybattle/internal/dice"
)

// Battle holds everything needed to start one battle session.
type Battle struct {
	// Resolver variant: "dice" or "accuracy".
	Style   string `yaml:"style"`
	Terrain string `yaml:"terrain"`

	Player PlayerConfig `yaml:"player"`
	Enemy  EnemyConfig  `yaml:"enemy"`

	// Scene ids the story jumps to for each outcome.
	Targets Targets `yaml:"targets"`

	// Carry player hp, mana and charge over from the previous battle.
	CarryOver bool `yaml:"carry_over"`

	Timing Timing `yaml:"timing"`
	Rules  Rules  `yaml:"rules"`
}

// PlayerConfig describes the player. Zero values fall back to the class.
type PlayerConfig struct {
	Name        string         `yaml:"name"`
	Class       string         `yaml:"class"`
	HP          int            `yaml:"hp"`
	Mana        int            `yaml:"mana"`
	Defense     int            `yaml:"defense"`
	AttackBonus int            `yaml:"attack_bonus"`
	Damage      string         `yaml:"damage"`
	DamageType  string         `yaml:"damage_type"`
	Skills      []string       `yaml:"skills"`
	Passives    []string       `yaml:"passives"`
	Special     string         `yaml:"special"`
	Items       map[string]int `yaml:"items"`

	// StaggerThreshold lets heavy enemy hits stun the player. Zero disables it.
	StaggerThreshold int `yaml:"stagger_threshold"`
}

// EnemyConfig picks an enemy template and optionally overrides its stats.
// An empty ID means a weighted random spawn.
type EnemyConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	HP          int    `yaml:"hp"`
	Defense     int    `yaml:"defense"`
	AttackBonus int    `yaml:"attack_bonus"`
	Damage      string `yaml:"damage"`
}

// Targets are the scene ids for each battle outcome.
type Targets struct {
	Win  string `yaml:"win"`
	Lose string `yaml:"lose"`
	Flee string `yaml:"flee"`
}

// Target returns the scene id for an outcome name.
func (t Targets) Target(outcome string) string {
	switch outcome {
	case "win":
		return t.Win
	case "lose":
		return t.Lose
	case "flee":
		return t.Flee
	default:
		return ""
	}
}

// Timing holds the presentation delays between turn steps.
type Timing struct {
	StepDelay  time.Duration `yaml:"step_delay"`  // After a player action
	EnemyDelay time.Duration `yaml:"enemy_delay"` // After the enemy acts
	TickDelay  time.Duration `yaml:"tick_delay"`  // Around status ticks
}

// Rules are tunable battle constants.
type Rules struct {
	ChargeOnHit      int     `yaml:"charge_on_hit"`
	ChargeOnHurt     int     `yaml:"charge_on_hurt"`
	StaggerDecay     int     `yaml:"stagger_decay"`
	FleeDC           int     `yaml:"flee_dc"`
	DodgeDC          int     `yaml:"dodge_dc"`
	DialogueCooldown int     `yaml:"dialogue_cooldown"`
	DialogueChance   int     `yaml:"dialogue_chance"` // Percent
	DefendReduction  float64 `yaml:"defend_reduction"`
	AttackOnAnnounce bool    `yaml:"attack_on_announce"`
	// Turn at which the simulation harness gives up on a battle.
	MaxTurns int `yaml:"max_turns"`
}

// DefaultRules returns the standard rule constants.
func DefaultRules() Rules {
	return Rules{
		ChargeOnHit:      10,
		ChargeOnHurt:     5,
		StaggerDecay:     5,
		FleeDC:           10,
		DodgeDC:          11,
		DialogueCooldown: 3,
		DialogueChance:   30,
		DefendReduction:  0.5,
		AttackOnAnnounce: true,
		MaxTurns:         200,
	}
}

// DefaultTiming returns the standard presentation delays.
func DefaultTiming() Timing {
	return Timing{
		StepDelay:  400 * time.Millisecond,
		EnemyDelay: 600 * time.Millisecond,
		TickDelay:  300 * time.Millisecond,
	}
}

// DefaultBattle returns a Battle config with sensible defaults.
func DefaultBattle() Battle {
	return Battle{
		Style:   "dice",
		Terrain: "plains",
		Player: PlayerConfig{
			Name:  "Hero",
			Class: "warrior",
		},
		Targets: Targets{
			Win:  "victory",
			Lose: "game_over",
			Flee: "escape",
		},
		CarryOver: true,
		Timing:    DefaultTiming(),
		Rules:     DefaultRules(),
	}
}

// LoadBattle loads a battle config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadBattle(path string) (Battle, error) {
	cfg := DefaultBattle()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (b Battle) Validate() error {
	var errs []error
	switch b.Style {
	case "", "dice", "accuracy":
	default:
		errs = append(errs, fmt.Errorf("style %q: must be dice or accuracy", b.Style))
	}
	if b.Timing.StepDelay < 0 || b.Timing.EnemyDelay < 0 || b.Timing.TickDelay < 0 {
		errs = append(errs, errors.New("timing: delays must not be negative"))
	}
	if b.Player.HP < 0 || b.Player.Mana < 0 || b.Player.StaggerThreshold < 0 {
		errs = append(errs, errors.New("player: hp, mana and stagger_threshold must not be negative"))
	}
	if b.Enemy.HP < 0 {
		errs = append(errs, errors.New("enemy: hp must not be negative"))
	}
	if b.Player.Damage != "" {
		if _, err := dice.Parse(b.Player.Damage); err != nil {
			errs = append(errs, fmt.Errorf("player.damage: %w", err))
		}
	}
	if b.Enemy.Damage != "" {
		if _, err := dice.Parse(b.Enemy.Damage); err != nil {
			errs = append(errs, fmt.Errorf("enemy.damage: %w", err))
		}
	}
	r := b.Rules
	if r.DefendReduction < 0 || r.DefendReduction > 1 {
		errs = append(errs, fmt.Errorf("rules.defend_reduction %v: must be within [0, 1]", r.DefendReduction))
	}
	if r.DialogueChance < 0 || r.DialogueChance > 100 {
		errs = append(errs, fmt.Errorf("rules.dialogue_chance %d: must be a percentage", r.DialogueChance))
	}
	if r.ChargeOnHit < 0 || r.ChargeOnHurt < 0 || r.StaggerDecay < 0 {
		errs = append(errs, errors.New("rules: charge and stagger amounts must not be negative"))
	}
	return errors.Join(errs...)
}

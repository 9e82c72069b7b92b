package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samdwyer/storybattle/internal/dice"
)

func TestLoadBattleMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadBattle(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultBattle(), cfg)
}

func TestLoadBattleOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battle.yaml")
	yaml := `
style: accuracy
terrain: swamp
player:
  name: Mira
  class: rogue
  hp: 50
enemy:
  id: witch
  hp: 40
targets:
  win: bog_cleared
timing:
  step_delay: 250ms
rules:
  flee_dc: 14
  attack_on_announce: false
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadBattle(path)
	require.NoError(t, err)

	assert.Equal(t, "accuracy", cfg.Style)
	assert.Equal(t, "swamp", cfg.Terrain)
	assert.Equal(t, "Mira", cfg.Player.Name)
	assert.Equal(t, 50, cfg.Player.HP)
	assert.Equal(t, "witch", cfg.Enemy.ID)
	assert.Equal(t, "bog_cleared", cfg.Targets.Win)
	assert.Equal(t, "game_over", cfg.Targets.Lose, "unset fields keep defaults")
	assert.Equal(t, 250*time.Millisecond, cfg.Timing.StepDelay)
	assert.Equal(t, 600*time.Millisecond, cfg.Timing.EnemyDelay)
	assert.Equal(t, 14, cfg.Rules.FleeDC)
	assert.False(t, cfg.Rules.AttackOnAnnounce)
	assert.Equal(t, 10, cfg.Rules.ChargeOnHit)
}

func TestLoadBattleRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("style: meter\nrules:\n  defend_reduction: 2\n"), 0o644))

	_, err := LoadBattle(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "style")
	assert.Contains(t, err.Error(), "defend_reduction")
}

func TestValidateDamageExpressions(t *testing.T) {
	tests := []struct {
		name    string
		player  string
		enemy   string
		wantErr string
	}{
		{name: "defaults"},
		{name: "valid overrides", player: "2d6+1", enemy: "1d10"},
		{name: "player garbage", player: "lots", wantErr: "player.damage"},
		{name: "player huge count", player: "100000000000000d6", wantErr: "player.damage"},
		{name: "enemy huge count", enemy: "999d6", wantErr: "enemy.damage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultBattle()
			cfg.Player.Damage = tt.player
			cfg.Enemy.Damage = tt.enemy

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadBattleRejectsHugeDice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("enemy:\n  damage: 100000000000000d6\n"), 0o644))

	_, err := LoadBattle(path)
	assert.ErrorIs(t, err, dice.ErrInvalidDiceSpec)
}

func TestLoadBattleMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("player: [oops"), 0o644))

	_, err := LoadBattle(path)
	assert.ErrorContains(t, err, "parsing config")
}

func TestTargets(t *testing.T) {
	tg := Targets{Win: "a", Lose: "b", Flee: "c"}
	assert.Equal(t, "a", tg.Target("win"))
	assert.Equal(t, "b", tg.Target("lose"))
	assert.Equal(t, "c", tg.Target("flee"))
	assert.Empty(t, tg.Target("draw"))
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("STORYBATTLE_LOG_LEVEL", "debug")
	t.Setenv("STORYBATTLE_SEED", "42")
	t.Setenv("STORYBATTLE_SIM_WORKERS", "8")

	cfg, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 8, cfg.SimWorkers)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "battle.yaml", cfg.BattleFile)
}

func TestLoadEnvRejectsBadNumber(t *testing.T) {
	t.Setenv("STORYBATTLE_SEED", "not-a-number")
	_, err := LoadEnv()
	assert.ErrorContains(t, err, "parse env")
}

package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/hardcorelimbo/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hardcorelimbo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, model.DefaultRules(), cfg.Rules())
	assert.False(t, cfg.IsLimbo())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
mode: limbo
servers:
  main: survival
lives:
  default: 3
  grace_period: 36h
limbo:
  check_interval: 10s
storage:
  type: sqlite
  sqlite_path: /var/lib/hlimbo/players.db
api:
  port: 9090
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsLimbo())
	assert.Equal(t, "survival", cfg.Servers.Main)
	assert.Equal(t, "limbo", cfg.Servers.Limbo, "unset keys keep defaults")
	assert.Equal(t, 3, cfg.Lives.Default)
	assert.Equal(t, 36*time.Hour, cfg.Lives.GracePeriod)
	assert.Equal(t, 10*time.Second, cfg.Limbo.CheckInterval)
	assert.Equal(t, 2*time.Second, cfg.Limbo.ReleaseDelay)
	assert.Equal(t, StorageSQLite, cfg.Storage.Type)
	assert.Equal(t, "/var/lib/hlimbo/players.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 9090, cfg.API.Port)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "lives:\n  default: 3\n")
	t.Setenv("HLIMBO_LIVES_DEFAULT", "4")
	t.Setenv("HLIMBO_MAIN_SEND_TO_LIMBO_DELAY", "5s")
	t.Setenv("HLIMBO_MAIN_SPECTATOR_ON_DEATH", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Lives.Default)
	assert.Equal(t, 5*time.Second, cfg.Main.SendToLimboDelay)
	assert.False(t, cfg.Main.SpectatorOnDeath)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeConfig(t, `
mode: lobby
lives:
  default: 0
storage:
  type: postgres
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, 0, len(verrs))
	for _, v := range verrs {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"mode", "lives", "storage.type"}, fields)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"negative delay", func(c *Config) { c.Main.SendToLimboDelay = -time.Second }, "main.send_to_limbo_delay"},
		{"zero check interval", func(c *Config) { c.Limbo.CheckInterval = 0 }, "limbo.check_interval"},
		{"revive above max", func(c *Config) { c.Lives.OnRevive = 9 }, "lives"},
		{"no workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"empty limbo server", func(c *Config) { c.Servers.Limbo = " " }, "servers.limbo"},
		{"redis without url", func(c *Config) { c.Storage.RedisURL = "" }, "storage.redis_url"},
		{"sqlite without path", func(c *Config) {
			c.Storage.Type = StorageSQLite
			c.Storage.SQLitePath = ""
		}, "storage.sqlite_path"},
		{"bad port", func(c *Config) { c.API.Port = 70000 }, "api.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			errs := cfg.Validate()
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestUncappedLivesAreValid(t *testing.T) {
	cfg := Default()
	cfg.Lives.Max = 0
	cfg.Lives.Default = 50

	assert.Empty(t, cfg.Validate())
}

func TestParseEnv(t *testing.T) {
	t.Setenv("HLIMBO_CONFIG", "/etc/hlimbo.yaml")
	t.Setenv("HLIMBO_LOG_LEVEL", "DEBUG")

	e, err := ParseEnv()
	require.NoError(t, err)
	assert.Equal(t, "/etc/hlimbo.yaml", e.ConfigPath)

	level, err := e.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLogLevelDefaultsToInfo(t *testing.T) {
	e, err := ParseEnv()
	require.NoError(t, err)

	level, err := e.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestUnknownLogLevel(t *testing.T) {
	_, err := Env{LogLevel: "chatty"}.SlogLevel()
	assert.Error(t, err)
}

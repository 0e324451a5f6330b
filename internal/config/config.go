// Package config loads the service configuration file and process environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mcoot/hardcorelimbo/internal/model"
)

// Modes the service binary can run in
const (
	ModeMain  = "main"
	ModeLimbo = "limbo"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

// EnvPrefix is prepended to every config key when read from the environment,
// e.g. HLIMBO_LIVES_DEFAULT overrides lives.default.
const EnvPrefix = "HLIMBO"

// Config is the full service configuration
type Config struct {
	Mode    string        `mapstructure:"mode"`
	Workers int           `mapstructure:"workers"`
	Servers ServersConfig `mapstructure:"servers"`
	Lives   LivesConfig   `mapstructure:"lives"`
	Main    MainConfig    `mapstructure:"main"`
	Limbo   LimboConfig   `mapstructure:"limbo"`
	Storage StorageConfig `mapstructure:"storage"`
	API     APIConfig     `mapstructure:"api"`
}

// ServersConfig names the proxy targets for transfers
type ServersConfig struct {
	Main  string `mapstructure:"main"`
	Limbo string `mapstructure:"limbo"`
}

// LivesConfig holds the life rules. Both servers must agree on them.
type LivesConfig struct {
	Default     int           `mapstructure:"default"`
	GracePeriod time.Duration `mapstructure:"grace_period"`
	OnRevive    int           `mapstructure:"on_revive"`
	Max         int           `mapstructure:"max"`
}

// MainConfig tunes the death handling on the main server
type MainConfig struct {
	SendToLimboDelay     time.Duration `mapstructure:"send_to_limbo_delay"`
	JoinTransferDelay    time.Duration `mapstructure:"join_transfer_delay"`
	RespawnModeDelay     time.Duration `mapstructure:"respawn_mode_delay"`
	SpectatorOnDeath     bool          `mapstructure:"spectator_on_death"`
	DetectExternalRevive bool          `mapstructure:"detect_external_revive"`
}

// LimboConfig tunes the release polling on the limbo server
type LimboConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
	InitialDelay  time.Duration `mapstructure:"initial_delay"`
	ReleaseDelay  time.Duration `mapstructure:"release_delay"`
}

// StorageConfig selects and configures the player store
type StorageConfig struct {
	Type          string `mapstructure:"type"`
	RedisURL      string `mapstructure:"redis_url"`
	RedisPoolSize int    `mapstructure:"redis_pool_size"`
	SQLitePath    string `mapstructure:"sqlite_path"`
}

// APIConfig configures the HTTP listener
type APIConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// TokenHash is a bcrypt hash of the admin token. Empty disables auth.
	TokenHash string `mapstructure:"token_hash"`
}

// Default returns the stock configuration
func Default() *Config {
	rules := model.DefaultRules()
	return &Config{
		Mode:    ModeMain,
		Workers: 8,
		Servers: ServersConfig{
			Main:  "main",
			Limbo: "limbo",
		},
		Lives: LivesConfig{
			Default:     rules.DefaultLives,
			GracePeriod: rules.GracePeriod,
			OnRevive:    rules.LivesOnRevive,
			Max:         rules.MaxLives,
		},
		Main: MainConfig{
			SendToLimboDelay:     3 * time.Second,
			JoinTransferDelay:    time.Second,
			RespawnModeDelay:     50 * time.Millisecond,
			SpectatorOnDeath:     true,
			DetectExternalRevive: true,
		},
		Limbo: LimboConfig{
			CheckInterval: 3 * time.Second,
			InitialDelay:  3 * time.Second,
			ReleaseDelay:  2 * time.Second,
		},
		Storage: StorageConfig{
			Type:          StorageRedis,
			RedisURL:      "redis://localhost:6379",
			RedisPoolSize: 10,
			SQLitePath:    "hardcorelimbo.db",
		},
		API: APIConfig{
			Host: "",
			Port: 8080,
		},
	}
}

// SetDefaults registers every key with v so env overrides work for all of them
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("mode", d.Mode)
	v.SetDefault("workers", d.Workers)

	v.SetDefault("servers.main", d.Servers.Main)
	v.SetDefault("servers.limbo", d.Servers.Limbo)

	v.SetDefault("lives.default", d.Lives.Default)
	v.SetDefault("lives.grace_period", d.Lives.GracePeriod)
	v.SetDefault("lives.on_revive", d.Lives.OnRevive)
	v.SetDefault("lives.max", d.Lives.Max)

	v.SetDefault("main.send_to_limbo_delay", d.Main.SendToLimboDelay)
	v.SetDefault("main.join_transfer_delay", d.Main.JoinTransferDelay)
	v.SetDefault("main.respawn_mode_delay", d.Main.RespawnModeDelay)
	v.SetDefault("main.spectator_on_death", d.Main.SpectatorOnDeath)
	v.SetDefault("main.detect_external_revive", d.Main.DetectExternalRevive)

	v.SetDefault("limbo.check_interval", d.Limbo.CheckInterval)
	v.SetDefault("limbo.initial_delay", d.Limbo.InitialDelay)
	v.SetDefault("limbo.release_delay", d.Limbo.ReleaseDelay)

	v.SetDefault("storage.type", d.Storage.Type)
	v.SetDefault("storage.redis_url", d.Storage.RedisURL)
	v.SetDefault("storage.redis_pool_size", d.Storage.RedisPoolSize)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)

	v.SetDefault("api.host", d.API.Host)
	v.SetDefault("api.port", d.API.Port)
	v.SetDefault("api.token_hash", d.API.TokenHash)
}

// Load reads the YAML file at path (optional when empty), applies HLIMBO_*
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errs
	}
	return &cfg, nil
}

// Rules returns the life rules
func (c *Config) Rules() model.Rules {
	return model.Rules{
		DefaultLives:  c.Lives.Default,
		GracePeriod:   c.Lives.GracePeriod,
		LivesOnRevive: c.Lives.OnRevive,
		MaxLives:      c.Lives.Max,
	}
}

// IsLimbo reports whether this process hosts the limbo server
func (c *Config) IsLimbo() bool {
	return c.Mode == ModeLimbo
}

// ErrInvalidConfig is wrapped by every ValidationError
var ErrInvalidConfig = errors.New("invalid configuration")

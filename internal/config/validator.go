package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError describes one invalid config value
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

func (e ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

// ValidationErrors is every problem found in one pass
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

func (e ValidationErrors) Unwrap() error {
	return ErrInvalidConfig
}

// Validate returns every problem with c, or nil
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors
	add := func(field string, value any, msg string) {
		errs = append(errs, ValidationError{Field: field, Value: value, Message: msg})
	}
	nonNegative := func(field string, d time.Duration) {
		if d < 0 {
			add(field, d, "must not be negative")
		}
	}

	switch c.Mode {
	case ModeMain, ModeLimbo:
	default:
		add("mode", c.Mode, "must be main or limbo")
	}
	if c.Workers < 1 {
		add("workers", c.Workers, "must be at least 1")
	}

	if strings.TrimSpace(c.Servers.Main) == "" {
		add("servers.main", c.Servers.Main, "must not be empty")
	}
	if strings.TrimSpace(c.Servers.Limbo) == "" {
		add("servers.limbo", c.Servers.Limbo, "must not be empty")
	}

	if err := c.Rules().Validate(); err != nil {
		add("lives", c.Lives, err.Error())
	}

	nonNegative("main.send_to_limbo_delay", c.Main.SendToLimboDelay)
	nonNegative("main.join_transfer_delay", c.Main.JoinTransferDelay)
	nonNegative("main.respawn_mode_delay", c.Main.RespawnModeDelay)

	if c.Limbo.CheckInterval <= 0 {
		add("limbo.check_interval", c.Limbo.CheckInterval, "must be positive")
	}
	nonNegative("limbo.initial_delay", c.Limbo.InitialDelay)
	nonNegative("limbo.release_delay", c.Limbo.ReleaseDelay)

	switch c.Storage.Type {
	case StorageMemory:
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			add("storage.redis_url", c.Storage.RedisURL, "required for redis storage")
		}
		if c.Storage.RedisPoolSize < 1 {
			add("storage.redis_pool_size", c.Storage.RedisPoolSize, "must be at least 1")
		}
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			add("storage.sqlite_path", c.Storage.SQLitePath, "required for sqlite storage")
		}
	default:
		add("storage.type", c.Storage.Type, "must be memory, redis or sqlite")
	}

	if c.API.Port < 0 || c.API.Port > 65535 {
		add("api.port", c.API.Port, "must be a valid TCP port")
	}

	return errs
}

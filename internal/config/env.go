package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Env is the process environment read before the config file
type Env struct {
	ConfigPath string `env:"HLIMBO_CONFIG"`
	LogLevel   string `env:"HLIMBO_LOG_LEVEL" envDefault:"info"`
}

// ParseEnv loads Env from the process environment
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// SlogLevel maps LogLevel to a slog level
func (e Env) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(e.LogLevel)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", e.LogLevel)
	}
}

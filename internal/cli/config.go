package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string `env:"HLIMBO_SERVER" envDefault:"http://localhost:8080"`
	Token     string `env:"HLIMBO_TOKEN"`
	TokenFile string `env:"HLIMBO_TOKEN_FILE"`
	Actor     string `env:"HLIMBO_ACTOR"`
	Output    string `env:"HLIMBO_OUTPUT" envDefault:"text"`
}

// DefaultConfig returns a Config populated from the environment
func DefaultConfig() (*Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if c.TokenFile == "" {
		c.TokenFile = defaultTokenFile()
	}
	if c.Actor == "" {
		c.Actor = os.Getenv("USER")
	}
	return &c, nil
}

// LoadToken loads the token from file if not already set
func (c *Config) LoadToken() error {
	if c.Token != "" {
		return nil
	}

	data, err := os.ReadFile(c.TokenFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No token file is fine
		}
		return err
	}

	c.Token = strings.TrimSpace(string(data))
	return nil
}

// Validate checks flag values
func (c *Config) Validate() error {
	switch c.Output {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text or json)", c.Output)
	}
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".hlimbo", "token")
	}
	return filepath.Join(home, ".hlimbo", "token")
}

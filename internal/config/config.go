// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config is the environment-backed configuration. Command-line flags
// override every field.
type Config struct {
	// DB is the default SQLite path for commands that take --db.
	DB string `env:"MARKERSET_DB"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `env:"MARKERSET_LOG_LEVEL" envDefault:"warn"`

	// LogFormat selects the stderr log handler: text or json.
	LogFormat string `env:"MARKERSET_LOG_FORMAT" envDefault:"text"`

	// Output is the default stdout format: text or json.
	Output string `env:"MARKERSET_OUTPUT" envDefault:"text"`
}

var formats = []string{"text", "json"}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the enumerated fields.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if !slices.Contains(formats, c.LogFormat) {
		return fmt.Errorf("invalid log format %q: must be text or json", c.LogFormat)
	}
	if !slices.Contains(formats, c.Output) {
		return fmt.Errorf("invalid output format %q: must be text or json", c.Output)
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level. Matching is
// case-insensitive and "warning" is accepted for warn.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q: must be debug, info, warn or error", s)
}

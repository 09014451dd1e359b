// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full process configuration. Every knob has a default so a
// bare invocation works out of the box.
type Config struct {
	// DBPath is the SQLite database file, or ":memory:".
	DBPath string `env:"LYCAON_DB" envDefault:"lycaon.db"`

	// RolesDir is the directory of YAML role definition files.
	RolesDir string `env:"LYCAON_ROLES_DIR" envDefault:"roles"`

	// LockTimeout bounds how long a transaction may hold a game's lock
	// before it is forcibly released.
	LockTimeout time.Duration `env:"LYCAON_LOCK_TIMEOUT" envDefault:"30s"`

	// MaxDepth bounds death-trigger recursion per dispatch cycle.
	MaxDepth int `env:"LYCAON_MAX_DEPTH" envDefault:"3"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LYCAON_LOG_LEVEL" envDefault:"info"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MaxDepth < 1 {
		return Config{}, fmt.Errorf("LYCAON_MAX_DEPTH must be at least 1, got %d", cfg.MaxDepth)
	}
	return cfg, nil
}

// SlogLevel maps the configured level name onto a slog level. Unknown
// names fall back to info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

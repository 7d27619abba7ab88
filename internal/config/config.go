// Package config provides configuration loading for crewkit.
package config

import (
	"fmt"
)

// Config is the full crewkit configuration.
type Config struct {
	// Workspace is the directory holding memory, evaluation, and artifact
	// state. Defaults to .crewkit in the working directory.
	Workspace string `koanf:"workspace"`

	Logging LoggingConfig `koanf:"logging"`
	Memory  MemoryConfig  `koanf:"memory"`
	Schemas SchemasConfig `koanf:"schemas"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json or console
}

// MemoryConfig tunes the memory store.
type MemoryConfig struct {
	// MinStrength is the retrieval floor; entries below it are treated as
	// expired.
	MinStrength float64 `koanf:"min_strength"`
}

// SchemasConfig locates contract and artifact schemas.
type SchemasConfig struct {
	Dir   string `koanf:"dir"`
	Watch bool   `koanf:"watch"`
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging format: %q", c.Logging.Format)
	}

	if c.Memory.MinStrength < 0 || c.Memory.MinStrength > 1 {
		return fmt.Errorf("memory min_strength must be in [0, 1], got %v", c.Memory.MinStrength)
	}

	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Workspace == "" {
		cfg.Workspace = ".crewkit"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Memory.MinStrength == 0 {
		cfg.Memory.MinStrength = 0.1
	}
	if cfg.Schemas.Dir == "" {
		cfg.Schemas.Dir = "schemas"
	}
}

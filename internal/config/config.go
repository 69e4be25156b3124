// Package config supplies environment-derived defaults for the CLI.
// Flags always win; the environment only changes what a flag defaults to.
package config

import (
	"time"
)

// Config holds the tunable defaults of an analysis run.
type Config struct {
	// Python is the interpreter used for instrumented runs.
	Python string `env:"PYLENS_PYTHON"`
	// LogLevel is the default log verbosity.
	LogLevel string `env:"PYLENS_LOG_LEVEL"`
	// Timeout bounds one instrumented run.
	Timeout time.Duration `env:"PYLENS_TIMEOUT"`
	// Rules points at a YAML file with additional optimization rules.
	Rules string `env:"PYLENS_RULES"`
	// History points at the DuckDB run-history database.
	History string `env:"PYLENS_HISTORY"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Python:   "python3",
		LogLevel: "warn",
		Timeout:  5 * time.Minute,
	}
}

// FromEnv returns the defaults overlaid with any PYLENS_* environment
// variables that are set.
func FromEnv() (Config, error) {
	cfg := Default()
	if err := LoadFromEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

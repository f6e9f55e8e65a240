// Package config loads tracing backend configuration from the environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all tracing backend configuration.
type Config struct {
	Clock   ClockConfig
	Output  OutputConfig
	Logging LogConfig
}

// ClockConfig selects the trace clock and timestamp encoding.
type ClockConfig struct {
	// Source is "boottime", "monotonic", or "monotonic_raw".
	Source string `envconfig:"TRACE_CLOCK" default:"boottime"`
	// UnitMultiplier scales nanosecond timestamps into coarser units.
	UnitMultiplier uint64 `envconfig:"TRACE_TIMESTAMP_UNIT_NS" default:"1"`
	// ThreadTime enables per-event thread CPU time counters.
	ThreadTime bool `envconfig:"TRACE_THREAD_TIME" default:"false"`
	// ThreadTimeIntervalNs bounds how often the OS counter is re-read.
	ThreadTimeIntervalNs uint64 `envconfig:"TRACE_THREAD_TIME_INTERVAL_NS" default:"50000"`
}

// OutputConfig controls where finished packets go.
type OutputConfig struct {
	Path     string `envconfig:"TRACE_OUTPUT" default:"trace.pftrace"`
	Compress bool   `envconfig:"TRACE_COMPRESS" default:"false"`
	// FilterConfig optionally points at a YAML category filter file.
	FilterConfig string `envconfig:"TRACE_FILTER_CONFIG" default:""`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Clock: ClockConfig{
			Source:               "boottime",
			UnitMultiplier:       1,
			ThreadTimeIntervalNs: 50000,
		},
		Output: OutputConfig{
			Path: "trace.pftrace",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}

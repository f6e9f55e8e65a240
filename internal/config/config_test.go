package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Clock config
	assert.Equal(t, "boottime", cfg.Clock.Source)
	assert.Equal(t, uint64(1), cfg.Clock.UnitMultiplier)
	assert.False(t, cfg.Clock.ThreadTime)
	assert.Equal(t, uint64(50000), cfg.Clock.ThreadTimeIntervalNs)

	// Output config
	assert.Equal(t, "trace.pftrace", cfg.Output.Path)
	assert.False(t, cfg.Output.Compress)
	assert.Empty(t, cfg.Output.FilterConfig)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)
}

func TestLoadOrDefault(t *testing.T) {
	// Should return default when no env vars set
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "boottime", cfg.Clock.Source)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"TRACE_CLOCK":                   "monotonic",
		"TRACE_TIMESTAMP_UNIT_NS":       "1000",
		"TRACE_THREAD_TIME":             "true",
		"TRACE_THREAD_TIME_INTERVAL_NS": "10000",
		"TRACE_OUTPUT":                  "/tmp/out.pftrace",
		"TRACE_COMPRESS":                "true",
		"TRACE_FILTER_CONFIG":           "/etc/trace.yaml",
		"LOG_LEVEL":                     "debug",
		"LOG_DEV":                       "true",
	}
	for key, value := range envVars {
		err := os.Setenv(key, value)
		require.NoError(t, err)
		defer os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "monotonic", cfg.Clock.Source)
	assert.Equal(t, uint64(1000), cfg.Clock.UnitMultiplier)
	assert.True(t, cfg.Clock.ThreadTime)
	assert.Equal(t, uint64(10000), cfg.Clock.ThreadTimeIntervalNs)

	assert.Equal(t, "/tmp/out.pftrace", cfg.Output.Path)
	assert.True(t, cfg.Output.Compress)
	assert.Equal(t, "/etc/trace.yaml", cfg.Output.FilterConfig)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
}

func TestLoadWithPartialEnvironmentVariables(t *testing.T) {
	err := os.Setenv("TRACE_TIMESTAMP_UNIT_NS", "100")
	require.NoError(t, err)
	defer os.Unsetenv("TRACE_TIMESTAMP_UNIT_NS")

	err = os.Setenv("LOG_LEVEL", "warn")
	require.NoError(t, err)
	defer os.Unsetenv("LOG_LEVEL")

	cfg, err := Load()
	require.NoError(t, err)

	// Verify overridden values
	assert.Equal(t, uint64(100), cfg.Clock.UnitMultiplier)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// Verify default values still apply
	assert.Equal(t, "boottime", cfg.Clock.Source)
	assert.Equal(t, "trace.pftrace", cfg.Output.Path)
}

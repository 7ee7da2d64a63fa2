package config_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rbset/internal/config"
	"github.com/Sumatoshi-tech/rbset/internal/observability"
	"github.com/Sumatoshi-tech/rbset/pkg/workload"
)

func validConfig() config.Config {
	return config.Config{
		Bench: config.BenchConfig{
			Keys:    100,
			Pattern: "Duplicates",
			Seed:    3,
			Mix:     "1:1:0",
			Format:  "YAML",
		},
		Cache: config.CacheConfig{Capacity: 16, Limit: 200},
		Soak:  config.SoakConfig{Window: 8},
		Observability: config.ObservabilityConfig{
			LogLevel:    "warn",
			SampleRatio: 0.5,
			OTLPHeaders: "a=1, b=2",
			Environment: "ci",
		},
	}
}

func TestValidate_AcceptsCaseInsensitiveNames(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestBenchRun(t *testing.T) {
	t.Parallel()

	cfg := validConfig()

	run, err := cfg.BenchRun()
	require.NoError(t, err)

	assert.Equal(t, workload.PatternDuplicates, run.Pattern)
	assert.Equal(t, 100, run.Keys)
	assert.Equal(t, int64(3), run.Seed)
	assert.Equal(t, workload.Mix{Insert: 1, Erase: 1}, run.Mix)
	assert.Equal(t, 16, run.CacheCapacity)
	assert.Equal(t, 200, run.NodeLimit)
}

func TestBenchRun_BadPattern(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Bench.Pattern = "spiral"

	_, err := cfg.BenchRun()
	require.ErrorIs(t, err, config.ErrInvalidPattern)
	require.ErrorIs(t, err, workload.ErrUnknownPattern)
}

func TestTelemetry(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	out := cfg.Telemetry(observability.ModeSoak, "v1.2.3")

	assert.Equal(t, "rbset", out.ServiceName)
	assert.Equal(t, "v1.2.3", out.ServiceVersion)
	assert.Equal(t, "ci", out.Environment)
	assert.Equal(t, observability.ModeSoak, out.Mode)
	assert.Equal(t, slog.LevelWarn, out.LogLevel)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, out.OTLPHeaders)
	assert.InDelta(t, 0.5, out.SampleRatio, 1e-9)
}

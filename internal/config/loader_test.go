package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rbset/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".rbset.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoadConfig_EmptyFile_UsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultBenchKeys, cfg.Bench.Keys)
	assert.Equal(t, config.DefaultBenchPattern, cfg.Bench.Pattern)
	assert.Equal(t, int64(config.DefaultBenchSeed), cfg.Bench.Seed)
	assert.Equal(t, config.DefaultBenchMix, cfg.Bench.Mix)
	assert.Equal(t, config.DefaultBenchFormat, cfg.Bench.Format)
	assert.Equal(t, config.DefaultCacheCapacity, cfg.Cache.Capacity)
	assert.Equal(t, config.DefaultSoakWindow, cfg.Soak.Window)
	assert.Equal(t, config.DefaultSoakMetricsAddr, cfg.Soak.MetricsAddr)
	assert.Equal(t, config.DefaultSoakReportInterval, cfg.Soak.ReportInterval)
	assert.Equal(t, config.DefaultLogLevel, cfg.Observability.LogLevel)
	assert.InDelta(t, config.DefaultSampleRatio, cfg.Observability.SampleRatio, 1e-9)
}

func TestLoadConfig_PartialConfig_MergesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
bench:
  keys: 500
  pattern: sawtooth
cache:
  capacity: 64
soak:
  duration: 90s
observability:
  log_level: debug
  otlp_headers: "x-token=abc"
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Bench.Keys)
	assert.Equal(t, "sawtooth", cfg.Bench.Pattern)
	assert.Equal(t, config.DefaultBenchMix, cfg.Bench.Mix)
	assert.Equal(t, 64, cfg.Cache.Capacity)
	assert.Equal(t, 90*time.Second, cfg.Soak.Duration)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
}

func TestLoadConfig_MalformedYAML_ReturnsError(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "bench: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadConfig_ExplicitPath_NotFound_ReturnsError(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want error
	}{
		{"keys", "bench:\n  keys: 0\n", config.ErrInvalidKeys},
		{"pattern", "bench:\n  pattern: zigzag\n", config.ErrInvalidPattern},
		{"mix", "bench:\n  mix: \"1:2\"\n", config.ErrInvalidMix},
		{"verify", "bench:\n  verify_every: -1\n", config.ErrInvalidVerifyEvery},
		{"format", "bench:\n  format: xml\n", config.ErrInvalidFormat},
		{"capacity", "cache:\n  capacity: -4\n", config.ErrInvalidCacheCapacity},
		{"limit", "cache:\n  limit: -1\n", config.ErrInvalidCacheLimit},
		{"duration", "soak:\n  duration: -5s\n", config.ErrInvalidSoakDuration},
		{"window", "soak:\n  window: 0\n", config.ErrInvalidSoakWindow},
		{"level", "observability:\n  log_level: loud\n", config.ErrInvalidLogLevel},
		{"ratio", "observability:\n  sample_ratio: 1.5\n", config.ErrInvalidSampleRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.body))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadConfig_EnvOverride_NestedKey(t *testing.T) {
	path := writeConfig(t, "bench:\n  keys: 10\n")

	t.Setenv("RBSET_BENCH_KEYS", "42")
	t.Setenv("RBSET_CACHE_LIMIT", "7")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Bench.Keys)
	assert.Equal(t, 7, cfg.Cache.Limit)
}

func TestLoadConfig_FlagOverridesFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "bench:\n  keys: 10\n  pattern: ascending\n")

	flags := pflag.NewFlagSet("bench", pflag.ContinueOnError)
	flags.Int("keys", 5, "")
	flags.String("pattern", "random", "")
	require.NoError(t, flags.Parse([]string{"--keys", "99"}))

	cfg, err := config.LoadConfig(path,
		config.FlagBinding{Key: "bench.keys", Flag: flags.Lookup("keys")},
		config.FlagBinding{Key: "bench.pattern", Flag: flags.Lookup("pattern")},
		config.FlagBinding{Key: "bench.seed", Flag: nil},
	)
	require.NoError(t, err)

	assert.Equal(t, 99, cfg.Bench.Keys)
	assert.Equal(t, "ascending", cfg.Bench.Pattern)
}

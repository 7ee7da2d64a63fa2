// Package config loads rbset settings from defaults, an optional
// .rbset.yaml file, RBSET_* environment variables and bound CLI flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/rbset/internal/observability"
	"github.com/Sumatoshi-tech/rbset/pkg/bench"
	"github.com/Sumatoshi-tech/rbset/pkg/workload"
)

// Sentinel errors for configuration validation.
var (
	// ErrInvalidKeys indicates a non-positive bench key count.
	ErrInvalidKeys = errors.New("invalid bench keys")
	// ErrInvalidPattern indicates an unknown key pattern.
	ErrInvalidPattern = errors.New("invalid bench pattern")
	// ErrInvalidMix indicates a malformed operation mix.
	ErrInvalidMix = errors.New("invalid bench mix")
	// ErrInvalidVerifyEvery indicates a negative verification interval.
	ErrInvalidVerifyEvery = errors.New("invalid verify interval")
	// ErrInvalidFormat indicates an unsupported report format.
	ErrInvalidFormat = errors.New("invalid report format")
	// ErrInvalidCacheCapacity indicates a negative node cache capacity.
	ErrInvalidCacheCapacity = errors.New("invalid cache capacity")
	// ErrInvalidCacheLimit indicates a negative live-node limit.
	ErrInvalidCacheLimit = errors.New("invalid cache limit")
	// ErrInvalidSoakDuration indicates a negative soak duration.
	ErrInvalidSoakDuration = errors.New("invalid soak duration")
	// ErrInvalidSoakWindow indicates a non-positive soak window.
	ErrInvalidSoakWindow = errors.New("invalid soak window")
	// ErrInvalidLogLevel indicates an unparseable log level.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidSampleRatio indicates a sample ratio outside [0, 1].
	ErrInvalidSampleRatio = errors.New("invalid sample ratio")
)

// Config is the top-level rbset configuration.
type Config struct {
	Bench         BenchConfig         `mapstructure:"bench"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Soak          SoakConfig          `mapstructure:"soak"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// BenchConfig configures bench and trace generation.
type BenchConfig struct {
	Keys        int    `mapstructure:"keys"`
	Pattern     string `mapstructure:"pattern"`
	Seed        int64  `mapstructure:"seed"`
	Mix         string `mapstructure:"mix"`
	VerifyEvery int    `mapstructure:"verify_every"`
	Format      string `mapstructure:"format"`
}

// CacheConfig configures the node allocator.
type CacheConfig struct {
	Capacity int `mapstructure:"capacity"`
	Limit    int `mapstructure:"limit"`
}

// SoakConfig configures the long-running churn mode.
type SoakConfig struct {
	Duration       time.Duration `mapstructure:"duration"`
	Window         int           `mapstructure:"window"`
	MetricsAddr    string        `mapstructure:"metrics_addr"`
	ReportInterval time.Duration `mapstructure:"report_interval"`
}

// ObservabilityConfig configures logging, tracing and metrics export.
type ObservabilityConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	DebugTrace   bool    `mapstructure:"debug_trace"`
	TraceVerbose bool    `mapstructure:"trace_verbose"`
	LogLevel     string  `mapstructure:"log_level"`
	LogJSON      bool    `mapstructure:"log_json"`
	Environment  string  `mapstructure:"environment"`
}

// Validate checks that the configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Bench.Keys <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidKeys, c.Bench.Keys)
	}

	_, err := workload.ParsePattern(c.Bench.Pattern)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}

	_, err = workload.ParseMix(c.Bench.Mix)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMix, err)
	}

	if c.Bench.VerifyEvery < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidVerifyEvery, c.Bench.VerifyEvery)
	}

	switch strings.ToLower(c.Bench.Format) {
	case bench.FormatTable, bench.FormatYAML, bench.FormatJSON:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Bench.Format)
	}

	return c.validateRest()
}

func (c *Config) validateRest() error {
	if c.Cache.Capacity < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCacheCapacity, c.Cache.Capacity)
	}

	if c.Cache.Limit < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCacheLimit, c.Cache.Limit)
	}

	if c.Soak.Duration < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSoakDuration, c.Soak.Duration)
	}

	if c.Soak.Window <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSoakWindow, c.Soak.Window)
	}

	_, err := c.Observability.Level()
	if err != nil {
		return err
	}

	if c.Observability.SampleRatio < 0 || c.Observability.SampleRatio > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidSampleRatio, c.Observability.SampleRatio)
	}

	return nil
}

// Level parses LogLevel.
func (o ObservabilityConfig) Level() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(o.LogLevel))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, o.LogLevel)
	}

	return level, nil
}

// BenchRun converts the bench and cache sections into a runner config.
func (c *Config) BenchRun() (bench.Config, error) {
	pattern, err := workload.ParsePattern(c.Bench.Pattern)
	if err != nil {
		return bench.Config{}, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}

	mix, err := workload.ParseMix(c.Bench.Mix)
	if err != nil {
		return bench.Config{}, fmt.Errorf("%w: %w", ErrInvalidMix, err)
	}

	return bench.Config{
		Pattern:       pattern,
		Keys:          c.Bench.Keys,
		Seed:          c.Bench.Seed,
		Mix:           mix,
		VerifyEvery:   c.Bench.VerifyEvery,
		CacheCapacity: c.Cache.Capacity,
		NodeLimit:     c.Cache.Limit,
	}, nil
}

// Telemetry converts the observability section into provider settings for
// the given mode. An unparseable log level falls back to info.
func (c *Config) Telemetry(mode observability.AppMode, version string) observability.Config {
	out := observability.DefaultConfig()
	level, _ := c.Observability.Level() //nolint:errcheck // Validate reports bad levels.

	out.ServiceVersion = version
	out.Environment = c.Observability.Environment
	out.Mode = mode
	out.OTLPEndpoint = c.Observability.OTLPEndpoint
	out.OTLPHeaders = observability.ParseOTLPHeaders(c.Observability.OTLPHeaders)
	out.OTLPInsecure = c.Observability.OTLPInsecure
	out.DebugTrace = c.Observability.DebugTrace
	out.SampleRatio = c.Observability.SampleRatio
	out.LogLevel = level
	out.TraceVerbose = c.Observability.TraceVerbose
	out.LogJSON = c.Observability.LogJSON

	return out
}

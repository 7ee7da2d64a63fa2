// Package observability wires OpenTelemetry tracing and metrics, slog
// logging and the diagnostics HTTP endpoints for every rbset mode.
package observability

import (
	"log/slog"
	"time"
)

// AppMode identifies how the binary was launched.
type AppMode string

const (
	// ModeCLI covers the one-shot commands: bench, verify, trace.
	ModeCLI AppMode = "cli"
	// ModeMCP is the stdio MCP server.
	ModeMCP AppMode = "mcp"
	// ModeSoak is the long-running churn with a scrape endpoint.
	ModeSoak AppMode = "soak"
)

const (
	defaultServiceName     = "rbset"
	defaultShutdownTimeout = 5 * time.Second
)

// Config selects exporters, sampling and log output.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Mode           AppMode

	// OTLPEndpoint is a gRPC collector address such as "localhost:4317".
	// Empty disables OTLP export.
	OTLPEndpoint string
	OTLPHeaders  map[string]string
	OTLPInsecure bool

	// DebugTrace samples every trace and logs scrubbed span attributes.
	DebugTrace bool
	// SampleRatio is the root sampling ratio when DebugTrace is off. Zero
	// samples everything.
	SampleRatio float64
	// TraceVerbose keeps hot-path spans such as periodic invariant checks.
	TraceVerbose bool

	LogLevel slog.Level
	LogJSON  bool

	// ShutdownTimeout bounds the final flush of pending telemetry.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config that exports nothing and logs text at info.
func DefaultConfig() Config {
	return Config{
		ServiceName:     defaultServiceName,
		Mode:            ModeCLI,
		LogLevel:        slog.LevelInfo,
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

func (c Config) exporting() bool {
	return c.OTLPEndpoint != ""
}

func (c Config) shutdownTimeout() time.Duration {
	if c.ShutdownTimeout <= 0 {
		return defaultShutdownTimeout
	}

	return c.ShutdownTimeout
}

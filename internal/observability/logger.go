package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// NewLogger builds the slog logger described by cfg, writing to w.
func NewLogger(cfg Config, w io.Writer) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var inner slog.Handler = slog.NewTextHandler(w, handlerOpts)
	if cfg.LogJSON {
		inner = slog.NewJSONHandler(w, handlerOpts)
	}

	return slog.New(NewTracingHandler(inner, cfg))
}

// NewTracingHandler wraps inner so every record carries the service identity
// from cfg and, inside a span, its trace_id and span_id. The identity is
// attached before any group so it stays at the top level.
func NewTracingHandler(inner slog.Handler, cfg Config) slog.Handler {
	identity := []slog.Attr{
		slog.String("service", cfg.ServiceName),
		slog.String("mode", string(cfg.Mode)),
	}

	if cfg.ServiceVersion != "" {
		identity = append(identity, slog.String("version", cfg.ServiceVersion))
	}

	if cfg.Environment != "" {
		identity = append(identity, slog.String("env", cfg.Environment))
	}

	return correlated{Handler: inner.WithAttrs(identity)}
}

type correlated struct {
	slog.Handler
}

func (h correlated) Handle(ctx context.Context, record slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	return h.Handler.Handle(ctx, record) //nolint:wrapcheck // handler errors pass through slog untouched.
}

func (h correlated) WithAttrs(attrs []slog.Attr) slog.Handler {
	return correlated{Handler: h.Handler.WithAttrs(attrs)}
}

func (h correlated) WithGroup(name string) slog.Handler {
	return correlated{Handler: h.Handler.WithGroup(name)}
}

package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

// SpanVerify is the span emitted around each periodic invariant check.
const SpanVerify = "rbset.bench.verify"

// hotPathSpans fire once per verification interval and dominate trace
// volume on long runs.
var hotPathSpans = []string{SpanVerify}

type quietProvider struct {
	embedded.TracerProvider

	delegate trace.TracerProvider
	muted    map[string]struct{}
}

// NewFilteringTracerProvider wraps delegate so that spans named in muted
// become non-recording. With no names it mutes the hot-path verify span.
func NewFilteringTracerProvider(delegate trace.TracerProvider, muted ...string) trace.TracerProvider {
	if len(muted) == 0 {
		muted = hotPathSpans
	}

	set := make(map[string]struct{}, len(muted))
	for _, name := range muted {
		set[name] = struct{}{}
	}

	return &quietProvider{delegate: delegate, muted: set}
}

func (p *quietProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	return &quietTracer{
		delegate: p.delegate.Tracer(name, opts...),
		noop:     nooptrace.NewTracerProvider().Tracer(name),
		muted:    p.muted,
	}
}

type quietTracer struct {
	embedded.Tracer

	delegate trace.Tracer
	noop     trace.Tracer
	muted    map[string]struct{}
}

// Start keeps the parent span context on muted spans so their children
// still attach to the enclosing trace.
func (t *quietTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if _, ok := t.muted[name]; ok {
		return t.noop.Start(ctx, name, opts...)
	}

	return t.delegate.Start(ctx, name, opts...)
}

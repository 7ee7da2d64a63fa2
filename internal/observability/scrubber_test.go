package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/rbset/internal/observability"
)

func scrubbed(t *testing.T, logger *slog.Logger, attrs ...attribute.KeyValue) map[string]any {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(observability.NewSpanScrubber(sdktrace.NewSimpleSpanProcessor(exporter), logger)),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	span.SetAttributes(attrs...)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	out := make(map[string]any, len(spans[0].Attributes))
	for _, kv := range spans[0].Attributes {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}

	return out
}

func TestSpanScrubber_KeepsKnownNamespaces(t *testing.T) {
	t.Parallel()

	attrs := scrubbed(t, nil,
		attribute.String("error.type", "invariant_violation"),
		attribute.Int("bench.keys", 1000),
		attribute.String("set.name", "users"),
		attribute.String("mcp.tool", "rbset_insert"),
		attribute.Bool("error", true),
	)

	assert.Equal(t, map[string]any{
		"error.type": "invariant_violation",
		"bench.keys": int64(1000),
		"set.name":   "users",
		"mcp.tool":   "rbset_insert",
		"error":      true,
	}, attrs)
}

func TestSpanScrubber_DropsCallerDataAndUnknown(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	attrs := scrubbed(t, slog.New(slog.NewTextHandler(&buf, nil)),
		attribute.StringSlice("set.members", []string{"alice", "bob"}),
		attribute.String("request.body", "{}"),
		attribute.String("hostname", "box"),
		attribute.Int("set.member_count", 2),
	)

	assert.Equal(t, map[string]any{"set.member_count": int64(2)}, attrs)
	assert.Contains(t, buf.String(), "key=set.members")
	assert.Contains(t, buf.String(), "key=hostname")
}

func TestSpanScrubber_TruncatesLongStrings(t *testing.T) {
	t.Parallel()

	attrs := scrubbed(t, nil, attribute.String("set.name", strings.Repeat("n", 1000)))

	name, ok := attrs["set.name"].(string)
	require.True(t, ok)
	assert.Len(t, name, 256)
}

package observability_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/rbset/internal/observability"
)

func TestInit_NoopWhenNoEndpoint(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)
	assert.Nil(t, providers.MetricsHandler)

	ctx, span := providers.Tracer.Start(context.Background(), "rbset.bench.run")
	span.End()
	assert.NotNil(t, ctx)

	require.NoError(t, providers.Shutdown(context.Background()))
	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_LogOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	providers, err := observability.Init(observability.DefaultConfig(), observability.WithLogOutput(&buf))
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	providers.Logger.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "service=rbset")
}

func TestInit_PrometheusServesTreeMetrics(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.Mode = observability.ModeSoak

	providers, err := observability.Init(cfg, observability.WithPrometheus())
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })
	require.NotNil(t, providers.MetricsHandler)

	tm, err := observability.NewTreeMetrics(providers.Meter)
	require.NoError(t, err)

	tm.RecordOps(context.Background(), "insert", "inserted", 5)

	rec := httptest.NewRecorder()
	providers.MetricsHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rbset_tree_ops")
}

func TestBuildResource(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = "1.2.3"
	cfg.Environment = "staging"
	cfg.Mode = observability.ModeMCP

	res, err := observability.BuildResource(cfg)
	require.NoError(t, err)

	attrs := map[attribute.Key]string{}
	for _, kv := range res.Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}

	assert.Equal(t, "rbset", attrs["service.name"])
	assert.Equal(t, "1.2.3", attrs["service.version"])
	assert.Equal(t, "staging", attrs["deployment.environment"])
	assert.Equal(t, "mcp", attrs["app.mode"])
}

func sampled(t *testing.T, cfg observability.Config) bool {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(observability.SelectSampler(cfg)),
	)

	_, span := tp.Tracer("test").Start(context.Background(), "probe")
	span.End()

	require.NoError(t, tp.Shutdown(context.Background()))

	return len(exporter.GetSpans()) > 0
}

func TestSelectSampler(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	assert.True(t, sampled(t, cfg))

	cfg.DebugTrace = true
	assert.True(t, sampled(t, cfg))

	cfg.DebugTrace = false
	cfg.SampleRatio = 1e-12
	assert.False(t, sampled(t, cfg))
}

func TestSelectSampler_Environment(t *testing.T) {
	t.Setenv("OTEL_TRACES_SAMPLER", "always_off")

	cfg := observability.DefaultConfig()
	assert.False(t, sampled(t, cfg))

	cfg.DebugTrace = true
	assert.True(t, sampled(t, cfg))
}

func TestSamplerRatio(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, observability.SamplerRatio(""), 0)
	assert.InDelta(t, 1.0, observability.SamplerRatio("half"), 0)
	assert.InDelta(t, 0.25, observability.SamplerRatio("0.25"), 0)
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{name: "empty", input: "", want: nil},
		{name: "single", input: "api-key=secret", want: map[string]string{"api-key": "secret"}},
		{name: "multiple", input: "a=1, b = 2", want: map[string]string{"a": "1", "b": "2"}},
		{name: "invalid_only", input: "novalue", want: nil},
		{name: "mixed", input: "novalue,k=v", want: map[string]string{"k": "v"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, observability.ParseOTLPHeaders(tt.input))
		})
	}
}

package mcp_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/rbset/internal/mcp"
	"github.com/Sumatoshi-tech/rbset/internal/observability"
	"github.com/Sumatoshi-tech/rbset/internal/setstore"
)

func TestNewServer_ToolsRegistered(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})
	require.NotNil(t, srv.Store())

	assert.Equal(t, []string{
		"rbset_erase",
		"rbset_find",
		"rbset_insert",
		"rbset_range",
		"rbset_stats",
	}, srv.ListToolNames())
}

func TestServer_Run_CancelledContext(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := srv.Run(ctx)
	require.Error(t, err)
}

// connect starts srv on an in-memory transport and returns a client session.
func connect(t *testing.T, srv *mcp.Server) (context.Context, *mcpsdk.ClientSession) {
	t.Helper()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	serverDone := make(chan error, 1)

	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()

		cancel()
		<-serverDone
	})

	return ctx, session
}

func call(ctx context.Context, t *testing.T, session *mcpsdk.ClientSession, name string, args map[string]any) *mcpsdk.CallToolResult {
	t.Helper()

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	return result
}

func decode[T any](t *testing.T, result *mcpsdk.CallToolResult) T {
	t.Helper()

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)

	var out T
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))

	return out
}

func TestMCPServer_InMemoryTransport_ToolsList(t *testing.T) {
	t.Parallel()

	ctx, session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	toolsResult, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	require.Len(t, toolsResult.Tools, 5)

	for _, tool := range toolsResult.Tools {
		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
		assert.NotEmpty(t, tool.Description, "tool %s missing description", tool.Name)
	}
}

func TestMCPServer_InMemoryTransport_SetLifecycle(t *testing.T) {
	t.Parallel()

	store := setstore.New(16, 0)
	ctx, session := connect(t, mcp.NewServer(mcp.ServerDeps{Store: store}))

	inserted := decode[mcp.InsertResult](t, call(ctx, t, session, mcp.ToolNameInsert, map[string]any{
		"set":     "langs",
		"members": []string{"go", "rust", "c", "go", "zig"},
	}))
	assert.Equal(t, mcp.InsertResult{Set: "langs", Added: 4, Size: 4}, inserted)

	found := decode[mcp.FindResult](t, call(ctx, t, session, mcp.ToolNameFind, map[string]any{
		"set":     "langs",
		"members": []string{"go", "java"},
	}))
	assert.Equal(t, map[string]bool{"go": true, "java": false}, found.Found)

	ranged := decode[mcp.RangeResult](t, call(ctx, t, session, mcp.ToolNameRange, map[string]any{
		"set":     "langs",
		"reverse": true,
		"limit":   3,
	}))
	assert.Equal(t, []string{"zig", "rust", "go"}, ranged.Members)

	erased := decode[mcp.EraseResult](t, call(ctx, t, session, mcp.ToolNameErase, map[string]any{
		"set":     "langs",
		"members": []string{"c", "cobol"},
	}))
	assert.Equal(t, mcp.EraseResult{Set: "langs", Removed: 1, Size: 3}, erased)

	stats := decode[mcp.StatsResult](t, call(ctx, t, session, mcp.ToolNameStats, map[string]any{}))
	require.Len(t, stats.Sets, 1)
	assert.Equal(t, "go", stats.Sets[0].Min)
	assert.Equal(t, "zig", stats.Sets[0].Max)
	assert.Equal(t, 1, stats.Allocator.Cached)
	assert.Equal(t, 3, stats.Allocator.Live)
}

func TestMCPServer_InMemoryTransport_Errors(t *testing.T) {
	t.Parallel()

	ctx, session := connect(t, mcp.NewServer(mcp.ServerDeps{Store: setstore.New(0, 2)}))

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{"no members", mcp.ToolNameInsert, map[string]any{"set": "s", "members": []string{}}, "members parameter is required"},
		{"no set", mcp.ToolNameInsert, map[string]any{"set": "", "members": []string{"a"}}, "set name is required"},
		{"unknown set", mcp.ToolNameRange, map[string]any{"set": "ghost"}, "unknown set"},
		{"node limit", mcp.ToolNameInsert, map[string]any{"set": "s", "members": []string{"a", "b", "c"}}, "node budget exhausted"},
	}

	for _, tt := range tests {
		result := call(ctx, t, session, tt.tool, tt.args)
		assert.True(t, result.IsError, tt.name)

		text, ok := result.Content[0].(*mcpsdk.TextContent)
		require.True(t, ok)
		assert.Contains(t, text.Text, tt.want, tt.name)
	}
}

func TestMCPServer_MetricsAndSpans(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	toolMetrics, err := observability.NewToolMetrics(meter)
	require.NoError(t, err)

	exporter := tracetest.NewInMemoryExporter()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)).Tracer("test")

	ctx, session := connect(t, mcp.NewServer(mcp.ServerDeps{Metrics: toolMetrics, Tracer: tracer}))

	result := call(ctx, t, session, mcp.ToolNameInsert, map[string]any{"set": "s", "members": []string{"x"}})
	assert.False(t, result.IsError)

	last, ok := result.Content[len(result.Content)-1].(*mcpsdk.TextContent)
	require.True(t, ok)
	assert.Contains(t, last.Text, "trace_id=")

	result = call(ctx, t, session, mcp.ToolNameErase, map[string]any{"set": "missing", "members": []string{"x"}})
	assert.True(t, result.IsError)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "mcp.rbset_insert", spans[0].Name)
	assert.Equal(t, "mcp.rbset_erase", spans[1].Name)
	assert.Equal(t, "Error", spans[1].Status.Code.String())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	statuses := map[string]int64{}

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "rbset.tool.calls" {
				continue
			}

			sum, isSum := m.Data.(metricdata.Sum[int64])
			require.True(t, isSum)

			for _, dp := range sum.DataPoints {
				status, _ := dp.Attributes.Value("status")
				statuses[status.AsString()] += dp.Value
			}
		}
	}

	assert.Equal(t, map[string]int64{"ok": 1, "error": 1}, statuses)
}

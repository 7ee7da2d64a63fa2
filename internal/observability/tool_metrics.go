package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Tool call outcomes.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

const (
	attrTool   = "tool"
	attrStatus = "status"
)

var (
	toolCalls    = instrument{"rbset.tool.calls", "MCP tool calls by outcome", "{call}"}
	toolFailures = instrument{"rbset.tool.failures", "MCP tool calls that returned an error", "{call}"}
	toolDuration = instrument{"rbset.tool.duration.seconds", "MCP tool call latency", "s"}
	toolInflight = instrument{"rbset.tool.inflight", "MCP tool calls in progress", "{call}"}
)

// toolLatencyBounds spans 50us to 5s. Point lookups finish in microseconds
// while wide range scans take milliseconds.
var toolLatencyBounds = []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// ToolMetrics counts MCP tool calls, their failures and latency.
type ToolMetrics struct {
	calls    metric.Int64Counter
	failures metric.Int64Counter
	duration metric.Float64Histogram
	inflight metric.Int64UpDownCounter
}

// NewToolMetrics creates the tool call instruments on mt.
func NewToolMetrics(mt metric.Meter) (*ToolMetrics, error) {
	in := &instruments{meter: mt}

	tm := &ToolMetrics{
		calls:    in.counter(toolCalls),
		failures: in.counter(toolFailures),
		duration: in.seconds(toolDuration, toolLatencyBounds),
		inflight: in.upDown(toolInflight),
	}

	err := in.err()
	if err != nil {
		return nil, err
	}

	return tm, nil
}

// Begin marks a call to tool as in flight. The returned function ends it
// with the given status and records its latency.
func (tm *ToolMetrics) Begin(ctx context.Context, tool string) func(status string) {
	start := time.Now()
	toolAttr := attribute.String(attrTool, tool)

	tm.inflight.Add(ctx, 1, metric.WithAttributes(toolAttr))

	return func(status string) {
		tm.inflight.Add(ctx, -1, metric.WithAttributes(toolAttr))

		attrs := metric.WithAttributes(toolAttr, attribute.String(attrStatus, status))
		tm.calls.Add(ctx, 1, attrs)
		tm.duration.Record(ctx, time.Since(start).Seconds(), attrs)

		if status == StatusError {
			tm.failures.Add(ctx, 1, metric.WithAttributes(toolAttr))
		}
	}
}

// Package mcp implements a Model Context Protocol server exposing named
// ordered string sets as MCP tools over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/rbset/internal/observability"
	"github.com/Sumatoshi-tech/rbset/internal/setstore"
	"github.com/Sumatoshi-tech/rbset/pkg/version"
)

const (
	// serverName is the MCP server implementation name.
	serverName = "rbset"

	// toolCount is the expected number of registered tools.
	toolCount = 5
)

// ServerDeps holds the server's collaborators. Nil fields disable the
// corresponding feature, except Store which defaults to an empty store.
type ServerDeps struct {
	Logger  *slog.Logger
	Metrics *observability.ToolMetrics
	Tracer  trace.Tracer
	Store   *setstore.Store
}

// Server serves the set tools over MCP.
type Server struct {
	inner   *mcpsdk.Server
	tools   []string
	store   *setstore.Store
	metrics *observability.ToolMetrics
	tracer  trace.Tracer
}

// NewServer creates a server with every set tool registered.
func NewServer(deps ServerDeps) *Server {
	store := deps.Store
	if store == nil {
		store = setstore.New(0, 0)
	}

	srv := &Server{
		inner: mcpsdk.NewServer(
			&mcpsdk.Implementation{Name: serverName, Version: version.Version},
			&mcpsdk.ServerOptions{Logger: deps.Logger},
		),
		tools:   make([]string, 0, toolCount),
		store:   store,
		metrics: deps.Metrics,
		tracer:  deps.Tracer,
	}

	addTool(srv, ToolNameInsert, insertToolDescription, srv.handleInsert)
	addTool(srv, ToolNameErase, eraseToolDescription, srv.handleErase)
	addTool(srv, ToolNameFind, findToolDescription, srv.handleFind)
	addTool(srv, ToolNameRange, rangeToolDescription, srv.handleRange)
	addTool(srv, ToolNameStats, statsToolDescription, srv.handleStats)

	return srv
}

// Store returns the set store backing the tools.
func (s *Server) Store() *setstore.Store {
	return s.store
}

// ListToolNames returns the registered tool names in sorted order.
func (s *Server) ListToolNames() []string {
	names := slices.Clone(s.tools)
	slices.Sort(names)

	return names
}

// Run serves on stdio until ctx is canceled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport serves on transport until ctx is canceled or the
// connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

type toolHandler[Input any] = func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error)

func addTool[Input any](s *Server, name, description string, handler toolHandler[Input]) {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{Name: name, Description: description}, instrument(s, name, handler))

	s.tools = append(s.tools, name)
}

// spanPrefix namespaces tool call spans.
const spanPrefix = "mcp."

// instrument wraps handler with a server span and tool call metrics. A
// sampled span's trace id is appended to the result as "trace_id=<id>".
func instrument[Input any](s *Server, tool string, handler toolHandler[Input]) toolHandler[Input] {
	if s.tracer == nil && s.metrics == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		var span trace.Span

		if s.tracer != nil {
			ctx, span = s.tracer.Start(ctx, spanPrefix+tool,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attribute.String("mcp.tool", tool)),
			)
			defer span.End()
		}

		var end func(status string)
		if s.metrics != nil {
			end = s.metrics.Begin(ctx, tool)
		}

		result, output, err := handler(ctx, req, input)

		if end != nil {
			status := observability.StatusOK
			if err != nil || (result != nil && result.IsError) {
				status = observability.StatusError
			}

			end(status)
		}

		if span != nil && span.SpanContext().IsSampled() && result != nil {
			result.Content = append(result.Content, &mcpsdk.TextContent{Text: "trace_id=" + span.SpanContext().TraceID().String()})
		}

		return result, output, err
	}
}

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/rbset/internal/observability"
	"github.com/Sumatoshi-tech/rbset/internal/setstore"
	"github.com/Sumatoshi-tech/rbset/pkg/rbtree"
)

// Tool name constants.
const (
	ToolNameInsert = "rbset_insert"
	ToolNameErase  = "rbset_erase"
	ToolNameFind   = "rbset_find"
	ToolNameRange  = "rbset_range"
	ToolNameStats  = "rbset_stats"
)

// Input size limits.
const (
	// MaxMembersPerCall bounds the members accepted by one tool call.
	MaxMembersPerCall = 10_000
	// MaxMemberBytes bounds a single member.
	MaxMemberBytes = 4096
)

// Sentinel errors for tool input validation.
var (
	// ErrNoMembers indicates the members parameter is empty.
	ErrNoMembers = errors.New("members parameter is required and must not be empty")
	// ErrTooManyMembers indicates more than MaxMembersPerCall members.
	ErrTooManyMembers = errors.New("too many members")
	// ErrMemberTooLarge indicates a member over MaxMemberBytes.
	ErrMemberTooLarge = errors.New("member exceeds maximum size")
)

// MembersInput is the input schema for rbset_insert, rbset_erase and rbset_find.
type MembersInput struct {
	Members []string `json:"members" jsonschema:"strings to operate on"`
	Set     string   `json:"set"     jsonschema:"name of the set"`
}

// RangeInput is the input schema for the rbset_range tool.
type RangeInput struct {
	From    string `json:"from,omitempty"    jsonschema:"start member (default: first or last member)"`
	Limit   int    `json:"limit,omitempty"   jsonschema:"maximum members to return (default: 100)"`
	Reverse bool   `json:"reverse,omitempty" jsonschema:"walk in descending order"`
	Set     string `json:"set"               jsonschema:"name of the set"`
}

// StatsInput is the input schema for the rbset_stats tool.
type StatsInput struct {
	Set string `json:"set,omitempty" jsonschema:"name of the set (default: every set)"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// InsertResult is returned by rbset_insert.
type InsertResult struct {
	Set   string `json:"set"`
	Added int    `json:"added"`
	Size  int    `json:"size"`
}

// EraseResult is returned by rbset_erase.
type EraseResult struct {
	Set     string `json:"set"`
	Removed int    `json:"removed"`
	Size    int    `json:"size"`
}

// FindResult is returned by rbset_find.
type FindResult struct {
	Set   string          `json:"set"`
	Found map[string]bool `json:"found"`
}

// RangeResult is returned by rbset_range.
type RangeResult struct {
	Set     string   `json:"set"`
	Members []string `json:"members"`
}

// StatsResult is returned by rbset_stats.
type StatsResult struct {
	Sets      []setstore.SetStats `json:"sets"`
	Allocator rbtree.Stats        `json:"allocator"`
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// failed records err on the active span and converts it to a tool error.
func failed(ctx context.Context, err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	errType := observability.ErrTypeInvalidArgument
	if errors.Is(err, rbtree.ErrOutOfMemory) {
		errType = observability.ErrTypeResource
	}

	observability.RecordSpanError(trace.SpanFromContext(ctx), err, errType)

	return errorResult(err)
}

func annotate(ctx context.Context, set string, members int) {
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("set.name", set),
		attribute.Int("set.member_count", members),
	)
}

// validateMembers checks common members input constraints.
func validateMembers(members []string) error {
	if len(members) == 0 {
		return ErrNoMembers
	}

	if len(members) > MaxMembersPerCall {
		return fmt.Errorf("%w: %d (max %d)", ErrTooManyMembers, len(members), MaxMembersPerCall)
	}

	for _, member := range members {
		if len(member) > MaxMemberBytes {
			return fmt.Errorf("%w: %d bytes (max %d)", ErrMemberTooLarge, len(member), MaxMemberBytes)
		}
	}

	return nil
}

func (s *Server) size(set string) int {
	stats, err := s.store.Stats(set)
	if err != nil {
		return 0
	}

	return stats.Size
}

func (s *Server) handleInsert(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input MembersInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	annotate(ctx, input.Set, len(input.Members))

	err := validateMembers(input.Members)
	if err != nil {
		return failed(ctx, err)
	}

	added, err := s.store.Insert(input.Set, input.Members)
	if err != nil {
		return failed(ctx, fmt.Errorf("%w (added %d)", err, added))
	}

	return jsonResult(InsertResult{Set: input.Set, Added: added, Size: s.size(input.Set)})
}

func (s *Server) handleErase(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input MembersInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	annotate(ctx, input.Set, len(input.Members))

	err := validateMembers(input.Members)
	if err != nil {
		return failed(ctx, err)
	}

	removed, err := s.store.Erase(input.Set, input.Members)
	if err != nil {
		return failed(ctx, err)
	}

	return jsonResult(EraseResult{Set: input.Set, Removed: removed, Size: s.size(input.Set)})
}

func (s *Server) handleFind(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input MembersInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	annotate(ctx, input.Set, len(input.Members))

	err := validateMembers(input.Members)
	if err != nil {
		return failed(ctx, err)
	}

	found, err := s.store.Contains(input.Set, input.Members)
	if err != nil {
		return failed(ctx, err)
	}

	result := FindResult{Set: input.Set, Found: make(map[string]bool, len(found))}
	for idx, member := range input.Members {
		result.Found[member] = found[idx]
	}

	return jsonResult(result)
}

func (s *Server) handleRange(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input RangeInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	members, err := s.store.Range(input.Set, input.From, input.Limit, input.Reverse)
	if err != nil {
		return failed(ctx, err)
	}

	annotate(ctx, input.Set, len(members))

	return jsonResult(RangeResult{Set: input.Set, Members: members})
}

func (s *Server) handleStats(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input StatsInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	names := []string{input.Set}
	if input.Set == "" {
		names = s.store.Names()
	}

	result := StatsResult{Sets: make([]setstore.SetStats, 0, len(names))}

	for _, name := range names {
		stats, err := s.store.Stats(name)
		if err != nil {
			return failed(ctx, err)
		}

		result.Sets = append(result.Sets, stats)
	}

	result.Allocator = s.store.Allocator()

	return jsonResult(result)
}

// Tool description constants.
const (
	insertToolDescription = "Insert strings into a named ordered set, creating the set on first use. " +
		"Duplicates are ignored. Returns how many members were new and the set size."

	eraseToolDescription = "Erase strings from a named ordered set. " +
		"Returns how many members were present and the remaining set size."

	findToolDescription = "Check membership of strings in a named ordered set."

	rangeToolDescription = "List members of a named ordered set in ascending or descending order, " +
		"starting at an optional member and bounded by a limit."

	statsToolDescription = "Report size, height, min and max of one or every set, " +
		"plus node allocator counters (allocations, reuses, cached nodes)."
)

package observability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// maxAttributeLen caps exported string attribute values in bytes.
const maxAttributeLen = 256

// exportedNamespaces lists the attribute key namespaces that may leave the
// process. "error" itself is set by span.RecordError.
var exportedNamespaces = []string{"rbset.", "bench.", "set.", "mcp.", "error.", "http.", "url."}

// callerData are keys that carry set members or payloads.
var callerData = map[attribute.Key]struct{}{
	"set.members":   {},
	"request.body":  {},
	"response.body": {},
}

// spanScrubber is a SpanProcessor that drops caller data and keys outside
// exportedNamespaces, and truncates long strings, before handing spans on.
type spanScrubber struct {
	sdktrace.SpanProcessor

	logger *slog.Logger
}

// NewSpanScrubber wraps next with attribute scrubbing. When logger is
// non-nil each dropped key is logged at warn level.
func NewSpanScrubber(next sdktrace.SpanProcessor, logger *slog.Logger) sdktrace.SpanProcessor {
	return &spanScrubber{SpanProcessor: next, logger: logger}
}

func (s *spanScrubber) OnEnd(span sdktrace.ReadOnlySpan) {
	s.SpanProcessor.OnEnd(&scrubbedSpan{ReadOnlySpan: span, attrs: s.scrub(span.Attributes())})
}

func (s *spanScrubber) Shutdown(ctx context.Context) error {
	err := s.SpanProcessor.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("span scrubber shutdown: %w", err)
	}

	return nil
}

func (s *spanScrubber) scrub(in []attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(in))

	for _, kv := range in {
		if !exported(kv.Key) {
			if s.logger != nil {
				s.logger.Warn("span attribute dropped", "key", string(kv.Key))
			}

			continue
		}

		if kv.Value.Type() == attribute.STRING && len(kv.Value.AsString()) > maxAttributeLen {
			kv = kv.Key.String(kv.Value.AsString()[:maxAttributeLen])
		}

		out = append(out, kv)
	}

	return out
}

func exported(key attribute.Key) bool {
	if _, secret := callerData[key]; secret {
		return false
	}

	if key == "error" {
		return true
	}

	for _, ns := range exportedNamespaces {
		if strings.HasPrefix(string(key), ns) {
			return true
		}
	}

	return false
}

type scrubbedSpan struct {
	sdktrace.ReadOnlySpan

	attrs []attribute.KeyValue
}

func (s *scrubbedSpan) Attributes() []attribute.KeyValue {
	return s.attrs
}

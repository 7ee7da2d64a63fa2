package observability

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Error classification recorded on failed spans.
const (
	ErrTypeInvalidArgument = "invalid_argument"
	ErrTypeInvariant       = "invariant_violation"
	ErrTypeResource        = "resource_exhausted"
	ErrTypeCanceled        = "canceled"
	ErrTypeInternal        = "internal"
)

// RecordSpanError marks span as failed and tags it with errType.
func RecordSpanError(span trace.Span, err error, errType string) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("error.type", errType))
}

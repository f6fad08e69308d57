package fsm

import (
	"context"
	"strconv"

	"github.com/zeebo/xxh3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/amp-labs/lifecycle/fsm"

// startTransitionSpan creates a span for one Transition call.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func (m *Machine) startTransitionSpan(ctx context.Context, e Entity, transition string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "fsm.transition")
	span.SetAttributes(
		attribute.String("machine", m.name),
		attribute.String("transition", transition),
		attribute.String("entity_id_hash", hashID(e.ID())),
	)

	return ctx, span
}

// startBulkSpan creates a span for one TransitionAll call.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func (m *Machine) startBulkSpan(ctx context.Context, transition string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "fsm.transition_all")
	span.SetAttributes(
		attribute.String("machine", m.name),
		attribute.String("transition", transition),
	)

	return ctx, span
}

// endSpan records the outcome of an operation on its span and ends it.
func endSpan(span trace.Span, outcome string, err error) {
	span.SetAttributes(attribute.String("outcome", outcome))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, outcome)
	}

	span.End()
}

// hashID creates a short hash of an entity ID for span and log attributes.
func hashID(id string) string {
	if id == "" {
		return ""
	}

	return strconv.FormatUint(xxh3.HashString(id), 16)
}

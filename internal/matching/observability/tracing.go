package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"donormatch/internal/matching/service"
)

const tracerName = "donormatch/internal/matching"

// TracingObserver opens one span per phase. Phase spans nest under the
// search span.
type TracingObserver struct {
	tracer trace.Tracer
}

// NewTracingObserver uses the given tracer, or the global provider's when nil.
func NewTracingObserver(tracer trace.Tracer) *TracingObserver {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &TracingObserver{tracer: tracer}
}

func (o *TracingObserver) PhaseStarted(ctx context.Context, phase service.Phase) context.Context {
	ctx, _ = o.tracer.Start(ctx, "match."+string(phase),
		trace.WithAttributes(attribute.String("match.phase", string(phase))),
	)
	return ctx
}

func (o *TracingObserver) PhaseCompleted(ctx context.Context, _ service.Phase, outcome service.PhaseOutcome) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Int("match.candidates", outcome.Candidates))
	if outcome.Err != nil {
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, outcome.Err.Error())
	}
	span.End()
}

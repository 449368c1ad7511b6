// Package observability adapts metrics, tracing and logging to the match
// service's phase observer hook.
package observability

import (
	"context"
	"errors"

	"donormatch/internal/matching/metrics"
	"donormatch/internal/matching/ports"
	"donormatch/internal/matching/service"
)

// MetricsObserver records phase latencies, candidate counts and search outcomes.
type MetricsObserver struct {
	metrics *metrics.Metrics
}

func NewMetricsObserver(m *metrics.Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) PhaseStarted(ctx context.Context, _ service.Phase) context.Context {
	return ctx
}

func (o *MetricsObserver) PhaseCompleted(_ context.Context, phase service.Phase, outcome service.PhaseOutcome) {
	o.metrics.ObservePhase(string(phase), outcome.Duration, outcome.Candidates)
	if phase != service.PhaseSearch {
		return
	}
	switch {
	case outcome.Err != nil:
		o.metrics.IncrementOutcome(metrics.OutcomeFailed)
		var se *ports.SourceError
		if errors.As(outcome.Err, &se) {
			o.metrics.IncrementSourceError(string(se.Category))
		}
	case outcome.Candidates == 0:
		o.metrics.IncrementOutcome(metrics.OutcomeEmpty)
	default:
		o.metrics.IncrementOutcome(metrics.OutcomeMatched)
	}
}

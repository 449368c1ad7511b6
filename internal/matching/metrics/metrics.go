package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Search outcomes.
const (
	OutcomeMatched = "matched"
	OutcomeEmpty   = "empty"
	OutcomeFailed  = "failed"
)

// Metrics provides observability for the matching module.
type Metrics struct {
	// Phase latencies by phase name
	PhaseLatency *prometheus.HistogramVec

	// Donors still in play when a phase finished
	PhaseCandidates *prometheus.HistogramVec

	// Search outcomes
	SearchOutcome *prometheus.CounterVec

	// Collaborator failures by error category
	SourceErrors *prometheus.CounterVec
}

// New creates the matching metrics on reg. A nil registerer leaves them
// unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PhaseLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "donormatch_phase_duration_seconds",
			Help:    "Duration of match search phases",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"phase"}),

		PhaseCandidates: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "donormatch_phase_candidates",
			Help:    "Donors remaining after each match search phase",
			Buckets: prometheus.ExponentialBuckets(1, 10, 7),
		}, []string{"phase"}),

		SearchOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "donormatch_search_outcomes_total",
			Help: "Total match searches by outcome",
		}, []string{"outcome"}), // outcome: "matched", "empty", "failed"

		SourceErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "donormatch_source_errors_total",
			Help: "Collaborator failures seen by match searches, by error category",
		}, []string{"category"}),
	}
}

// ObservePhase records a finished phase.
func (m *Metrics) ObservePhase(phase string, d time.Duration, candidates int) {
	if m != nil {
		m.PhaseLatency.WithLabelValues(phase).Observe(d.Seconds())
		m.PhaseCandidates.WithLabelValues(phase).Observe(float64(candidates))
	}
}

// IncrementOutcome records a search outcome.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.SearchOutcome.WithLabelValues(outcome).Inc()
	}
}

// IncrementSourceError records a collaborator failure.
func (m *Metrics) IncrementSourceError(category string) {
	if m != nil {
		m.SourceErrors.WithLabelValues(category).Inc()
	}
}

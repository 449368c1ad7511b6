package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObservePhase("phase_one", 30*time.Millisecond, 120)
	m.ObservePhase("phase_one", 10*time.Millisecond, 80)
	m.IncrementOutcome(OutcomeMatched)
	m.IncrementOutcome(OutcomeMatched)
	m.IncrementOutcome(OutcomeFailed)
	m.IncrementSourceError("timeout")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SearchOutcome.WithLabelValues(OutcomeMatched)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchOutcome.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceErrors.WithLabelValues("timeout")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PhaseLatency))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "donormatch_phase_candidates")
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
		New(nil)
	})
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObservePhase("filter", time.Millisecond, 1)
		m.IncrementOutcome(OutcomeEmpty)
		m.IncrementSourceError("internal")
	})
}

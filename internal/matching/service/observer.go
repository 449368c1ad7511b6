package service

import (
	"context"
	"time"
)

// Phase names a stage of a match search.
type Phase string

const (
	PhaseSearch     Phase = "search"
	PhaseOne        Phase = "phase_one"
	PhaseTwo        Phase = "phase_two"
	PhaseFilter     Phase = "filter"
	PhaseEnrichment Phase = "enrichment"
)

// PhaseOutcome describes a finished phase. Candidates is the number of donors
// still in play when the phase ended.
type PhaseOutcome struct {
	Candidates int
	Duration   time.Duration
	Err        error
}

// Observer is the single observability hook of the engine. PhaseStarted may
// return a derived context (for example carrying a span) that is passed to
// the phase and to the matching PhaseCompleted call.
type Observer interface {
	PhaseStarted(ctx context.Context, phase Phase) context.Context
	PhaseCompleted(ctx context.Context, phase Phase, outcome PhaseOutcome)
}

type noopObserver struct{}

func (noopObserver) PhaseStarted(ctx context.Context, _ Phase) context.Context { return ctx }

func (noopObserver) PhaseCompleted(context.Context, Phase, PhaseOutcome) {}

// Observers fans a phase out to several observers. Nil entries are skipped.
func Observers(observers ...Observer) Observer {
	active := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			active = append(active, o)
		}
	}
	return active
}

type multiObserver []Observer

func (m multiObserver) PhaseStarted(ctx context.Context, phase Phase) context.Context {
	for _, o := range m {
		ctx = o.PhaseStarted(ctx, phase)
	}
	return ctx
}

func (m multiObserver) PhaseCompleted(ctx context.Context, phase Phase, outcome PhaseOutcome) {
	for i := len(m) - 1; i >= 0; i-- {
		m[i].PhaseCompleted(ctx, phase, outcome)
	}
}

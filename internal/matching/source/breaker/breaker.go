// Package breaker guards a LocusMatchSource with a circuit breaker so a
// failing store is not hammered by every concurrent search.
package breaker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sony/gobreaker"

	"donormatch/internal/matching/models"
	"donormatch/internal/matching/ports"
	"donormatch/internal/platform/config"
)

const sourceName = "breaker"

// Source decorates a LocusMatchSource. Rejected calls fail with a retryable
// provider outage; calls are never retried here.
type Source struct {
	next ports.LocusMatchSource
	cb   *gobreaker.CircuitBreaker
}

// New wraps next. Only timeouts and outages count towards tripping the
// breaker; cancelled searches and bad data do not.
func New(name string, next ports.LocusMatchSource, cfg config.Breaker, logger *slog.Logger) *Source {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !ports.IsRetryable(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger != nil {
				logger.Warn("circuit breaker state changed",
					"circuit_breaker", name,
					"from_state", from.String(),
					"to_state", to.String(),
				)
			}
		},
	}
	return &Source{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

// State reports the breaker state.
func (s *Source) State() gobreaker.State {
	return s.cb.State()
}

// MatchesAtLocus implements ports.LocusMatchSource.
func (s *Source) MatchesAtLocus(
	ctx context.Context,
	locus models.Locus,
	criteria models.LocusMatchCriteria,
	hints models.FilterHints,
) ([]models.MatchEdge, error) {
	return s.execute("matches_at_locus", func() ([]models.MatchEdge, error) {
		return s.next.MatchesAtLocus(ctx, locus, criteria, hints)
	})
}

// MatchesAtLocusForDonors implements ports.LocusMatchSource.
func (s *Source) MatchesAtLocusForDonors(
	ctx context.Context,
	locus models.Locus,
	criteria models.LocusMatchCriteria,
	donorIDs []models.DonorID,
) ([]models.MatchEdge, error) {
	return s.execute("matches_at_locus_for_donors", func() ([]models.MatchEdge, error) {
		return s.next.MatchesAtLocusForDonors(ctx, locus, criteria, donorIDs)
	})
}

func (s *Source) execute(operation string, fn func() ([]models.MatchEdge, error)) ([]models.MatchEdge, error) {
	result, err := s.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ports.NewSourceError(ports.ErrorProviderOutage, sourceName, operation, err)
		}
		return nil, err
	}
	edges, _ := result.([]models.MatchEdge)
	return edges, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"donormatch/internal/matching/aggregate"
	"donormatch/internal/matching/models"
	"donormatch/internal/matching/ordering"
	"donormatch/internal/matching/ports"
)

// Service runs donor match searches. It holds no per-search state, so one
// instance serves concurrent searches.
type Service struct {
	source   ports.LocusMatchSource
	donors   ports.DonorResolver
	strategy ordering.Strategy
	observer Observer
	logger   *slog.Logger
	timeout  time.Duration
}

type Option func(s *Service)

func WithStrategy(strategy ordering.Strategy) Option {
	return func(s *Service) {
		if strategy != nil {
			s.strategy = strategy
		}
	}
}

func WithObserver(observer Observer) Option {
	return func(s *Service) {
		if observer != nil {
			s.observer = observer
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithSearchTimeout bounds a whole search. Zero leaves the caller's deadline alone.
func WithSearchTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

// New constructs a Service. Both collaborators are required.
func New(source ports.LocusMatchSource, donors ports.DonorResolver, opts ...Option) (*Service, error) {
	if source == nil {
		return nil, errors.New("locus match source is required")
	}
	if donors == nil {
		return nil, errors.New("donor resolver is required")
	}
	s := &Service{
		source:   source,
		donors:   donors,
		strategy: ordering.NewSelectivityStrategy(),
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// FindMatches returns every donor satisfying the criteria, keyed by donor id.
//
// Any collaborator failure or cancellation fails the whole search; a partial
// result is never returned.
func (s *Service) FindMatches(ctx context.Context, criteria models.MatchCriteria) (results map[models.DonorID]models.MatchResult, err error) {
	if len(criteria.LocusCriteria) == 0 {
		return map[models.DonorID]models.MatchResult{}, nil
	}
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ctx, done := s.startPhase(ctx, PhaseSearch)
	defer func() { done(len(results), err) }()

	plan := s.strategy.Plan(criteria)
	if len(plan.PhaseOne) == 0 {
		return nil, fmt.Errorf("%w: no required locus to scan in phase one", models.ErrPreconditionViolation)
	}

	candidates, err := s.runPhase(ctx, PhaseOne, func(ctx context.Context) (map[models.DonorID]models.MatchResult, error) {
		return s.matchPhaseOne(ctx, criteria, plan.PhaseOne)
	})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return map[models.DonorID]models.MatchResult{}, nil
	}

	candidates, err = s.runPhase(ctx, PhaseTwo, func(ctx context.Context) (map[models.DonorID]models.MatchResult, error) {
		return s.matchPhaseTwo(ctx, criteria, plan.PhaseTwo, candidates)
	})
	if err != nil {
		return nil, err
	}

	candidates, err = s.runPhase(ctx, PhaseFilter, func(context.Context) (map[models.DonorID]models.MatchResult, error) {
		return filterResults(candidates, func(r models.MatchResult) bool {
			return aggregate.PassesAggregate(r, criteria)
		}), nil
	})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return candidates, nil
	}

	results, err = s.runPhase(ctx, PhaseEnrichment, func(ctx context.Context) (map[models.DonorID]models.MatchResult, error) {
		return s.enrich(ctx, criteria, candidates)
	})
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "match search completed",
			"phase_one_loci", plan.PhaseOne,
			"phase_two_loci", plan.PhaseTwo,
			"results", len(results),
		)
	}
	return results, nil
}

func (s *Service) startPhase(ctx context.Context, phase Phase) (context.Context, func(candidates int, err error)) {
	start := time.Now()
	ctx = s.observer.PhaseStarted(ctx, phase)
	return ctx, func(candidates int, err error) {
		s.observer.PhaseCompleted(ctx, phase, PhaseOutcome{
			Candidates: candidates,
			Duration:   time.Since(start),
			Err:        err,
		})
	}
}

// runPhase wraps a phase with the observer and refuses to hand on results
// produced after the search was cancelled.
func (s *Service) runPhase(
	ctx context.Context,
	phase Phase,
	fn func(context.Context) (map[models.DonorID]models.MatchResult, error),
) (map[models.DonorID]models.MatchResult, error) {
	ctx, done := s.startPhase(ctx, phase)
	results, err := fn(ctx)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		done(0, err)
		return nil, err
	}
	done(len(results), nil)
	return results, nil
}

// enrich resolves donor records and applies the post-enrichment filter.
// Donors without a usable record are dropped.
func (s *Service) enrich(
	ctx context.Context,
	criteria models.MatchCriteria,
	candidates map[models.DonorID]models.MatchResult,
) (map[models.DonorID]models.MatchResult, error) {
	ids := sortedIDs(candidates)
	records, err := s.donors.ResolveDonors(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve donors: %w", err)
	}

	results := make(map[models.DonorID]models.MatchResult, len(candidates))
	for _, id := range ids {
		record, ok := records[id]
		if !ok {
			continue
		}
		enriched, err := candidates[id].WithDonor(record)
		if err != nil {
			if s.logger != nil {
				s.logger.WarnContext(ctx, "discarding inconsistent donor record",
					"donor_id", id,
					"error", err,
				)
			}
			continue
		}
		if aggregate.PassesDonor(enriched, criteria) {
			results[id] = enriched
		}
	}
	return results, nil
}

func filterResults(in map[models.DonorID]models.MatchResult, keep func(models.MatchResult) bool) map[models.DonorID]models.MatchResult {
	out := make(map[models.DonorID]models.MatchResult, len(in))
	for id, r := range in {
		if keep(r) {
			out[id] = r
		}
	}
	return out
}

func sortedIDs(results map[models.DonorID]models.MatchResult) []models.DonorID {
	return slices.Sorted(maps.Keys(results))
}

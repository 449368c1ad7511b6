package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"donormatch/internal/matching/aggregate"
	"donormatch/internal/matching/models"
)

// matchPhaseOne scans each phase-one locus over the whole donor population and
// keeps donors that can still pass once the remaining loci are matched.
// Donors seen at some loci but not others get a zero state at the missing ones.
func (s *Service) matchPhaseOne(
	ctx context.Context,
	criteria models.MatchCriteria,
	loci []models.Locus,
) (map[models.DonorID]models.MatchResult, error) {
	locusCriteria := make([]models.LocusMatchCriteria, len(loci))
	for i, locus := range loci {
		if !locus.IsRequired() {
			return nil, fmt.Errorf("%w: locus %s cannot be scanned unrestricted", models.ErrPreconditionViolation, locus)
		}
		lc, err := criteria.ForLocus(locus)
		if err != nil {
			return nil, err
		}
		locusCriteria[i] = lc
	}

	hints := models.FilterHints{DonorType: criteria.DonorType}
	perLocus := make([]map[models.DonorID]models.LocusMatchState, len(loci))

	g, gctx := errgroup.WithContext(ctx)
	for i, locus := range loci {
		g.Go(func() error {
			edges, err := s.source.MatchesAtLocus(gctx, locus, locusCriteria[i], hints)
			if err != nil {
				return fmt.Errorf("match locus %s: %w", locus, err)
			}
			perLocus[i] = aggregate.StatesByDonor(edges)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make(map[models.DonorID]models.MatchResult)
	for i, locus := range loci {
		for id, state := range perLocus[i] {
			aggregate.MergeLocusState(results, id, locus, state)
		}
	}

	for id, r := range results {
		for _, locus := range loci {
			if _, populated := r.LocusState(locus); !populated {
				r = r.WithLocusState(locus, models.NoMatch)
			}
		}
		if !aggregate.PassesPhaseOne(r, criteria) {
			delete(results, id)
			continue
		}
		results[id] = r
	}
	return results, nil
}

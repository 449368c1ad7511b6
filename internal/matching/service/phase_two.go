package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"donormatch/internal/matching/aggregate"
	"donormatch/internal/matching/models"
)

// matchPhaseTwo matches the remaining loci for the phase-one survivors only.
// A survivor with no edges at a locus gets a zero state there.
func (s *Service) matchPhaseTwo(
	ctx context.Context,
	criteria models.MatchCriteria,
	loci []models.Locus,
	candidates map[models.DonorID]models.MatchResult,
) (map[models.DonorID]models.MatchResult, error) {
	if len(loci) == 0 {
		return candidates, nil
	}

	locusCriteria := make([]models.LocusMatchCriteria, len(loci))
	for i, locus := range loci {
		lc, err := criteria.ForLocus(locus)
		if err != nil {
			return nil, err
		}
		locusCriteria[i] = lc
	}

	ids := sortedIDs(candidates)
	perLocus := make([]map[models.DonorID]models.LocusMatchState, len(loci))

	g, gctx := errgroup.WithContext(ctx)
	for i, locus := range loci {
		g.Go(func() error {
			edges, err := s.source.MatchesAtLocusForDonors(gctx, locus, locusCriteria[i], ids)
			if err != nil {
				return fmt.Errorf("match locus %s for %d donors: %w", locus, len(ids), err)
			}
			perLocus[i] = aggregate.StatesByDonor(edges)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make(map[models.DonorID]models.MatchResult, len(candidates))
	for id, r := range candidates {
		for i, locus := range loci {
			r = r.WithLocusState(locus, perLocus[i][id])
		}
		results[id] = r
	}
	return results, nil
}

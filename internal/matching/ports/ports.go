package ports

import (
	"context"

	"donormatch/internal/matching/models"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks LocusMatchSource,DonorResolver

// DefaultBatchSize is the most donor ids a restricted source query carries.
const DefaultBatchSize = 50_000

// LocusMatchSource answers which donors carry a P-group match at a locus.
//
// For loci that are not required, implementations report donors with no typing
// at the locus as matching both patient positions through both donor positions.
// MatchesAtLocusForDonors batches large id sets internally; batching never
// changes the returned edges.
type LocusMatchSource interface {
	// MatchesAtLocus scans the whole donor population. Hints may be used to
	// narrow the scan but callers never rely on them.
	MatchesAtLocus(ctx context.Context, locus models.Locus, criteria models.LocusMatchCriteria, hints models.FilterHints) ([]models.MatchEdge, error)

	// MatchesAtLocusForDonors restricts the scan to the given donors.
	MatchesAtLocusForDonors(ctx context.Context, locus models.Locus, criteria models.LocusMatchCriteria, donorIDs []models.DonorID) ([]models.MatchEdge, error)
}

// DonorResolver resolves donor ids to donor records. Ids with no record are
// omitted from the returned map.
type DonorResolver interface {
	ResolveDonors(ctx context.Context, donorIDs []models.DonorID) (map[models.DonorID]models.DonorRecord, error)
}

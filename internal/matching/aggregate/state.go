// Package aggregate derives per-locus match grades from raw match edges and
// applies the mismatch-tolerance rules to aggregated donor results.
package aggregate

import (
	"donormatch/internal/matching/models"
)

// LocusState grades one donor at one locus from the edges found for it.
//
// The locus is fully matched when both patient positions are satisfied by a
// direct pairing (patient one by donor one, patient two by donor two) or a
// crossed pairing. Edges carry a set of donor positions, so a homozygous donor
// position can satisfy either side of a pairing.
func LocusState(edges []models.MatchEdge) models.LocusMatchState {
	if len(edges) == 0 {
		return models.NoMatch
	}

	// donor positions satisfying each patient position
	var patientOne, patientTwo models.TypePositions
	for _, e := range edges {
		switch e.SearchPosition {
		case models.PositionOne:
			patientOne |= e.MatchedPositions
		case models.PositionTwo:
			patientTwo |= e.MatchedPositions
		}
	}

	direct := patientOne.Contains(models.PositionOne) && patientTwo.Contains(models.PositionTwo)
	cross := patientOne.Contains(models.PositionTwo) && patientTwo.Contains(models.PositionOne)
	if direct || cross {
		return models.FullMatch
	}
	return models.SingleMatch
}

// StatesByDonor grades every donor present in the edges of a single locus.
func StatesByDonor(edges []models.MatchEdge) map[models.DonorID]models.LocusMatchState {
	grouped := make(map[models.DonorID][]models.MatchEdge)
	for _, e := range edges {
		grouped[e.DonorID] = append(grouped[e.DonorID], e)
	}
	states := make(map[models.DonorID]models.LocusMatchState, len(grouped))
	for id, group := range grouped {
		states[id] = LocusState(group)
	}
	return states
}

// MergeLocusState folds a locus state into a donor result, creating the result
// when the donor has not been seen yet. The existing map entry is replaced, never
// mutated in place.
func MergeLocusState(results map[models.DonorID]models.MatchResult, id models.DonorID, locus models.Locus, state models.LocusMatchState) {
	existing, ok := results[id]
	if !ok {
		existing = models.NewMatchResult(id)
	}
	results[id] = existing.WithLocusState(locus, state)
}

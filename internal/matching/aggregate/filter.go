package aggregate

import (
	"donormatch/internal/matching/models"
)

// PassesLocus reports whether the donor's mismatches at locus stay within that
// locus's tolerance. Loci not yet populated for the donor pass.
func PassesLocus(r models.MatchResult, locus models.Locus, criteria models.MatchCriteria) bool {
	state, populated := r.LocusState(locus)
	if !populated {
		return true
	}
	lc, ok := criteria.LocusCriteria[locus]
	if !ok || lc == nil {
		return true
	}
	return state.Mismatches() <= lc.MismatchCount
}

// PassesAllLoci applies PassesLocus to every searched locus.
func PassesAllLoci(r models.MatchResult, criteria models.MatchCriteria) bool {
	for _, locus := range criteria.SearchedLoci() {
		if !PassesLocus(r, locus, criteria) {
			return false
		}
	}
	return true
}

// PassesTotal checks TotalMatchCount >= 2*PopulatedLociCount - allowed mismatches.
func PassesTotal(r models.MatchResult, criteria models.MatchCriteria) bool {
	return r.TotalMismatchCount() <= criteria.TotalMismatchCount
}

// PassesCategory applies the donor-category rule. Categories that require an
// exact count only admit donors carrying exactly the requested number of
// mismatches; tolerant categories add nothing to PassesTotal.
func PassesCategory(r models.MatchResult, criteria models.MatchCriteria) bool {
	if !criteria.DonorType.RequiresExactMismatchCount() {
		return true
	}
	return r.TotalMismatchCount() == criteria.TotalMismatchCount
}

// PassesAggregate is the full post phase-two filter.
func PassesAggregate(r models.MatchResult, criteria models.MatchCriteria) bool {
	return PassesAllLoci(r, criteria) &&
		PassesTotal(r, criteria) &&
		PassesCategory(r, criteria)
}

// PassesDonor applies the post-enrichment checks. Results that were never
// enriched fail.
func PassesDonor(r models.MatchResult, criteria models.MatchCriteria) bool {
	donor, ok := r.Donor()
	if !ok {
		return false
	}
	return donor.AvailableForSearch &&
		donor.Type == criteria.DonorType &&
		criteria.HasRegistry(donor.Registry)
}

// PassesPhaseOne is the early filter run before the remaining loci are queried.
// It only rejects donors that provably cannot pass: a searched locus already over
// its tolerance, or a mismatch total already over the aggregate tolerance, since
// loci still to come can only add mismatches.
func PassesPhaseOne(r models.MatchResult, criteria models.MatchCriteria) bool {
	for _, locus := range r.PopulatedLoci() {
		if !PassesLocus(r, locus, criteria) {
			return false
		}
	}
	return PassesTotal(r, criteria)
}

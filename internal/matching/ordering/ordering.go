// Package ordering decides which loci a search scans unrestricted in phase one
// and which it defers to the restricted phase two.
package ordering

import (
	"sort"

	"donormatch/internal/matching/models"
)

// Plan splits the searched loci between the two phases. PhaseOne only ever
// holds required loci; every searched locus appears in exactly one list.
type Plan struct {
	PhaseOne []models.Locus
	PhaseTwo []models.Locus
}

// Strategy plans the phases for a search.
type Strategy interface {
	Plan(criteria models.MatchCriteria) Plan
}

// FrequencyEstimator estimates how many donors a locus query would return.
// Lower estimates are scanned first.
type FrequencyEstimator interface {
	Estimate(locus models.Locus, criteria models.LocusMatchCriteria) float64
}

// StaticFrequencies estimates a locus query as the summed population frequency
// of the requested P-groups. Unknown groups count as zero.
type StaticFrequencies map[models.Locus]map[models.PGroup]float64

// Estimate implements FrequencyEstimator.
func (f StaticFrequencies) Estimate(locus models.Locus, criteria models.LocusMatchCriteria) float64 {
	table := f[locus]
	if table == nil {
		return 0
	}
	var total float64
	for _, g := range criteria.PositionOne {
		total += table[g]
	}
	for _, g := range criteria.PositionTwo {
		total += table[g]
	}
	return total
}

// SelectivityStrategy scans the most selective required loci first: lowest
// mismatch tolerance, then lowest estimated frequency, then canonical order.
type SelectivityStrategy struct {
	estimator FrequencyEstimator
	maxLoci   int
}

// Option configures a SelectivityStrategy.
type Option func(*SelectivityStrategy)

// WithEstimator sets the frequency estimator used to break tolerance ties.
func WithEstimator(e FrequencyEstimator) Option {
	return func(s *SelectivityStrategy) {
		s.estimator = e
	}
}

// WithMaxPhaseOneLoci caps how many loci are scanned unrestricted. The cap is
// exceeded when needed to guarantee that a donor missing from every phase-one
// result is a donor that could never pass. Zero means no cap.
func WithMaxPhaseOneLoci(n int) Option {
	return func(s *SelectivityStrategy) {
		if n >= 0 {
			s.maxLoci = n
		}
	}
}

// NewSelectivityStrategy builds the default strategy.
func NewSelectivityStrategy(opts ...Option) *SelectivityStrategy {
	s := &SelectivityStrategy{}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

type rankedLocus struct {
	locus      models.Locus
	mismatches int
	estimate   float64
}

// Plan implements Strategy.
func (s *SelectivityStrategy) Plan(criteria models.MatchCriteria) Plan {
	var required []rankedLocus
	var plan Plan
	for _, locus := range criteria.SearchedLoci() {
		if !locus.IsRequired() {
			plan.PhaseTwo = append(plan.PhaseTwo, locus)
			continue
		}
		lc := criteria.LocusCriteria[locus]
		ranked := rankedLocus{locus: locus}
		if lc != nil {
			ranked.mismatches = lc.MismatchCount
			if s.estimator != nil {
				ranked.estimate = s.estimator.Estimate(locus, *lc)
			}
		}
		required = append(required, ranked)
	}

	sort.SliceStable(required, func(i, j int) bool {
		if required[i].mismatches != required[j].mismatches {
			return required[i].mismatches < required[j].mismatches
		}
		if required[i].estimate != required[j].estimate {
			return required[i].estimate < required[j].estimate
		}
		return required[i].locus < required[j].locus
	})

	for i, r := range required {
		if s.maxLoci > 0 && i >= s.maxLoci && absentDonorsFail(plan.PhaseOne, criteria) {
			plan.PhaseTwo = append(plan.PhaseTwo, r.locus)
			continue
		}
		plan.PhaseOne = append(plan.PhaseOne, r.locus)
	}
	sortLoci(plan.PhaseTwo)
	return plan
}

// absentDonorsFail reports whether a donor with no edges at any of the given
// loci is guaranteed to fail: either some locus tolerates fewer than two
// mismatches, or the loci alone already exceed the total tolerance.
func absentDonorsFail(loci []models.Locus, criteria models.MatchCriteria) bool {
	if len(loci) == 0 {
		return false
	}
	for _, l := range loci {
		if lc := criteria.LocusCriteria[l]; lc != nil && lc.MismatchCount < models.MaxLocusMismatches {
			return true
		}
	}
	return models.MaxLocusMismatches*len(loci) > criteria.TotalMismatchCount
}

func sortLoci(loci []models.Locus) {
	sort.Slice(loci, func(i, j int) bool { return loci[i] < loci[j] })
}

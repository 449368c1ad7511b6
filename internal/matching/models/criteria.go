package models

import (
	"fmt"
)

const (
	// MaxLocusMismatches is the most mismatches a single locus can carry.
	MaxLocusMismatches = 2
	// MaxTotalMismatches bounds the aggregate tolerance a search may request.
	MaxTotalMismatches = 4
)

// DonorType is the donor category a search is run for.
type DonorType string

const (
	DonorTypeAdult DonorType = "adult"
	DonorTypeCord  DonorType = "cord"
)

// IsValid reports whether t is a known donor type.
func (t DonorType) IsValid() bool {
	return t == DonorTypeAdult || t == DonorTypeCord
}

// RequiresExactMismatchCount reports whether donors of this category must carry
// exactly the requested number of mismatches rather than at most that many.
func (t DonorType) RequiresExactMismatchCount() bool {
	return t == DonorTypeAdult
}

// Registry identifies the organisation a donor record is sourced from.
type Registry string

// LocusMatchCriteria is what a donor must satisfy at a single locus.
type LocusMatchCriteria struct {
	PositionOne   []PGroup
	PositionTwo   []PGroup
	MismatchCount int
}

// PGroupsAt returns the P-groups requested for the given patient position.
func (c LocusMatchCriteria) PGroupsAt(p TypePosition) []PGroup {
	if p == PositionTwo {
		return c.PositionTwo
	}
	return c.PositionOne
}

// MatchCriteria is an aggregate donor search request. P-groups are already
// resolved; LocusCriteria holds an entry for every locus being searched.
type MatchCriteria struct {
	DonorType          DonorType
	Registries         []Registry
	TotalMismatchCount int
	LocusCriteria      map[Locus]*LocusMatchCriteria
}

// SearchedLoci returns the loci present in the criteria in canonical order.
func (c MatchCriteria) SearchedLoci() []Locus {
	loci := make([]Locus, 0, len(c.LocusCriteria))
	for _, l := range AllLoci() {
		if _, ok := c.LocusCriteria[l]; ok {
			loci = append(loci, l)
		}
	}
	return loci
}

// ForLocus returns the criteria for l. A locus that is searched but carries no
// criteria is a caller bug and is reported as a precondition violation.
func (c MatchCriteria) ForLocus(l Locus) (LocusMatchCriteria, error) {
	lc, ok := c.LocusCriteria[l]
	if !ok || lc == nil {
		return LocusMatchCriteria{}, fmt.Errorf("%w: no criteria for locus %s", ErrPreconditionViolation, l)
	}
	return *lc, nil
}

// HasRegistry reports whether r is one of the requested registries.
func (c MatchCriteria) HasRegistry(r Registry) bool {
	for _, candidate := range c.Registries {
		if candidate == r {
			return true
		}
	}
	return false
}

// Validate checks the request invariants. Violations wrap ErrPreconditionViolation
// or ErrInvalidCriteria and are never retryable.
func (c MatchCriteria) Validate() error {
	if !c.DonorType.IsValid() {
		return fmt.Errorf("%w: unknown donor type %q", ErrInvalidCriteria, c.DonorType)
	}
	if len(c.Registries) == 0 {
		return fmt.Errorf("%w: at least one registry is required", ErrInvalidCriteria)
	}
	if c.TotalMismatchCount < 0 || c.TotalMismatchCount > MaxTotalMismatches {
		return fmt.Errorf("%w: total mismatch count %d outside 0..%d",
			ErrInvalidCriteria, c.TotalMismatchCount, MaxTotalMismatches)
	}
	for locus, lc := range c.LocusCriteria {
		if !locus.IsValid() {
			return fmt.Errorf("%w: unknown locus %d", ErrInvalidCriteria, int(locus))
		}
		if lc == nil {
			return fmt.Errorf("%w: no criteria for locus %s", ErrPreconditionViolation, locus)
		}
		if lc.MismatchCount < 0 || lc.MismatchCount > MaxLocusMismatches {
			return fmt.Errorf("%w: locus %s mismatch count %d outside 0..%d",
				ErrInvalidCriteria, locus, lc.MismatchCount, MaxLocusMismatches)
		}
	}
	return nil
}

// FilterHints narrows an unrestricted scan at the source. Sources may ignore them.
type FilterHints struct {
	DonorType DonorType
}

package models

import "fmt"

// DonorID identifies a donor record in the typed-data store.
type DonorID int64

// LocusMatchState is the number of patient positions satisfied at a locus.
type LocusMatchState uint8

const (
	NoMatch     LocusMatchState = 0
	SingleMatch LocusMatchState = 1
	FullMatch   LocusMatchState = 2
)

// Mismatches returns the mismatch count the state represents.
func (s LocusMatchState) Mismatches() int {
	return MaxLocusMismatches - int(s)
}

// MatchEdge is a raw fact from the locus match source: the donor satisfies the
// patient's SearchPosition at Locus through the donor positions in MatchedPositions.
type MatchEdge struct {
	DonorID          DonorID
	Locus            Locus
	SearchPosition   TypePosition
	MatchedPositions TypePositions
}

// DonorRecord is the enrichment data resolved for a surviving donor.
type DonorRecord struct {
	ID                 DonorID
	Type               DonorType
	Registry           Registry
	AvailableForSearch bool
}

type locusSlot struct {
	state     LocusMatchState
	populated bool
}

// MatchResult aggregates a donor's per-locus states. It is a value type: every
// mutator returns an updated copy so results can be shared between phases
// without locking.
type MatchResult struct {
	DonorID DonorID

	loci  [numLoci]locusSlot
	donor *DonorRecord
}

// NewMatchResult starts an empty result for a donor.
func NewMatchResult(id DonorID) MatchResult {
	return MatchResult{DonorID: id}
}

// WithLocusState returns a copy with the state at l set. States above FullMatch
// are clamped.
func (r MatchResult) WithLocusState(l Locus, state LocusMatchState) MatchResult {
	if !l.IsValid() {
		return r
	}
	if state > FullMatch {
		state = FullMatch
	}
	r.loci[l] = locusSlot{state: state, populated: true}
	return r
}

// LocusState returns the state at l and whether l has been searched for the donor.
func (r MatchResult) LocusState(l Locus) (LocusMatchState, bool) {
	if !l.IsValid() {
		return NoMatch, false
	}
	slot := r.loci[l]
	return slot.state, slot.populated
}

// PopulatedLoci returns the searched loci in canonical order.
func (r MatchResult) PopulatedLoci() []Locus {
	loci := make([]Locus, 0, numLoci)
	for i, slot := range r.loci {
		if slot.populated {
			loci = append(loci, Locus(i))
		}
	}
	return loci
}

// PopulatedLociCount returns how many loci have a state.
func (r MatchResult) PopulatedLociCount() int {
	n := 0
	for _, slot := range r.loci {
		if slot.populated {
			n++
		}
	}
	return n
}

// TotalMatchCount sums the states of the populated loci.
func (r MatchResult) TotalMatchCount() int {
	total := 0
	for _, slot := range r.loci {
		if slot.populated {
			total += int(slot.state)
		}
	}
	return total
}

// TotalMismatchCount is the mismatch count across the populated loci.
func (r MatchResult) TotalMismatchCount() int {
	return MaxLocusMismatches*r.PopulatedLociCount() - r.TotalMatchCount()
}

// Donor returns the enrichment record, if any.
func (r MatchResult) Donor() (DonorRecord, bool) {
	if r.donor == nil {
		return DonorRecord{}, false
	}
	return *r.donor, true
}

// WithDonor returns an enriched copy. A result is enriched at most once.
func (r MatchResult) WithDonor(record DonorRecord) (MatchResult, error) {
	if r.donor != nil {
		return r, fmt.Errorf("%w: donor %d", ErrAlreadyEnriched, r.DonorID)
	}
	if record.ID != r.DonorID {
		return r, fmt.Errorf("%w: record %d enriching result %d", ErrPreconditionViolation, record.ID, r.DonorID)
	}
	rec := record
	r.donor = &rec
	return r, nil
}

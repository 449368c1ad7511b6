package models

import (
	"fmt"
	"strings"
)

// Locus identifies an independently typed HLA gene.
type Locus int

const (
	LocusA Locus = iota
	LocusB
	LocusC
	LocusDPB1
	LocusDQB1
	LocusDRB1

	numLoci = int(LocusDRB1) + 1
)

var locusNames = [numLoci]string{"A", "B", "C", "DPB1", "DQB1", "DRB1"}

// AllLoci returns every locus in canonical order.
func AllLoci() []Locus {
	return []Locus{LocusA, LocusB, LocusC, LocusDPB1, LocusDQB1, LocusDRB1}
}

// RequiredLoci returns the loci typed in every donor record.
func RequiredLoci() []Locus {
	return []Locus{LocusA, LocusB, LocusDRB1}
}

// IsValid reports whether l is one of the known loci.
func (l Locus) IsValid() bool {
	return l >= 0 && int(l) < numLoci
}

// IsRequired reports whether every donor is guaranteed typed at both positions
// of l. Absent typing at a non-required locus is never a mismatch.
func (l Locus) IsRequired() bool {
	return l == LocusA || l == LocusB || l == LocusDRB1
}

func (l Locus) String() string {
	if !l.IsValid() {
		return fmt.Sprintf("Locus(%d)", int(l))
	}
	return locusNames[l]
}

// MarshalText implements encoding.TextMarshaler so loci can be used as JSON map keys.
func (l Locus) MarshalText() ([]byte, error) {
	if !l.IsValid() {
		return nil, fmt.Errorf("%w: unknown locus %d", ErrInvalidCriteria, int(l))
	}
	return []byte(locusNames[l]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Locus) UnmarshalText(text []byte) error {
	parsed, err := ParseLocus(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLocus resolves a locus name, ignoring case and surrounding whitespace.
func ParseLocus(name string) (Locus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range locusNames {
		if n == normalized {
			return Locus(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown locus %q", ErrInvalidCriteria, name)
}

// TypePosition is one of the two inherited values at a locus.
type TypePosition uint8

const (
	PositionOne TypePosition = 1
	PositionTwo TypePosition = 2
)

func (p TypePosition) String() string {
	switch p {
	case PositionOne:
		return "one"
	case PositionTwo:
		return "two"
	default:
		return fmt.Sprintf("TypePosition(%d)", uint8(p))
	}
}

// TypePositions is a set of donor positions. A homozygous donor can satisfy a
// patient position through both of its positions at once.
type TypePositions uint8

const (
	NoPositions   TypePositions = 0
	BothPositions TypePositions = TypePositions(1<<PositionOne | 1<<PositionTwo)
)

// PositionsOf builds a set from the given positions.
func PositionsOf(positions ...TypePosition) TypePositions {
	var set TypePositions
	for _, p := range positions {
		set = set.Add(p)
	}
	return set
}

// Add returns the set with p included.
func (s TypePositions) Add(p TypePosition) TypePositions {
	return s | TypePositions(1<<p)
}

// Contains reports whether p is in the set.
func (s TypePositions) Contains(p TypePosition) bool {
	return s&TypePositions(1<<p) != 0
}

// IsEmpty reports whether no position is set.
func (s TypePositions) IsEmpty() bool {
	return s&BothPositions == 0
}

// PGroup is an opaque P-group identifier. Allele names are resolved to P-groups
// before a search reaches the engine.
type PGroup string

// PGroupSet is a lookup set of P-groups.
type PGroupSet map[PGroup]struct{}

// NewPGroupSet builds a set from the given groups.
func NewPGroupSet(groups ...PGroup) PGroupSet {
	set := make(PGroupSet, len(groups))
	for _, g := range groups {
		set[g] = struct{}{}
	}
	return set
}

// Has reports whether g is in the set.
func (s PGroupSet) Has(g PGroup) bool {
	_, ok := s[g]
	return ok
}

// Intersects reports whether any of groups is in the set.
func (s PGroupSet) Intersects(groups []PGroup) bool {
	for _, g := range groups {
		if s.Has(g) {
			return true
		}
	}
	return false
}

// LocusTyping is a donor's P-groups at one locus, per donor position.
type LocusTyping struct {
	PositionOne []PGroup
	PositionTwo []PGroup
}

// At returns the P-groups at the given donor position.
func (t LocusTyping) At(p TypePosition) []PGroup {
	if p == PositionTwo {
		return t.PositionTwo
	}
	return t.PositionOne
}

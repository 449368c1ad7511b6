package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"donormatch/internal/matching/models"
)

func edge(donor models.DonorID, search models.TypePosition, matched ...models.TypePosition) models.MatchEdge {
	return models.MatchEdge{
		DonorID:          donor,
		Locus:            models.LocusA,
		SearchPosition:   search,
		MatchedPositions: models.PositionsOf(matched...),
	}
}

func TestLocusState(t *testing.T) {
	one, two := models.PositionOne, models.PositionTwo

	tests := []struct {
		name     string
		edges    []models.MatchEdge
		expected models.LocusMatchState
	}{
		{name: "no edges", edges: nil, expected: models.NoMatch},
		{name: "direct match", edges: []models.MatchEdge{edge(1, one, one), edge(1, two, two)}, expected: models.FullMatch},
		{name: "cross match", edges: []models.MatchEdge{edge(1, one, two), edge(1, two, one)}, expected: models.FullMatch},
		{name: "single edge", edges: []models.MatchEdge{edge(1, one, one)}, expected: models.SingleMatch},
		{
			name:     "both patient positions satisfied by the same donor position",
			edges:    []models.MatchEdge{edge(1, one, one), edge(1, two, one)},
			expected: models.SingleMatch,
		},
		{
			name:     "homozygous donor satisfies both pairings",
			edges:    []models.MatchEdge{edge(1, one, one, two), edge(1, two, one, two)},
			expected: models.FullMatch,
		},
		{
			name:     "homozygous donor edge combined with a direct edge",
			edges:    []models.MatchEdge{edge(1, one, one, two), edge(1, two, two)},
			expected: models.FullMatch,
		},
		{
			name:     "homozygous donor matching one patient position only",
			edges:    []models.MatchEdge{edge(1, one, one, two)},
			expected: models.SingleMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, LocusState(tt.edges))
		})
	}
}

func TestStatesByDonor(t *testing.T) {
	one, two := models.PositionOne, models.PositionTwo
	states := StatesByDonor([]models.MatchEdge{
		edge(1, one, one),
		edge(2, one, two),
		edge(1, two, two),
	})

	assert.Equal(t, map[models.DonorID]models.LocusMatchState{
		1: models.FullMatch,
		2: models.SingleMatch,
	}, states)
}

func TestMergeLocusState(t *testing.T) {
	results := map[models.DonorID]models.MatchResult{}
	MergeLocusState(results, 5, models.LocusA, models.FullMatch)
	before := results[5]
	MergeLocusState(results, 5, models.LocusB, models.SingleMatch)

	assert.Equal(t, 1, before.PopulatedLociCount(), "earlier values are not mutated")
	assert.Equal(t, 2, results[5].PopulatedLociCount())
	assert.Equal(t, 3, results[5].TotalMatchCount())
}

func criteria(donorType models.DonorType, total int, locusMismatches map[models.Locus]int) models.MatchCriteria {
	lc := make(map[models.Locus]*models.LocusMatchCriteria, len(locusMismatches))
	for l, n := range locusMismatches {
		lc[l] = &models.LocusMatchCriteria{MismatchCount: n}
	}
	return models.MatchCriteria{
		DonorType:          donorType,
		Registries:         []models.Registry{"AN"},
		TotalMismatchCount: total,
		LocusCriteria:      lc,
	}
}

func result(states map[models.Locus]models.LocusMatchState) models.MatchResult {
	r := models.NewMatchResult(1)
	for l, s := range states {
		r = r.WithLocusState(l, s)
	}
	return r
}

func TestPassesLocus(t *testing.T) {
	c := criteria(models.DonorTypeCord, 2, map[models.Locus]int{models.LocusA: 0, models.LocusB: 1})
	r := result(map[models.Locus]models.LocusMatchState{models.LocusA: models.SingleMatch, models.LocusB: models.SingleMatch})

	assert.False(t, PassesLocus(r, models.LocusA, c))
	assert.True(t, PassesLocus(r, models.LocusB, c))
	assert.True(t, PassesLocus(r, models.LocusDRB1, c), "unpopulated locus passes")
	assert.False(t, PassesAllLoci(r, c))
}

func TestPassesTotalAndCategory(t *testing.T) {
	loci := map[models.Locus]int{models.LocusA: 2, models.LocusB: 2, models.LocusDRB1: 2}
	perfect := result(map[models.Locus]models.LocusMatchState{
		models.LocusA: models.FullMatch, models.LocusB: models.FullMatch, models.LocusDRB1: models.FullMatch,
	})
	oneMismatch := perfect.WithLocusState(models.LocusB, models.SingleMatch)

	t.Run("exact category excludes a donor with fewer mismatches than requested", func(t *testing.T) {
		c := criteria(models.DonorTypeAdult, 1, loci)
		assert.True(t, PassesTotal(perfect, c))
		assert.False(t, PassesCategory(perfect, c))
		assert.False(t, PassesAggregate(perfect, c))
		assert.True(t, PassesAggregate(oneMismatch, c))
	})

	t.Run("tolerant category includes the same donor", func(t *testing.T) {
		c := criteria(models.DonorTypeCord, 1, loci)
		assert.True(t, PassesAggregate(perfect, c))
		assert.True(t, PassesAggregate(oneMismatch, c))
	})

	t.Run("total tolerance exceeded", func(t *testing.T) {
		c := criteria(models.DonorTypeCord, 0, loci)
		assert.False(t, PassesTotal(oneMismatch, c))
	})
}

func TestPassesDonor(t *testing.T) {
	c := criteria(models.DonorTypeAdult, 0, map[models.Locus]int{models.LocusA: 0})
	base := models.NewMatchResult(1)

	assert.False(t, PassesDonor(base, c), "unenriched results never pass")

	tests := []struct {
		name     string
		record   models.DonorRecord
		expected bool
	}{
		{name: "eligible", record: models.DonorRecord{ID: 1, Type: models.DonorTypeAdult, Registry: "AN", AvailableForSearch: true}, expected: true},
		{name: "unavailable", record: models.DonorRecord{ID: 1, Type: models.DonorTypeAdult, Registry: "AN"}, expected: false},
		{name: "other registry", record: models.DonorRecord{ID: 1, Type: models.DonorTypeAdult, Registry: "DKMS", AvailableForSearch: true}, expected: false},
		{name: "other donor type", record: models.DonorRecord{ID: 1, Type: models.DonorTypeCord, Registry: "AN", AvailableForSearch: true}, expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enriched, err := base.WithDonor(tt.record)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, PassesDonor(enriched, c))
		})
	}
}

func TestPassesPhaseOne(t *testing.T) {
	loci := map[models.Locus]int{models.LocusA: 1, models.LocusB: 1, models.LocusDRB1: 1, models.LocusC: 2}

	t.Run("zero total tolerance requires full matches so far", func(t *testing.T) {
		c := criteria(models.DonorTypeCord, 0, loci)
		r := result(map[models.Locus]models.LocusMatchState{models.LocusA: models.FullMatch, models.LocusB: models.SingleMatch})
		assert.False(t, PassesPhaseOne(r, c))
	})

	t.Run("keeps a donor that can still pass once remaining loci are counted", func(t *testing.T) {
		c := criteria(models.DonorTypeAdult, 2, loci)
		r := result(map[models.Locus]models.LocusMatchState{
			models.LocusA: models.SingleMatch, models.LocusB: models.FullMatch, models.LocusDRB1: models.FullMatch,
		})
		assert.True(t, PassesPhaseOne(r, c), "exact-category rule must not be applied early")
	})

	t.Run("rejects a donor already over the total tolerance", func(t *testing.T) {
		c := criteria(models.DonorTypeCord, 1, loci)
		r := result(map[models.Locus]models.LocusMatchState{
			models.LocusA: models.SingleMatch, models.LocusB: models.SingleMatch, models.LocusDRB1: models.FullMatch,
		})
		assert.False(t, PassesPhaseOne(r, c))
	})

	t.Run("rejects a zero state at a locus that tolerates one mismatch", func(t *testing.T) {
		c := criteria(models.DonorTypeCord, 4, loci)
		r := result(map[models.Locus]models.LocusMatchState{models.LocusA: models.NoMatch, models.LocusB: models.FullMatch})
		assert.False(t, PassesPhaseOne(r, c))
	})
}

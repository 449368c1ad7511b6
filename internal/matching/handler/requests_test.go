package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donormatch/internal/matching/models"
)

func TestToCriteria(t *testing.T) {
	t.Run("normalises donor type and p-groups", func(t *testing.T) {
		req := &SearchRequest{
			DonorType:          " CORD ",
			Registries:         []string{"AN", " DKMS "},
			TotalMismatchCount: 2,
			Loci: map[models.Locus]*LocusRequest{
				models.LocusA: {PositionOne: []string{" A*01:01P", "A*01:01P", ""}, PositionTwo: nil, MismatchCount: 1},
			},
		}

		c, err := req.ToCriteria()

		require.NoError(t, err)
		assert.Equal(t, models.DonorTypeCord, c.DonorType)
		assert.Equal(t, []models.Registry{"AN", "DKMS"}, c.Registries)
		assert.Equal(t, 2, c.TotalMismatchCount)
		assert.Equal(t, []models.PGroup{"A*01:01P"}, c.LocusCriteria[models.LocusA].PositionOne)
		assert.Empty(t, c.LocusCriteria[models.LocusA].PositionTwo)
		assert.Equal(t, 1, c.LocusCriteria[models.LocusA].MismatchCount)
	})

	t.Run("nil request", func(t *testing.T) {
		var req *SearchRequest
		_, err := req.ToCriteria()
		assert.Error(t, err)
	})

	t.Run("blank registry", func(t *testing.T) {
		_, err := (&SearchRequest{Registries: []string{""}}).ToCriteria()
		assert.Error(t, err)
	})
}

package handler

import (
	"maps"
	"slices"

	"github.com/google/uuid"

	"donormatch/internal/matching/models"
)

// SearchResponse is the HTTP response for POST /v1/searches.
type SearchResponse struct {
	SearchID    uuid.UUID         `json:"search_id"`
	ResultCount int               `json:"result_count"`
	Results     []DonorResultJSON `json:"results"`
}

// DonorResultJSON is one matching donor.
type DonorResultJSON struct {
	DonorID            int64                  `json:"donor_id"`
	DonorType          string                 `json:"donor_type"`
	Registry           string                 `json:"registry"`
	TotalMatchCount    int                    `json:"total_match_count"`
	TotalMismatchCount int                    `json:"total_mismatch_count"`
	Loci               map[models.Locus]uint8 `json:"loci"`
}

// FromResults converts engine results to a response ordered by donor id.
func FromResults(searchID uuid.UUID, results map[models.DonorID]models.MatchResult) *SearchResponse {
	resp := &SearchResponse{
		SearchID:    searchID,
		ResultCount: len(results),
		Results:     make([]DonorResultJSON, 0, len(results)),
	}
	for _, id := range slices.Sorted(maps.Keys(results)) {
		r := results[id]
		out := DonorResultJSON{
			DonorID:            int64(id),
			TotalMatchCount:    r.TotalMatchCount(),
			TotalMismatchCount: r.TotalMismatchCount(),
			Loci:               make(map[models.Locus]uint8, r.PopulatedLociCount()),
		}
		if donor, ok := r.Donor(); ok {
			out.DonorType = string(donor.Type)
			out.Registry = string(donor.Registry)
		}
		for _, l := range r.PopulatedLoci() {
			state, _ := r.LocusState(l)
			out.Loci[l] = uint8(state)
		}
		resp.Results = append(resp.Results, out)
	}
	return resp
}

package handler

import (
	"errors"
	"fmt"
	"strings"

	"donormatch/internal/matching/models"
	platformstrings "donormatch/pkg/platform/strings"
)

// SearchRequest is the HTTP request body for POST /v1/searches.
type SearchRequest struct {
	DonorType          string                         `json:"donor_type"`
	Registries         []string                       `json:"registries"`
	TotalMismatchCount int                            `json:"total_mismatch_count"`
	Loci               map[models.Locus]*LocusRequest `json:"loci"`
}

// LocusRequest carries the resolved P-groups for one locus.
type LocusRequest struct {
	PositionOne   []string `json:"position_one"`
	PositionTwo   []string `json:"position_two"`
	MismatchCount int      `json:"mismatch_count"`
}

// ToCriteria converts the request to match criteria. Range checks are left to
// MatchCriteria.Validate.
func (r *SearchRequest) ToCriteria() (models.MatchCriteria, error) {
	if r == nil {
		return models.MatchCriteria{}, errors.New("request body is required")
	}
	criteria := models.MatchCriteria{
		DonorType:          models.DonorType(strings.ToLower(strings.TrimSpace(r.DonorType))),
		TotalMismatchCount: r.TotalMismatchCount,
		LocusCriteria:      make(map[models.Locus]*models.LocusMatchCriteria, len(r.Loci)),
	}
	for _, code := range r.Registries {
		code = strings.TrimSpace(code)
		if code == "" {
			return models.MatchCriteria{}, errors.New("registry codes must not be empty")
		}
		criteria.Registries = append(criteria.Registries, models.Registry(code))
	}
	for locus, lr := range r.Loci {
		if lr == nil {
			return models.MatchCriteria{}, fmt.Errorf("locus %s has no criteria", locus)
		}
		criteria.LocusCriteria[locus] = &models.LocusMatchCriteria{
			PositionOne:   toPGroups(lr.PositionOne),
			PositionTwo:   toPGroups(lr.PositionTwo),
			MismatchCount: lr.MismatchCount,
		}
	}
	return criteria, nil
}

func toPGroups(names []string) []models.PGroup {
	groups := platformstrings.DedupeAndTrim(platformstrings.Convert[models.PGroup](names))
	if groups == nil {
		return []models.PGroup{}
	}
	return groups
}

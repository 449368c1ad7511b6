// Package postgres is a LocusMatchSource over the donor P-group tables.
package postgres

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/jackc/pgx/v5"

	"donormatch/internal/matching/models"
	"donormatch/internal/matching/ports"
	"donormatch/pkg/platform/batch"
)

const sourceName = "postgres"

// Querier is the subset of pgxpool.Pool the source uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Source implements ports.LocusMatchSource. Each donor P-group row is one
// donor position; the queries report which patient positions it satisfies.
type Source struct {
	db        Querier
	batchSize int
}

type Option func(*Source)

// WithBatchSize caps how many donor ids a restricted query carries.
func WithBatchSize(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func New(db Querier, opts ...Option) *Source {
	s := &Source{db: db, batchSize: ports.DefaultBatchSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const matchQuery = `
	SELECT g.donor_id, g.type_position, g.p_group = ANY($2), g.p_group = ANY($3)
	FROM donor_p_groups g
	JOIN donors d ON d.donor_id = g.donor_id
	WHERE g.locus = $1
		AND (g.p_group = ANY($2) OR g.p_group = ANY($3))
		AND ($4 = '' OR d.donor_type = $4)`

const matchForDonorsQuery = `
	SELECT g.donor_id, g.type_position, g.p_group = ANY($2), g.p_group = ANY($3)
	FROM donor_p_groups g
	WHERE g.locus = $1
		AND g.donor_id = ANY($4)
		AND (g.p_group = ANY($2) OR g.p_group = ANY($3))`

const untypedQuery = `
	SELECT d.donor_id
	FROM donors d
	WHERE ($2 = '' OR d.donor_type = $2)
		AND NOT EXISTS (
			SELECT 1 FROM donor_p_groups g WHERE g.donor_id = d.donor_id AND g.locus = $1
		)`

const untypedForDonorsQuery = `
	SELECT d.donor_id
	FROM donors d
	WHERE d.donor_id = ANY($2)
		AND NOT EXISTS (
			SELECT 1 FROM donor_p_groups g WHERE g.donor_id = d.donor_id AND g.locus = $1
		)`

// MatchesAtLocus implements ports.LocusMatchSource.
func (s *Source) MatchesAtLocus(
	ctx context.Context,
	locus models.Locus,
	criteria models.LocusMatchCriteria,
	hints models.FilterHints,
) ([]models.MatchEdge, error) {
	edges, err := s.queryEdges(ctx, locus, matchQuery,
		locus.String(), pgroups(criteria.PositionOne), pgroups(criteria.PositionTwo), string(hints.DonorType))
	if err != nil {
		return nil, ports.WrapSourceError(sourceName, "matches_at_locus", err)
	}
	if locus.IsRequired() {
		return edges, nil
	}
	untyped, err := s.queryUntyped(ctx, locus, untypedQuery, locus.String(), string(hints.DonorType))
	if err != nil {
		return nil, ports.WrapSourceError(sourceName, "matches_at_locus", err)
	}
	return append(edges, untyped...), nil
}

// MatchesAtLocusForDonors implements ports.LocusMatchSource.
func (s *Source) MatchesAtLocusForDonors(
	ctx context.Context,
	locus models.Locus,
	criteria models.LocusMatchCriteria,
	donorIDs []models.DonorID,
) ([]models.MatchEdge, error) {
	one, two := pgroups(criteria.PositionOne), pgroups(criteria.PositionTwo)
	edges, err := batch.Collect(ctx, donorIDs, s.batchSize, func(ctx context.Context, ids []models.DonorID) ([]models.MatchEdge, error) {
		raw := rawIDs(ids)
		edges, err := s.queryEdges(ctx, locus, matchForDonorsQuery, locus.String(), one, two, raw)
		if err != nil {
			return nil, err
		}
		if locus.IsRequired() {
			return edges, nil
		}
		untyped, err := s.queryUntyped(ctx, locus, untypedForDonorsQuery, locus.String(), raw)
		if err != nil {
			return nil, err
		}
		return append(edges, untyped...), nil
	})
	if err != nil {
		return nil, ports.WrapSourceError(sourceName, "matches_at_locus_for_donors", err)
	}
	return edges, nil
}

// queryEdges folds donor position rows into one edge per donor and patient
// position.
func (s *Source) queryEdges(ctx context.Context, locus models.Locus, query string, args ...any) ([]models.MatchEdge, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query locus %s: %w", locus, err)
	}
	defer rows.Close()

	// satisfied[id][0] holds donor positions matching patient position one
	satisfied := make(map[models.DonorID]*[2]models.TypePositions)
	for rows.Next() {
		var (
			id         int64
			position   int16
			matchesOne bool
			matchesTwo bool
		)
		if err := rows.Scan(&id, &position, &matchesOne, &matchesTwo); err != nil {
			return nil, fmt.Errorf("scan locus %s: %w", locus, err)
		}
		donorPosition := models.TypePosition(position)
		if donorPosition != models.PositionOne && donorPosition != models.PositionTwo {
			return nil, ports.NewSourceError(ports.ErrorBadData, sourceName, "scan",
				fmt.Errorf("donor %d has type position %d at locus %s", id, position, locus))
		}
		acc, ok := satisfied[models.DonorID(id)]
		if !ok {
			acc = &[2]models.TypePositions{}
			satisfied[models.DonorID(id)] = acc
		}
		if matchesOne {
			acc[0] = acc[0].Add(donorPosition)
		}
		if matchesTwo {
			acc[1] = acc[1].Add(donorPosition)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locus %s: %w", locus, err)
	}

	var edges []models.MatchEdge
	for _, id := range slices.Sorted(maps.Keys(satisfied)) {
		acc := satisfied[id]
		for i, search := range []models.TypePosition{models.PositionOne, models.PositionTwo} {
			if acc[i].IsEmpty() {
				continue
			}
			edges = append(edges, models.MatchEdge{DonorID: id, Locus: locus, SearchPosition: search, MatchedPositions: acc[i]})
		}
	}
	return edges, nil
}

// queryUntyped reports donors with no typing at an optional locus as matching
// both patient positions through both donor positions.
func (s *Source) queryUntyped(ctx context.Context, locus models.Locus, query string, args ...any) ([]models.MatchEdge, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query untyped donors at %s: %w", locus, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("collect untyped donors at %s: %w", locus, err)
	}

	edges := make([]models.MatchEdge, 0, 2*len(ids))
	for _, raw := range ids {
		id := models.DonorID(raw)
		edges = append(edges,
			models.MatchEdge{DonorID: id, Locus: locus, SearchPosition: models.PositionOne, MatchedPositions: models.BothPositions},
			models.MatchEdge{DonorID: id, Locus: locus, SearchPosition: models.PositionTwo, MatchedPositions: models.BothPositions},
		)
	}
	return edges, nil
}

func pgroups(groups []models.PGroup) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = string(g)
	}
	return out
}

func rawIDs(ids []models.DonorID) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

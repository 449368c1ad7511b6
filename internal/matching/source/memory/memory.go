// Package memory is an in-process LocusMatchSource over donor typings held in
// memory. It is used by tests and local runs.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"donormatch/internal/matching/models"
	"donormatch/internal/matching/ports"
	"donormatch/pkg/platform/batch"
)

const sourceName = "memory"

// LocusTyping is a donor's P-groups at one locus, per donor position.
type LocusTyping = models.LocusTyping

// DonorTyping is a donor's typed data. A locus missing from Loci is untyped.
type DonorTyping struct {
	ID   models.DonorID
	Type models.DonorType
	Loci map[models.Locus]LocusTyping
}

type typedLocus struct {
	one models.PGroupSet
	two models.PGroupSet
}

type donor struct {
	id    models.DonorID
	kind  models.DonorType
	typed map[models.Locus]typedLocus
}

// Source implements ports.LocusMatchSource. It is safe for concurrent use.
type Source struct {
	mu        sync.RWMutex
	donors    map[models.DonorID]donor
	batchSize int
	batches   func(size int)
}

type Option func(*Source)

// WithBatchSize sets how many donor ids a restricted lookup handles at once.
func WithBatchSize(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithBatchHook is called with the size of every restricted batch.
func WithBatchHook(fn func(size int)) Option {
	return func(s *Source) {
		s.batches = fn
	}
}

// New creates an empty source.
func New(opts ...Option) *Source {
	s := &Source{
		donors:    make(map[models.DonorID]donor),
		batchSize: ports.DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add stores typings, replacing any donor with the same id.
func (s *Source) Add(typings ...DonorTyping) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range typings {
		d := donor{id: t.ID, kind: t.Type, typed: make(map[models.Locus]typedLocus, len(t.Loci))}
		for locus, lt := range t.Loci {
			d.typed[locus] = typedLocus{
				one: models.NewPGroupSet(lt.PositionOne...),
				two: models.NewPGroupSet(lt.PositionTwo...),
			}
		}
		s.donors[t.ID] = d
	}
}

// Len returns the number of stored donors.
func (s *Source) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.donors)
}

// MatchesAtLocus implements ports.LocusMatchSource.
func (s *Source) MatchesAtLocus(
	ctx context.Context,
	locus models.Locus,
	criteria models.LocusMatchCriteria,
	hints models.FilterHints,
) ([]models.MatchEdge, error) {
	if err := ctx.Err(); err != nil {
		return nil, ports.WrapSourceError(sourceName, "matches_at_locus", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var edges []models.MatchEdge
	for _, id := range slices.Sorted(maps.Keys(s.donors)) {
		d := s.donors[id]
		if hints.DonorType != "" && d.kind != hints.DonorType {
			continue
		}
		edges = append(edges, d.edges(locus, criteria)...)
	}
	return edges, nil
}

// MatchesAtLocusForDonors implements ports.LocusMatchSource. Unknown ids are
// ignored.
func (s *Source) MatchesAtLocusForDonors(
	ctx context.Context,
	locus models.Locus,
	criteria models.LocusMatchCriteria,
	donorIDs []models.DonorID,
) ([]models.MatchEdge, error) {
	edges, err := batch.Collect(ctx, donorIDs, s.batchSize, func(ctx context.Context, ids []models.DonorID) ([]models.MatchEdge, error) {
		if s.batches != nil {
			s.batches(len(ids))
		}
		s.mu.RLock()
		defer s.mu.RUnlock()

		var out []models.MatchEdge
		for _, id := range ids {
			if d, ok := s.donors[id]; ok {
				out = append(out, d.edges(locus, criteria)...)
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, ports.WrapSourceError(sourceName, "matches_at_locus_for_donors", err)
	}
	return edges, nil
}

// edges reports which donor positions satisfy each patient position. Donors
// untyped at an optional locus match both patient positions through both of
// their positions; untyped at a required locus they match nothing.
func (d donor) edges(locus models.Locus, criteria models.LocusMatchCriteria) []models.MatchEdge {
	typing, ok := d.typed[locus]
	if !ok {
		if locus.IsRequired() {
			return nil
		}
		return []models.MatchEdge{
			{DonorID: d.id, Locus: locus, SearchPosition: models.PositionOne, MatchedPositions: models.BothPositions},
			{DonorID: d.id, Locus: locus, SearchPosition: models.PositionTwo, MatchedPositions: models.BothPositions},
		}
	}

	var edges []models.MatchEdge
	for _, search := range []models.TypePosition{models.PositionOne, models.PositionTwo} {
		groups := criteria.PGroupsAt(search)
		matched := models.NoPositions
		if typing.one.Intersects(groups) {
			matched = matched.Add(models.PositionOne)
		}
		if typing.two.Intersects(groups) {
			matched = matched.Add(models.PositionTwo)
		}
		if !matched.IsEmpty() {
			edges = append(edges, models.MatchEdge{
				DonorID:          d.id,
				Locus:            locus,
				SearchPosition:   search,
				MatchedPositions: matched,
			})
		}
	}
	return edges
}

package store

import (
	"context"
	"sync"

	"donormatch/internal/matching/models"
)

// InMemoryStore holds donor records in memory.
type InMemoryStore struct {
	mu     sync.RWMutex
	donors map[models.DonorID]models.DonorRecord
}

func NewInMemoryStore(records ...models.DonorRecord) *InMemoryStore {
	s := &InMemoryStore{donors: make(map[models.DonorID]models.DonorRecord, len(records))}
	for _, r := range records {
		s.donors[r.ID] = r
	}
	return s
}

func (s *InMemoryStore) Save(_ context.Context, record models.DonorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.donors[record.ID] = record
	return nil
}

// ResolveDonors implements ports.DonorResolver. Ids without a record are omitted.
func (s *InMemoryStore) ResolveDonors(ctx context.Context, donorIDs []models.DonorID) (map[models.DonorID]models.DonorRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make(map[models.DonorID]models.DonorRecord, len(donorIDs))
	for _, id := range donorIDs {
		if r, ok := s.donors[id]; ok {
			found[id] = r
		}
	}
	return found, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/lib/pq"

	"donormatch/internal/matching/models"
	"donormatch/internal/matching/ports"
	"donormatch/pkg/platform/batch"
	"donormatch/pkg/platform/sentinel"
	"donormatch/pkg/platform/tx"
)

const foreignKeyViolation = "23503"

// PostgresStore reads donor records from PostgreSQL.
type PostgresStore struct {
	db        *sql.DB
	batchSize int
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithBatchSize caps how many ids a single lookup query carries.
func WithBatchSize(n int) PostgresOption {
	return func(s *PostgresStore) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// NewPostgres constructs a PostgreSQL-backed donor store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{
		db:        db,
		batchSize: ports.DefaultBatchSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Save upserts a donor record.
func (s *PostgresStore) Save(ctx context.Context, record models.DonorRecord) error {
	query := `
		INSERT INTO donors (donor_id, donor_type, registry_code, available_for_search)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (donor_id) DO UPDATE SET
			donor_type = EXCLUDED.donor_type,
			registry_code = EXCLUDED.registry_code,
			available_for_search = EXCLUDED.available_for_search
	`
	_, err := tx.Or(ctx, s.db).ExecContext(ctx, query, int64(record.ID), string(record.Type), string(record.Registry), record.AvailableForSearch)
	if err != nil {
		return fmt.Errorf("save donor: %w", err)
	}
	return nil
}

// SaveTyping replaces a donor's P-groups at one locus. An empty typing leaves
// the locus untyped. Returns sentinel.ErrNotFound if the donor does not exist.
func (s *PostgresStore) SaveTyping(ctx context.Context, id models.DonorID, locus models.Locus, typing models.LocusTyping) error {
	if !locus.IsValid() {
		return fmt.Errorf("%w: unknown locus %d", models.ErrInvalidCriteria, int(locus))
	}
	db := tx.Or(ctx, s.db)
	if _, err := db.ExecContext(ctx,
		`DELETE FROM donor_p_groups WHERE donor_id = $1 AND locus = $2`,
		int64(id), locus.String(),
	); err != nil {
		return fmt.Errorf("clear typing: %w", err)
	}
	for _, position := range []models.TypePosition{models.PositionOne, models.PositionTwo} {
		groups := typing.At(position)
		if len(groups) == 0 {
			continue
		}
		raw := make([]string, len(groups))
		for i, g := range groups {
			raw[i] = string(g)
		}
		_, err := db.ExecContext(ctx, `
			INSERT INTO donor_p_groups (donor_id, locus, type_position, p_group)
			SELECT $1, $2, $3, unnest($4::text[])
			ON CONFLICT DO NOTHING
		`, int64(id), locus.String(), int16(position), pq.Array(raw))
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
				return fmt.Errorf("donor %d: %w", id, sentinel.ErrNotFound)
			}
			return fmt.Errorf("save typing: %w", err)
		}
	}
	return nil
}

// Import writes a donor record and its typings atomically. Loci missing from
// typings are left untouched.
func (s *PostgresStore) Import(ctx context.Context, record models.DonorRecord, typings map[models.Locus]models.LocusTyping) error {
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		if err := s.Save(ctx, record); err != nil {
			return err
		}
		for _, locus := range slices.Sorted(maps.Keys(typings)) {
			if err := s.SaveTyping(ctx, record.ID, locus, typings[locus]); err != nil {
				return fmt.Errorf("locus %s: %w", locus, err)
			}
		}
		return nil
	})
}

// ResolveDonors implements ports.DonorResolver.
func (s *PostgresStore) ResolveDonors(ctx context.Context, donorIDs []models.DonorID) (map[models.DonorID]models.DonorRecord, error) {
	records, err := batch.Collect(ctx, donorIDs, s.batchSize, s.resolveBatch)
	if err != nil {
		return nil, ports.WrapSourceError("donor_store", "resolve_donors", err)
	}
	found := make(map[models.DonorID]models.DonorRecord, len(records))
	for _, r := range records {
		found[r.ID] = r
	}
	return found, nil
}

func (s *PostgresStore) resolveBatch(ctx context.Context, ids []models.DonorID) ([]models.DonorRecord, error) {
	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}

	rows, err := tx.Or(ctx, s.db).QueryContext(ctx, `
		SELECT donor_id, donor_type, registry_code, available_for_search
		FROM donors
		WHERE donor_id = ANY($1)
	`, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("query donors: %w", err)
	}
	defer rows.Close()

	records := make([]models.DonorRecord, 0, len(ids))
	for rows.Next() {
		var (
			id        int64
			donorType string
			registry  string
			available bool
		)
		if err := rows.Scan(&id, &donorType, &registry, &available); err != nil {
			return nil, fmt.Errorf("scan donor: %w", err)
		}
		records = append(records, models.DonorRecord{
			ID:                 models.DonorID(id),
			Type:               models.DonorType(donorType),
			Registry:           models.Registry(registry),
			AvailableForSearch: available,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donors: %w", err)
	}
	return records, nil
}

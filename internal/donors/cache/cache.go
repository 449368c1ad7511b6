// Package cache puts a local LRU tier and a shared Redis tier in front of a
// donor record resolver.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"donormatch/internal/matching/models"
	"donormatch/internal/matching/ports"
)

const defaultKeyPrefix = "donormatch:donor:"

// Stats counts lookups per tier.
type Stats struct {
	LocalHits int64
	RedisHits int64
	Misses    int64
}

// Resolver implements ports.DonorResolver. Lookups try the local tier, then
// Redis, then the underlying resolver. Cache failures degrade to the
// underlying resolver; ids without a record are never cached.
type Resolver struct {
	next      ports.DonorResolver
	local     *expirable.LRU[models.DonorID, models.DonorRecord]
	redis     redis.Cmdable
	redisTTL  time.Duration
	keyPrefix string
	logger    *slog.Logger

	localHits atomic.Int64
	redisHits atomic.Int64
	misses    atomic.Int64
}

type Option func(*Resolver)

// WithLocalCache enables the in-process tier. A non-positive size disables it.
func WithLocalCache(size int, ttl time.Duration) Option {
	return func(r *Resolver) {
		if size > 0 {
			r.local = expirable.NewLRU[models.DonorID, models.DonorRecord](size, nil, ttl)
		}
	}
}

// WithRedis enables the shared tier.
func WithRedis(client redis.Cmdable, ttl time.Duration) Option {
	return func(r *Resolver) {
		r.redis = client
		r.redisTTL = ttl
	}
}

func WithKeyPrefix(prefix string) Option {
	return func(r *Resolver) {
		if prefix != "" {
			r.keyPrefix = prefix
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New wraps next.
func New(next ports.DonorResolver, opts ...Option) (*Resolver, error) {
	if next == nil {
		return nil, errors.New("donor resolver is required")
	}
	r := &Resolver{next: next, keyPrefix: defaultKeyPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Stats returns lookup counters since construction.
func (r *Resolver) Stats() Stats {
	return Stats{
		LocalHits: r.localHits.Load(),
		RedisHits: r.redisHits.Load(),
		Misses:    r.misses.Load(),
	}
}

// ResolveDonors implements ports.DonorResolver.
func (r *Resolver) ResolveDonors(ctx context.Context, donorIDs []models.DonorID) (map[models.DonorID]models.DonorRecord, error) {
	found := make(map[models.DonorID]models.DonorRecord, len(donorIDs))

	missing := donorIDs
	if r.local != nil {
		missing = make([]models.DonorID, 0, len(donorIDs))
		for _, id := range donorIDs {
			if rec, ok := r.local.Get(id); ok {
				found[id] = rec
				continue
			}
			missing = append(missing, id)
		}
		r.localHits.Add(int64(len(donorIDs) - len(missing)))
	}

	if r.redis != nil && len(missing) > 0 {
		missing = r.fromRedis(ctx, missing, found)
	}
	if len(missing) == 0 {
		return found, nil
	}

	r.misses.Add(int64(len(missing)))
	records, err := r.next.ResolveDonors(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, rec := range records {
		found[id] = rec
		if r.local != nil {
			r.local.Add(id, rec)
		}
	}
	if r.redis != nil && len(records) > 0 {
		r.toRedis(ctx, records)
	}
	return found, nil
}

type cachedDonor struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Registry  string `json:"registry"`
	Available bool   `json:"available"`
}

func (r *Resolver) key(id models.DonorID) string {
	return r.keyPrefix + strconv.FormatInt(int64(id), 10)
}

// fromRedis fills found from Redis and returns the ids still missing.
func (r *Resolver) fromRedis(ctx context.Context, ids []models.DonorID, found map[models.DonorID]models.DonorRecord) []models.DonorID {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}
	values, err := r.redis.MGet(ctx, keys...).Result()
	if err != nil {
		r.warn(ctx, "donor cache read failed", err)
		return ids
	}

	missing := make([]models.DonorID, 0, len(ids))
	for i, id := range ids {
		raw, ok := values[i].(string)
		if !ok {
			missing = append(missing, id)
			continue
		}
		var cached cachedDonor
		if err := json.Unmarshal([]byte(raw), &cached); err != nil || models.DonorID(cached.ID) != id {
			missing = append(missing, id)
			continue
		}
		rec := models.DonorRecord{
			ID:                 id,
			Type:               models.DonorType(cached.Type),
			Registry:           models.Registry(cached.Registry),
			AvailableForSearch: cached.Available,
		}
		found[id] = rec
		if r.local != nil {
			r.local.Add(id, rec)
		}
	}
	r.redisHits.Add(int64(len(ids) - len(missing)))
	return missing
}

func (r *Resolver) toRedis(ctx context.Context, records map[models.DonorID]models.DonorRecord) {
	pipe := r.redis.Pipeline()
	for id, rec := range records {
		data, err := json.Marshal(cachedDonor{
			ID:        int64(rec.ID),
			Type:      string(rec.Type),
			Registry:  string(rec.Registry),
			Available: rec.AvailableForSearch,
		})
		if err != nil {
			r.warn(ctx, "donor cache encode failed", fmt.Errorf("donor %d: %w", id, err))
			continue
		}
		pipe.Set(ctx, r.key(id), data, r.redisTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.warn(ctx, "donor cache write failed", err)
	}
}

func (r *Resolver) warn(ctx context.Context, msg string, err error) {
	if r.logger != nil {
		r.logger.WarnContext(ctx, msg, "error", err)
	}
}

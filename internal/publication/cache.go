package publication

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// listCacheKey holds the JSON-encoded publication list.
const listCacheKey = "simplereader:publications:v1"

// CacheConfig holds configuration for the cached repository.
type CacheConfig struct {
	Client *redis.Client
	TTL    time.Duration
	Logger zerolog.Logger
}

// CachedRepository caches the publication list in Redis. Every write
// invalidates the cached list. Redis errors are logged and the underlying
// repository is used instead.
type CachedRepository struct {
	Repository
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedRepository wraps repo with a Redis-backed list cache.
func NewCachedRepository(repo Repository, cfg CacheConfig) *CachedRepository {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &CachedRepository{
		Repository: repo,
		client:     cfg.Client,
		ttl:        ttl,
		logger:     cfg.Logger,
	}
}

// List returns the cached list, filling the cache on a miss.
func (r *CachedRepository) List(ctx context.Context) ([]*Publication, error) {
	raw, err := r.client.Get(ctx, listCacheKey).Bytes()
	switch {
	case err == nil:
		var cached []*Publication
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return cached, nil
		}
		r.logger.Warn().Msg("discarding undecodable publication cache entry")
	case !errors.Is(err, redis.Nil):
		r.logger.Warn().Err(err).Msg("publication cache read failed")
	}

	items, err := r.Repository.List(ctx)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(items); err == nil {
		if err := r.client.Set(ctx, listCacheKey, raw, r.ttl).Err(); err != nil {
			r.logger.Warn().Err(err).Msg("publication cache write failed")
		}
	}

	return items, nil
}

// Create stores a publication and invalidates the cached list.
func (r *CachedRepository) Create(ctx context.Context, p *Publication) error {
	if err := r.Repository.Create(ctx, p); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

// Update updates a publication and invalidates the cached list.
func (r *CachedRepository) Update(ctx context.Context, p *Publication) error {
	if err := r.Repository.Update(ctx, p); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

// Delete deletes a publication and invalidates the cached list.
func (r *CachedRepository) Delete(ctx context.Context, id string) error {
	if err := r.Repository.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *CachedRepository) invalidate(ctx context.Context) {
	if err := r.client.Del(ctx, listCacheKey).Err(); err != nil {
		r.logger.Warn().Err(err).Msg("publication cache invalidation failed")
	}
}

// Ensure CachedRepository implements Repository interface.
var _ Repository = (*CachedRepository)(nil)

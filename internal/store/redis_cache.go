package store

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/linktrail/internal/tracking"
)

// RedisCacheRegistry wraps a Registry with a Redis read-through cache for
// Resolve, which sits on the visit capture path. Links are immutable, so
// cached entries never go stale; the TTL only bounds memory.
type RedisCacheRegistry struct {
	registry tracking.Registry
	client   *redis.Client
	prefix   string
	ttl      time.Duration
}

// NewRedisCacheRegistry creates a new Redis-cached registry decorator.
func NewRedisCacheRegistry(
	registry tracking.Registry, client *redis.Client, ttl time.Duration,
) *RedisCacheRegistry {
	return &RedisCacheRegistry{
		registry: registry,
		client:   client,
		prefix:   "link-cache:",
		ttl:      ttl,
	}
}

// Register stores the link in the underlying registry and writes it through to the cache.
func (r *RedisCacheRegistry) Register(ctx context.Context, link *tracking.TrackedLink) error {
	if err := r.registry.Register(ctx, link); err != nil {
		return err
	}

	r.cacheLink(ctx, link)

	return nil
}

// Resolve checks the cache first and falls back to the underlying registry.
// Misses for unknown tokens are not cached.
func (r *RedisCacheRegistry) Resolve(ctx context.Context, token tracking.Token) (*tracking.TrackedLink, error) {
	if link, err := r.getFromCache(ctx, token); err == nil {
		return link, nil
	}

	link, err := r.registry.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	r.cacheLink(ctx, link)

	return link, nil
}

// List always reads the underlying registry.
func (r *RedisCacheRegistry) List(ctx context.Context) ([]*tracking.TrackedLink, error) {
	return r.registry.List(ctx)
}

func (r *RedisCacheRegistry) getFromCache(ctx context.Context, token tracking.Token) (*tracking.TrackedLink, error) {
	result, err := r.client.HGetAll(ctx, r.prefix+string(token)).Result()
	if err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, tracking.ErrNotFound
	}

	var createdAt time.Time

	if ts, ok := result["created_at"]; ok {
		if nanos, err := strconv.ParseInt(ts, 10, 64); err == nil {
			createdAt = time.Unix(0, nanos).UTC()
		}
	}

	return &tracking.TrackedLink{
		Token:       tracking.Token(result["token"]),
		OriginalURL: result["original_url"],
		CreatedAt:   createdAt,
	}, nil
}

func (r *RedisCacheRegistry) cacheLink(ctx context.Context, link *tracking.TrackedLink) {
	pipe := r.client.Pipeline()
	key := r.prefix + string(link.Token)

	pipe.HSet(ctx, key, map[string]interface{}{
		"token":        string(link.Token),
		"original_url": link.OriginalURL,
		"created_at":   link.CreatedAt.UnixNano(),
	})

	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}

	_, _ = pipe.Exec(ctx)
}

// Shutdown is a no-op for RedisCacheRegistry (client managed externally).
func (r *RedisCacheRegistry) Shutdown() error {
	return nil
}

// Compile-time check.
var _ tracking.Registry = (*RedisCacheRegistry)(nil)

// Package redis provides a Redis read-through cache for creator profiles.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"feedo/internal/domain"
	"feedo/internal/storage"
)

const (
	keyPrefix  = "feedo:profile:"
	defaultTTL = 24 * time.Hour
)

// ProfileCache wraps an underlying ProfileStore with a Redis read-through
// cache. The underlying store stays the source of truth; cache errors fall
// through to it silently.
type ProfileCache struct {
	client *redis.Client
	next   storage.ProfileStore
	ttl    time.Duration
}

// NewProfileCache connects to Redis and wraps the given store.
func NewProfileCache(ctx context.Context, addr string, next storage.ProfileStore) (*ProfileCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &ProfileCache{client: client, next: next, ttl: defaultTTL}, nil
}

// Compile-time interface check.
var _ storage.ProfileStore = (*ProfileCache)(nil)

// GetByUsername checks Redis first, then the underlying store. A hit from
// the underlying store is written back to Redis.
func (c *ProfileCache) GetByUsername(ctx context.Context, username string) (*domain.CreatorProfile, error) {
	data, err := c.client.Get(ctx, keyPrefix+username).Bytes()
	if err == nil {
		var p domain.CreatorProfile
		if err := json.Unmarshal(data, &p); err == nil {
			return &p, nil
		}
		// Corrupt cache entry: fall through to the store
	} else if !errors.Is(err, redis.Nil) {
		// Redis unavailable: fall through to the store
	}

	p, err := c.next.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	c.writeBack(ctx, p)
	return p, nil
}

// Put stores in the underlying store first, then populates the cache.
func (c *ProfileCache) Put(ctx context.Context, p *domain.CreatorProfile) error {
	if err := c.next.Put(ctx, p); err != nil {
		return err
	}
	c.writeBack(ctx, p)
	return nil
}

// Close releases the Redis connection.
func (c *ProfileCache) Close() error {
	return c.client.Close()
}

func (c *ProfileCache) writeBack(ctx context.Context, p *domain.CreatorProfile) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	// Best effort: cache write failures are ignored
	c.client.Set(ctx, keyPrefix+p.Username, data, c.ttl)
}

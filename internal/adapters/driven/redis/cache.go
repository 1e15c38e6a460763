// Package redis provides the Redis-backed cache used for tool results.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/archivist-labs/ragcore/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Cache = (*Cache)(nil)

const cachePrefix = "ragcore:cache:"

// Cache implements driven.Cache using Redis.
// Expiry is handled by Redis TTL.
type Cache struct {
	client *redis.Client
}

// NewCache creates a new Redis-backed cache
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Get retrieves a cached value. Returns found=false on miss or expiry.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, cachePrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cache key: %w", err)
	}
	return value, true, nil
}

// Set stores a value with the given TTL
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("cache TTL must be positive, got %s", ttl)
	}

	if err := c.client.Set(ctx, cachePrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache key: %w", err)
	}
	return nil
}

// Delete removes a key
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, cachePrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache key: %w", err)
	}
	return nil
}

// Ping checks if the cache backend is healthy
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

package driven

import (
	"context"
	"time"
)

// Cache is a TTL key-value cache for tool results (Redis).
type Cache interface {
	// Get retrieves a cached value. Returns found=false on miss or expiry.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores a value with the given TTL
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes a key
	Delete(ctx context.Context, key string) error

	// Ping checks if the cache backend is healthy
	Ping(ctx context.Context) error
}

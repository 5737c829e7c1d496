// Package cache provides the cache layer used in front of session lookups.
package cache

import (
	"context"
	"time"
)

// CacheService is the narrow cache contract the store depends on.
// Values are opaque bytes; callers own serialization.
type CacheService interface {
	// Get retrieves a value from cache.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value in cache with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Invalidate invalidates cache entries. Supports a trailing * wildcard
	// (e.g. "session:pair:*").
	Invalidate(ctx context.Context, pattern string) error
}

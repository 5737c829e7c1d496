package cache

import (
	"context"
	"time"
)

// TieredCache layers the in-memory L1 cache over an optional shared L2
// (redis). Reads fall through L1 -> L2; writes and invalidations hit both.
// L2 misses or errors degrade to a cache miss, never to a failure.
type TieredCache struct {
	l1 CacheService
	l2 CacheService // nil when redis is not configured
}

// NewTieredCache creates a tiered cache. l2 may be nil.
func NewTieredCache(l1, l2 CacheService) *TieredCache {
	return &TieredCache{l1: l1, l2: l2}
}

// Get retrieves a value, promoting L2 hits into L1.
func (c *TieredCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if data, ok := c.l1.Get(ctx, key); ok {
		return data, true
	}
	if c.l2 == nil {
		return nil, false
	}
	data, ok := c.l2.Get(ctx, key)
	if !ok {
		return nil, false
	}
	_ = c.l1.Set(ctx, key, data, 0)
	return data, true
}

// Set stores a value in both tiers.
func (c *TieredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.l1.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	if c.l2 != nil {
		// L2 write failures are tolerated; the database remains authoritative.
		_ = c.l2.Set(ctx, key, value, ttl)
	}
	return nil
}

// Invalidate invalidates entries in both tiers.
func (c *TieredCache) Invalidate(ctx context.Context, pattern string) error {
	if err := c.l1.Invalidate(ctx, pattern); err != nil {
		return err
	}
	if c.l2 != nil {
		_ = c.l2.Invalidate(ctx, pattern)
	}
	return nil
}

var _ CacheService = (*TieredCache)(nil)

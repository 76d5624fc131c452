package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// LayeredCache fronts a shared Redis layer with an in-process memory layer.
// Reads hit memory first and backfill it from Redis on a miss. Writes and
// invalidations go to both layers; locks are Redis-only so they hold across
// instances.
type LayeredCache struct {
	local  *MemoryCache
	remote *RedisCache
}

// NewLayeredCache combines a memory and a Redis cache.
func NewLayeredCache(local *MemoryCache, remote *RedisCache) *LayeredCache {
	return &LayeredCache{local: local, remote: remote}
}

func (c *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := c.remote.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	return c.local.Set(ctx, key, value, expiration)
}

func (c *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := c.local.Get(ctx, key, dest); err == nil {
		return nil
	} else if !errors.Is(err, ErrCacheMiss) {
		return err
	}

	var raw json.RawMessage
	if err := c.remote.Get(ctx, key, &raw); err != nil {
		return err
	}
	// Backfill the local layer with a short TTL so it never outlives Redis.
	_ = c.local.Set(ctx, key, raw, TTLShort)
	return json.Unmarshal(raw, dest)
}

func (c *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	if err := c.local.Delete(ctx, keys...); err != nil {
		return err
	}
	return c.remote.Delete(ctx, keys...)
}

func (c *LayeredCache) DeleteByPattern(ctx context.Context, pattern string) error {
	if err := c.local.DeleteByPattern(ctx, pattern); err != nil {
		return err
	}
	return c.remote.DeleteByPattern(ctx, pattern)
}

func (c *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if ok, err := c.local.Exists(ctx, keys...); err == nil && ok {
		return true, nil
	}
	return c.remote.Exists(ctx, keys...)
}

func (c *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.remote.TryLock(ctx, key, ttl)
}

func (c *LayeredCache) Unlock(ctx context.Context, key string) error {
	return c.remote.Unlock(ctx, key)
}

// Close releases both layers.
func (c *LayeredCache) Close() error {
	err := c.local.Close()
	if rerr := c.remote.Close(); rerr != nil {
		err = rerr
	}
	return err
}

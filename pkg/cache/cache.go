package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// TTL tiers. Per-symbol indicator reads are cheap to recompute and refresh
// often; universe-wide summaries are heavier and tolerate more staleness.
// Overridden once at startup from config, before any cache traffic.
var (
	TTLShort  = 5 * time.Minute
	TTLMedium = 15 * time.Minute
)

// ConfigureTTLs overrides the TTL tiers. Non-positive values keep the
// current tier.
func ConfigureTTLs(short, medium time.Duration) {
	if short > 0 {
		TTLShort = short
	}
	if medium > 0 {
		TTLMedium = medium
	}
}

// Service defines cache operations. Implementations must be safe for
// concurrent use. Values are always recomputable from the store, so losing
// the cache is safe and a failing cache is treated as a miss by callers.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	// DeleteByPattern removes every key matching a glob pattern, e.g. all
	// cached results for one symbol after new bars arrive.
	DeleteByPattern(ctx context.Context, pattern string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	// TryLock acquires a best-effort advisory lock (single-flight guard for
	// batch runs across instances).
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	type payload struct {
		Symbol string
		Value  float64
	}
	in := payload{Symbol: "AAPL", Value: 187.5}
	if err := mc.Set(ctx, IndicatorKey("AAPL", "rsi", "abc"), in, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	var out payload
	if err := mc.Get(ctx, IndicatorKey("AAPL", "rsi", "abc"), &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if out != in {
		t.Fatalf("got %+v want %+v", out, in)
	}
}

func TestMemoryCacheMissAfterTTL(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", "v", 20*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	var s string
	if err := mc.Get(ctx, "k", &s); err != nil {
		t.Fatalf("get before expiry: %v", err)
	}

	time.Sleep(40 * time.Millisecond)
	if err := mc.Get(ctx, "k", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after TTL, got %v", err)
	}
}

func TestMemoryCacheMissUnknownKey(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	var s string
	if err := mc.Get(context.Background(), "never-set", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	keys := []string{
		IndicatorKey("AAPL", "rsi", "a"),
		IndicatorKey("AAPL", "macd", "b"),
		LatestKey("AAPL"),
		IndicatorKey("MSFT", "rsi", "a"),
	}
	for _, k := range keys {
		if err := mc.Set(ctx, k, 1, time.Minute); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}

	if err := mc.DeleteByPattern(ctx, SymbolPattern("AAPL")); err != nil {
		t.Fatalf("delete by pattern: %v", err)
	}

	var v int
	for _, k := range keys[:3] {
		if err := mc.Get(ctx, k, &v); !errors.Is(err, ErrCacheMiss) {
			t.Fatalf("key %s survived invalidation: %v", k, err)
		}
	}
	if err := mc.Get(ctx, keys[3], &v); err != nil {
		t.Fatalf("unrelated symbol invalidated: %v", err)
	}
}

func TestMemoryCacheLRUEviction(t *testing.T) {
	mc := NewMemoryCache(WithMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	mc.Set(ctx, "a", 1, time.Minute)
	time.Sleep(time.Millisecond)
	mc.Set(ctx, "b", 2, time.Minute)
	time.Sleep(time.Millisecond)

	// Touch "a" so "b" is the least recently used.
	var v int
	if err := mc.Get(ctx, "a", &v); err != nil {
		t.Fatalf("get a: %v", err)
	}
	time.Sleep(time.Millisecond)
	mc.Set(ctx, "c", 3, time.Minute)

	if err := mc.Get(ctx, "b", &v); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected b evicted, got %v", err)
	}
	if err := mc.Get(ctx, "a", &v); err != nil {
		t.Fatalf("a should survive eviction: %v", err)
	}
}

func TestMemoryCacheTryLock(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	key := RunLockKey("incremental")
	ok, err := mc.TryLock(ctx, key, time.Minute)
	if err != nil || !ok {
		t.Fatalf("first lock: ok=%v err=%v", ok, err)
	}
	ok, err = mc.TryLock(ctx, key, time.Minute)
	if err != nil || ok {
		t.Fatalf("second lock should fail: ok=%v err=%v", ok, err)
	}
	if err := mc.Unlock(ctx, key); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	ok, err = mc.TryLock(ctx, key, time.Minute)
	if err != nil || !ok {
		t.Fatalf("relock after unlock: ok=%v err=%v", ok, err)
	}
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint(14, 20, 2.0)
	b := Fingerprint(14, 20, 2.0)
	if a != b {
		t.Fatalf("fingerprint not deterministic: %s vs %s", a, b)
	}
	if a == Fingerprint(14, 20, 2.5) {
		t.Fatalf("distinct params collide")
	}
}

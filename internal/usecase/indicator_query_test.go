package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"ChartPulse/internal/domain/models"
	"ChartPulse/pkg/cache"
)

type stubFeatureStore struct {
	rows  []models.FeatureRow
	calls int
	err   error
}

func (s *stubFeatureStore) UpsertFeatures(context.Context, []models.FeatureRow) error { return nil }

func (s *stubFeatureStore) GetFeatures(_ context.Context, symbol string, limit int) ([]models.FeatureRow, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := s.rows
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type stubBarStore struct {
	bars  map[string][]models.Bar
	calls int
}

func (s *stubBarStore) GetBars(_ context.Context, symbols []string, lookback int) (models.BarSet, error) {
	s.calls++
	out := models.BarSet{}
	for _, sym := range symbols {
		if bars, ok := s.bars[sym]; ok {
			if lookback < len(bars) {
				bars = bars[len(bars)-lookback:]
			}
			out[sym] = bars
		}
	}
	return out, nil
}

func (s *stubBarStore) GetLatest(context.Context, []string) (map[string]models.Bar, error) {
	return map[string]models.Bar{}, nil
}

func featureFixture(symbol string, n int) []models.FeatureRow {
	start := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	rows := make([]models.FeatureRow, n)
	for i := range rows {
		rows[i] = models.FeatureRow{
			Symbol:    symbol,
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Close:     100 + float64(i),
			SMA20:     models.Undefined(), // warm-up values survive the cache
			RSI14:     55.5,
			Version:   models.FeatureVersion,
		}
	}
	return rows
}

func TestGetIndicatorsCachesResult(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	store := &stubFeatureStore{rows: featureFixture("AAPL", 30)}
	q := NewIndicatorQuery(store, &stubBarStore{}, mc, newFakeMetrics(), testLogger(t))
	ctx := context.Background()

	first, err := q.GetIndicators(ctx, GetIndicatorsParams{Symbol: "AAPL", Limit: 30})
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	second, err := q.GetIndicators(ctx, GetIndicatorsParams{Symbol: "AAPL", Limit: 30})
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("store hit %d times, want 1 (second read should be cached)", store.calls)
	}
	if len(first) != 30 || len(second) != 30 {
		t.Fatalf("row counts: %d / %d", len(first), len(second))
	}
	// NaN warm-up values round-trip through the cache as undefined.
	if second[0].SMA20.Defined() {
		t.Fatalf("warm-up NaN became a defined value after caching")
	}
	if second[0].RSI14 != 55.5 {
		t.Fatalf("cached RSI14 = %v, want 55.5", second[0].RSI14)
	}
}

func TestGetIndicatorsInvalidationForcesRecompute(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	store := &stubFeatureStore{rows: featureFixture("MSFT", 10)}
	q := NewIndicatorQuery(store, &stubBarStore{}, mc, newFakeMetrics(), testLogger(t))
	ctx := context.Background()

	if _, err := q.GetIndicators(ctx, GetIndicatorsParams{Symbol: "MSFT"}); err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := mc.DeleteByPattern(ctx, cache.SymbolPattern("MSFT")); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := q.GetIndicators(ctx, GetIndicatorsParams{Symbol: "MSFT"}); err != nil {
		t.Fatalf("read after invalidation: %v", err)
	}
	if store.calls != 2 {
		t.Fatalf("store hit %d times, want 2 after invalidation", store.calls)
	}
}

func TestGetIndicatorsDistinctLimitsDistinctKeys(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	store := &stubFeatureStore{rows: featureFixture("NVDA", 50)}
	q := NewIndicatorQuery(store, &stubBarStore{}, mc, newFakeMetrics(), testLogger(t))
	ctx := context.Background()

	a, _ := q.GetIndicators(ctx, GetIndicatorsParams{Symbol: "NVDA", Limit: 10})
	b, _ := q.GetIndicators(ctx, GetIndicatorsParams{Symbol: "NVDA", Limit: 20})
	if len(a) != 10 || len(b) != 20 {
		t.Fatalf("limits collided in cache: %d / %d", len(a), len(b))
	}
}

func TestGetIndicatorsStoreErrorPropagates(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	store := &stubFeatureStore{err: errors.New("clickhouse unavailable")}
	q := NewIndicatorQuery(store, &stubBarStore{}, mc, newFakeMetrics(), testLogger(t))

	if _, err := q.GetIndicators(context.Background(), GetIndicatorsParams{Symbol: "AMD"}); err == nil {
		t.Fatalf("expected store error to propagate on cache miss")
	}
}

func TestGetBars(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	bars := &stubBarStore{bars: map[string][]models.Bar{"AAPL": testBars("AAPL", 40)}}
	q := NewIndicatorQuery(&stubFeatureStore{}, bars, mc, newFakeMetrics(), testLogger(t))

	got, err := q.GetBars(context.Background(), GetBarsParams{Symbol: "AAPL", Lookback: 20})
	if err != nil {
		t.Fatalf("get bars: %v", err)
	}
	if len(got) != 20 {
		t.Fatalf("got %d bars, want 20", len(got))
	}
	if _, err := q.GetBars(context.Background(), GetBarsParams{}); err == nil {
		t.Fatalf("empty symbol must error")
	}
}

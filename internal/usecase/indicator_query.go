package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ChartPulse/internal/domain/models"
	domrepo "ChartPulse/internal/domain/repository"
	"ChartPulse/pkg/cache"
	applogger "ChartPulse/pkg/logger"
)

// IndicatorQuery serves read traffic for computed features and raw bars.
// The cache sits in front of ClickHouse as a soft dependency: any cache
// error is treated as a miss and the store answers.
type IndicatorQuery struct {
	features domrepo.FeatureStore
	bars     domrepo.BarStore
	cache    cache.Service
	metrics  domrepo.Metrics
	l        *applogger.Logger
}

func NewIndicatorQuery(
	features domrepo.FeatureStore,
	bars domrepo.BarStore,
	cacheSvc cache.Service,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *IndicatorQuery {
	return &IndicatorQuery{
		features: features,
		bars:     bars,
		cache:    cacheSvc,
		metrics:  metrics,
		l:        l,
	}
}

type GetIndicatorsParams struct {
	Symbol string
	Limit  int
}

// GetIndicators returns the newest feature rows for one symbol, ascending
// in time, cached for the short TTL tier.
func (q *IndicatorQuery) GetIndicators(ctx context.Context, p GetIndicatorsParams) ([]models.FeatureRow, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if p.Limit <= 0 {
		p.Limit = 100
	}
	if p.Limit > 5000 {
		p.Limit = 5000
	}

	key := cache.IndicatorKey(p.Symbol, "rows", cache.Fingerprint(p.Limit, models.FeatureVersion))
	var rows []models.FeatureRow
	if err := q.cache.Get(ctx, key, &rows); err == nil {
		q.metrics.RecordCacheHit("indicators")
		return rows, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		q.l.Warn("indicator cache read failed, falling through",
			applogger.String("symbol", p.Symbol), applogger.Error(err))
	}
	q.metrics.RecordCacheMiss("indicators")

	start := time.Now()
	rows, err := q.features.GetFeatures(ctx, p.Symbol, p.Limit)
	if err != nil {
		q.metrics.RecordError("query_features")
		return nil, fmt.Errorf("get indicators: %w", err)
	}
	q.metrics.RecordLatency("query_features", time.Since(start).Seconds())

	if err := q.cache.Set(ctx, key, rows, cache.TTLShort); err != nil {
		q.l.Warn("indicator cache write failed",
			applogger.String("symbol", p.Symbol), applogger.Error(err))
	}
	return rows, nil
}

// GetLatest returns the most recent feature row for one symbol.
func (q *IndicatorQuery) GetLatest(ctx context.Context, symbol string) (*models.FeatureRow, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}

	key := cache.LatestKey(symbol)
	var row models.FeatureRow
	if err := q.cache.Get(ctx, key, &row); err == nil {
		q.metrics.RecordCacheHit("latest")
		return &row, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		q.l.Warn("latest cache read failed, falling through",
			applogger.String("symbol", symbol), applogger.Error(err))
	}
	q.metrics.RecordCacheMiss("latest")

	rows, err := q.features.GetFeatures(ctx, symbol, 1)
	if err != nil {
		q.metrics.RecordError("query_latest")
		return nil, fmt.Errorf("get latest: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	row = rows[len(rows)-1]

	if err := q.cache.Set(ctx, key, row, cache.TTLShort); err != nil {
		q.l.Warn("latest cache write failed",
			applogger.String("symbol", symbol), applogger.Error(err))
	}
	return &row, nil
}

type GetBarsParams struct {
	Symbol   string
	Lookback int
}

// GetBars returns raw OHLCV bars, uncached: raw reads are cheap single-key
// scans and bar data changes with every feed tick.
func (q *IndicatorQuery) GetBars(ctx context.Context, p GetBarsParams) ([]models.Bar, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if p.Lookback <= 0 {
		p.Lookback = 300
	}
	if p.Lookback > 10000 {
		p.Lookback = 10000
	}

	set, err := q.bars.GetBars(ctx, []string{p.Symbol}, p.Lookback)
	if err != nil {
		q.metrics.RecordError("query_bars")
		return nil, fmt.Errorf("get bars: %w", err)
	}
	return set[p.Symbol], nil
}

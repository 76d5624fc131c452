package repository

import (
	"context"

	"ChartPulse/internal/domain/models"
)

// BarStore reads OHLCV bars for many symbols in bounded round trips:
// one query for the whole symbol set, never one query per symbol.
type BarStore interface {
	// GetBars returns up to lookback bars per symbol, grouped by symbol and
	// ascending in time. A symbol with no data yields an empty series.
	GetBars(ctx context.Context, symbols []string, lookback int) (models.BarSet, error)

	// GetLatest returns the most recent bar per symbol in a single query.
	GetLatest(ctx context.Context, symbols []string) (map[string]models.Bar, error)
}

// BarWriter ingests bars from the upstream feed.
type BarWriter interface {
	StoreBars(ctx context.Context, bars []models.Bar) error
}

// FeatureStore persists and reads computed feature rows. Upserts are keyed
// (symbol, timestamp, source): re-running the same range overwrites
// deterministically.
type FeatureStore interface {
	UpsertFeatures(ctx context.Context, rows []models.FeatureRow) error
	GetFeatures(ctx context.Context, symbol string, limit int) ([]models.FeatureRow, error)
}

// LeasedStore hands out single-connection store leases. Each worker acquires
// its own lease on entry and releases it on every exit path, so no pooled
// connection is ever held across symbol boundaries.
type LeasedStore interface {
	Acquire(ctx context.Context) (StoreLease, error)
}

// StoreLease is a BarStore+FeatureStore view bound to one pooled connection.
type StoreLease interface {
	BarStore
	FeatureStore
	Release() error
}

// Publisher emits pipeline events for downstream consumers (dashboard
// refresh, alerting). Publish failures must never fail a run.
type Publisher interface {
	PublishSymbolResult(ctx context.Context, runID string, res models.SymbolResult) error
	PublishRunSummary(ctx context.Context, sum *models.RunSummary) error
	Close() error
}

// Metrics records pipeline observability signals.
type Metrics interface {
	RecordRun(mode string, state models.RunState, seconds float64)
	RecordSymbolOutcome(status models.SymbolStatus)
	RecordRowsWritten(symbol string, n int)
	RecordCacheHit(tier string)
	RecordCacheMiss(tier string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

// BarStream is the upstream collaborator supplying OHLCV bars.
type BarStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan models.Bar, <-chan error)
	Close() error
}

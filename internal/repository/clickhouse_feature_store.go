package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ChartPulse/internal/domain/models"
	domrepo "ChartPulse/internal/domain/repository"
	pkgch "ChartPulse/pkg/clickhouse"
	applogger "ChartPulse/pkg/logger"
)

const featuresTable = "chartpulse.features"

var featureColumns = []string{
	"symbol", "ts", "source",
	"open", "high", "low", "close", "volume",
	"sma_10", "sma_20", "sma_50", "ema_12", "ema_26",
	"bb_upper", "bb_middle", "bb_lower", "bb_squeeze",
	"rsi_7", "rsi_14", "rsi_21",
	"macd", "macd_signal", "macd_hist",
	"stoch_k", "stoch_d",
	"atr_14", "realized_vol_20", "parkinson_vol_20",
	"vwap_20", "volume_sma_20", "volume_osc",
	"support_level", "resistance_level",
	"close_lag_1", "return_1",
	"version",
}

// CHFeatureStore persists feature rows in ClickHouse. Undefined indicator
// values travel as Float64 NaN, which ClickHouse stores natively.
type CHFeatureStore struct {
	q querier
	l *applogger.Logger
}

func NewCHFeatureStore(ch *pkgch.Client, l *applogger.Logger) *CHFeatureStore {
	return &CHFeatureStore{q: ch.DB(), l: l}
}

// UpsertFeatures writes all rows in one INSERT. One statement means the
// whole symbol batch lands or none of it does; the ReplacingMergeTree key
// makes repeats overwrite instead of duplicate.
func (s *CHFeatureStore) UpsertFeatures(ctx context.Context, rows []models.FeatureRow) error {
	if len(rows) == 0 {
		return nil
	}
	start := time.Now()

	tuple := "(" + placeholders(len(featureColumns)) + ")"
	values := make([]string, len(rows))
	args := make([]interface{}, 0, len(rows)*len(featureColumns))
	for i, r := range rows {
		values[i] = tuple
		args = append(args,
			r.Symbol, r.Timestamp, r.Source,
			r.Open, r.High, r.Low, r.Close, r.Volume,
			r.SMA10, r.SMA20, r.SMA50, r.EMA12, r.EMA26,
			r.BBUpper, r.BBMiddle, r.BBLower, r.BBSqueeze,
			r.RSI7, r.RSI14, r.RSI21,
			r.MACD, r.MACDSignal, r.MACDHist,
			r.StochK, r.StochD,
			r.ATR14, r.RealizedVol20, r.ParkinsonVol20,
			r.VWAP20, r.VolumeSMA20, r.VolumeOsc,
			r.SupportLevel, r.ResistanceLevel,
			r.CloseLag1, r.Return1,
			r.Version,
		)
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		featuresTable, strings.Join(featureColumns, ", "), strings.Join(values, ","))
	if _, err := s.q.ExecContext(ctx, q, args...); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse upsert_features error",
				applogger.String("symbol", rows[0].Symbol),
				applogger.Int("rows", len(rows)),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("upsert features: %w", err)
	}

	if s.l != nil {
		s.l.Debug("clickhouse upsert_features ok",
			applogger.String("symbol", rows[0].Symbol),
			applogger.Int("rows", len(rows)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

// GetFeatures returns the newest limit rows for one symbol, ascending in
// time. FINAL collapses ReplacingMergeTree versions so re-runs never show
// duplicate timestamps.
func (s *CHFeatureStore) GetFeatures(ctx context.Context, symbol string, limit int) ([]models.FeatureRow, error) {
	if limit <= 0 {
		limit = 100
	}

	q := fmt.Sprintf(`
        SELECT %s
        FROM %s FINAL
        WHERE symbol = ?
        ORDER BY ts DESC
        LIMIT ?`, strings.Join(featureColumns, ", "), featuresTable)

	rows, err := s.q.QueryContext(ctx, q, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("get features: %w", err)
	}
	defer rows.Close()

	out := make([]models.FeatureRow, 0, limit)
	for rows.Next() {
		var r models.FeatureRow
		if err := rows.Scan(
			&r.Symbol, &r.Timestamp, &r.Source,
			&r.Open, &r.High, &r.Low, &r.Close, &r.Volume,
			&r.SMA10, &r.SMA20, &r.SMA50, &r.EMA12, &r.EMA26,
			&r.BBUpper, &r.BBMiddle, &r.BBLower, &r.BBSqueeze,
			&r.RSI7, &r.RSI14, &r.RSI21,
			&r.MACD, &r.MACDSignal, &r.MACDHist,
			&r.StochK, &r.StochD,
			&r.ATR14, &r.RealizedVol20, &r.ParkinsonVol20,
			&r.VWAP20, &r.VolumeSMA20, &r.VolumeOsc,
			&r.SupportLevel, &r.ResistanceLevel,
			&r.CloseLag1, &r.Return1,
			&r.Version,
		); err != nil {
			return nil, fmt.Errorf("scan feature row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// CHStoreLeaser implements LeasedStore over the ClickHouse pool.
type CHStoreLeaser struct {
	client *pkgch.Client
	l      *applogger.Logger
}

func NewCHStoreLeaser(client *pkgch.Client, l *applogger.Logger) *CHStoreLeaser {
	return &CHStoreLeaser{client: client, l: l}
}

// Acquire leases one pooled connection and binds bar and feature stores to
// it. The caller must Release on every exit path.
func (s *CHStoreLeaser) Acquire(ctx context.Context) (domrepo.StoreLease, error) {
	conn, err := s.client.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire store lease: %w", err)
	}
	return &chStoreLease{
		CHBarStore:     CHBarStore{q: conn, l: s.l},
		CHFeatureStore: CHFeatureStore{q: conn, l: s.l},
		conn:           conn,
	}, nil
}

type chStoreLease struct {
	CHBarStore
	CHFeatureStore
	conn *sql.Conn
}

func (l *chStoreLease) Release() error {
	return l.conn.Close()
}

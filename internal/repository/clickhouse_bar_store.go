package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ChartPulse/internal/domain/models"
	pkgch "ChartPulse/pkg/clickhouse"
	applogger "ChartPulse/pkg/logger"
)

const barsTable = "chartpulse.bars"

// querier is satisfied by *sql.DB and *sql.Conn, so the same store code
// runs against the shared pool and against a worker's leased connection.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CHBarStore reads and writes OHLCV bars in ClickHouse.
type CHBarStore struct {
	q querier
	l *applogger.Logger
}

func NewCHBarStore(ch *pkgch.Client, l *applogger.Logger) *CHBarStore {
	return &CHBarStore{q: ch.DB(), l: l}
}

// GetBars fetches the last lookback bars per symbol in one round-trip and
// returns them oldest-first. Symbols with no bars are simply absent from
// the result.
func (s *CHBarStore) GetBars(ctx context.Context, symbols []string, lookback int) (models.BarSet, error) {
	if len(symbols) == 0 {
		return models.BarSet{}, nil
	}
	if lookback <= 0 {
		return nil, fmt.Errorf("lookback must be positive, got %d", lookback)
	}
	start := time.Now()

	q := fmt.Sprintf(`
        SELECT symbol, ts, open, high, low, close, volume, source
        FROM %s
        WHERE symbol IN (%s)
        ORDER BY ts DESC
        LIMIT ? BY symbol`, barsTable, placeholders(len(symbols)))

	args := make([]interface{}, 0, len(symbols)+1)
	for _, sym := range symbols {
		args = append(args, sym)
	}
	args = append(args, lookback)

	rows, err := s.q.QueryContext(ctx, q, args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get_bars query error",
				applogger.Int("symbols", len(symbols)),
				applogger.Int("lookback", lookback),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get bars: %w", err)
	}
	defer rows.Close()

	out := make(models.BarSet, len(symbols))
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Symbol, &b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.Source); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out[b.Symbol] = append(out[b.Symbol], b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	// LIMIT BY returned newest-first; indicators need oldest-first.
	for _, bars := range out {
		for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
			bars[i], bars[j] = bars[j], bars[i]
		}
	}

	if s.l != nil {
		s.l.Debug("clickhouse get_bars ok",
			applogger.Int("symbols", len(symbols)),
			applogger.Int("lookback", lookback),
			applogger.Int("symbols_found", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

// GetLatest fetches the newest bar per symbol.
func (s *CHBarStore) GetLatest(ctx context.Context, symbols []string) (map[string]models.Bar, error) {
	if len(symbols) == 0 {
		return map[string]models.Bar{}, nil
	}

	q := fmt.Sprintf(`
        SELECT symbol, ts, open, high, low, close, volume, source
        FROM %s
        WHERE symbol IN (%s)
        ORDER BY ts DESC
        LIMIT 1 BY symbol`, barsTable, placeholders(len(symbols)))

	args := make([]interface{}, len(symbols))
	for i, sym := range symbols {
		args[i] = sym
	}

	rows, err := s.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get latest bars: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.Bar, len(symbols))
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Symbol, &b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.Source); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out[b.Symbol] = b
	}
	return out, rows.Err()
}

// StoreBars inserts bars with multi-row VALUES, chunked to keep statements
// bounded. Bars with an empty symbol or zero timestamp are skipped.
func (s *CHBarStore) StoreBars(ctx context.Context, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	const chunkSize = 2000
	for start := 0; start < len(bars); start += chunkSize {
		end := start + chunkSize
		if end > len(bars) {
			end = len(bars)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, b := range bars[start:end] {
			if b.Symbol == "" || b.Timestamp.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, b.Symbol, b.Timestamp, b.Open, b.High, b.Low, b.Close, b.Volume, b.Source)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, ts, open, high, low, close, volume, source) VALUES %s",
			barsTable, strings.Join(values, ","))
		if _, err := s.q.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store bars: %w", err)
		}
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

package repository

import (
	"context"

	pkgch "ChartPulse/pkg/clickhouse"
)

// Schema DDL. The bars table keeps raw OHLCV as ingested; the features table
// is a ReplacingMergeTree keyed (symbol, ts, source) versioned by ingestion
// time, so re-running a symbol deterministically overwrites its rows instead
// of duplicating them.
var schemaStatements = []string{
	`CREATE DATABASE IF NOT EXISTS chartpulse`,

	`CREATE TABLE IF NOT EXISTS chartpulse.bars (
        symbol   LowCardinality(String),
        ts       DateTime64(3, 'UTC'),
        open     Float64,
        high     Float64,
        low      Float64,
        close    Float64,
        volume   Float64,
        source   LowCardinality(String)
    ) ENGINE = MergeTree
    PARTITION BY toYYYYMM(ts)
    ORDER BY (symbol, ts, source)`,

	`CREATE TABLE IF NOT EXISTS chartpulse.features (
        symbol            LowCardinality(String),
        ts                DateTime64(3, 'UTC'),
        source            LowCardinality(String),
        open              Float64,
        high              Float64,
        low               Float64,
        close             Float64,
        volume            Float64,
        sma_10            Float64,
        sma_20            Float64,
        sma_50            Float64,
        ema_12            Float64,
        ema_26            Float64,
        bb_upper          Float64,
        bb_middle         Float64,
        bb_lower          Float64,
        bb_squeeze        Float64,
        rsi_7             Float64,
        rsi_14            Float64,
        rsi_21            Float64,
        macd              Float64,
        macd_signal       Float64,
        macd_hist         Float64,
        stoch_k           Float64,
        stoch_d           Float64,
        atr_14            Float64,
        realized_vol_20   Float64,
        parkinson_vol_20  Float64,
        vwap_20           Float64,
        volume_sma_20     Float64,
        volume_osc        Float64,
        support_level     Float64,
        resistance_level  Float64,
        close_lag_1       Float64,
        return_1          Float64,
        version           LowCardinality(String),
        ingested_at       DateTime64(3, 'UTC') DEFAULT now64(3)
    ) ENGINE = ReplacingMergeTree(ingested_at)
    PARTITION BY toYYYYMM(ts)
    ORDER BY (symbol, ts, source)`,
}

// InitSchema creates the database and tables if missing. Safe to run on
// every startup.
func InitSchema(ctx context.Context, client *pkgch.Client) error {
	return client.InitSchema(ctx, schemaStatements)
}

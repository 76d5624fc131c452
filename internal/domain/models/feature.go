package models

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"time"
)

// FeatureVersion tags every computed row; bump when indicator semantics or
// the column set change so downstream readers can detect stale features.
const FeatureVersion = "v1"

// Float is a float64 whose NaN means "not yet defined" (warm-up window).
// It serializes as JSON null, so cached and API-served rows round-trip
// cleanly, and scans straight from ClickHouse Float64 columns.
type Float float64

// Defined reports whether a feature value is past its warm-up window.
func (f Float) Defined() bool { return !math.IsNaN(float64(f)) }

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(v, 'g', -1, 64)), nil
}

func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Float(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

func (f *Float) Scan(src interface{}) error {
	switch v := src.(type) {
	case float64:
		*f = Float(v)
	case float32:
		*f = Float(v)
	case nil:
		*f = Float(math.NaN())
	default:
		return fmt.Errorf("cannot scan %T into Float", src)
	}
	return nil
}

func (f Float) Value() (driver.Value, error) {
	return float64(f), nil
}

// Undefined is the warm-up placeholder value.
func Undefined() Float { return Float(math.NaN()) }

// Defined reports whether a raw series value is past its warm-up window.
func Defined(v float64) bool { return !math.IsNaN(v) }

// FeatureRow is the persisted output for one (symbol, timestamp, source):
// the raw OHLCV fields plus every computed indicator column. Values inside
// an indicator's warm-up window are NaN ("not yet defined"), never an error.
// Every value is derivable from bars at or before Timestamp only.
type FeatureRow struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"ts"`
	Source    string    `json:"source"`

	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`

	// Moving averages
	SMA10 Float `json:"sma_10"`
	SMA20 Float `json:"sma_20"`
	SMA50 Float `json:"sma_50"`
	EMA12 Float `json:"ema_12"`
	EMA26 Float `json:"ema_26"`

	// Bollinger bands (20, 2.0)
	BBUpper   Float `json:"bb_upper"`
	BBMiddle  Float `json:"bb_middle"`
	BBLower   Float `json:"bb_lower"`
	BBSqueeze Float `json:"bb_squeeze"`

	// Momentum
	RSI7  Float `json:"rsi_7"`
	RSI14 Float `json:"rsi_14"`
	RSI21 Float `json:"rsi_21"`

	// Trend
	MACD       Float `json:"macd"`
	MACDSignal Float `json:"macd_signal"`
	MACDHist   Float `json:"macd_hist"`

	// Stochastic (14, 3)
	StochK Float `json:"stoch_k"`
	StochD Float `json:"stoch_d"`

	// Volatility
	ATR14          Float `json:"atr_14"`
	RealizedVol20  Float `json:"realized_vol_20"`
	ParkinsonVol20 Float `json:"parkinson_vol_20"`

	// Volume
	VWAP20      Float `json:"vwap_20"`
	VolumeSMA20 Float `json:"volume_sma_20"`
	VolumeOsc   Float `json:"volume_osc"`

	// Support/resistance levels (NaN unless the bar is a local extremum)
	SupportLevel    Float `json:"support_level"`
	ResistanceLevel Float `json:"resistance_level"`

	// Lagged
	CloseLag1 Float `json:"close_lag_1"`
	Return1   Float `json:"return_1"`

	Version string `json:"version"`
}

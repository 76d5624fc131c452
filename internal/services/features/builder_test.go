package features

import (
	"math"
	"testing"
	"time"

	"ChartPulse/internal/domain/models"
)

func hourlyBars(symbol string, closes []float64) []models.Bar {
	start := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{
			Symbol:    symbol,
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      c - 0.2,
			High:      c + 0.5,
			Low:       c - 0.5,
			Close:     c,
			Volume:    1000 + float64(i),
			Source:    "test",
		}
	}
	return bars
}

func rampCloses(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 0.5*float64(i)
	}
	return out
}

func TestBuildRowsScenario(t *testing.T) {
	// 60 hourly bars with known prices: SMA20 at bar 59 must equal the
	// arithmetic mean of bars 40-59, and RSI14 on a monotonically rising
	// series must be 100.
	closes := rampCloses(60)
	rows := BuildRows(hourlyBars("AAPL", closes), Params{})
	if len(rows) != 60 {
		t.Fatalf("expected 60 rows, got %d", len(rows))
	}

	sum := 0.0
	for i := 40; i <= 59; i++ {
		sum += closes[i]
	}
	want := sum / 20
	if math.Abs(float64(rows[59].SMA20)-want) > 1e-9 {
		t.Fatalf("SMA20 at bar 59: got %v want %v", rows[59].SMA20, want)
	}
	if rows[59].RSI14 != 100 {
		t.Fatalf("RSI14 on rising series: got %v want 100", rows[59].RSI14)
	}
	if rows[59].Version != models.FeatureVersion {
		t.Fatalf("missing feature version tag")
	}
}

func TestBuildRowsWarmupNulls(t *testing.T) {
	rows := BuildRows(hourlyBars("MSFT", rampCloses(60)), Params{})
	if rows[18].SMA20.Defined() {
		t.Fatalf("SMA20 defined inside warm-up window")
	}
	if !rows[19].SMA20.Defined() {
		t.Fatalf("SMA20 undefined at first full window")
	}
	if rows[13].RSI14.Defined() {
		t.Fatalf("RSI14 defined before one full window of changes")
	}
}

func TestBuildRowsShortHistory(t *testing.T) {
	// Far less history than the longest window: all indicators NaN, no panic.
	rows := BuildRows(hourlyBars("TSLA", rampCloses(5)), Params{})
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}
	for i, r := range rows {
		if r.SMA50.Defined() || r.MACD.Defined() || r.RSI14.Defined() {
			t.Fatalf("row %d: expected NaN indicators on short history", i)
		}
	}
}

func TestBuildRowsDeterministic(t *testing.T) {
	bars := hourlyBars("NVDA", rampCloses(120))
	a := BuildRows(bars, Params{})
	b := BuildRows(bars, Params{})
	for i := range a {
		if !rowsEqual(a[i], b[i]) {
			t.Fatalf("row %d differs between identical runs", i)
		}
	}
}

func TestBuildTailMatchesFullRecompute(t *testing.T) {
	bars := hourlyBars("AMD", rampCloses(200))
	full := BuildRows(bars, Params{})
	tail := BuildTail(bars, Params{}, 10)
	if len(tail) != 10 {
		t.Fatalf("expected 10 tail rows, got %d", len(tail))
	}
	for i, r := range tail {
		if !rowsEqual(r, full[190+i]) {
			t.Fatalf("tail row %d differs from full recompute", i)
		}
	}
}

func rowsEqual(a, b models.FeatureRow) bool {
	eq := func(x, y models.Float) bool {
		if !x.Defined() && !y.Defined() {
			return true
		}
		return x == y
	}
	return a.Symbol == b.Symbol && a.Timestamp.Equal(b.Timestamp) &&
		eq(a.SMA20, b.SMA20) && eq(a.EMA12, b.EMA12) && eq(a.RSI14, b.RSI14) &&
		eq(a.MACD, b.MACD) && eq(a.MACDSignal, b.MACDSignal) &&
		eq(a.StochK, b.StochK) && eq(a.ATR14, b.ATR14) &&
		eq(a.VWAP20, b.VWAP20) && eq(a.BBUpper, b.BBUpper) &&
		eq(a.SupportLevel, b.SupportLevel) && eq(a.Return1, b.Return1)
}

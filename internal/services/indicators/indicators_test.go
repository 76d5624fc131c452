package indicators

import (
	"math"
	"math/rand"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// syntheticSeries builds a deterministic pseudo-random walk.
func syntheticSeries(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	price := 100.0
	for i := range out {
		price += rng.Float64()*2 - 1
		if price < 1 {
			price = 1
		}
		out[i] = price
	}
	return out
}

func TestSMAWarmup(t *testing.T) {
	values := syntheticSeries(60, 1)
	out := SMA(values, 20)
	for i := 0; i < 19; i++ {
		if !math.IsNaN(out[i]) {
			t.Fatalf("position %d: expected NaN in warm-up, got %v", i, out[i])
		}
	}
	for i := 19; i < 60; i++ {
		if math.IsNaN(out[i]) {
			t.Fatalf("position %d: expected defined value", i)
		}
	}
}

func TestSMAMatchesArithmeticMean(t *testing.T) {
	values := syntheticSeries(60, 2)
	out := SMA(values, 20)

	sum := 0.0
	for i := 40; i <= 59; i++ {
		sum += values[i]
	}
	want := sum / 20
	if !almostEqual(out[59], want) {
		t.Fatalf("SMA20 at bar 59: got %v want %v", out[59], want)
	}
}

func TestSMAShortInputAllNaN(t *testing.T) {
	out := SMA([]float64{1, 2, 3}, 10)
	if len(out) != 3 {
		t.Fatalf("expected output length 3, got %d", len(out))
	}
	for i, v := range out {
		if !math.IsNaN(v) {
			t.Fatalf("position %d: expected NaN, got %v", i, v)
		}
	}
}

func TestEMASeedsFromSMA(t *testing.T) {
	values := syntheticSeries(40, 3)
	ema := EMA(values, 10)
	sma := SMA(values, 10)
	if !almostEqual(ema[9], sma[9]) {
		t.Fatalf("EMA seed: got %v want first SMA %v", ema[9], sma[9])
	}
	if !math.IsNaN(ema[8]) {
		t.Fatalf("expected NaN before seed position")
	}
}

func TestEMASkipsLeadingNaN(t *testing.T) {
	values := append(nanSeries(5), syntheticSeries(20, 4)...)
	out := EMA(values, 5)
	if !math.IsNaN(out[8]) {
		t.Fatalf("expected NaN at position 8")
	}
	if math.IsNaN(out[9]) {
		t.Fatalf("expected seed at offset+window-1")
	}
}

func TestRSIBounds(t *testing.T) {
	values := syntheticSeries(500, 5)
	for _, window := range []int{7, 14, 21} {
		out := RSI(values, window)
		for i, v := range out {
			if math.IsNaN(v) {
				continue
			}
			if v < 0 || v > 100 {
				t.Fatalf("RSI%d at %d out of bounds: %v", window, i, v)
			}
		}
	}
}

func TestRSIMonotonicIncreaseIs100(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = 100 + float64(i)
	}
	out := RSI(values, 14)
	// No losses anywhere: every defined value must be exactly 100.
	for i := 14; i < 60; i++ {
		if out[i] != 100 {
			t.Fatalf("RSI at %d: got %v want 100", i, out[i])
		}
	}
}

func TestRSIFlatSeriesIs100(t *testing.T) {
	values := make([]float64, 40)
	for i := range values {
		values[i] = 50
	}
	out := RSI(values, 14)
	for i := 14; i < 40; i++ {
		if out[i] != 100 {
			t.Fatalf("flat series RSI at %d: got %v want 100", i, out[i])
		}
	}
}

func TestMACDHistogramIdentity(t *testing.T) {
	values := syntheticSeries(200, 6)
	res := MACD(values, 12, 26, 9)
	for i := range values {
		if math.IsNaN(res.Histogram[i]) {
			continue
		}
		if !almostEqual(res.Histogram[i], res.Line[i]-res.Signal[i]) {
			t.Fatalf("histogram at %d: got %v want %v", i, res.Histogram[i], res.Line[i]-res.Signal[i])
		}
	}
	// Signal needs slow-1 warm-up plus signal window.
	if !math.IsNaN(res.Signal[26+9-3]) && math.IsNaN(res.Signal[25]) {
		t.Fatalf("unexpected signal warm-up shape")
	}
}

func TestStochasticBoundsAndFlatRange(t *testing.T) {
	closes := syntheticSeries(300, 7)
	highs := make([]float64, len(closes))
	lows := make([]float64, len(closes))
	for i, c := range closes {
		highs[i] = c + 0.5
		lows[i] = c - 0.5
	}
	res := Stochastic(highs, lows, closes, 14, 3)
	for i := range closes {
		for _, v := range []float64{res.K[i], res.D[i]} {
			if math.IsNaN(v) {
				continue
			}
			if v < 0 || v > 100 {
				t.Fatalf("stochastic at %d out of bounds: %v", i, v)
			}
		}
	}

	// Flat range: every bar identical, HH == LL.
	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 10
	}
	res = Stochastic(flat, flat, flat, 14, 3)
	for i := 13; i < 30; i++ {
		if res.K[i] != 50 {
			t.Fatalf("flat range %%K at %d: got %v want 50", i, res.K[i])
		}
	}
}

func TestBollingerFlatSeries(t *testing.T) {
	values := make([]float64, 40)
	for i := range values {
		values[i] = 25
	}
	b := Bollinger(values, 20, 2)
	if !almostEqual(b.Upper[39], 25) || !almostEqual(b.Lower[39], 25) {
		t.Fatalf("flat series bands: got upper=%v lower=%v", b.Upper[39], b.Lower[39])
	}
	if !almostEqual(b.Squeeze[39], 0) {
		t.Fatalf("flat series squeeze: got %v want 0", b.Squeeze[39])
	}
}

func TestATRFlatRange(t *testing.T) {
	n := 40
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		highs[i], lows[i], closes[i] = 12, 10, 11
	}
	out := ATR(highs, lows, closes, 14)
	// Constant 2-point range: ATR settles at exactly 2.
	if !almostEqual(out[n-1], 2) {
		t.Fatalf("ATR on constant range: got %v want 2", out[n-1])
	}
}

func TestVWAPZeroVolume(t *testing.T) {
	n := 30
	highs := syntheticSeries(n, 8)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i := range lows {
		lows[i] = highs[i] - 1
	}
	out := VWAP(highs, lows, highs, volumes, 10)
	for i, v := range out {
		if !math.IsNaN(v) {
			t.Fatalf("zero-volume VWAP at %d: expected NaN, got %v", i, v)
		}
	}
}

func TestSupportResistanceTrailingExtrema(t *testing.T) {
	// V-shape: lows decrease to position 10 then increase.
	n := 25
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i := 0; i < n; i++ {
		d := math.Abs(float64(i - 10))
		lows[i] = 10 + d
		highs[i] = 20 + d
	}
	res := SupportResistance(highs, lows, 5)
	if math.IsNaN(res.Support[10]) {
		t.Fatalf("expected support candidate at the trough")
	}
	if !math.IsNaN(res.Support[12]) {
		t.Fatalf("position 12 is not a window minimum, got %v", res.Support[12])
	}
	if math.IsNaN(res.Resistance[n-1]) {
		t.Fatalf("expected resistance candidate at rising edge")
	}
}

func TestDeterminism(t *testing.T) {
	values := syntheticSeries(300, 9)
	a := RSI(values, 14)
	b := RSI(values, 14)
	for i := range a {
		if math.IsNaN(a[i]) && math.IsNaN(b[i]) {
			continue
		}
		if a[i] != b[i] {
			t.Fatalf("non-deterministic RSI at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestNoLookAhead(t *testing.T) {
	values := syntheticSeries(200, 10)
	truncated := values[:150]

	full := MACD(values, 12, 26, 9)
	part := MACD(truncated, 12, 26, 9)
	for i := 0; i < 150; i++ {
		fa, pa := full.Line[i], part.Line[i]
		if math.IsNaN(fa) && math.IsNaN(pa) {
			continue
		}
		if fa != pa {
			t.Fatalf("look-ahead detected in MACD at %d: %v vs %v", i, fa, pa)
		}
	}

	fullRSI := RSI(values, 14)
	partRSI := RSI(truncated, 14)
	for i := 0; i < 150; i++ {
		if math.IsNaN(fullRSI[i]) && math.IsNaN(partRSI[i]) {
			continue
		}
		if fullRSI[i] != partRSI[i] {
			t.Fatalf("look-ahead detected in RSI at %d", i)
		}
	}
}

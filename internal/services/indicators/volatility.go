package indicators

import "math"

// TrueRange computes TR_i = max(h-l, |h-prevClose|, |l-prevClose|).
// The first bar has no previous close, so TR_0 = h-l.
func TrueRange(highs, lows, closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		hl := highs[i] - lows[i]
		if i == 0 {
			out[i] = hl
			continue
		}
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

// ATR computes the average true range with Wilder smoothing, seeded from
// the first simple average of true ranges.
func ATR(highs, lows, closes []float64, window int) []float64 {
	out := nanSeries(len(closes))
	if window <= 0 || len(closes) < window {
		return out
	}
	tr := TrueRange(highs, lows, closes)

	seed := 0.0
	for i := 0; i < window; i++ {
		seed += tr[i]
	}
	w := float64(window)
	atr := seed / w
	out[window-1] = atr
	for i := window; i < len(closes); i++ {
		atr = (atr*(w-1) + tr[i]) / w
		out[i] = atr
	}
	return out
}

// RealizedVol computes the rolling sample standard deviation of log
// returns. Per-bar sigma; callers annualize if they need to.
func RealizedVol(closes []float64, window int) []float64 {
	return RollingStdDev(LogReturns(closes), window)
}

// ParkinsonVol estimates intraday variance from the high/low range:
// sigma = sqrt( sum(ln(h/l)^2) / (4*ln2*window) ) over the window.
func ParkinsonVol(highs, lows []float64, window int) []float64 {
	out := nanSeries(len(highs))
	if window <= 0 || len(highs) < window {
		return out
	}
	sq := make([]float64, len(highs))
	for i := range highs {
		if lows[i] <= 0 || highs[i] < lows[i] {
			sq[i] = 0
			continue
		}
		r := math.Log(highs[i] / lows[i])
		sq[i] = r * r
	}
	norm := 4 * math.Ln2 * float64(window)
	sum := 0.0
	for i := range sq {
		sum += sq[i]
		if i >= window {
			sum -= sq[i-window]
		}
		if i >= window-1 {
			out[i] = math.Sqrt(sum / norm)
		}
	}
	return out
}

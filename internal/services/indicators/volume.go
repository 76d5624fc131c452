package indicators

import "math"

// VWAP computes a rolling-window volume-weighted average price over the
// typical price (h+l+c)/3. The rolling variant (not session-anchored) keeps
// the function independent of venue calendars. A window with zero total
// volume yields NaN.
func VWAP(highs, lows, closes, volumes []float64, window int) []float64 {
	out := nanSeries(len(closes))
	if window <= 0 || len(closes) < window {
		return out
	}
	pv := make([]float64, len(closes))
	for i := range closes {
		typical := (highs[i] + lows[i] + closes[i]) / 3
		pv[i] = typical * volumes[i]
	}
	sumPV, sumV := 0.0, 0.0
	for i := range closes {
		sumPV += pv[i]
		sumV += volumes[i]
		if i >= window {
			sumPV -= pv[i-window]
			sumV -= volumes[i-window]
		}
		if i >= window-1 && sumV > 0 {
			out[i] = sumPV / sumV
		}
	}
	return out
}

// VolumeOscillator computes 100*(fastEMA-slowEMA)/slowEMA over volume.
// Zero slow average yields NaN.
func VolumeOscillator(volumes []float64, fast, slow int) []float64 {
	fastEMA := EMA(volumes, fast)
	slowEMA := EMA(volumes, slow)
	out := nanSeries(len(volumes))
	for i := range volumes {
		if math.IsNaN(fastEMA[i]) || math.IsNaN(slowEMA[i]) || slowEMA[i] == 0 {
			continue
		}
		out[i] = 100 * (fastEMA[i] - slowEMA[i]) / slowEMA[i]
	}
	return out
}

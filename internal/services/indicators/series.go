package indicators

import "math"

// All series functions share the same contract: input is one symbol's
// time-ordered series (oldest first), output has the same length, and the
// warm-up region is NaN. Short input is never an error - the whole output
// is simply NaN. Identical input always yields identical output.

// nanSeries returns a slice of n NaNs.
func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// leadingNaN returns the index of the first defined value, or len(values).
// Series derived from other series (MACD, %K) carry a NaN warm-up prefix;
// downstream averages skip it instead of poisoning the whole output.
func leadingNaN(values []float64) int {
	for i, v := range values {
		if !math.IsNaN(v) {
			return i
		}
	}
	return len(values)
}

// SMA computes the simple moving average. Position i is defined once a full
// window of defined values ends at i.
func SMA(values []float64, window int) []float64 {
	out := nanSeries(len(values))
	if window <= 0 {
		return out
	}
	off := leadingNaN(values)
	if len(values)-off < window {
		return out
	}
	sum := 0.0
	for i := off; i < len(values); i++ {
		sum += values[i]
		if i-off >= window {
			sum -= values[i-window]
		}
		if i-off >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// EMA computes the exponential moving average with smoothing 2/(window+1),
// seeded from the first simple average of the same window.
func EMA(values []float64, window int) []float64 {
	out := nanSeries(len(values))
	if window <= 0 {
		return out
	}
	off := leadingNaN(values)
	if len(values)-off < window {
		return out
	}
	seed := 0.0
	for i := off; i < off+window; i++ {
		seed += values[i]
	}
	alpha := 2.0 / float64(window+1)
	ema := seed / float64(window)
	out[off+window-1] = ema
	for i := off + window; i < len(values); i++ {
		ema = (values[i]-ema)*alpha + ema
		out[i] = ema
	}
	return out
}

// RollingStdDev computes the rolling sample standard deviation.
func RollingStdDev(values []float64, window int) []float64 {
	out := nanSeries(len(values))
	if window <= 1 {
		return out
	}
	off := leadingNaN(values)
	if len(values)-off < window {
		return out
	}
	for i := off + window - 1; i < len(values); i++ {
		sum, sum2 := 0.0, 0.0
		for j := i - window + 1; j <= i; j++ {
			sum += values[j]
			sum2 += values[j] * values[j]
		}
		n := float64(window)
		mean := sum / n
		variance := (sum2 - n*mean*mean) / (n - 1)
		if variance < 0 {
			variance = 0
		}
		out[i] = math.Sqrt(variance)
	}
	return out
}

// Lag shifts the series right by n, padding the head with NaN.
func Lag(values []float64, n int) []float64 {
	out := nanSeries(len(values))
	for i := n; i < len(values); i++ {
		out[i] = values[i-n]
	}
	return out
}

// LogReturns computes r_i = ln(v_i / v_{i-1}) aligned to the input: the
// first position is NaN. Non-positive prices yield NaN, not a panic.
func LogReturns(values []float64) []float64 {
	out := nanSeries(len(values))
	for i := 1; i < len(values); i++ {
		if values[i-1] <= 0 || values[i] <= 0 {
			continue
		}
		out[i] = math.Log(values[i] / values[i-1])
	}
	return out
}

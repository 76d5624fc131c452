package indicators

import "math"

// RSI computes the relative strength index with Wilder smoothing:
// 100 - 100/(1+RS), RS = avg gain / avg loss over the window. A window
// with zero average loss outputs 100 (not an error). The first defined
// position is index window (one change per bar is needed).
func RSI(values []float64, window int) []float64 {
	out := nanSeries(len(values))
	if window <= 0 || len(values) <= window {
		return out
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= window; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(window)
	avgLoss /= float64(window)
	out[window] = rsiValue(avgGain, avgLoss)

	w := float64(window)
	for i := window + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*(w-1) + gain) / w
		avgLoss = (avgLoss*(w-1) + loss) / w
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACDResult holds the MACD line, signal line, and histogram series.
type MACDResult struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes fast EMA minus slow EMA, a signal EMA of that difference,
// and the histogram (line minus signal).
func MACD(values []float64, fast, slow, signal int) MACDResult {
	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)

	line := nanSeries(len(values))
	for i := range values {
		if math.IsNaN(fastEMA[i]) || math.IsNaN(slowEMA[i]) {
			continue
		}
		line[i] = fastEMA[i] - slowEMA[i]
	}

	sig := EMA(line, signal)
	hist := nanSeries(len(values))
	for i := range values {
		if math.IsNaN(line[i]) || math.IsNaN(sig[i]) {
			continue
		}
		hist[i] = line[i] - sig[i]
	}
	return MACDResult{Line: line, Signal: sig, Histogram: hist}
}

// StochResult holds %K and %D series.
type StochResult struct {
	K []float64
	D []float64
}

// Stochastic computes %K = 100*(close-LL)/(HH-LL) over kWindow with
// %D = SMA(%K, dWindow). A flat range (HH == LL) yields the neutral 50.
func Stochastic(highs, lows, closes []float64, kWindow, dWindow int) StochResult {
	k := nanSeries(len(closes))
	if kWindow <= 0 || len(closes) < kWindow {
		return StochResult{K: k, D: nanSeries(len(closes))}
	}
	for i := kWindow - 1; i < len(closes); i++ {
		hh, ll := highs[i], lows[i]
		for j := i - kWindow + 1; j <= i; j++ {
			if highs[j] > hh {
				hh = highs[j]
			}
			if lows[j] < ll {
				ll = lows[j]
			}
		}
		if hh == ll {
			k[i] = 50
			continue
		}
		k[i] = 100 * (closes[i] - ll) / (hh - ll)
	}
	return StochResult{K: k, D: SMA(k, dWindow)}
}

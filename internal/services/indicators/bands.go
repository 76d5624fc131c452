package indicators

import "math"

// Bands holds Bollinger-style band series.
type Bands struct {
	Upper   []float64
	Middle  []float64
	Lower   []float64
	Squeeze []float64 // (upper-lower)/middle
}

// Bollinger computes a centerline SMA +/- k standard deviations over the
// same window. Squeeze is NaN where the middle band is zero.
func Bollinger(values []float64, window int, k float64) Bands {
	mid := SMA(values, window)
	sd := RollingStdDev(values, window)

	upper := nanSeries(len(values))
	lower := nanSeries(len(values))
	squeeze := nanSeries(len(values))
	for i := range values {
		if math.IsNaN(mid[i]) || math.IsNaN(sd[i]) {
			continue
		}
		upper[i] = mid[i] + k*sd[i]
		lower[i] = mid[i] - k*sd[i]
		if mid[i] != 0 {
			squeeze[i] = (upper[i] - lower[i]) / mid[i]
		}
	}
	return Bands{Upper: upper, Middle: mid, Lower: lower, Squeeze: squeeze}
}

package indicators

// Levels holds support/resistance candidate series: the level price where
// the bar is a trailing-window extremum, NaN elsewhere.
type Levels struct {
	Support    []float64
	Resistance []float64
}

// SupportResistance marks bar i as a support candidate when its low is the
// minimum of the window trailing on it, and as a resistance candidate when
// its high is the window maximum. Ties count as extrema.
func SupportResistance(highs, lows []float64, window int) Levels {
	support := nanSeries(len(lows))
	resistance := nanSeries(len(highs))
	if window <= 0 {
		return Levels{Support: support, Resistance: resistance}
	}
	for i := window - 1; i < len(lows); i++ {
		isSupport, isResistance := true, true
		for j := i - window + 1; j < i; j++ {
			if lows[j] < lows[i] {
				isSupport = false
			}
			if highs[j] > highs[i] {
				isResistance = false
			}
			if !isSupport && !isResistance {
				break
			}
		}
		if isSupport {
			support[i] = lows[i]
		}
		if isResistance {
			resistance[i] = highs[i]
		}
	}
	return Levels{Support: support, Resistance: resistance}
}

package models

import "time"

// Bar is a single OHLCV observation for a symbol. Immutable once written;
// uniquely identified by (Symbol, Timestamp, Source). Gaps between bars
// (weekends, halts, missing ticks) are expected and carry no meaning.
type Bar struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"ts"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Source    string    `json:"source"`
}

// BarSet groups time-ordered bars per symbol. A symbol with no data maps to
// an empty (or absent) slice, never an error.
type BarSet map[string][]Bar

// Series extracts one price field across bars, oldest first.
func Series(bars []Bar, f func(Bar) float64) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = f(b)
	}
	return out
}

// Closes returns the close series for bars.
func Closes(bars []Bar) []float64 { return Series(bars, func(b Bar) float64 { return b.Close }) }

// Volumes returns the volume series for bars.
func Volumes(bars []Bar) []float64 { return Series(bars, func(b Bar) float64 { return b.Volume }) }

package feed

import (
	"testing"
	"time"
)

func tickAt(sym string, ts time.Time, price, vol float64) feedTick {
	return feedTick{S: sym, T: ts.UnixMilli(), P: price, V: vol}
}

func TestAggregatorFoldsTicksIntoMinuteBar(t *testing.T) {
	agg := newBarAggregator()
	base := time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)

	if _, ok := agg.add(tickAt("AAPL", base.Add(5*time.Second), 100, 10)); ok {
		t.Fatalf("first tick must not close a bar")
	}
	if _, ok := agg.add(tickAt("AAPL", base.Add(20*time.Second), 103, 5)); ok {
		t.Fatalf("same-minute tick must not close a bar")
	}
	if _, ok := agg.add(tickAt("AAPL", base.Add(40*time.Second), 99, 2)); ok {
		t.Fatalf("same-minute tick must not close a bar")
	}

	closed, ok := agg.add(tickAt("AAPL", base.Add(65*time.Second), 101, 7))
	if !ok {
		t.Fatalf("next-minute tick should close the previous bar")
	}
	if closed.Open != 100 || closed.High != 103 || closed.Low != 99 || closed.Close != 99 {
		t.Fatalf("OHLC = %v/%v/%v/%v, want 100/103/99/99", closed.Open, closed.High, closed.Low, closed.Close)
	}
	if closed.Volume != 17 {
		t.Fatalf("volume = %v, want 17", closed.Volume)
	}
	if !closed.Timestamp.Equal(base) {
		t.Fatalf("bar timestamp = %v, want %v", closed.Timestamp, base)
	}
}

func TestAggregatorKeepsSymbolsSeparate(t *testing.T) {
	agg := newBarAggregator()
	base := time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)

	agg.add(tickAt("AAPL", base, 100, 1))
	agg.add(tickAt("MSFT", base, 400, 1))

	closed, ok := agg.add(tickAt("AAPL", base.Add(time.Minute), 101, 1))
	if !ok || closed.Symbol != "AAPL" {
		t.Fatalf("expected AAPL bar to close, got ok=%v symbol=%s", ok, closed.Symbol)
	}
	if _, ok := agg.add(tickAt("MSFT", base.Add(30*time.Second), 401, 1)); ok {
		t.Fatalf("MSFT bar closed by an AAPL minute boundary")
	}
}

func TestAggregatorIgnoresMalformedTicks(t *testing.T) {
	agg := newBarAggregator()
	if _, ok := agg.add(feedTick{}); ok {
		t.Fatalf("empty tick must be ignored")
	}
	if _, ok := agg.add(feedTick{S: "AAPL"}); ok {
		t.Fatalf("zero-timestamp tick must be ignored")
	}
}

package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"ChartPulse/internal/domain/models"
	domrepo "ChartPulse/internal/domain/repository"
	"ChartPulse/internal/services/features"
	applogger "ChartPulse/pkg/logger"
)

// --- shared test fakes ---

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

type fakeMetrics struct {
	mu       sync.Mutex
	outcomes map[models.SymbolStatus]int
	runs     int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{outcomes: make(map[models.SymbolStatus]int)}
}

func (m *fakeMetrics) RecordRun(string, models.RunState, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
}

func (m *fakeMetrics) RecordSymbolOutcome(status models.SymbolStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[status]++
}

func (m *fakeMetrics) RecordRowsWritten(string, int) {}
func (m *fakeMetrics) RecordCacheHit(string)         {}
func (m *fakeMetrics) RecordCacheMiss(string)        {}
func (m *fakeMetrics) RecordError(string)            {}
func (m *fakeMetrics) RecordLatency(string, float64) {}

// fakeLease scripts one symbol's store behavior.
type fakeLease struct {
	store *fakeLeasedStore
}

func (l *fakeLease) GetBars(ctx context.Context, symbols []string, lookback int) (models.BarSet, error) {
	s := l.store
	if s.barDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.barDelay):
		}
	}
	if s.barPanic {
		panic("corrupted series")
	}
	if s.barErr != nil {
		return nil, s.barErr
	}
	out := models.BarSet{}
	for _, sym := range symbols {
		if bars, ok := s.bars[sym]; ok {
			if lookback < len(bars) {
				bars = bars[len(bars)-lookback:]
			}
			out[sym] = bars
		}
	}
	return out, nil
}

func (l *fakeLease) GetLatest(ctx context.Context, symbols []string) (map[string]models.Bar, error) {
	out := map[string]models.Bar{}
	set, err := l.GetBars(ctx, symbols, 1)
	if err != nil {
		return nil, err
	}
	for sym, bars := range set {
		if len(bars) > 0 {
			out[sym] = bars[len(bars)-1]
		}
	}
	return out, nil
}

func (l *fakeLease) UpsertFeatures(ctx context.Context, rows []models.FeatureRow) error {
	s := l.store
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = append(s.committed, rows...)
	return nil
}

func (l *fakeLease) GetFeatures(ctx context.Context, symbol string, limit int) ([]models.FeatureRow, error) {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.FeatureRow
	for _, r := range s.committed {
		if r.Symbol == symbol {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (l *fakeLease) Release() error {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released++
	return nil
}

type fakeLeasedStore struct {
	mu        sync.Mutex
	bars      map[string][]models.Bar
	barErr    error
	barPanic  bool
	barDelay  time.Duration
	upsertErr error

	committed []models.FeatureRow
	acquired  int
	released  int
}

func (s *fakeLeasedStore) Acquire(ctx context.Context) (domrepo.StoreLease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acquired++
	return &fakeLease{store: s}, nil
}

func (s *fakeLeasedStore) committedRows() []models.FeatureRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.FeatureRow(nil), s.committed...)
}

func testBars(symbol string, n int) []models.Bar {
	start := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := range bars {
		c := 100 + 0.5*float64(i)
		bars[i] = models.Bar{
			Symbol:    symbol,
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      c - 0.2,
			High:      c + 0.5,
			Low:       c - 0.5,
			Close:     c,
			Volume:    1000,
			Source:    "test",
		}
	}
	return bars
}

func newTestWorker(store *fakeLeasedStore, timeout time.Duration, t *testing.T) *SymbolWorker {
	return NewSymbolWorker(store, newFakeMetrics(), testLogger(t), timeout, features.DefaultParams())
}

// --- tests ---

func TestWorkerSuccess(t *testing.T) {
	store := &fakeLeasedStore{bars: map[string][]models.Bar{"AAPL": testBars("AAPL", 60)}}
	w := newTestWorker(store, 5*time.Second, t)

	res := w.Run(context.Background(), WorkerJob{Symbol: "AAPL", Lookback: 300})
	if res.Status != models.StatusSuccess {
		t.Fatalf("status = %s, want success (err: %s)", res.Status, res.Err)
	}
	if res.Rows != 60 {
		t.Fatalf("rows = %d, want 60", res.Rows)
	}
	if got := len(store.committedRows()); got != 60 {
		t.Fatalf("committed %d rows, want 60", got)
	}
}

func TestWorkerTailPersistsOnlyRecentRows(t *testing.T) {
	store := &fakeLeasedStore{bars: map[string][]models.Bar{"MSFT": testBars("MSFT", 120)}}
	w := newTestWorker(store, 5*time.Second, t)

	res := w.Run(context.Background(), WorkerJob{Symbol: "MSFT", Lookback: 300, Tail: 5})
	if res.Status != models.StatusSuccess {
		t.Fatalf("status = %s, want success", res.Status)
	}
	committed := store.committedRows()
	if len(committed) != 5 {
		t.Fatalf("committed %d rows, want 5", len(committed))
	}
	// The tail still saw the full lookback: SMA50 must be defined.
	if !committed[0].SMA50.Defined() {
		t.Fatalf("tail row lost its lookback context")
	}
}

func TestWorkerNoDataIsCleanNoop(t *testing.T) {
	store := &fakeLeasedStore{bars: map[string][]models.Bar{}}
	w := newTestWorker(store, 5*time.Second, t)

	res := w.Run(context.Background(), WorkerJob{Symbol: "GHOST", Lookback: 300})
	if res.Status != models.StatusSuccess || res.Rows != 0 {
		t.Fatalf("got status=%s rows=%d, want success/0", res.Status, res.Rows)
	}
}

func TestWorkerPanicContained(t *testing.T) {
	store := &fakeLeasedStore{barPanic: true}
	w := newTestWorker(store, 5*time.Second, t)

	res := w.Run(context.Background(), WorkerJob{Symbol: "TSLA", Lookback: 300})
	if res.Status != models.StatusFailed {
		t.Fatalf("status = %s, want failed", res.Status)
	}
	if !strings.Contains(res.Err, "panic") {
		t.Fatalf("error should report the panic, got %q", res.Err)
	}
	if len(store.committedRows()) != 0 {
		t.Fatalf("panicking worker must not commit rows")
	}
}

func TestWorkerTimeout(t *testing.T) {
	store := &fakeLeasedStore{
		bars:     map[string][]models.Bar{"NVDA": testBars("NVDA", 60)},
		barDelay: 200 * time.Millisecond,
	}
	w := newTestWorker(store, 30*time.Millisecond, t)

	start := time.Now()
	res := w.Run(context.Background(), WorkerJob{Symbol: "NVDA", Lookback: 300})
	if res.Status != models.StatusTimedOut {
		t.Fatalf("status = %s, want timed_out", res.Status)
	}
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Fatalf("worker did not return promptly on timeout: %s", elapsed)
	}
	if len(store.committedRows()) != 0 {
		t.Fatalf("timed-out worker must not commit rows")
	}
}

func TestWorkerStoreErrorNoPartialWrite(t *testing.T) {
	store := &fakeLeasedStore{
		bars:      map[string][]models.Bar{"AMD": testBars("AMD", 60)},
		upsertErr: errTestWrite,
	}
	w := newTestWorker(store, 5*time.Second, t)

	res := w.Run(context.Background(), WorkerJob{Symbol: "AMD", Lookback: 300})
	if res.Status != models.StatusFailed {
		t.Fatalf("status = %s, want failed", res.Status)
	}
	if len(store.committedRows()) != 0 {
		t.Fatalf("failed commit must leave the store untouched")
	}
}

var errTestWrite = &testError{"write refused"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }

func TestWorkerReleasesLease(t *testing.T) {
	store := &fakeLeasedStore{bars: map[string][]models.Bar{"AAPL": testBars("AAPL", 30)}}
	w := newTestWorker(store, 5*time.Second, t)

	w.Run(context.Background(), WorkerJob{Symbol: "AAPL", Lookback: 300})
	w.Run(context.Background(), WorkerJob{Symbol: "AAPL", Lookback: 300})

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.acquired != 2 || store.released != 2 {
		t.Fatalf("acquired=%d released=%d, want 2/2", store.acquired, store.released)
	}
}

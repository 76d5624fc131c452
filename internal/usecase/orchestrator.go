package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ChartPulse/internal/domain/models"
	domrepo "ChartPulse/internal/domain/repository"
	"ChartPulse/pkg/cache"
	applogger "ChartPulse/pkg/logger"
)

const (
	ModeIncremental  = "incremental"
	ModeFullBackfill = "full_backfill"
)

var (
	ErrRunInProgress = errors.New("a batch run is already in progress")
	ErrNoSymbols     = errors.New("symbol universe is empty")
)

// OrchestratorConfig carries the pacing and sizing knobs for batch runs.
type OrchestratorConfig struct {
	Symbols          []string
	GroupSize        int
	SymbolDelay      time.Duration
	GroupDelay       time.Duration
	Lookback         int // bars per symbol for incremental runs
	BackfillLookback int // bars per symbol for full backfill
	Tail             int // rows persisted per incremental run
	LockTTL          time.Duration
}

// Orchestrator walks the symbol universe in paced groups, hands each symbol
// to an isolated worker, and aggregates outcomes into a run summary. One
// failed symbol never stops the run; only misconfiguration errors out.
type Orchestrator struct {
	runner  SymbolRunner
	cache   cache.Service
	pub     domrepo.Publisher
	metrics domrepo.Metrics
	l       *applogger.Logger
	cfg     OrchestratorConfig

	mu      sync.Mutex
	running bool
	last    *models.RunSummary
}

func NewOrchestrator(
	runner SymbolRunner,
	cacheSvc cache.Service,
	pub domrepo.Publisher,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg OrchestratorConfig,
) *Orchestrator {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Minute
	}
	return &Orchestrator{
		runner:  runner,
		cache:   cacheSvc,
		pub:     pub,
		metrics: metrics,
		l:       l,
		cfg:     cfg,
	}
}

// RunIncremental recomputes the recent feature tail for every symbol.
func (o *Orchestrator) RunIncremental(ctx context.Context) (*models.RunSummary, error) {
	return o.run(ctx, ModeIncremental, o.cfg.Lookback, o.cfg.Tail)
}

// RunFullBackfill recomputes and persists the entire feature history for
// every symbol. Same pacing, same isolation, just a bigger lookback and no
// tail cutoff.
func (o *Orchestrator) RunFullBackfill(ctx context.Context) (*models.RunSummary, error) {
	return o.run(ctx, ModeFullBackfill, o.cfg.BackfillLookback, 0)
}

// Status reports whether a run is active and the last finished summary.
func (o *Orchestrator) Status() (models.RunState, *models.RunSummary) {
	o.mu.Lock()
	defer o.mu.Unlock()
	state := models.RunIdle
	if o.running {
		state = models.RunRunning
	} else if o.last != nil {
		state = o.last.State
	}
	return state, o.last
}

func (o *Orchestrator) run(ctx context.Context, mode string, lookback, tail int) (*models.RunSummary, error) {
	if len(o.cfg.Symbols) == 0 {
		return nil, ErrNoSymbols
	}
	if o.cfg.GroupSize <= 0 {
		return nil, fmt.Errorf("group size must be positive, got %d", o.cfg.GroupSize)
	}
	if lookback <= 0 {
		return nil, fmt.Errorf("lookback must be positive, got %d", lookback)
	}

	if err := o.acquire(ctx, mode); err != nil {
		return nil, err
	}
	defer o.release(mode)

	runID := fmt.Sprintf("%s-%d", mode, time.Now().UnixNano())
	sum := &models.RunSummary{
		RunID:     runID,
		Mode:      mode,
		State:     models.RunRunning,
		StartedAt: time.Now(),
		Symbols:   make([]models.SymbolResult, 0, len(o.cfg.Symbols)),
	}
	o.l.Info("batch run started",
		applogger.String("run_id", runID),
		applogger.String("mode", mode),
		applogger.Int("symbols", len(o.cfg.Symbols)),
		applogger.Int("group_size", o.cfg.GroupSize),
		applogger.Int("lookback", lookback),
	)

	groups := groupSymbols(o.cfg.Symbols, o.cfg.GroupSize)
	for gi, group := range groups {
		for si, symbol := range group {
			if err := ctx.Err(); err != nil {
				o.finish(sum)
				return sum, fmt.Errorf("run canceled: %w", err)
			}

			res := o.runner.Run(ctx, WorkerJob{Symbol: symbol, Lookback: lookback, Tail: tail})
			sum.Symbols = append(sum.Symbols, res)

			if res.Status == models.StatusSuccess {
				o.invalidateSymbol(ctx, symbol)
			}
			o.publishSymbol(ctx, runID, res)

			if si < len(group)-1 {
				if err := sleepCtx(ctx, o.cfg.SymbolDelay); err != nil {
					o.finish(sum)
					return sum, fmt.Errorf("run canceled: %w", err)
				}
			}
		}
		if gi < len(groups)-1 {
			if err := sleepCtx(ctx, o.cfg.GroupDelay); err != nil {
				o.finish(sum)
				return sum, fmt.Errorf("run canceled: %w", err)
			}
		}
	}

	o.finish(sum)
	o.l.Info("batch run finished",
		applogger.String("run_id", runID),
		applogger.String("mode", mode),
		applogger.String("state", string(sum.State)),
		applogger.Int("succeeded", sum.Succeeded),
		applogger.Int("failed", sum.Failed),
		applogger.Int("timed_out", sum.TimedOut),
		applogger.Duration("duration_ms", sum.Duration),
	)
	return sum, nil
}

// acquire takes the distributed run lock and marks the orchestrator busy.
func (o *Orchestrator) acquire(ctx context.Context, mode string) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrRunInProgress
	}
	o.running = true
	o.mu.Unlock()

	ok, err := o.cache.TryLock(ctx, cache.RunLockKey(mode), o.cfg.LockTTL)
	if err != nil {
		// A broken cache must not block the pipeline; the in-process flag
		// still guards this instance.
		o.l.Warn("run lock unavailable, proceeding with local guard",
			applogger.String("mode", mode), applogger.Error(err))
		return nil
	}
	if !ok {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
		return ErrRunInProgress
	}
	return nil
}

func (o *Orchestrator) release(mode string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.cache.Unlock(ctx, cache.RunLockKey(mode)); err != nil {
		o.l.Warn("run unlock failed", applogger.String("mode", mode), applogger.Error(err))
	}
	o.mu.Lock()
	o.running = false
	o.mu.Unlock()
}

// finish seals counters, terminal state, and the last-run snapshot.
func (o *Orchestrator) finish(sum *models.RunSummary) {
	sum.FinishedAt = time.Now()
	sum.Duration = sum.FinishedAt.Sub(sum.StartedAt)
	for _, r := range sum.Symbols {
		switch r.Status {
		case models.StatusSuccess:
			sum.Succeeded++
		case models.StatusTimedOut:
			sum.TimedOut++
		default:
			sum.Failed++
		}
	}
	if sum.Failed == 0 && sum.TimedOut == 0 {
		sum.State = models.RunCompleted
	} else {
		sum.State = models.RunPartiallyFailed
	}

	o.metrics.RecordRun(sum.Mode, sum.State, sum.Duration.Seconds())

	o.mu.Lock()
	o.last = sum
	o.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.cache.Set(ctx, cache.RunStatusKey, sum, cache.TTLMedium); err != nil {
		o.l.Warn("run status cache write failed", applogger.Error(err))
	}
	if err := o.pub.PublishRunSummary(ctx, sum); err != nil {
		o.l.Warn("run summary publish failed",
			applogger.String("run_id", sum.RunID), applogger.Error(err))
	}
}

// invalidateSymbol drops every cached result for a symbol after its
// features changed. Cache trouble is logged and swallowed.
func (o *Orchestrator) invalidateSymbol(ctx context.Context, symbol string) {
	if err := o.cache.DeleteByPattern(ctx, cache.SymbolPattern(symbol)); err != nil {
		o.metrics.RecordError("cache_invalidate")
		o.l.Warn("cache invalidation failed",
			applogger.String("symbol", symbol), applogger.Error(err))
	}
}

func (o *Orchestrator) publishSymbol(ctx context.Context, runID string, res models.SymbolResult) {
	if err := o.pub.PublishSymbolResult(ctx, runID, res); err != nil {
		o.metrics.RecordError("publish")
		o.l.Warn("symbol result publish failed",
			applogger.String("symbol", res.Symbol), applogger.Error(err))
	}
}

func groupSymbols(symbols []string, size int) [][]string {
	groups := make([][]string, 0, (len(symbols)+size-1)/size)
	for start := 0; start < len(symbols); start += size {
		end := start + size
		if end > len(symbols) {
			end = len(symbols)
		}
		groups = append(groups, symbols[start:end])
	}
	return groups
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

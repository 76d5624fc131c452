package usecase

import (
	"context"
	"fmt"
	"time"

	"ChartPulse/internal/domain/models"
	domrepo "ChartPulse/internal/domain/repository"
	"ChartPulse/internal/services/features"
	applogger "ChartPulse/pkg/logger"
)

// WorkerJob describes one symbol's unit of work. Tail > 0 means only the
// last Tail rows are persisted (incremental update); Tail == 0 persists
// every computed row (backfill). Indicators always see the full lookback.
type WorkerJob struct {
	Symbol   string
	Lookback int
	Tail     int
}

// SymbolRunner executes one symbol's job to a terminal status.
type SymbolRunner interface {
	Run(ctx context.Context, job WorkerJob) models.SymbolResult
}

// SymbolWorker computes and persists one symbol's features in full
// isolation: its own store lease, a hard per-symbol timeout, panic
// containment, and a single all-or-nothing batch write. Whatever happens
// inside one invocation, the only thing that escapes is a SymbolResult.
type SymbolWorker struct {
	leaser  domrepo.LeasedStore
	metrics domrepo.Metrics
	l       *applogger.Logger
	timeout time.Duration
	params  features.Params
}

func NewSymbolWorker(
	leaser domrepo.LeasedStore,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	timeout time.Duration,
	params features.Params,
) *SymbolWorker {
	return &SymbolWorker{
		leaser:  leaser,
		metrics: metrics,
		l:       l,
		timeout: timeout,
		params:  params,
	}
}

// Run executes the job under the worker timeout and never returns an error:
// every failure mode is folded into the result status.
func (w *SymbolWorker) Run(ctx context.Context, job WorkerJob) models.SymbolResult {
	start := time.Now()
	wctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	type outcome struct {
		rows int
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		rows, err := w.process(wctx, job)
		done <- outcome{rows: rows, err: err}
	}()

	res := models.SymbolResult{Symbol: job.Symbol}
	select {
	case o := <-done:
		if o.err != nil {
			if wctx.Err() == context.DeadlineExceeded {
				res.Status = models.StatusTimedOut
				res.Err = fmt.Sprintf("timed out after %s", w.timeout)
			} else {
				res.Status = models.StatusFailed
				res.Err = o.err.Error()
			}
		} else {
			res.Status = models.StatusSuccess
			res.Rows = o.rows
		}
	case <-wctx.Done():
		// The goroutine unwinds on its own once the leased connection sees
		// the canceled context; nothing partial has been committed.
		if ctx.Err() != nil {
			res.Status = models.StatusFailed
			res.Err = "run canceled"
		} else {
			res.Status = models.StatusTimedOut
			res.Err = fmt.Sprintf("timed out after %s", w.timeout)
		}
	}
	res.Duration = time.Since(start)

	w.metrics.RecordSymbolOutcome(res.Status)
	w.metrics.RecordLatency("symbol_worker", res.Duration.Seconds())
	if res.Status == models.StatusSuccess {
		w.metrics.RecordRowsWritten(job.Symbol, res.Rows)
		w.l.Debug("symbol worker done",
			applogger.String("symbol", job.Symbol),
			applogger.Int("rows", res.Rows),
			applogger.Duration("duration_ms", res.Duration),
		)
	} else {
		w.metrics.RecordError("symbol_" + string(res.Status))
		w.l.Error("symbol worker failed",
			applogger.String("symbol", job.Symbol),
			applogger.String("status", string(res.Status)),
			applogger.String("error", res.Err),
			applogger.Duration("duration_ms", res.Duration),
		)
	}
	return res
}

// process does the actual fetch-compute-commit. All feature rows are built
// in memory first and written with one UpsertFeatures call, so a failure
// anywhere leaves the store untouched for this symbol.
func (w *SymbolWorker) process(ctx context.Context, job WorkerJob) (int, error) {
	lease, err := w.leaser.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire lease: %w", err)
	}
	defer lease.Release()

	barSet, err := lease.GetBars(ctx, []string{job.Symbol}, job.Lookback)
	if err != nil {
		return 0, fmt.Errorf("get bars: %w", err)
	}
	bars := barSet[job.Symbol]
	if len(bars) == 0 {
		// No data is a clean no-op, not a failure.
		return 0, nil
	}

	rows := features.BuildTail(bars, w.params, job.Tail)
	if err := lease.UpsertFeatures(ctx, rows); err != nil {
		return 0, fmt.Errorf("upsert features: %w", err)
	}
	return len(rows), nil
}

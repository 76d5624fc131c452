package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"ChartPulse/internal/usecase"
	applogger "ChartPulse/pkg/logger"
)

// Scheduler drives the batch pipeline on a cadence: incremental runs on an
// interval, full backfills on an optional cron spec. It is only glue; all
// run semantics live in the orchestrator.
type Scheduler struct {
	cron *gocron.Scheduler
	orch *usecase.Orchestrator
	l    *applogger.Logger

	incrementalEvery time.Duration
	backfillCron     string
}

func New(orch *usecase.Orchestrator, l *applogger.Logger, incrementalInterval, backfillCron string) (*Scheduler, error) {
	every, err := time.ParseDuration(incrementalInterval)
	if err != nil {
		return nil, fmt.Errorf("parse incremental interval: %w", err)
	}
	if every < time.Minute {
		return nil, fmt.Errorf("incremental interval %s is below the 1m floor", every)
	}
	return &Scheduler{
		cron:             gocron.NewScheduler(time.UTC),
		orch:             orch,
		l:                l,
		incrementalEvery: every,
		backfillCron:     backfillCron,
	}, nil
}

// Start registers the jobs and runs the scheduler in the background.
func (s *Scheduler) Start() error {
	if _, err := s.cron.Every(s.incrementalEvery).Do(s.runIncremental); err != nil {
		return fmt.Errorf("schedule incremental: %w", err)
	}
	if s.backfillCron != "" {
		if _, err := s.cron.Cron(s.backfillCron).Do(s.runBackfill); err != nil {
			return fmt.Errorf("schedule backfill: %w", err)
		}
	}
	s.cron.StartAsync()
	s.l.Info("scheduler started",
		applogger.String("incremental_every", s.incrementalEvery.String()),
		applogger.String("backfill_cron", s.backfillCron),
	)
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.l.Info("scheduler stopped")
}

func (s *Scheduler) runIncremental() {
	sum, err := s.orch.RunIncremental(context.Background())
	if err != nil {
		if errors.Is(err, usecase.ErrRunInProgress) {
			s.l.Info("scheduled incremental skipped, run in progress")
			return
		}
		s.l.Error("scheduled incremental failed", applogger.Error(err))
		return
	}
	s.l.Info("scheduled incremental finished",
		applogger.String("run_id", sum.RunID),
		applogger.String("state", string(sum.State)),
	)
}

func (s *Scheduler) runBackfill() {
	sum, err := s.orch.RunFullBackfill(context.Background())
	if err != nil {
		if errors.Is(err, usecase.ErrRunInProgress) {
			s.l.Info("scheduled backfill skipped, run in progress")
			return
		}
		s.l.Error("scheduled backfill failed", applogger.Error(err))
		return
	}
	s.l.Info("scheduled backfill finished",
		applogger.String("run_id", sum.RunID),
		applogger.String("state", string(sum.State)),
	)
}

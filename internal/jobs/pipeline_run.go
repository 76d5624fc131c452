package jobs

import (
	"context"
	"errors"
	"fmt"

	"ChartPulse/internal/usecase"
	applogger "ChartPulse/pkg/logger"
	"ChartPulse/pkg/queue"
)

// TypePipelineRun is the queue message type for triggered batch runs.
const TypePipelineRun = "pipeline.run"

// PipelineRunPayload is the queue payload for a triggered batch run.
type PipelineRunPayload struct {
	Mode string `json:"mode"`
}

// PipelineRunJob consumes queued run requests and drives the orchestrator.
// An already-running pipeline is not an error; the request is dropped so
// the queue does not retry it into a pile-up.
type PipelineRunJob struct {
	orch *usecase.Orchestrator
	l    *applogger.Logger
}

func NewPipelineRunJob(orch *usecase.Orchestrator, l *applogger.Logger) *PipelineRunJob {
	return &PipelineRunJob{orch: orch, l: l}
}

func (j *PipelineRunJob) Name() string { return "pipeline_run" }

func (j *PipelineRunJob) Type() string { return TypePipelineRun }

func (j *PipelineRunJob) Handle(ctx context.Context, payload interface{}) error {
	req, err := queue.ParsePayload[PipelineRunPayload](payload)
	if err != nil {
		return fmt.Errorf("parse pipeline run payload: %w", err)
	}

	switch req.Mode {
	case usecase.ModeIncremental:
		_, err = j.orch.RunIncremental(ctx)
	case usecase.ModeFullBackfill:
		_, err = j.orch.RunFullBackfill(ctx)
	default:
		return fmt.Errorf("unknown run mode %q", req.Mode)
	}

	if errors.Is(err, usecase.ErrRunInProgress) {
		j.l.Info("queued run skipped, pipeline busy", applogger.String("mode", req.Mode))
		return nil
	}
	return err
}

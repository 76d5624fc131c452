package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"ChartPulse/internal/domain/models"
	"ChartPulse/internal/jobs"
	"ChartPulse/internal/service/ratelimit"
	"ChartPulse/internal/usecase"
	xhttp "ChartPulse/pkg/http"
	applogger "ChartPulse/pkg/logger"
	"ChartPulse/pkg/queue"
)

// PipelineHandler exposes run triggering and run status. When a queue is
// wired, triggered runs go through it; otherwise they run detached in
// this process.
type PipelineHandler struct {
	orch     *usecase.Orchestrator
	runQueue queue.QueueService
	rl       *ratelimit.Limiter
	l        *applogger.Logger
}

func NewPipelineHandler(orch *usecase.Orchestrator, runQueue queue.QueueService, rl *ratelimit.Limiter, l *applogger.Logger) *PipelineHandler {
	return &PipelineHandler{orch: orch, runQueue: runQueue, rl: rl, l: l}
}

func (h *PipelineHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/pipeline")
	g.POST("/run", h.TriggerRun)
	g.GET("/status", h.GetStatus)
}

type triggerRunRequest struct {
	Mode string `json:"mode" default:"incremental" validate:"oneof=incremental full_backfill"`
}

// TriggerRun handles POST /api/pipeline/run. Runs are expensive, so the
// endpoint is rate limited per caller and rejects overlapping requests
// up front instead of letting them queue behind the run lock.
func (h *PipelineHandler) TriggerRun(c echo.Context) error {
	if !h.rl.Allow(c.RealIP()+":pipeline_run", 3, 1.0/30) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "too many run requests")
	}

	req := new(triggerRunRequest)
	if errs := xhttp.ReadAndValidateRequest(c, req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}

	if state, _ := h.orch.Status(); state == models.RunRunning {
		return xhttp.DataResponse(c, http.StatusConflict, "a run is already in progress")
	}

	if h.runQueue != nil {
		payload := jobs.PipelineRunPayload{Mode: req.Mode}
		if err := h.runQueue.PublishMessage(c.Request().Context(), jobs.TypePipelineRun, payload); err != nil {
			h.l.Error("enqueue pipeline run failed",
				applogger.String("mode", req.Mode), applogger.Error(err))
			return xhttp.InternalServerErrorResponse(c)
		}
		return xhttp.CreatedResponse(c, map[string]string{"mode": req.Mode, "status": "queued"})
	}

	go h.runDetached(req.Mode)
	return xhttp.CreatedResponse(c, map[string]string{"mode": req.Mode, "status": "started"})
}

// runDetached executes a triggered run outside the request lifetime.
func (h *PipelineHandler) runDetached(mode string) {
	ctx := context.Background()
	var (
		sum *models.RunSummary
		err error
	)
	if mode == usecase.ModeFullBackfill {
		sum, err = h.orch.RunFullBackfill(ctx)
	} else {
		sum, err = h.orch.RunIncremental(ctx)
	}
	if err != nil {
		if errors.Is(err, usecase.ErrRunInProgress) {
			h.l.Info("triggered run skipped, pipeline busy", applogger.String("mode", mode))
			return
		}
		h.l.Error("triggered run failed", applogger.String("mode", mode), applogger.Error(err))
		return
	}
	h.l.Info("triggered run finished",
		applogger.String("run_id", sum.RunID),
		applogger.String("state", string(sum.State)),
	)
}

// GetStatus handles GET /api/pipeline/status.
func (h *PipelineHandler) GetStatus(c echo.Context) error {
	state, last := h.orch.Status()
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"state":    state,
		"last_run": last,
	})
}

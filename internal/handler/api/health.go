package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"ChartPulse/pkg/clickhouse"
	xhttp "ChartPulse/pkg/http"
)

// FeedStatus is the slice of the feed client health checks care about.
type FeedStatus interface {
	IsConnected() bool
}

// HealthHandler answers liveness and readiness probes. The feed is
// optional; a nil feed reports as disabled rather than unhealthy.
type HealthHandler struct {
	ch   *clickhouse.Client
	feed FeedStatus
}

func NewHealthHandler(ch *clickhouse.Client, feed FeedStatus) *HealthHandler {
	return &HealthHandler{ch: ch, feed: feed}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
}

func (h *HealthHandler) Healthz(c echo.Context) error {
	checks := map[string]string{"clickhouse": "ok"}
	healthy := true

	pingCtx, pingCancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer pingCancel()
	if err := h.ch.Health(pingCtx); err != nil {
		checks["clickhouse"] = err.Error()
		healthy = false
	}

	switch {
	case h.feed == nil:
		checks["feed"] = "disabled"
	case h.feed.IsConnected():
		checks["feed"] = "ok"
	default:
		// a reconnecting feed degrades the report but not readiness;
		// the batch pipeline serves from the store regardless
		checks["feed"] = "disconnected"
	}

	if !healthy {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, checks)
	}
	return xhttp.SuccessResponse(c, checks)
}

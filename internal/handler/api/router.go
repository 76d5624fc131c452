package api

import (
	"github.com/labstack/echo/v4"

	xhttp "ChartPulse/pkg/http"
)

// Router fans RegisterRoutes out to every mounted handler so the HTTP
// server only needs one entry point.
type Router struct {
	handlers []xhttp.Handler
}

func NewRouter(handlers ...xhttp.Handler) *Router {
	return &Router{handlers: handlers}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	for _, h := range r.handlers {
		h.RegisterRoutes(e)
	}
}

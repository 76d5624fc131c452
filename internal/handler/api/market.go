package api

import (
	"strings"

	"github.com/labstack/echo/v4"

	"ChartPulse/internal/usecase"
	xhttp "ChartPulse/pkg/http"
	applogger "ChartPulse/pkg/logger"
)

// MarketHandler serves computed indicator rows and raw OHLCV bars.
type MarketHandler struct {
	query *usecase.IndicatorQuery
	l     *applogger.Logger
}

func NewMarketHandler(query *usecase.IndicatorQuery, l *applogger.Logger) *MarketHandler {
	return &MarketHandler{query: query, l: l}
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/indicators/:symbol", h.GetIndicators)
	g.GET("/indicators/:symbol/latest", h.GetLatest)
	g.GET("/bars/:symbol", h.GetBars)
}

// GetIndicators handles GET /api/indicators/:symbol?limit=N.
func (h *MarketHandler) GetIndicators(c echo.Context) error {
	symbol := normalizeSymbol(c.Param("symbol"))
	if symbol == "" {
		return xhttp.BadRequestResponse(c, "symbol is required")
	}
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 0)

	rows, err := h.query.GetIndicators(c.Request().Context(), usecase.GetIndicatorsParams{
		Symbol: symbol,
		Limit:  limit,
	})
	if err != nil {
		h.l.Error("get indicators failed",
			applogger.String("symbol", symbol), applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// GetLatest handles GET /api/indicators/:symbol/latest.
func (h *MarketHandler) GetLatest(c echo.Context) error {
	symbol := normalizeSymbol(c.Param("symbol"))
	if symbol == "" {
		return xhttp.BadRequestResponse(c, "symbol is required")
	}

	row, err := h.query.GetLatest(c.Request().Context(), symbol)
	if err != nil {
		h.l.Error("get latest indicators failed",
			applogger.String("symbol", symbol), applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if row == nil {
		return xhttp.NotFoundResponse(c, "no features computed for "+symbol)
	}
	return xhttp.SuccessResponse(c, row)
}

// GetBars handles GET /api/bars/:symbol?lookback=N.
func (h *MarketHandler) GetBars(c echo.Context) error {
	symbol := normalizeSymbol(c.Param("symbol"))
	if symbol == "" {
		return xhttp.BadRequestResponse(c, "symbol is required")
	}
	lookback := xhttp.ParseIntDefault(c.QueryParam("lookback"), 0)

	bars, err := h.query.GetBars(c.Request().Context(), usecase.GetBarsParams{
		Symbol:   symbol,
		Lookback: lookback,
	})
	if err != nil {
		h.l.Error("get bars failed",
			applogger.String("symbol", symbol), applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, bars, int64(len(bars)))
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

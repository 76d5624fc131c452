package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"ChartPulse/internal/domain/models"
	"ChartPulse/internal/usecase"
	"ChartPulse/pkg/cache"
	xhttp "ChartPulse/pkg/http"
	applogger "ChartPulse/pkg/logger"
)

type stubFeatures struct {
	rows []models.FeatureRow
}

func (s *stubFeatures) UpsertFeatures(context.Context, []models.FeatureRow) error { return nil }

func (s *stubFeatures) GetFeatures(_ context.Context, _ string, limit int) ([]models.FeatureRow, error) {
	out := s.rows
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type stubBars struct {
	bars []models.Bar
}

func (s *stubBars) GetBars(_ context.Context, symbols []string, lookback int) (models.BarSet, error) {
	out := models.BarSet{}
	for _, sym := range symbols {
		bars := s.bars
		if lookback < len(bars) {
			bars = bars[len(bars)-lookback:]
		}
		out[sym] = bars
	}
	return out, nil
}

func (s *stubBars) GetLatest(context.Context, []string) (map[string]models.Bar, error) {
	return map[string]models.Bar{}, nil
}

type nopMetrics struct{}

func (nopMetrics) RecordRun(string, models.RunState, float64) {}
func (nopMetrics) RecordSymbolOutcome(models.SymbolStatus)    {}
func (nopMetrics) RecordRowsWritten(string, int)              {}
func (nopMetrics) RecordCacheHit(string)                      {}
func (nopMetrics) RecordCacheMiss(string)                     {}
func (nopMetrics) RecordError(string)                         {}
func (nopMetrics) RecordLatency(string, float64)              {}

func newTestMarketHandler(t *testing.T, features *stubFeatures, bars *stubBars) *MarketHandler {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { mc.Close() })
	q := usecase.NewIndicatorQuery(features, bars, mc, nopMetrics{}, l)
	return NewMarketHandler(q, l)
}

func marketFixture(n int) []models.FeatureRow {
	start := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	rows := make([]models.FeatureRow, n)
	for i := range rows {
		rows[i] = models.FeatureRow{
			Symbol:    "AAPL",
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Close:     100 + float64(i),
			RSI14:     50,
			Version:   models.FeatureVersion,
		}
	}
	return rows
}

func doGet(h echo.HandlerFunc, path, symbol, query string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	target := path
	if query != "" {
		target += "?" + query
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("symbol")
	c.SetParamValues(symbol)
	return rec, h(c)
}

func TestGetIndicatorsEndpoint(t *testing.T) {
	h := newTestMarketHandler(t, &stubFeatures{rows: marketFixture(30)}, &stubBars{})

	rec, err := doGet(h.GetIndicators, "/api/indicators/aapl", "aapl", "limit=10")
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Data struct {
			Rows  []models.FeatureRow `json:"rows"`
			Total int64               `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.Total != 10 || len(resp.Data.Rows) != 10 {
		t.Fatalf("got %d rows (total %d), want 10", len(resp.Data.Rows), resp.Data.Total)
	}
	// lowercase path param was normalized before hitting the store
	if resp.Data.Rows[0].Symbol != "AAPL" {
		t.Fatalf("symbol = %s, want AAPL", resp.Data.Rows[0].Symbol)
	}
}

func TestGetIndicatorsEndpointRequiresSymbol(t *testing.T) {
	h := newTestMarketHandler(t, &stubFeatures{}, &stubBars{})

	rec, err := doGet(h.GetIndicators, "/api/indicators/", "", "")
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	var resp xhttp.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 envelope", resp.Status)
	}
}

func TestGetLatestEndpointNotFound(t *testing.T) {
	h := newTestMarketHandler(t, &stubFeatures{}, &stubBars{})

	rec, err := doGet(h.GetLatest, "/api/indicators/tsla/latest", "TSLA", "")
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	var resp xhttp.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 envelope", resp.Status)
	}
}

func TestGetBarsEndpoint(t *testing.T) {
	bars := make([]models.Bar, 40)
	start := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = models.Bar{Symbol: "AAPL", Timestamp: start.Add(time.Duration(i) * time.Minute), Close: 100}
	}
	h := newTestMarketHandler(t, &stubFeatures{}, &stubBars{bars: bars})

	rec, err := doGet(h.GetBars, "/api/bars/aapl", "aapl", "lookback=20")
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Data struct {
			Rows []models.Bar `json:"rows"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data.Rows) != 20 {
		t.Fatalf("got %d bars, want 20", len(resp.Data.Rows))
	}
}

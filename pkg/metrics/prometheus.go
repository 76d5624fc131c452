package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ChartPulse/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	symbolOutcomes *prometheus.CounterVec
	rowsWritten    *prometheus.CounterVec
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		runsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartpulse_runs_total",
				Help: "Total number of batch runs by mode and terminal state",
			},
			[]string{"mode", "state"},
		),
		runDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chartpulse_run_duration_seconds",
				Help:    "Duration of batch runs in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"mode"},
		),
		symbolOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartpulse_symbol_outcomes_total",
				Help: "Per-symbol worker outcomes",
			},
			[]string{"status"},
		),
		rowsWritten: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartpulse_feature_rows_written_total",
				Help: "Feature rows committed per symbol",
			},
			[]string{"symbol"},
		),
		cacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartpulse_cache_hits_total",
				Help: "Cache hits by tier",
			},
			[]string{"tier"},
		),
		cacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartpulse_cache_misses_total",
				Help: "Cache misses by tier",
			},
			[]string{"tier"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chartpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordRun(mode string, state models.RunState, seconds float64) {
	r.runsTotal.WithLabelValues(mode, string(state)).Inc()
	r.runDuration.WithLabelValues(mode).Observe(seconds)
}

func (r *Recorder) RecordSymbolOutcome(status models.SymbolStatus) {
	r.symbolOutcomes.WithLabelValues(string(status)).Inc()
}

func (r *Recorder) RecordRowsWritten(symbol string, n int) {
	r.rowsWritten.WithLabelValues(symbol).Add(float64(n))
}

func (r *Recorder) RecordCacheHit(tier string) {
	r.cacheHits.WithLabelValues(tier).Inc()
}

func (r *Recorder) RecordCacheMiss(tier string) {
	r.cacheMisses.WithLabelValues(tier).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

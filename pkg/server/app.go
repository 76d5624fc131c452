package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ChartPulse/internal/domain/repository"
	"ChartPulse/internal/handler/api"
	"ChartPulse/internal/jobs"
	"ChartPulse/internal/scheduler"
	"ChartPulse/internal/service/feed"
	"ChartPulse/internal/service/ratelimit"
	"ChartPulse/internal/usecase"
	"ChartPulse/pkg/cache"
	pkgch "ChartPulse/pkg/clickhouse"
	"ChartPulse/pkg/config"
	xhttp "ChartPulse/pkg/http"
	pkgkafka "ChartPulse/pkg/kafka"
	applogger "ChartPulse/pkg/logger"
	"ChartPulse/pkg/queue"
)

// Deps are the wired collaborators the app runs with. Redis, Producer,
// Feed and Collector are nil when their subsystem is disabled.
type Deps struct {
	Config       *config.Config
	Logger       *applogger.Logger
	ClickHouse   *pkgch.Client
	Redis        *cache.RedisCache
	Cache        cache.Service
	Producer     *pkgkafka.Producer
	Publisher    repository.Publisher
	Orchestrator *usecase.Orchestrator
	Query        *usecase.IndicatorQuery
	Feed         *feed.Client
	Collector    *usecase.BarCollector
}

// App owns the application lifecycle: it starts the ingestion, scheduling
// and HTTP layers, then unwinds them in reverse on shutdown.
type App struct {
	deps       Deps
	httpServer *xhttp.Server
	sched      *scheduler.Scheduler
	runQueue   *queue.RedisQueue
}

// New creates the App from wired dependencies.
func New(d Deps) *App {
	return &App{deps: d}
}

// Run starts everything and blocks until an interrupt arrives.
func (a *App) Run() error {
	cfg, l := a.deps.Config, a.deps.Logger
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ship aggregated logs to Kafka when a producer exists.
	if a.deps.Producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 200,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      a.deps.Producer,
		})
	}

	// Triggered runs go through the Redis queue when available so an HTTP
	// restart cannot lose a pending run; otherwise they run in-process.
	var runQueue queue.QueueService
	if a.deps.Redis != nil {
		q := queue.NewRedisQueue(l,
			&queue.QueueConfig{Workers: 1, RetryLimit: 1, RetryDelay: time.Minute},
			a.deps.Redis.Client(), queue.ModeProducerConsumer)
		q.RegisterJob(jobs.NewPipelineRunJob(a.deps.Orchestrator, l))
		if err := q.Start(); err != nil {
			l.Warn("run queue unavailable, triggered runs stay in-process", applogger.Error(err))
		} else {
			a.runQueue = q
			runQueue = q
		}
	}

	var feedStatus api.FeedStatus
	if a.deps.Feed != nil {
		feedStatus = a.deps.Feed
	}
	router := api.NewRouter(
		api.NewHealthHandler(a.deps.ClickHouse, feedStatus),
		api.NewMarketHandler(a.deps.Query, l),
		api.NewPipelineHandler(a.deps.Orchestrator, runQueue, ratelimit.New(), l),
	)
	a.httpServer = xhttp.NewServer(router,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithRequestMetrics(l, time.Second),
	)

	if a.deps.Collector != nil {
		if err := a.deps.Collector.Start(ctx); err != nil {
			// The batch pipeline still works from stored bars; the feed
			// keeps reconnecting in the background.
			l.Error("bar collector start failed", applogger.Error(err))
		} else {
			l.Info("bar collector started", applogger.Strings("symbols", cfg.Pipeline.Symbols))
		}
	}

	if cfg.Scheduler.Enabled {
		sched, err := scheduler.New(a.deps.Orchestrator, l,
			cfg.Scheduler.IncrementalInterval, cfg.Scheduler.BackfillCron)
		if err != nil {
			return err
		}
		if err := sched.Start(); err != nil {
			return err
		}
		a.sched = sched
	}

	if err := a.httpServer.Start(); err != nil {
		return err
	}
	l.Info("chartpulse started",
		applogger.String("env", cfg.Environment),
		applogger.Int("port", cfg.Server.Port),
		applogger.Int("symbols", len(cfg.Pipeline.Symbols)),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown stops services in reverse start order.
func (a *App) shutdown() error {
	cfg, l := a.deps.Config, a.deps.Logger

	if a.sched != nil {
		a.sched.Stop()
	}

	if a.deps.Collector != nil {
		if err := a.deps.Collector.Stop(); err != nil {
			l.Warn("bar collector stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			l.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.runQueue != nil {
		if err := a.runQueue.Stop(shutdownCtx); err != nil {
			l.Warn("run queue stop error", applogger.Error(err))
		}
	}

	// Flush the log collector before the producer goes away.
	l.RemoveCollector()

	if err := a.deps.Publisher.Close(); err != nil {
		l.Warn("publisher close error", applogger.Error(err))
	}

	if c, ok := a.deps.Cache.(io.Closer); ok {
		if err := c.Close(); err != nil {
			l.Warn("cache close error", applogger.Error(err))
		}
	}

	if err := a.deps.ClickHouse.Close(); err != nil {
		l.Warn("clickhouse close error", applogger.Error(err))
	}

	l.Info("shutdown complete")
	return nil
}

package di

import (
	"context"
	"fmt"
	"time"

	"ChartPulse/internal/domain/repository"
	internalrepo "ChartPulse/internal/repository"
	"ChartPulse/internal/service/feed"
	"ChartPulse/internal/services/features"
	"ChartPulse/internal/usecase"
	"ChartPulse/pkg/cache"
	pkgch "ChartPulse/pkg/clickhouse"
	"ChartPulse/pkg/config"
	pkgkafka "ChartPulse/pkg/kafka"
	applogger "ChartPulse/pkg/logger"
	"ChartPulse/pkg/metrics"
	"ChartPulse/pkg/server"
)

// barsPerTradingDay converts the backfill horizon from days to bars for a
// regular US session on one-minute bars.
const barsPerTradingDay = 390

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the
// schema exists.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := internalrepo.InitSchema(ctx, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideRedisCache connects to Redis when it is enabled; otherwise it
// returns nil and the service runs on the in-process cache alone.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCacheService assembles the cache tiers: always an in-process
// LRU, layered over Redis when Redis is available.
func ProvideCacheService(cfg *config.Config, rc *cache.RedisCache) cache.Service {
	cache.ConfigureTTLs(cfg.Cache.TTLShort, cfg.Cache.TTLMedium)
	local := cache.NewMemoryCache(cache.WithMaxSize(cfg.Cache.MemorySize))
	if rc == nil {
		return local
	}
	return cache.NewLayeredCache(local, rc)
}

// ProvideKafkaProducer creates the Kafka producer, or nil when Kafka is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher wraps the producer as a run-event publisher, falling
// back to a no-op when Kafka is disabled.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return internalrepo.NopPublisher{}
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.RunTopic)
}

// ProvideMetrics creates the Prometheus recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideBarStore creates the pooled bar store.
func ProvideBarStore(chClient *pkgch.Client, l *applogger.Logger) *internalrepo.CHBarStore {
	return internalrepo.NewCHBarStore(chClient, l)
}

// ProvideFeatureStore creates the pooled feature store.
func ProvideFeatureStore(chClient *pkgch.Client, l *applogger.Logger) *internalrepo.CHFeatureStore {
	return internalrepo.NewCHFeatureStore(chClient, l)
}

// ProvideStoreLeaser creates the per-worker lease source.
func ProvideStoreLeaser(chClient *pkgch.Client, l *applogger.Logger) repository.LeasedStore {
	return internalrepo.NewCHStoreLeaser(chClient, l)
}

// ProvideSymbolWorker creates the isolated per-symbol worker.
func ProvideSymbolWorker(
	leaser repository.LeasedStore,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.SymbolWorker {
	return usecase.NewSymbolWorker(leaser, m, l, cfg.Pipeline.WorkerTimeout, features.DefaultParams())
}

// ProvideOrchestrator creates the batch orchestrator from pipeline config.
func ProvideOrchestrator(
	worker *usecase.SymbolWorker,
	cacheSvc cache.Service,
	pub repository.Publisher,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.Orchestrator {
	p := features.DefaultParams()
	// The tail must exclude rows whose indicators would be distorted by the
	// lookback edge; the longest window is the SMA long leg.
	tail := cfg.Pipeline.Lookback - p.SMALong
	if tail < 1 {
		tail = 1
	}
	return usecase.NewOrchestrator(worker, cacheSvc, pub, m, l, usecase.OrchestratorConfig{
		Symbols:          cfg.Pipeline.Symbols,
		GroupSize:        cfg.Pipeline.GroupSize,
		SymbolDelay:      cfg.Pipeline.SymbolDelay,
		GroupDelay:       cfg.Pipeline.GroupDelay,
		Lookback:         cfg.Pipeline.Lookback,
		BackfillLookback: cfg.Pipeline.BackfillDays * barsPerTradingDay,
		Tail:             tail,
	})
}

// ProvideIndicatorQuery creates the cached read path.
func ProvideIndicatorQuery(
	featureStore *internalrepo.CHFeatureStore,
	barStore *internalrepo.CHBarStore,
	cacheSvc cache.Service,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.IndicatorQuery {
	return usecase.NewIndicatorQuery(featureStore, barStore, cacheSvc, m, l)
}

// ProvideFeed creates the WebSocket bar feed, or nil when disabled.
func ProvideFeed(cfg *config.Config, l *applogger.Logger) *feed.Client {
	if !cfg.Feed.Enabled {
		return nil
	}
	return feed.New(
		cfg.Feed.APIKey,
		cfg.Feed.WebSocketURL,
		cfg.Pipeline.Symbols,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
		l,
	)
}

// ProvideBarCollector creates the feed-to-store collector, or nil when
// the feed is disabled.
func ProvideBarCollector(
	stream *feed.Client,
	barStore *internalrepo.CHBarStore,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.BarCollector {
	if stream == nil {
		return nil
	}
	return usecase.NewBarCollector(stream, barStore, m, l, 500, 2*time.Second)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	chClient *pkgch.Client,
	rc *cache.RedisCache,
	cacheSvc cache.Service,
	producer *pkgkafka.Producer,
	pub repository.Publisher,
	orch *usecase.Orchestrator,
	query *usecase.IndicatorQuery,
	stream *feed.Client,
	collector *usecase.BarCollector,
) *server.App {
	return server.New(server.Deps{
		Config:       cfg,
		Logger:       l,
		ClickHouse:   chClient,
		Redis:        rc,
		Cache:        cacheSvc,
		Producer:     producer,
		Publisher:    pub,
		Orchestrator: orch,
		Query:        query,
		Feed:         stream,
		Collector:    collector,
	})
}

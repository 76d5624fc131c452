//go:build wireinject
// +build wireinject

package di

import (
	"ChartPulse/pkg/config"
	"ChartPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideCacheService,
		ProvideKafkaProducer,
		ProvidePublisher,

		// Repositories
		ProvideBarStore,
		ProvideFeatureStore,
		ProvideStoreLeaser,

		// Use cases
		ProvideSymbolWorker,
		ProvideOrchestrator,
		ProvideIndicatorQuery,

		// Feed ingestion
		ProvideFeed,
		ProvideBarCollector,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

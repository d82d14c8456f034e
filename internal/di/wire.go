//go:build wireinject
// +build wireinject

package di

import (
	"DipWatch/pkg/config"
	"DipWatch/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Market data source
		ProvideMarketFeed,
		ProvideFeedManager,
		ProvideSnapshotSource,

		// Core engine
		ProvideTimeframes,
		ProvideCandleAggregator,
		ProvideTechnicalEngine,
		ProvideTTLCache,

		// Archiving
		ProvideTickArchive,
		ProvideArchivePipeline,

		// Use cases
		ProvideTickCollector,
		ProvideKafkaTicksHandler,
		ProvideSignalPublisher,
		ProvideSignalBroadcaster,

		// HTTP surface
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

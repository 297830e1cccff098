//go:build wireinject
// +build wireinject

package di

import (
	"tradeflow/internal/app"
	"tradeflow/pkg/config"

	"github.com/google/wire"
)

// InitializeProcessor wires up the signal-processing service.
// Wire generates the implementation of this function.
func InitializeProcessor(cfg *config.Config) (*app.Processor, error) {
	wire.Build(
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,
		ProvideFatalChan,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCheckpointStore,

		// Processing pipeline
		ProvideDecisionEngine,
		ProvideOrchestrator,

		// Diagnostics surface
		ProvideProcessorHTTPServer,

		ProvideProcessor,
	)
	return &app.Processor{}, nil
}

// InitializeOrderManager wires up the order manager service.
func InitializeOrderManager(cfg *config.Config) (*app.OrderManager, error) {
	wire.Build(
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideDB,
		ProvideOrderRepository,

		// Order construction
		ProvidePricingReference,
		ProvideOrderConstructor,
		ProvideOrderService,

		// Diagnostics surface
		ProvideOrderHTTPServer,

		ProvideOrderManager,
	)
	return &app.OrderManager{}, nil
}

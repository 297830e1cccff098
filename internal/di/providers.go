// Package di wires the processes together with google/wire.
package di

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"tradeflow/internal/app"
	"tradeflow/internal/checkpoint"
	"tradeflow/internal/decision"
	"tradeflow/internal/handler/api"
	"tradeflow/internal/ordermanager"
	"tradeflow/internal/pricing"
	"tradeflow/internal/repository"
	"tradeflow/internal/stream"
	"tradeflow/pkg/config"
	xhttp "tradeflow/pkg/http"
	pkgkafka "tradeflow/pkg/kafka"
	"tradeflow/pkg/logger"
	"tradeflow/pkg/metrics"
	"tradeflow/pkg/postgres"
)

// ProvideLogger builds the process logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideRegistry creates a per-process Prometheus registry. Using an
// explicit registry keeps each binary's scrape surface to its own metrics.
func ProvideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// ProvideMetrics creates the domain metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) *metrics.Recorder {
	return metrics.New(reg)
}

// ProvideFatalChan creates the channel fatal component errors report on.
func ProvideFatalChan() app.FatalChan {
	return app.NewFatalChan()
}

// ProvideKafkaProducer creates the decisions producer, hash-partitioned by
// key so one symbol's decisions stay ordered.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithProducerMetrics(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the signal-topics consumer. A handler panic
// surfaces on the fatal channel and takes the process down.
func ProvideKafkaConsumer(cfg *config.Config, reg *prometheus.Registry, fatal app.FatalChan) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerMetrics(reg),
		pkgkafka.WithConsumerOnFatal(func(err error) {
			select {
			case fatal <- err:
			default:
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideCheckpointStore connects to the Redis checkpoint store. Checkpoints
// outlive the window they describe by one width so open windows never expire
// mid-flight.
func ProvideCheckpointStore(cfg *config.Config) (checkpoint.Store, error) {
	store, err := checkpoint.NewRedisStore(
		checkpoint.WithRedisAddr(cfg.Checkpoint.Addr),
		checkpoint.WithRedisAuth(cfg.Checkpoint.Password, cfg.Checkpoint.DB),
		checkpoint.WithRedisPrefix(cfg.Checkpoint.Prefix),
		checkpoint.WithRedisTTL(2*cfg.Window.Size),
	)
	if err != nil {
		return nil, fmt.Errorf("checkpoint store: %w", err)
	}
	return store, nil
}

// ProvideDecisionEngine creates the scoring engine.
func ProvideDecisionEngine(log *logger.Logger) *decision.Engine {
	return decision.NewEngine(log)
}

// ProvideOrchestrator creates the windowed processor.
func ProvideOrchestrator(
	engine *decision.Engine,
	ckpt checkpoint.Store,
	producer *pkgkafka.Producer,
	cfg *config.Config,
	log *logger.Logger,
	rec *metrics.Recorder,
) *stream.Orchestrator {
	return stream.NewOrchestrator(engine, ckpt, producer, cfg.Kafka.Topics.Decisions, cfg.Window.Size, log, rec)
}

// ProvideProcessorHTTPServer exposes liveness and metrics for the processor.
func ProvideProcessorHTTPServer(cfg *config.Config, log *logger.Logger, reg *prometheus.Registry) *xhttp.Server {
	return xhttp.NewServer(api.NewHealthHandler(), log,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithGatherer(reg),
	)
}

// ProvideProcessor assembles the processor application.
func ProvideProcessor(
	cfg *config.Config,
	log *logger.Logger,
	consumer *pkgkafka.Consumer,
	producer *pkgkafka.Producer,
	orch *stream.Orchestrator,
	ckpt checkpoint.Store,
	httpServer *xhttp.Server,
	fatal app.FatalChan,
) *app.Processor {
	return app.NewProcessor(cfg, log, consumer, producer, orch, ckpt, httpServer, fatal)
}

// ProvideDB opens the order database connection pool.
func ProvideDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := postgres.NewClient(
		postgres.WithAddr(cfg.Postgres.Host, cfg.Postgres.Port),
		postgres.WithAuth(cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database),
		postgres.WithSSLMode(cfg.Postgres.SSLMode),
		postgres.WithPool(cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns, cfg.Postgres.ConnMaxLifetime),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return db, nil
}

// ProvideOrderRepository creates the outbox-backed order repository.
func ProvideOrderRepository(db *gorm.DB) *repository.OrderRepository {
	return repository.NewOrderRepository(db)
}

// ProvidePricingReference creates the reference price table.
func ProvidePricingReference(cfg *config.Config) *pricing.Reference {
	return pricing.NewReference(cfg.Order.Prices, cfg.Order.DefaultPrice)
}

// ProvideOrderConstructor creates the gating and sizing rules.
func ProvideOrderConstructor(prices *pricing.Reference, cfg *config.Config) *ordermanager.Constructor {
	return ordermanager.NewConstructor(prices, cfg.Order.ConfidenceThreshold, cfg.Order.BaseQuantity, cfg.Order.MaxQuantity)
}

// ProvideOrderService creates the decision consumer loop.
func ProvideOrderService(
	cfg *config.Config,
	ctor *ordermanager.Constructor,
	repo *repository.OrderRepository,
	log *logger.Logger,
	rec *metrics.Recorder,
) *ordermanager.Service {
	return ordermanager.NewService(ordermanager.ServiceConfig{
		Brokers:     cfg.Kafka.Brokers,
		Topic:       cfg.Kafka.Topics.Decisions,
		GroupID:     cfg.Order.GroupID,
		BatchSize:   cfg.Order.BatchSize,
		PollTimeout: cfg.Order.PollTimeout,
	}, ctor, repo, log, rec)
}

// ProvideOrderHTTPServer exposes order diagnostics plus liveness/metrics.
func ProvideOrderHTTPServer(cfg *config.Config, log *logger.Logger, repo *repository.OrderRepository, reg *prometheus.Registry) *xhttp.Server {
	return xhttp.NewServer(api.NewOrdersHandler(log, repo), log,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithGatherer(reg),
	)
}

// ProvideOrderManager assembles the order manager application.
func ProvideOrderManager(
	cfg *config.Config,
	log *logger.Logger,
	svc *ordermanager.Service,
	repo *repository.OrderRepository,
	db *gorm.DB,
	httpServer *xhttp.Server,
) *app.OrderManager {
	return app.NewOrderManager(cfg, log, svc, repo, db, httpServer)
}

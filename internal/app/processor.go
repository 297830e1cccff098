// Package app encapsulates process lifecycles: startup ordering, signal
// handling, and bounded graceful shutdown.
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradeflow/internal/checkpoint"
	"tradeflow/internal/stream"
	"tradeflow/pkg/config"
	xhttp "tradeflow/pkg/http"
	pkgkafka "tradeflow/pkg/kafka"
	"tradeflow/pkg/logger"
)

const shutdownGrace = 15 * time.Second

// FatalChan carries unrecoverable errors from background components. A
// value received here triggers a full shutdown; continuing with possibly
// corrupt window state is worse than stopping.
type FatalChan chan error

// NewFatalChan sizes the channel so a reporting component never blocks.
func NewFatalChan() FatalChan { return make(chan error, 4) }

// Processor is the signal-processing service: three signal topics in,
// decisions out.
type Processor struct {
	cfg        *config.Config
	log        *logger.Logger
	consumer   *pkgkafka.Consumer
	producer   *pkgkafka.Producer
	orch       *stream.Orchestrator
	ckpt       checkpoint.Store
	httpServer *xhttp.Server
	fatal      FatalChan
}

// NewProcessor assembles the service from its already-constructed parts.
func NewProcessor(
	cfg *config.Config,
	log *logger.Logger,
	consumer *pkgkafka.Consumer,
	producer *pkgkafka.Producer,
	orch *stream.Orchestrator,
	ckpt checkpoint.Store,
	httpServer *xhttp.Server,
	fatal FatalChan,
) *Processor {
	return &Processor{
		cfg:        cfg,
		log:        log.With("app"),
		consumer:   consumer,
		producer:   producer,
		orch:       orch,
		ckpt:       ckpt,
		httpServer: httpServer,
		fatal:      fatal,
	}
}

// Run starts consumption and blocks until an OS signal or a fatal
// component error arrives, then shuts down in reverse start order.
func (a *Processor) Run() error {
	for _, h := range a.orch.Handlers(a.cfg.SignalTopics()) {
		a.consumer.RegisterHandler(h)
	}

	if err := a.httpServer.Start(); err != nil {
		return err
	}
	if err := a.consumer.Start(); err != nil {
		return err
	}
	a.log.Info("processor started",
		logger.Strings("brokers", a.cfg.Kafka.Brokers),
		logger.Duration("window", a.cfg.Window.Size),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		a.log.Info("shutdown signal received", logger.String("signal", sig.String()))
	case err := <-a.fatal:
		a.log.Error("fatal component error, shutting down", logger.Error(err))
	}

	return a.shutdown()
}

func (a *Processor) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	// stop intake first so no new state mutations race the close below
	if err := a.consumer.Stop(ctx); err != nil {
		a.log.Error("consumer stop failed", logger.Error(err))
	}
	if err := a.producer.Close(); err != nil {
		a.log.Error("producer close failed", logger.Error(err))
	}
	if err := a.ckpt.Close(); err != nil {
		a.log.Error("checkpoint store close failed", logger.Error(err))
	}
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http stop failed", logger.Error(err))
	}

	a.log.Info("processor stopped")
	return nil
}

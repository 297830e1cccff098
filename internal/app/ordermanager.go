package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"gorm.io/gorm"

	"tradeflow/internal/ordermanager"
	"tradeflow/internal/repository"
	"tradeflow/pkg/config"
	xhttp "tradeflow/pkg/http"
	"tradeflow/pkg/logger"
)

// OrderManager is the decision-consuming service that persists orders
// through the transactional outbox.
type OrderManager struct {
	cfg        *config.Config
	log        *logger.Logger
	svc        *ordermanager.Service
	repo       *repository.OrderRepository
	db         *gorm.DB
	httpServer *xhttp.Server
}

// NewOrderManager assembles the service.
func NewOrderManager(
	cfg *config.Config,
	log *logger.Logger,
	svc *ordermanager.Service,
	repo *repository.OrderRepository,
	db *gorm.DB,
	httpServer *xhttp.Server,
) *OrderManager {
	return &OrderManager{
		cfg:        cfg,
		log:        log.With("app"),
		svc:        svc,
		repo:       repo,
		db:         db,
		httpServer: httpServer,
	}
}

// Run initializes the schema, starts the consumer loop, and blocks until
// an OS signal arrives.
func (a *OrderManager) Run() error {
	initCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	err := a.repo.InitSchema(initCtx)
	cancel()
	if err != nil {
		return err
	}

	if err := a.httpServer.Start(); err != nil {
		return err
	}

	runCtx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.svc.Run(runCtx) }()

	a.log.Info("order manager started",
		logger.Strings("brokers", a.cfg.Kafka.Brokers),
		logger.Float64("confidence_threshold", a.cfg.Order.ConfidenceThreshold),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	drained := false
	select {
	case sig := <-quit:
		a.log.Info("shutdown signal received", logger.String("signal", sig.String()))
	case err := <-done:
		drained = true
		if err != nil {
			a.log.Error("consumer loop failed", logger.Error(err))
		}
	}

	stop()
	return a.shutdown(done, drained)
}

func (a *OrderManager) shutdown(done chan error, drained bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	// wait for the batch in flight; its transaction either commits or
	// rolls back before the connections are closed
	if !drained {
		select {
		case <-done:
		case <-ctx.Done():
			a.log.Warn("consumer loop did not drain in time")
		}
	}

	if err := a.svc.Close(); err != nil {
		a.log.Error("reader close failed", logger.Error(err))
	}
	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.log.Error("database close failed", logger.Error(err))
		}
	}
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http stop failed", logger.Error(err))
	}

	a.log.Info("order manager stopped")
	return nil
}

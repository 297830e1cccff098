package ordermanager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"tradeflow/internal/domain/models"
	"tradeflow/pkg/logger"
	"tradeflow/pkg/metrics"
)

const (
	defaultBatchSize   = 100
	defaultPollTimeout = 1 * time.Second
	fetchBackoff       = 5 * time.Second
	reportInterval     = 30 * time.Second
)

// OrderStore persists an order together with its outbox event.
type OrderStore interface {
	SaveWithOutbox(ctx context.Context, order models.Order, event models.OutboxEvent) error
}

// ServiceConfig configures the decision consumer loop.
type ServiceConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	BatchSize   int
	PollTimeout time.Duration
}

// Service is a single consumer loop that pulls decisions in bounded batches,
// builds orders, and persists them through the outbox. Offsets advance only
// after the whole batch is processed, so a crash mid-batch replays the batch;
// persistence failures are logged and the record is still consumed.
type Service struct {
	reader  *kafka.Reader
	ctor    *Constructor
	store   OrderStore
	log     *logger.Logger
	metrics *metrics.Recorder

	batchSize   int
	pollTimeout time.Duration

	created int64
	skipped int64
	failed  int64
}

// NewService wires the consumer loop.
func NewService(cfg ServiceConfig, ctor *Constructor, store OrderStore, log *logger.Logger, rec *metrics.Recorder) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commits only
	})
	return &Service{
		reader:      reader,
		ctor:        ctor,
		store:       store,
		log:         log.With("ordermanager"),
		metrics:     rec,
		batchSize:   cfg.BatchSize,
		pollTimeout: cfg.PollTimeout,
	}
}

// Run blocks until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	s.log.Info("order manager started",
		logger.String("topic", s.reader.Config().Topic),
		logger.Int("batch_size", s.batchSize),
	)

	go s.reportLoop(ctx)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		batch, err := s.fetchBatch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			s.log.Error("fetch batch failed, backing off", logger.Error(err))
			s.metrics.RecordError("order_fetch")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(fetchBackoff):
			}
			continue
		}
		if len(batch) == 0 {
			continue
		}

		start := time.Now()
		for _, msg := range batch {
			s.process(ctx, msg)
		}
		s.metrics.RecordLatency("order_batch", time.Since(start).Seconds())

		if err := s.reader.CommitMessages(ctx, batch...); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			s.log.Error("commit failed", logger.Error(err))
			s.metrics.RecordError("order_commit")
		}
	}
}

// fetchBatch pulls up to batchSize messages, returning early once the poll
// timeout elapses. An empty batch with no hard error is a normal idle poll.
func (s *Service) fetchBatch(ctx context.Context) ([]kafka.Message, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.pollTimeout)
	defer cancel()

	batch := make([]kafka.Message, 0, s.batchSize)
	for len(batch) < s.batchSize {
		msg, err := s.reader.FetchMessage(fetchCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return batch, nil
			}
			return batch, err
		}
		batch = append(batch, msg)
	}
	return batch, nil
}

func (s *Service) process(ctx context.Context, msg kafka.Message) {
	var d models.TradingDecision
	if err := json.Unmarshal(msg.Value, &d); err != nil {
		s.log.Warn("dropping malformed decision",
			logger.Int64("offset", msg.Offset),
			logger.Error(err),
		)
		s.metrics.RecordError("decision_decode")
		return
	}

	order, event, err := s.ctor.Build(d)
	if err != nil {
		s.log.Error("order construction failed",
			logger.String("symbol", d.Symbol),
			logger.Error(err),
		)
		s.metrics.RecordError("order_build")
		atomic.AddInt64(&s.failed, 1)
		return
	}
	if order == nil {
		atomic.AddInt64(&s.skipped, 1)
		s.metrics.RecordOrder("skipped")
		return
	}

	if err := s.store.SaveWithOutbox(ctx, *order, *event); err != nil {
		// record stays consumed; there is no automatic retry here, a
		// failed persist loses the order
		s.log.Error("order persist failed",
			logger.String("client_order_id", order.ClientOrderID),
			logger.Error(err),
		)
		s.metrics.RecordError("order_persist")
		s.metrics.RecordOrder("failed")
		atomic.AddInt64(&s.failed, 1)
		return
	}

	atomic.AddInt64(&s.created, 1)
	s.metrics.RecordOrder("created")
	s.log.Info("order created",
		logger.String("client_order_id", order.ClientOrderID),
		logger.String("symbol", order.Symbol),
		logger.String("side", string(order.Side)),
		logger.Float64("qty", order.Qty),
		logger.Float64("price", order.Price),
	)
}

func (s *Service) reportLoop(ctx context.Context) {
	ticker := time.NewTicker(reportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.log.Info("order manager stats",
				logger.Int64("created", atomic.LoadInt64(&s.created)),
				logger.Int64("skipped", atomic.LoadInt64(&s.skipped)),
				logger.Int64("failed", atomic.LoadInt64(&s.failed)),
			)
		}
	}
}

// Close shuts the underlying reader down.
func (s *Service) Close() error {
	if err := s.reader.Close(); err != nil {
		return fmt.Errorf("close decision reader: %w", err)
	}
	return nil
}

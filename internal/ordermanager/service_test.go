package ordermanager

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/segmentio/kafka-go"

	"tradeflow/internal/domain/models"
	"tradeflow/internal/pricing"
	"tradeflow/pkg/logger"
	"tradeflow/pkg/metrics"
)

type fakeStore struct {
	saved []models.Order
	err   error
}

func (f *fakeStore) SaveWithOutbox(_ context.Context, order models.Order, _ models.OutboxEvent) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, order)
	return nil
}

func newTestService(store OrderStore) *Service {
	prices := pricing.NewReference(map[string]float64{"BTCUSDT": 65000}, 100)
	ctor := NewConstructor(prices, 0.65, 1.0, 10.0)
	return NewService(ServiceConfig{
		Brokers: []string{"localhost:9092"},
		Topic:   "trading.decisions",
		GroupID: "order-manager-test",
	}, ctor, store, logger.Nop(), metrics.NewNop())
}

func decisionMessage(t *testing.T, action models.Action, confidence float64) kafka.Message {
	t.Helper()
	d := models.TradingDecision{
		ID:         "d-1",
		Symbol:     "BTCUSDT",
		Action:     action,
		Confidence: confidence,
	}
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal decision: %v", err)
	}
	return kafka.Message{Topic: "trading.decisions", Value: b}
}

func TestProcessCreatesOrder(t *testing.T) {
	store := &fakeStore{}
	s := newTestService(store)
	defer s.Close()

	s.process(context.Background(), decisionMessage(t, models.ActionBuy, 0.9))

	if len(store.saved) != 1 {
		t.Fatalf("expected 1 saved order, got %d", len(store.saved))
	}
	if store.saved[0].Symbol != "BTCUSDT" || store.saved[0].Side != models.SideBuy {
		t.Fatalf("unexpected order %+v", store.saved[0])
	}
	if atomic.LoadInt64(&s.created) != 1 {
		t.Fatalf("created counter = %d, want 1", s.created)
	}
}

func TestProcessSkipsGatedDecisions(t *testing.T) {
	store := &fakeStore{}
	s := newTestService(store)
	defer s.Close()

	s.process(context.Background(), decisionMessage(t, models.ActionHold, 0.99))
	s.process(context.Background(), decisionMessage(t, models.ActionBuy, 0.3))

	if len(store.saved) != 0 {
		t.Fatalf("gated decisions must not persist, got %d", len(store.saved))
	}
	if atomic.LoadInt64(&s.skipped) != 2 {
		t.Fatalf("skipped counter = %d, want 2", s.skipped)
	}
}

func TestProcessDropsMalformedDecision(t *testing.T) {
	store := &fakeStore{}
	s := newTestService(store)
	defer s.Close()

	s.process(context.Background(), kafka.Message{Value: []byte("{broken")})

	if len(store.saved) != 0 {
		t.Fatalf("malformed input must not persist")
	}
}

func TestProcessPersistFailureIsConsumed(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	s := newTestService(store)
	defer s.Close()

	// no retry: the failure is counted and the record stays consumed
	s.process(context.Background(), decisionMessage(t, models.ActionBuy, 0.9))

	if atomic.LoadInt64(&s.failed) != 1 {
		t.Fatalf("failed counter = %d, want 1", s.failed)
	}
	if atomic.LoadInt64(&s.created) != 0 {
		t.Fatalf("created counter = %d, want 0", s.created)
	}
}

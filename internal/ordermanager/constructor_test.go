package ordermanager

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"tradeflow/internal/domain/models"
	"tradeflow/internal/pricing"
)

func newTestConstructor() *Constructor {
	prices := pricing.NewReference(map[string]float64{"BTCUSDT": 65000.0}, 100.0)
	c := NewConstructor(prices, 0.65, 1.0, 10.0)
	c.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func decision(action models.Action, confidence float64) models.TradingDecision {
	return models.TradingDecision{
		ID:         "d-1",
		Symbol:     "BTCUSDT",
		Action:     action,
		Confidence: confidence,
		Signals:    make([]models.Signal, 4),
	}
}

func TestBuildFiltersHold(t *testing.T) {
	c := newTestConstructor()
	order, event, err := c.Build(decision(models.ActionHold, 0.99))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != nil || event != nil {
		t.Fatalf("HOLD must not produce an order")
	}
}

func TestBuildBelowThreshold(t *testing.T) {
	c := newTestConstructor()
	order, _, err := c.Build(decision(models.ActionBuy, 0.6))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != nil {
		t.Fatalf("confidence 0.6 must be gated at threshold 0.65")
	}
}

func TestBuildStrongBoostPassesGate(t *testing.T) {
	c := newTestConstructor()
	// 0.6 alone fails, but 0.6*1.2 = 0.72 clears the gate for STRONG_BUY
	order, event, err := c.Build(decision(models.ActionStrongBuy, 0.6))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order == nil {
		t.Fatalf("boosted STRONG_BUY should pass the gate")
	}
	if event == nil {
		t.Fatalf("expected an outbox event")
	}
	if order.Side != models.SideBuy {
		t.Fatalf("side = %v, want BUY", order.Side)
	}
}

func TestBuildQuantityScalesOnRawConfidence(t *testing.T) {
	c := newTestConstructor()

	// at the threshold: base quantity
	order, _, err := c.Build(decision(models.ActionBuy, 0.65))
	if err != nil || order == nil {
		t.Fatalf("expected order, err=%v", err)
	}
	if order.Qty != 1.0 {
		t.Fatalf("qty at threshold = %v, want 1.0", order.Qty)
	}

	// full confidence: max quantity
	order, _, err = c.Build(decision(models.ActionSell, 1.0))
	if err != nil || order == nil {
		t.Fatalf("expected order, err=%v", err)
	}
	if order.Qty != 10.0 {
		t.Fatalf("qty at full confidence = %v, want 10.0", order.Qty)
	}

	// STRONG boost gates but does not inflate sizing: raw 0.65 sizes at base
	order, _, err = c.Build(decision(models.ActionStrongSell, 0.65))
	if err != nil || order == nil {
		t.Fatalf("expected order, err=%v", err)
	}
	if order.Qty != 1.0 {
		t.Fatalf("boosted qty = %v, want base 1.0", order.Qty)
	}
}

func TestBuildQuantityRounding(t *testing.T) {
	c := newTestConstructor()
	order, _, err := c.Build(decision(models.ActionBuy, 0.7))
	if err != nil || order == nil {
		t.Fatalf("expected order, err=%v", err)
	}
	// 1 + 9*(0.05/0.35) = 2.2857... rounds to 2.29
	if math.Abs(order.Qty-2.29) > 1e-9 {
		t.Fatalf("qty = %v, want 2.29", order.Qty)
	}
}

func TestBuildPriceLookupAndFallback(t *testing.T) {
	c := newTestConstructor()

	order, _, err := c.Build(decision(models.ActionBuy, 0.9))
	if err != nil || order == nil {
		t.Fatalf("expected order, err=%v", err)
	}
	if order.Price != 65000.0 {
		t.Fatalf("price = %v, want 65000", order.Price)
	}

	d := decision(models.ActionBuy, 0.9)
	d.Symbol = "UNKNOWN"
	order, _, err = c.Build(d)
	if err != nil || order == nil {
		t.Fatalf("expected order, err=%v", err)
	}
	if order.Price != 100.0 {
		t.Fatalf("fallback price = %v, want 100", order.Price)
	}
}

func TestBuildSideMapping(t *testing.T) {
	c := newTestConstructor()
	cases := map[models.Action]models.Side{
		models.ActionBuy:        models.SideBuy,
		models.ActionStrongBuy:  models.SideBuy,
		models.ActionSell:       models.SideSell,
		models.ActionStrongSell: models.SideSell,
	}
	for action, want := range cases {
		order, _, err := c.Build(decision(action, 0.9))
		if err != nil || order == nil {
			t.Fatalf("expected order for %v, err=%v", action, err)
		}
		if order.Side != want {
			t.Fatalf("side for %v = %v, want %v", action, order.Side, want)
		}
	}
}

func TestBuildOrderIdentifiers(t *testing.T) {
	c := newTestConstructor()
	order, event, err := c.Build(decision(models.ActionBuy, 0.9))
	if err != nil || order == nil {
		t.Fatalf("expected order, err=%v", err)
	}

	if !strings.HasPrefix(order.ClientOrderID, "ORD-") {
		t.Fatalf("client order id %q missing prefix", order.ClientOrderID)
	}
	parts := strings.Split(order.ClientOrderID, "-")
	if len(parts) != 3 || parts[2] != order.ID.String()[:8] {
		t.Fatalf("client order id %q not derived from order id %s", order.ClientOrderID, order.ID)
	}
	if order.Status != models.OrderPending {
		t.Fatalf("status = %v, want PENDING", order.Status)
	}
	if event.AggregateID != order.ID {
		t.Fatalf("event aggregate id %v != order id %v", event.AggregateID, order.ID)
	}
	if event.AggregateType != models.AggregateOrder || event.Type != models.EventOrderCreated {
		t.Fatalf("unexpected event type %s/%s", event.AggregateType, event.Type)
	}
}

func TestBuildPayloadFields(t *testing.T) {
	c := newTestConstructor()
	_, event, err := c.Build(decision(models.ActionBuy, 0.9))
	if err != nil || event == nil {
		t.Fatalf("expected event, err=%v", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(event.Payload), &payload); err != nil {
		t.Fatalf("payload not valid JSON: %v", err)
	}
	for _, key := range []string{"orderId", "clientOrderId", "symbol", "side", "qty", "price", "status", "confidence", "signals"} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("payload missing %q", key)
		}
	}
	if payload["confidence"].(float64) != 0.9 {
		t.Fatalf("payload confidence = %v, want 0.9", payload["confidence"])
	}
	if payload["signals"].(float64) != 4 {
		t.Fatalf("payload signals = %v, want 4", payload["signals"])
	}
}

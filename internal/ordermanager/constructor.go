// Package ordermanager turns published trading decisions into durable,
// PENDING orders via the transactional outbox.
package ordermanager

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tradeflow/internal/domain/models"
	"tradeflow/internal/pricing"
)

const strongConfidenceBoost = 1.2

// Constructor applies the confidence gate and sizing rules to a decision.
type Constructor struct {
	prices    *pricing.Reference
	threshold float64
	baseQty   float64
	maxQty    float64
	now       func() time.Time
}

// NewConstructor builds an order constructor. threshold is the minimum
// effective confidence; baseQty/maxQty bound the sized quantity.
func NewConstructor(prices *pricing.Reference, threshold, baseQty, maxQty float64) *Constructor {
	if threshold <= 0 || threshold >= 1 {
		threshold = 0.65
	}
	return &Constructor{
		prices:    prices,
		threshold: threshold,
		baseQty:   baseQty,
		maxQty:    maxQty,
		now:       time.Now,
	}
}

// Build returns the order and outbox event for a decision, or (nil, nil, nil)
// when the decision is filtered out. HOLD never produces an order. STRONG
// actions get a confidence boost for gating only; quantity sizing always uses
// the decision's original confidence.
func (c *Constructor) Build(d models.TradingDecision) (*models.Order, *models.OutboxEvent, error) {
	if !d.Action.IsActionable() {
		return nil, nil, nil
	}

	effective := d.Confidence
	if d.Action.IsStrong() {
		effective *= strongConfidenceBoost
	}
	if effective < c.threshold {
		return nil, nil, nil
	}

	side, ok := d.Action.OrderSide()
	if !ok {
		return nil, nil, nil
	}

	orderID := uuid.New()
	now := c.now().UTC()
	price, _ := c.prices.Price(d.Symbol)

	order := models.Order{
		ID:            orderID,
		ClientOrderID: fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), orderID.String()[:8]),
		Symbol:        d.Symbol,
		Side:          side,
		Qty:           c.quantity(d.Confidence),
		Price:         price,
		Status:        models.OrderPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	payload, err := json.Marshal(map[string]interface{}{
		"orderId":       order.ID.String(),
		"clientOrderId": order.ClientOrderID,
		"symbol":        order.Symbol,
		"side":          string(order.Side),
		"qty":           order.Qty,
		"price":         order.Price,
		"status":        string(order.Status),
		"confidence":    d.Confidence,
		"signals":       len(d.Signals),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal order payload: %w", err)
	}

	event := models.NewOrderCreatedEvent(order.ID, string(payload))
	return &order, &event, nil
}

// quantity maps confidence linearly from the threshold up to 1.0 onto
// [baseQty, maxQty], rounded to 2 decimal places.
func (c *Constructor) quantity(confidence float64) float64 {
	normalized := (confidence - c.threshold) / (1.0 - c.threshold)
	if normalized < 0 {
		normalized = 0
	} else if normalized > 1 {
		normalized = 1
	}
	qty := c.baseQty + (c.maxQty-c.baseQty)*normalized
	return float64(int(qty*100+0.5)) / 100.0
}

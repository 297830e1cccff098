package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of an order. Only PENDING is assigned
// here; later transitions belong to the execution systems downstream.
type OrderStatus string

const (
	OrderPending         OrderStatus = "PENDING"
	OrderFilled          OrderStatus = "FILLED"
	OrderPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderCanceled        OrderStatus = "CANCELED"
	OrderRejected        OrderStatus = "REJECTED"
)

// Order is a durable order record.
type Order struct {
	ID            uuid.UUID   `json:"id"`
	ClientOrderID string      `json:"client_order_id"`
	Symbol        string      `json:"symbol"`
	Side          Side        `json:"side"`
	Qty           float64     `json:"qty"`
	Price         float64     `json:"price"`
	Status        OrderStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// OutboxEvent is the domain event persisted in the same transaction as the
// state change it describes. A separate relay tails the outbox table and
// republishes rows; this process never touches the broker for events.
type OutboxEvent struct {
	EventID       uuid.UUID `json:"event_id"`
	AggregateType string    `json:"aggregate_type"`
	AggregateID   uuid.UUID `json:"aggregate_id"`
	Type          string    `json:"type"`
	Payload       string    `json:"payload"` // serialized JSON, stored as jsonb
	OccurredAt    time.Time `json:"occurred_at"`
}

const (
	AggregateOrder    = "ORDER"
	EventOrderCreated = "ORDER_CREATED"
)

// NewOrderCreatedEvent builds the outbox event describing a freshly
// constructed order.
func NewOrderCreatedEvent(orderID uuid.UUID, payload string) OutboxEvent {
	return OutboxEvent{
		EventID:       uuid.New(),
		AggregateType: AggregateOrder,
		AggregateID:   orderID,
		Type:          EventOrderCreated,
		Payload:       payload,
		OccurredAt:    time.Now().UTC(),
	}
}

// Package repository persists orders and their outbox events.
package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"tradeflow/internal/domain/models"
)

const (
	createOrdersTable = `CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		client_order_id VARCHAR(64) NOT NULL UNIQUE,
		symbol VARCHAR(32) NOT NULL,
		side VARCHAR(8) NOT NULL,
		qty DOUBLE PRECISION NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		status VARCHAR(32) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`

	createOutboxTable = `CREATE TABLE IF NOT EXISTS outbox (
		event_id UUID PRIMARY KEY,
		aggregate_type VARCHAR(32) NOT NULL,
		aggregate_id UUID NOT NULL,
		type VARCHAR(64) NOT NULL,
		payload JSONB NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL
	)`

	insertOrder = `INSERT INTO orders
		(id, client_order_id, symbol, side, qty, price, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertOutboxEvent = `INSERT INTO outbox
		(event_id, aggregate_type, aggregate_id, type, payload, occurred_at)
		VALUES (?, ?, ?, ?, ?::jsonb, ?)`
)

// OrderRepository writes orders and outbox events through one connection.
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository wraps an open connection.
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// InitSchema creates the orders and outbox tables when absent.
func (r *OrderRepository) InitSchema(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Exec(createOrdersTable).Error; err != nil {
		return fmt.Errorf("create orders table: %w", err)
	}
	if err := r.db.WithContext(ctx).Exec(createOutboxTable).Error; err != nil {
		return fmt.Errorf("create outbox table: %w", err)
	}
	return nil
}

// SaveWithOutbox inserts the order and its outbox event in one transaction.
// Either both rows land or neither does; the outbox relay only ever sees
// events whose order row committed.
func (r *OrderRepository) SaveWithOutbox(ctx context.Context, order models.Order, event models.OutboxEvent) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(insertOrder,
			order.ID, order.ClientOrderID, order.Symbol, string(order.Side),
			order.Qty, order.Price, string(order.Status),
			order.CreatedAt, order.UpdatedAt,
		).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		if err := tx.Exec(insertOutboxEvent,
			event.EventID, event.AggregateType, event.AggregateID,
			event.Type, event.Payload, event.OccurredAt,
		).Error; err != nil {
			return fmt.Errorf("insert outbox event: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save order %s: %w", order.ClientOrderID, err)
	}
	return nil
}

// Recent returns the newest orders, most recent first.
func (r *OrderRepository) Recent(ctx context.Context, limit int) ([]models.Order, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := r.db.WithContext(ctx).Raw(
		`SELECT id, client_order_id, symbol, side, qty, price, status, created_at, updated_at
		 FROM orders ORDER BY created_at DESC LIMIT ?`, limit,
	).Rows()
	if err != nil {
		return nil, fmt.Errorf("query recent orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		var side, status string
		if err := rows.Scan(
			&o.ID, &o.ClientOrderID, &o.Symbol, &side,
			&o.Qty, &o.Price, &status, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		o.Side = models.Side(side)
		o.Status = models.OrderStatus(status)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, nil
}

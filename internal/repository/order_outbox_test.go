package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tradeflow/internal/domain/models"
)

func newMockRepo(t *testing.T) (*OrderRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("gorm open: %v", err)
	}
	return NewOrderRepository(gdb), mock
}

func testOrderAndEvent() (models.Order, models.OutboxEvent) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	order := models.Order{
		ID:            uuid.New(),
		ClientOrderID: "ORD-1748779200000-abcd1234",
		Symbol:        "BTCUSDT",
		Side:          models.SideBuy,
		Qty:           2.5,
		Price:         65000.0,
		Status:        models.OrderPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	event := models.NewOrderCreatedEvent(order.ID, `{"orderId":"x"}`)
	return order, event
}

func TestSaveWithOutboxCommitsBothInserts(t *testing.T) {
	repo, mock := newMockRepo(t)
	order, event := testOrderAndEvent()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO outbox").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.SaveWithOutbox(context.Background(), order, event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveWithOutboxRollsBackWhenEventInsertFails(t *testing.T) {
	repo, mock := newMockRepo(t)
	order, event := testOrderAndEvent()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO outbox").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.SaveWithOutbox(context.Background(), order, event)
	if err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveWithOutboxRollsBackWhenOrderInsertFails(t *testing.T) {
	repo, mock := newMockRepo(t)
	order, event := testOrderAndEvent()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := repo.SaveWithOutbox(context.Background(), order, event)
	if err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecentScansRows(t *testing.T) {
	repo, mock := newMockRepo(t)
	order, _ := testOrderAndEvent()

	rows := sqlmock.NewRows([]string{
		"id", "client_order_id", "symbol", "side", "qty", "price", "status", "created_at", "updated_at",
	}).AddRow(
		order.ID.String(), order.ClientOrderID, order.Symbol, string(order.Side),
		order.Qty, order.Price, string(order.Status), order.CreatedAt, order.UpdatedAt,
	)
	mock.ExpectQuery("SELECT (.+) FROM orders").WillReturnRows(rows)

	got, err := repo.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 order, got %d", len(got))
	}
	if got[0].ClientOrderID != order.ClientOrderID {
		t.Fatalf("client order id = %q, want %q", got[0].ClientOrderID, order.ClientOrderID)
	}
	if got[0].Side != models.SideBuy || got[0].Status != models.OrderPending {
		t.Fatalf("unexpected side/status %v/%v", got[0].Side, got[0].Status)
	}
}

func TestInitSchemaCreatesTables(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS orders").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS outbox").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.InitSchema(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

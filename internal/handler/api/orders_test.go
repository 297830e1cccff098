package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tradeflow/internal/repository"
	xlogger "tradeflow/pkg/logger"
)

func newTestHandler(t *testing.T) (*OrdersHandler, sqlmock.Sqlmock) {
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
	return NewOrdersHandler(xlogger.Nop(), repository.NewOrderRepository(gdb)), mock
}

func TestRecentReturnsOrders(t *testing.T) {
	h, mock := newTestHandler(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "client_order_id", "symbol", "side", "qty", "price", "status", "created_at", "updated_at",
	}).AddRow(
		"5f3c8a56-0000-0000-0000-000000000001", "ORD-1-5f3c8a56", "BTCUSDT", "BUY",
		2.5, 65000.0, "PENDING", now, now,
	)
	mock.ExpectQuery("SELECT (.+) FROM orders").WillReturnRows(rows)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/recent?limit=5", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Recent(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ORD-1-5f3c8a56") {
		t.Fatalf("body missing order: %s", rec.Body.String())
	}
}

func TestRecentRejectsBadLimit(t *testing.T) {
	h, _ := newTestHandler(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/recent?limit=banana", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Recent(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "positive integer") {
		t.Fatalf("expected validation message, got %s", rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Health(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

// Package api exposes the diagnostics HTTP handlers.
package api

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"tradeflow/internal/repository"
	xhttp "tradeflow/pkg/http"
	xlogger "tradeflow/pkg/logger"
)

const defaultRecentLimit = 50

// OrdersHandler serves read-only order diagnostics. The recent-orders query
// carries no consistency guarantee; it reads whatever has committed.
type OrdersHandler struct {
	logger *xlogger.Logger
	repo   *repository.OrderRepository
}

func NewOrdersHandler(logger *xlogger.Logger, repo *repository.OrderRepository) *OrdersHandler {
	return &OrdersHandler{logger: logger, repo: repo}
}

func (h *OrdersHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api/v1")
	g.GET("/orders/recent", h.Recent)
}

func (h *OrdersHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *OrdersHandler) Recent(c echo.Context) error {
	limit := defaultRecentLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return xhttp.BadRequestResponse(c, "limit must be a positive integer")
		}
		limit = n
	}

	orders, err := h.repo.Recent(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("recent orders query failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.SuccessResponse(c, orders)
}

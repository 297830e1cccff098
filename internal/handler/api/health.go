package api

import (
	"github.com/labstack/echo/v4"

	xhttp "tradeflow/pkg/http"
)

// HealthHandler is the minimal surface for processes that expose only
// liveness and metrics.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error {
		return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
	})
}

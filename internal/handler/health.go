package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/glampingbrillodeluna/reserva-bot/internal/service"
)

// HealthHandler reports dependency status for load balancers and
// monitoring. The endpoint always answers 200; degraded dependencies
// show up in the body so it stays useful exactly when things break.
type HealthHandler struct {
	Svc *service.DatabaseService
}

func NewHealthHandler(svc *service.DatabaseService) *HealthHandler {
	return &HealthHandler{Svc: svc}
}

func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Svc.Health(c.Request().Context()))
}

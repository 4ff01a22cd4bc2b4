package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler reports liveness of the database and redis.
type HealthHandler struct {
	database Pinger
	redis    Pinger
}

// NewHealthHandler creates a health handler. redis may be nil.
func NewHealthHandler(database, redis Pinger) *HealthHandler {
	return &HealthHandler{database: database, redis: redis}
}

// HealthResponse is the health check body.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// Healthz godoc
// @Summary Health check
// @Description The database is required. Redis is optional and only reported.
// @Tags ops
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /api/healthz [get]
func (h *HealthHandler) Healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	res := HealthResponse{Status: "ok", Database: "up", Redis: "disabled"}
	status := http.StatusOK

	if err := h.database.Ping(ctx); err != nil {
		res.Status = "degraded"
		res.Database = "down"
		status = http.StatusServiceUnavailable
	}
	if h.redis != nil {
		res.Redis = "up"
		if err := h.redis.Ping(ctx); err != nil {
			res.Redis = "down"
		}
	}
	return c.JSON(status, res)
}

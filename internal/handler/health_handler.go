package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"wellness-service/pkg/logger"
	"wellness-service/prometheus"
)

// HealthCheck handles the health check endpoint
func (h *Handler) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		logger.FromContext(c).Error("Health check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status":  "unhealthy",
			"service": h.service,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":  "healthy",
		"service": h.service,
	})
}

// MetricsHandler exposes Prometheus metrics
func MetricsHandler(c echo.Context) error {
	prometheus.GetPrometheusHandler().ServeHTTP(c.Response(), c.Request())
	return nil
}

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"wellness-service/pkg/logger"
	"wellness-service/pkg/ratelimit"
	"wellness-service/prometheus"
)

// RateLimit rejects a client IP with 429 once it exceeds limit requests per
// window on route. A nil limiter or a limit of zero disables it.
func RateLimit(limiter ratelimit.Limiter, route string, limit int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limiter == nil || limit <= 0 {
				return next(c)
			}

			key := route + ":ip:" + c.RealIP()
			decision := limiter.Allow(c.Request().Context(), key, limit, window)

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if !decision.Allowed {
				retry := decision.RetryAfter(time.Now())
				h.Set("Retry-After", strconv.Itoa(int(retry/time.Second)))
				logger.FromContext(c).Warn("Rate limit exceeded",
					zap.String("route", route),
					zap.String("ip", c.RealIP()),
					zap.Int("count", decision.Count))
				prometheus.RecordRateLimited(route)
				return c.JSON(http.StatusTooManyRequests, errorBody{Error: "too many requests"})
			}
			return next(c)
		}
	}
}

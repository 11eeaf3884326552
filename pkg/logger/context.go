package logger

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestIDKey is the header and context key carrying the request id
const RequestIDKey = echo.HeaderXRequestID

const loggerKey = "logger"

// RequestID returns the id of the current request, or "unknown"
func RequestID(c echo.Context) string {
	if requestID, ok := c.Get(RequestIDKey).(string); ok && requestID != "" {
		return requestID
	}
	if requestID := c.Response().Header().Get(RequestIDKey); requestID != "" {
		return requestID
	}
	if requestID := c.Request().Header.Get(RequestIDKey); requestID != "" {
		return requestID
	}
	return "unknown"
}

// FromContext retrieves the logger from echo.Context with the request ID
func FromContext(c echo.Context) *zap.Logger {
	// Try to get the logger from context first
	if logger, ok := c.Get(loggerKey).(*zap.Logger); ok {
		return logger
	}

	// Otherwise, get the global logger and add request ID
	return GetLogger().With(zap.String("request_id", RequestID(c)))
}

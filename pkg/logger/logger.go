package logger

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"wellness-service/pkg/config"
)

var log *zap.Logger

// InitLogger initializes the global logger
func InitLogger(cfg *config.Config) *zap.Logger {
	// Configure logger based on environment
	var logConfig zap.Config

	if cfg.Server.Env == "production" {
		// Production mode: structured JSON logs
		logConfig = zap.NewProductionConfig()
	} else {
		// Development mode: colorful, human-readable logs
		logConfig = zap.NewDevelopmentConfig()
		logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	// Set log level from config
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		// Default to info level if invalid
		level = zapcore.InfoLevel
	}
	logConfig.Level.SetLevel(level)

	// Build the logger
	var err error
	log, err = logConfig.Build()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	log.Info("Logger initialized", zap.String("level", level.String()))
	return log
}

// SetLogger replaces the global logger, mainly for tests
func SetLogger(l *zap.Logger) {
	log = l
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if log == nil {
		// Fallback if not initialized
		var err error
		log, err = zap.NewProduction()
		if err != nil {
			// This should never happen, but just in case
			panic("Failed to create fallback logger: " + err.Error())
		}
	}
	return log
}

// Middleware returns an Echo middleware that logs HTTP requests
func Middleware(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Request ID is set by the request id middleware when it runs first
			requestID := RequestID(c)

			// Set logger in context
			ctxLogger := logger.With(zap.String("request_id", requestID))
			c.Set(loggerKey, ctxLogger)

			// Process the request
			err := next(c)
			if err != nil {
				// Let echo write the response so the status below is the real one
				c.Error(err)
			}

			// Log after request is processed
			latency := time.Since(start)
			status := c.Response().Status

			// Create structured log entry
			fields := []zapcore.Field{
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", latency),
				zap.String("ip", c.RealIP()),
				zap.String("user_agent", c.Request().UserAgent()),
			}

			// Add error if present
			switch {
			case err != nil:
				fields = append(fields, zap.Error(err))
				ctxLogger.Error("HTTP request failed", fields...)
			case status >= http.StatusInternalServerError:
				ctxLogger.Error("HTTP request failed", fields...)
			case status >= http.StatusBadRequest:
				ctxLogger.Warn("HTTP request rejected", fields...)
			default:
				ctxLogger.Info("HTTP request completed", fields...)
			}

			return nil
		}
	}
}

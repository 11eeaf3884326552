// Package routes defines HTTP routes for the wellness service.
package routes

import (
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"wellness-service/internal/handler"
	"wellness-service/internal/middleware"
	"wellness-service/pkg/jwtutil"
	"wellness-service/pkg/logger"
	"wellness-service/pkg/ratelimit"
	"wellness-service/prometheus"
)

// Options controls the optional parts of the route table
type Options struct {
	AllowOrigins    []string
	AuthRequired    bool
	Limiter         ratelimit.Limiter
	RateLimit       int
	RateLimitWindow time.Duration
	Metrics         bool
}

// Setup configures middleware and all HTTP routes on e.
func Setup(e *echo.Echo, h *handler.Handler, tokens *jwtutil.JWTUtil, log *zap.Logger, opts Options) {
	e.Validator = handler.NewValidator()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: opts.AllowOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes
	e.GET("/health", h.HealthCheck)
	if opts.Metrics {
		e.GET("/metrics", handler.MetricsHandler)
	}

	api := e.Group("/api")

	// Authentication routes
	auth := api.Group("/auth")
	auth.POST("/login", h.Login, middleware.RateLimit(opts.Limiter, "login", opts.RateLimit, opts.RateLimitWindow))
	auth.POST("/register", h.Register, middleware.RateLimit(opts.Limiter, "register", opts.RateLimit, opts.RateLimitWindow))

	// User routes
	users := api.Group("/users")
	if opts.AuthRequired {
		users.Use(middleware.RequireUser(tokens))
	}
	users.GET("/:id", h.GetUser)
	users.PUT("/:id", h.UpdateUser)
	users.DELETE("/:id", h.DeleteUser)
	users.GET("/:id/profile", h.GetProfile)
	users.POST("/:id/profile", h.CreateProfile)
	users.PUT("/:id/profile", h.UpdateProfile)
	users.GET("/:id/complete", h.GetUserComplete)
	users.GET("/:id/moods", h.ListMoods)
	users.POST("/:id/moods", h.CreateMood)
	users.GET("/:id/habits", h.ListHabits)
	users.POST("/:id/habits", h.CreateHabit)
	users.PUT("/:id/habits/:habitId", h.SetHabitCompleted)
	users.GET("/:id/gratitude", h.ListGratitude)
	users.POST("/:id/gratitude", h.CreateGratitude)

	// Chat relay
	api.POST("/chat", h.Chat)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"wellness-service/internal/handler"
	"wellness-service/internal/routes"
	"wellness-service/internal/storage"
	"wellness-service/pkg/authprovider"
	"wellness-service/pkg/config"
	"wellness-service/pkg/database"
	"wellness-service/pkg/jwtutil"
	"wellness-service/pkg/logger"
	"wellness-service/pkg/ratelimit"
	"wellness-service/pkg/webhook"
	"wellness-service/prometheus"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	log := logger.InitLogger(cfg)
	defer func() { _ = log.Sync() }()
	log.Info("Starting wellness service...", append(cfg.LogConfig(), zap.String("version", version))...)

	prometheus.SetInfo(version, cfg.Storage.Driver)

	store, err := newStore(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize storage", zap.Error(err))
	}
	log.Info("Storage initialized", zap.String("driver", cfg.Storage.Driver))

	// Initialize JWT utility
	tokens := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      cfg.JWT.SigningKey,
		ExpirationHours: cfg.JWT.ExpirationHours,
	})

	limiter := newLimiter(cfg, log)

	var opts []handler.Option
	if cfg.Chat.WebhookURL != "" {
		opts = append(opts, handler.WithChat(webhook.NewClient(cfg.Chat.WebhookURL, cfg.Chat.Timeout, log)))
		log.Info("Chat relay enabled")
	}
	h := handler.New(store, tokens, opts...)

	// Initialize Echo framework
	e := echo.New()
	e.HideBanner = true
	routes.Setup(e, h, tokens, log, routes.Options{
		AllowOrigins:    cfg.Server.AllowOrigins,
		AuthRequired:    cfg.Auth.Required,
		Limiter:         limiter,
		RateLimit:       cfg.RateLimit.Limit,
		RateLimitWindow: cfg.RateLimit.Window,
		Metrics:         cfg.Metrics.Enabled,
	})

	// Start server
	go func() {
		log.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("Shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	if err := limiter.Close(); err != nil {
		log.Warn("Failed to close rate limiter", zap.Error(err))
	}
	if err := store.Close(); err != nil {
		log.Warn("Failed to close storage", zap.Error(err))
	}
	log.Info("Server stopped")
}

func newStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Storage, error) {
	if cfg.Storage.Driver == config.DriverMemory {
		log.Warn("Using in-memory storage; data is lost on restart")
		return storage.NewMemoryStore(storage.WithMemoryBcryptCost(cfg.Storage.BcryptCost))
	}

	db, err := database.Open(database.DBConfig{
		DSN:             cfg.DB.GetDSN(),
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		LogLevel:        cfg.DB.LogLevel,
	}, log)
	if err != nil {
		return nil, err
	}
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, db, log); err != nil {
			return nil, err
		}
	}

	gs := storage.NewGormStore(db, storage.WithBcryptCost(cfg.Storage.BcryptCost))
	if cfg.Storage.Driver == config.DriverManaged {
		provider := authprovider.NewClient(cfg.AuthProvider.URL, cfg.AuthProvider.ServiceKey, log)
		if err := provider.Health(ctx); err != nil {
			log.Warn("Auth provider health check failed", zap.Error(err))
		}
		return storage.NewManagedAuthStore(gs, provider), nil
	}
	return gs, nil
}

func newLimiter(cfg *config.Config, log *zap.Logger) ratelimit.Limiter {
	if cfg.Redis.Addr != "" {
		rl, err := ratelimit.NewRedisLimiter(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err == nil {
			log.Info("Rate limiter backed by redis", zap.String("addr", cfg.Redis.Addr))
			return rl
		}
		log.Warn("Redis unavailable, falling back to in-memory rate limiting", zap.Error(err))
	}
	return ratelimit.NewMemoryLimiter()
}

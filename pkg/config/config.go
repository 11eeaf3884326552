package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// Storage drivers accepted in STORAGE_DRIVER
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverManaged  = "managed"
)

// DBConfig holds database configuration
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
	AutoMigrate     bool
}

// GetDSN returns the PostgreSQL connection string
func (c *DBConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Env             string
	ShutdownTimeout time.Duration
	AllowOrigins    []string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey      string
	ExpirationHours int
}

// AuthConfig controls whether /api/users routes need a bearer token
type AuthConfig struct {
	Required bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool
}

// StorageConfig selects the Storage implementation
type StorageConfig struct {
	Driver     string
	BcryptCost int
}

// RedisConfig holds the optional rate limiter backend. An empty Addr keeps
// counters in process memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RateLimitConfig bounds login and register attempts per client IP
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

// ChatConfig holds the chat webhook settings. An empty WebhookURL disables /api/chat.
type ChatConfig struct {
	WebhookURL string
	Timeout    time.Duration
}

// AuthProviderConfig holds the managed auth service settings
type AuthProviderConfig struct {
	URL        string
	ServiceKey string
}

// Config holds all configuration
type Config struct {
	DB           DBConfig
	Server       ServerConfig
	JWT          JWTConfig
	Auth         AuthConfig
	Log          LogConfig
	Metrics      MetricsConfig
	Storage      StorageConfig
	Redis        RedisConfig
	RateLimit    RateLimitConfig
	Chat         ChatConfig
	AuthProvider AuthProviderConfig
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Not returning error as .env file is optional
		fmt.Printf("Warning: .env file not found, using environment variables\n")
	}

	// Initialize config struct with values from environment
	config := &Config{
		DB: DBConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "password"),
			DBName:          getEnv("DB_NAME", "wellness"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnvAsLogLevel("DB_LOG_LEVEL", logger.Warn),
			AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "5000"),
			Env:             getEnv("APP_ENV", "development"),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowOrigins:    getEnvAsList("CORS_ALLOW_ORIGINS", []string{"*"}),
		},
		JWT: JWTConfig{
			SigningKey:      getEnv("JWT_SIGNING_KEY", "wellnessservicesecretkey"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Auth: AuthConfig{
			Required: getEnvAsBool("AUTH_REQUIRED", false),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
		},
		Storage: StorageConfig{
			Driver:     strings.ToLower(getEnv("STORAGE_DRIVER", DriverMemory)),
			BcryptCost: getEnvAsInt("BCRYPT_COST", 12),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Limit:  getEnvAsInt("AUTH_RATE_LIMIT", 10),
			Window: getEnvAsDuration("AUTH_RATE_WINDOW", time.Minute),
		},
		Chat: ChatConfig{
			WebhookURL: getEnv("CHAT_WEBHOOK_URL", ""),
			Timeout:    getEnvAsDuration("CHAT_WEBHOOK_TIMEOUT", 10*time.Second),
		},
		AuthProvider: AuthProviderConfig{
			URL:        getEnv("AUTH_PROVIDER_URL", ""),
			ServiceKey: getEnv("AUTH_PROVIDER_SERVICE_KEY", ""),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects combinations the service cannot start with
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverPostgres:
	case DriverManaged:
		if c.AuthProvider.URL == "" || c.AuthProvider.ServiceKey == "" {
			return fmt.Errorf("storage driver %q needs AUTH_PROVIDER_URL and AUTH_PROVIDER_SERVICE_KEY", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.RateLimit.Limit < 0 {
		return fmt.Errorf("AUTH_RATE_LIMIT must not be negative")
	}
	return nil
}

// LogConfig returns the configuration as a zap logger-friendly format
func (c *Config) LogConfig() []zap.Field {
	fields := []zap.Field{
		zap.String("environment", c.Server.Env),
		zap.String("server_port", c.Server.Port),
		zap.String("storage_driver", c.Storage.Driver),
		zap.Bool("auth_required", c.Auth.Required),
		zap.Bool("chat_enabled", c.Chat.WebhookURL != ""),
		zap.Bool("redis_rate_limit", c.Redis.Addr != ""),
	}
	if c.Storage.Driver != DriverMemory {
		fields = append(fields,
			zap.String("db_host", c.DB.Host),
			zap.String("db_port", c.DB.Port),
			zap.String("db_user", c.DB.User),
			zap.String("db_name", c.DB.DBName),
		)
	}
	return fields
}

// Helper function to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as integers
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as booleans
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as durations
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get comma separated environment variables
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Helper function to get environment variables as log levels
func getEnvAsLogLevel(key string, defaultValue logger.LogLevel) logger.LogLevel {
	valueStr := getEnv(key, "")
	switch valueStr {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return defaultValue
	}
}

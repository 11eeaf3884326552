package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Login counters
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wellness_login_total",
			Help: "Total number of login attempts",
		},
	)

	// Registration counters
	RegisterCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wellness_register_total",
			Help: "Total number of user registrations",
		},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wellness_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Error counters
	ErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wellness_errors_total",
			Help: "Total number of request errors",
		},
		[]string{"type"}, // type can be "login_failure", "validation", "db_error" etc.
	)

	// User and profile operation counter
	UserOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wellness_user_operations_total",
			Help: "Total number of user, profile and mood operations",
		},
		[]string{"operation"}, // operation can be "profile_create", "profile_update", "mood_create", etc.
	)

	// Chat webhook exchanges
	ChatMessageCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wellness_chat_messages_total",
			Help: "Total number of chat messages relayed to the webhook",
		},
		[]string{"result"},
	)

	// Rate limited requests
	RateLimitCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wellness_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"route"},
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wellness_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wellness_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // operation can be "query", "insert", "update", "delete"
	)

	// Chat webhook latency
	ChatWebhookDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wellness_chat_webhook_duration_seconds",
			Help:    "Duration of chat webhook round trips in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Gauge metrics
var (
	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wellness_info",
			Help: "Information about the wellness service",
		},
		[]string{"version", "storage"},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(RegisterCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(ErrorCounter)
	prometheus.MustRegister(UserOperationCounter)
	prometheus.MustRegister(ChatMessageCounter)
	prometheus.MustRegister(RateLimitCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)
	prometheus.MustRegister(ChatWebhookDuration)

	// Register gauges
	prometheus.MustRegister(InfoGauge)
}

// SetInfo publishes the running version and storage driver
func SetInfo(version, storage string) {
	InfoGauge.Reset()
	InfoGauge.With(prometheus.Labels{"version": version, "storage": storage}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// TrackChatWebhook measures webhook round trip durations
func TrackChatWebhook() func() {
	startTime := time.Now()
	return func() {
		ChatWebhookDuration.Observe(time.Since(startTime).Seconds())
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Execute the request handler
			err := next(c)
			if err != nil {
				// Resolve the status before it is recorded
				c.Error(err)
			}

			// Record request duration
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			// Record metrics
			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return nil
		}
	}
}

// RecordError records a request error by type
func RecordError(errorType string) {
	ErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordUserOperation records a user, profile or mood operation
func RecordUserOperation(operation string) {
	UserOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordChatMessage records a relayed chat message by outcome
func RecordChatMessage(result string) {
	ChatMessageCounter.With(prometheus.Labels{"result": result}).Inc()
}

// RecordRateLimited records a rejected request for route
func RecordRateLimited(route string) {
	RateLimitCounter.With(prometheus.Labels{"route": route}).Inc()
}

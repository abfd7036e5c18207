// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreAttempts counts every attempt a fallback chain makes against one store.
	StoreAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "techatlas_store_attempts_total",
		Help: "Content store attempts by kind, operation, store and result",
	}, []string{"kind", "op", "store", "result"})

	// StoreAttemptLatency records how long a single store attempt took.
	StoreAttemptLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "techatlas_store_attempt_latency_seconds",
		Help:    "Content store attempt latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind", "op", "store"})

	// DegradedWrites counts creates answered with an unpersisted record.
	DegradedWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "techatlas_degraded_writes_total",
		Help: "Creates that failed on every store and were answered with a mock record",
	}, []string{"kind"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "techatlas_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// AgentRequests counts autofill agent calls by target and outcome.
	AgentRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "techatlas_agent_requests_total",
		Help: "AI agent requests by target and outcome",
	}, []string{"target", "outcome"})

	// AgentLatency records model call latency by provider.
	AgentLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "techatlas_agent_latency_seconds",
		Help:    "Model call latency in seconds",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60},
	}, []string{"provider"})

	// NotificationDeliveries counts lifecycle event deliveries per sink.
	NotificationDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "techatlas_notification_deliveries_total",
		Help: "Content lifecycle notifications by sink and result",
	}, []string{"sink", "result"})

	// CronRuns counts scheduled job executions.
	CronRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "techatlas_cron_runs_total",
		Help: "Scheduled job runs by job and result",
	}, []string{"job", "result"})

	// ExpiredListings counts listings moved out of approved by the expiry job.
	ExpiredListings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "techatlas_expired_listings_total",
		Help: "Listings transitioned by the expiry job",
	}, []string{"kind", "status"})

	// AdminFeedConnections is the gauge of open admin feed websockets.
	AdminFeedConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "techatlas_admin_feed_connections",
		Help: "Number of open admin feed WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "techatlas_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// ObserveStoreAttempt records the outcome of one store attempt.
func ObserveStoreAttempt(kind, op, store, result string, elapsed time.Duration) {
	StoreAttempts.WithLabelValues(kind, op, store, result).Inc()
	StoreAttemptLatency.WithLabelValues(kind, op, store).Observe(elapsed.Seconds())
}

// ObserveAgent records a finished agent request.
func ObserveAgent(target, outcome string) {
	AgentRequests.WithLabelValues(target, outcome).Inc()
}

// ObserveNotification records a delivery attempt to one sink.
func ObserveNotification(sink string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	NotificationDeliveries.WithLabelValues(sink, result).Inc()
}

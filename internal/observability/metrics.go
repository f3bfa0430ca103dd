package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationsEmitted counts notifications written by the fan-out, by kind.
	NotificationsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_notifications_emitted_total",
		Help: "Total number of notifications emitted by kind",
	}, []string{"kind"})

	// NotificationFailures counts fan-out attempts that could not be delivered, by kind.
	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_notification_failures_total",
		Help: "Total number of notification deliveries that failed by kind",
	}, []string{"kind"})

	// RelaySubscriptions is the gauge of live relay subscriptions.
	RelaySubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulse_relay_subscriptions",
		Help: "Number of active live change subscriptions",
	})

	// RelaySignals counts refresh signals delivered to subscriptions, by entity.
	RelaySignals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_relay_signals_total",
		Help: "Total number of refresh signals delivered by entity",
	}, []string{"entity"})

	// RelayCoalesced counts signals merged into an already pending one, by entity.
	RelayCoalesced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_relay_coalesced_total",
		Help: "Total number of refresh signals coalesced into a pending signal by entity",
	}, []string{"entity"})

	// StoreErrors counts failed store operations.
	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_store_errors_total",
		Help: "Total number of store errors by operation",
	}, []string{"operation"})

	// ViewFallbacks counts read views served from a fallback after a store failure.
	ViewFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_view_fallbacks_total",
		Help: "Total number of read views served from a fallback by view and source",
	}, []string{"view", "source"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pulse_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// WebSocketConnections is the gauge of open live view connections.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulse_websocket_connections",
		Help: "Number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

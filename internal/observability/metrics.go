// Package observability provides Prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agora_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PostViewsCounted counts view registrations that incremented a post's counter.
	PostViewsCounted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agora_post_views_counted_total",
		Help: "Total number of post views that produced a counter increment",
	})

	// PostViewsDeduplicated counts view registrations suppressed by the per-viewer ledger.
	PostViewsDeduplicated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agora_post_views_deduplicated_total",
		Help: "Total number of post views suppressed as duplicates",
	})

	// CommentWrites counts comment mutations by action (created, deleted).
	CommentWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_comment_writes_total",
		Help: "Total number of comment mutations by action",
	}, []string{"action"})

	// SessionEvents counts session lifecycle events by type (created, revoked).
	SessionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_session_events_total",
		Help: "Total number of session lifecycle events by type",
	}, []string{"event"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

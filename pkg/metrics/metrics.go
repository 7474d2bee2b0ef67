package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Horizon generation pass duration (seconds).
	GenerationPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "generation_pass_duration_seconds",
			Help:    "Duration of a horizon generation pass in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
	)

	// Instances materialized per source: horizon, manual, completion.
	InstancesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "instances_generated_total",
			Help: "Total number of task instances materialized",
		},
		[]string{"source"},
	)

	// Keys skipped because an instance already existed for (template, date).
	DedupSkips = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "generation_dedup_skips_total",
			Help: "Occurrence dates skipped because an instance already existed",
		},
	)

	// Generation requests rejected by the guard (lock held or throttled).
	GuardRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_guard_rejections_total",
			Help: "Horizon generation requests rejected by the guard",
		},
		[]string{"reason"}, // reason: in_flight, throttled
	)

	// Reminder events dispatched: dispatched, duplicate, failed.
	RemindersDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_dispatched_total",
			Help: "Reminder events dispatched to the message bus",
		},
		[]string{"status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

func RecordGenerationPass(duration time.Duration) {
	GenerationPassDuration.Observe(duration.Seconds())
}

func IncrementInstancesGenerated(source string) {
	InstancesGenerated.WithLabelValues(source).Inc()
}

func IncrementDedupSkips() {
	DedupSkips.Inc()
}

func IncrementGuardRejection(reason string) {
	GuardRejections.WithLabelValues(reason).Inc()
}

func IncrementRemindersDispatched(status string) {
	RemindersDispatched.WithLabelValues(status).Inc()
}

func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// Package metrics 注册 Prometheus 指标。
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "icodses"

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	assignmentsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignments_created_total",
			Help:      "Reviewer assignments created.",
		},
	)
	reviewsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviews_recorded_total",
			Help:      "Reviews written to the ledger, by status.",
		},
		[]string{"status"},
	)
	statusPropagations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_propagations_total",
			Help:      "Paper status propagations from reviews, by result.",
		},
		[]string{"result"},
	)
	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries, by kind and result.",
		},
		[]string{"kind", "result"},
	)
	outboxPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_pending",
			Help:      "Pending messages in the notification outbox.",
		},
	)
)

// Register 注册全部指标，可重复调用
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			assignmentsCreated, reviewsRecorded, statusPropagations,
			notifications, outboxPending,
		)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func AssignmentCreated() {
	assignmentsCreated.Inc()
}

func ReviewRecorded(status string) {
	reviewsRecorded.WithLabelValues(status).Inc()
}

// StatusPropagated result: applied | skipped | failed
func StatusPropagated(result string) {
	statusPropagations.WithLabelValues(result).Inc()
}

// Notification result: sent | retry | failed
func Notification(kind, result string) {
	notifications.WithLabelValues(kind, result).Inc()
}

func SetOutboxPending(n int64) {
	outboxPending.Set(float64(n))
}

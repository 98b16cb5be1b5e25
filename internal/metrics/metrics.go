// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registrationOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventsphere_registration_operations_total",
			Help: "Registration ledger operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	notificationsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventsphere_notifications_stored_total",
			Help: "Notifications persisted, by type",
		},
		[]string{"type"},
	)

	notificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventsphere_notification_failures_total",
			Help: "Notification delivery failures, by stage (store, push)",
		},
		[]string{"stage"},
	)

	notificationsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventsphere_notifications_purged_total",
			Help: "Expired notifications removed by the sweeper",
		},
	)

	workerTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventsphere_worker_tasks_total",
			Help: "Background tasks by name and status (ok, failed, dropped)",
		},
		[]string{"task", "status"},
	)

	workerQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventsphere_worker_queue_depth",
			Help: "Background tasks waiting to run",
		},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventsphere_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)
)

// RecordRegistrationOp counts one ledger operation (register, approve, reject, cancel) with its outcome.
func RecordRegistrationOp(operation, outcome string) {
	registrationOps.WithLabelValues(operation, outcome).Inc()
}

func RecordNotificationStored(notificationType string) {
	notificationsStored.WithLabelValues(notificationType).Inc()
}

func RecordNotificationFailure(stage string) {
	notificationFailures.WithLabelValues(stage).Inc()
}

func RecordNotificationsPurged(n int64) {
	notificationsPurged.Add(float64(n))
}

func RecordTask(task, status string) {
	workerTasks.WithLabelValues(task, status).Inc()
}

func SetQueueDepth(n int) {
	workerQueueDepth.Set(float64(n))
}

// ObserveHTTP records the latency of one HTTP request.
func ObserveHTTP(method string, status int, d time.Duration) {
	httpDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

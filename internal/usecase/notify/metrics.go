package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for notification system monitoring
var (
	// notificationAcceptedTotal tracks notifications accepted by AddMessage
	notificationAcceptedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_accepted_total",
			Help: "Total number of notifications rendered and accepted for delivery",
		},
		[]string{"notify_type", "mode"}, // mode: queued|inline
	)

	// notificationRejectedTotal tracks notifications refused before delivery
	notificationRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_rejected_total",
			Help: "Total number of notifications rejected before delivery",
		},
		[]string{"reason"}, // reason: configuration|lookup|render|duplicate
	)

	// notificationDispatchedTotal tracks total notifications dispatched per channel
	notificationDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_dispatched_total",
			Help: "Total number of notifications dispatched",
		},
		[]string{"channel"},
	)

	// notificationSentTotal tracks notification send results per channel
	notificationSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_sent_total",
			Help: "Total number of notifications sent",
		},
		[]string{"channel", "status"}, // status: success|failure
	)

	// notificationDuration tracks notification send duration
	notificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_duration_seconds",
			Help:    "Notification send duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30}, // 100ms to 30s
		},
		[]string{"channel"},
	)

	// circuitBreakerOpenTotal tracks circuit breaker open events
	circuitBreakerOpenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_circuit_breaker_open_total",
			Help: "Total number of circuit breaker open events",
		},
		[]string{"channel"},
	)

	// notificationDroppedTotal tracks notifications that never reached the provider
	notificationDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_dropped_total",
			Help: "Total number of dropped notifications",
		},
		[]string{"channel", "reason"}, // reason: queue_full|circuit_open|disabled
	)

	// notificationRedeliveredTotal tracks failed deliveries re-enqueued by the sweep
	notificationRedeliveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_redelivered_total",
			Help: "Total number of failed deliveries re-enqueued",
		},
	)

	// activeWorkers tracks deliveries currently in progress
	activeWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_active_deliveries",
			Help: "Number of deliveries currently in progress",
		},
	)

	// queueDepth tracks the in-process queue length
	queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_queue_depth",
			Help: "Number of notifications waiting in the in-process queue",
		},
	)
)

// RecordAccepted records a notification that passed validation and rendering.
func RecordAccepted(notifyType, mode string) {
	notificationAcceptedTotal.WithLabelValues(notifyType, mode).Inc()
}

// RecordRejected records a notification refused before delivery.
func RecordRejected(reason string) {
	notificationRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordDispatch records a notification dispatch attempt.
func RecordDispatch(channel string) {
	notificationDispatchedTotal.WithLabelValues(channel).Inc()
}

// RecordSuccess records a successful notification send and its duration.
func RecordSuccess(channel string, duration time.Duration) {
	notificationSentTotal.WithLabelValues(channel, "success").Inc()
	notificationDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordFailure records a failed notification send and its duration.
func RecordFailure(channel string, duration time.Duration) {
	notificationSentTotal.WithLabelValues(channel, "failure").Inc()
	notificationDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordDropped records a dropped notification.
//
// Parameters:
//   - channel: The name of the notification channel
//   - reason: queue_full, circuit_open or disabled
func RecordDropped(channel string, reason string) {
	notificationDroppedTotal.WithLabelValues(channel, reason).Inc()
}

// RecordCircuitBreakerOpen records a circuit breaker open event.
func RecordCircuitBreakerOpen(channel string) {
	circuitBreakerOpenTotal.WithLabelValues(channel).Inc()
}

// RecordRedelivered adds n re-enqueued deliveries.
func RecordRedelivered(n int) {
	notificationRedeliveredTotal.Add(float64(n))
}

// IncrementActiveWorkers increments the active deliveries gauge by 1.
func IncrementActiveWorkers() {
	activeWorkers.Inc()
}

// DecrementActiveWorkers decrements the active deliveries gauge by 1.
func DecrementActiveWorkers() {
	activeWorkers.Dec()
}

// SetQueueDepth sets the in-process queue length.
func SetQueueDepth(depth float64) {
	queueDepth.Set(depth)
}

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	authRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_auth_requests_total",
			Help: "Intake authentication attempts by role and result",
		},
		[]string{"role", "result"}, // result: success | failure | forbidden
	)

	authDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "intake_auth_duration_seconds",
			Help:    "Token verification duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01},
		},
	)
)

// RecordAuthRequest records an authentication attempt.
func RecordAuthRequest(role, result string) {
	authRequestsTotal.WithLabelValues(role, result).Inc()
}

// RecordAuthDuration records token verification time.
func RecordAuthDuration(seconds float64) {
	authDuration.Observe(seconds)
}

package notifier

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	providerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_provider_requests_total",
			Help: "HTTP requests made to the push provider by status class",
		},
		[]string{"provider", "status"}, // status: 2xx|4xx|429|5xx|error
	)

	rateLimitWaitSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "push_provider_rate_limit_wait_seconds",
			Help:    "Time spent waiting for the client side rate limiter",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"provider"},
	)

	providerRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_provider_retries_total",
			Help: "Push provider requests repeated after a transient failure",
		},
		[]string{"provider"},
	)

	rateLimitHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_provider_rate_limit_hits_total",
			Help: "429 responses received from the push provider",
		},
		[]string{"provider"},
	)
)

func recordProviderRequest(provider, status string) {
	providerRequestsTotal.WithLabelValues(provider, status).Inc()
}

func recordRateLimitWait(provider string, d time.Duration) {
	rateLimitWaitSeconds.WithLabelValues(provider).Observe(d.Seconds())
}

func recordRateLimitHit(provider string) {
	rateLimitHitsTotal.WithLabelValues(provider).Inc()
}

func recordRetry(provider string) {
	providerRetriesTotal.WithLabelValues(provider).Inc()
}

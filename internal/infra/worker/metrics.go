package worker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"casetrack/internal/pkg/config"
)

// WorkerMetrics covers configuration loading and the redelivery sweep.
type WorkerMetrics struct {
	*config.ConfigMetrics

	SweepRunsTotal            *prometheus.CounterVec
	SweepDurationSeconds      prometheus.Histogram
	SweepRequeuedTotal        prometheus.Counter
	SweepLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates the metrics and registers them on reg when
// reg is non-nil.
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	m := &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker", reg),

		SweepRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_redelivery_runs_total",
			Help: "Total number of redelivery sweeps by status (success/failure)",
		}, []string{"status"}),

		SweepDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_redelivery_duration_seconds",
			Help:    "Duration of redelivery sweeps in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 60},
		}),

		SweepRequeuedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "worker_redelivery_requeued_total",
			Help: "Total number of notifications requeued by redelivery sweeps",
		}),

		SweepLastSuccessTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "worker_redelivery_last_success_timestamp",
			Help: "Unix timestamp of the last successful redelivery sweep",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.SweepRunsTotal, m.SweepDurationSeconds, m.SweepRequeuedTotal, m.SweepLastSuccessTimestamp)
	}
	return m
}

// ObserveSweep records one sweep. It satisfies notify.SweepObserver.
func (m *WorkerMetrics) ObserveSweep(requeued int, elapsed time.Duration, err error) {
	m.SweepDurationSeconds.Observe(elapsed.Seconds())
	m.SweepRequeuedTotal.Add(float64(requeued))
	if err != nil {
		m.SweepRunsTotal.WithLabelValues("failure").Inc()
		return
	}
	m.SweepRunsTotal.WithLabelValues("success").Inc()
	m.SweepLastSuccessTimestamp.SetToCurrentTime()
}

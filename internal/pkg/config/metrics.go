package config

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ConfigMetrics tracks configuration loading for one component.
type ConfigMetrics struct {
	LoadTimestamp  prometheus.Gauge
	FallbacksTotal *prometheus.CounterVec
	FallbackActive prometheus.Gauge
}

// NewConfigMetrics creates the metrics and registers them on reg when reg
// is non-nil. Metric names are prefixed with component.
func NewConfigMetrics(component string, reg prometheus.Registerer) *ConfigMetrics {
	m := &ConfigMetrics{
		LoadTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_config_load_timestamp", component),
			Help: fmt.Sprintf("Unix timestamp of last %s configuration load", component),
		}),
		FallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_config_fallbacks_total", component),
			Help: fmt.Sprintf("Total number of %s configuration fallbacks", component),
		}, []string{"field"}),
		FallbackActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_config_fallback_active", component),
			Help: fmt.Sprintf("1 if any %s configuration fallback is active", component),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.LoadTimestamp, m.FallbacksTotal, m.FallbackActive)
	}
	return m
}

// Observe records the fallbacks of one load pass.
func (m *ConfigMetrics) Observe(fallbackFields []string) {
	m.LoadTimestamp.SetToCurrentTime()
	for _, field := range fallbackFields {
		m.FallbacksTotal.WithLabelValues(field).Inc()
	}
	if len(fallbackFields) > 0 {
		m.FallbackActive.Set(1)
	} else {
		m.FallbackActive.Set(0)
	}
}

// Collector accumulates warnings across several loads.
type Collector struct {
	Warnings  []string
	Fallbacks []string
}

// Track records r's warnings and returns its value.
func Track[T any](c *Collector, r Result[T]) T {
	if r.FallbackApplied {
		c.Warnings = append(c.Warnings, r.Warnings...)
		c.Fallbacks = append(c.Fallbacks, r.Key)
	}
	return r.Value
}

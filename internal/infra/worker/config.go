package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"casetrack/internal/pkg/config"
	"casetrack/internal/usecase/notify"
)

// WorkerConfig holds the delivery worker and redelivery sweep settings.
//
// Environment variables:
//
//	REDELIVERY_SCHEDULE   cron expression of the sweep      (default "*/5 * * * *")
//	WORKER_TIMEZONE       IANA zone the schedule runs in    (default "UTC")
//	NOTIFY_WORKERS        concurrent delivery workers, 1-64 (default 4)
//	NOTIFY_QUEUE_SIZE     in-memory queue capacity          (default 100)
//	DELIVERY_TIMEOUT      bound on one delivery, 1s-5m      (default 30s)
//	REDELIVERY_MAX_ATTEMPTS  attempts before giving up      (default 5)
//	REDELIVERY_LOOKBACK   age of the oldest retried failure (default 1h)
//	REDELIVERY_BATCH_SIZE deliveries requeued per sweep     (default 100)
//	REDELIVERY_STALE_AFTER   age at which a pending row is  (default 10m)
//	                         treated as lost, >= DELIVERY_TIMEOUT
//	REDELIVERY_ENABLED    run the redelivery sweep          (default true)
//	TRACING_SAMPLE_RATIO  head sampling ratio, 0-1          (default 0.1)
//	WORKER_HEALTH_PORT    ops server port, 1024-65535       (default 9091)
//	SHUTDOWN_TIMEOUT      graceful drain bound              (default 15s)
type WorkerConfig struct {
	RedeliverySchedule   string
	Timezone             string
	Workers              int
	QueueSize            int
	DeliveryTimeout      time.Duration
	MaxAttempts          int
	RedeliveryLookback   time.Duration
	RedeliveryBatchSize  int
	RedeliveryStaleAfter time.Duration
	RedeliveryEnabled    bool
	TracingSampleRatio   float64
	HealthPort           int
	ShutdownTimeout      time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		RedeliverySchedule:   notify.DefaultRedeliverySchedule,
		Timezone:             "UTC",
		Workers:              4,
		QueueSize:            100,
		DeliveryTimeout:      30 * time.Second,
		MaxAttempts:          5,
		RedeliveryLookback:   time.Hour,
		RedeliveryBatchSize:  100,
		RedeliveryStaleAfter: 10 * time.Minute,
		RedeliveryEnabled:    true,
		TracingSampleRatio:   0.1,
		HealthPort:           9091,
		ShutdownTimeout:      15 * time.Second,
	}
}

var (
	validWorkers         = config.IntBetween(1, 64)
	validQueueSize       = config.IntBetween(1, 10000)
	validDeliveryTimeout = config.DurationBetween(time.Second, 5*time.Minute)
	validMaxAttempts     = config.IntBetween(1, 20)
	validBatchSize       = config.IntBetween(1, 1000)
	validHealthPort      = config.IntBetween(1024, 65535)
	validStaleAfter      = config.DurationBetween(time.Second, 24*time.Hour)
	validSampleRatio     = config.FloatBetween(0, 1)
)

// Validate reports every invalid field.
func (c *WorkerConfig) Validate() error {
	var errs []error
	add := func(field string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
	}

	add("redelivery schedule", config.ValidateCronSchedule(c.RedeliverySchedule))
	add("timezone", config.ValidateTimezone(c.Timezone))
	add("workers", validWorkers(c.Workers))
	add("queue size", validQueueSize(c.QueueSize))
	add("delivery timeout", validDeliveryTimeout(c.DeliveryTimeout))
	add("max attempts", validMaxAttempts(c.MaxAttempts))
	add("redelivery lookback", config.ValidatePositiveDuration(c.RedeliveryLookback))
	add("redelivery batch size", validBatchSize(c.RedeliveryBatchSize))
	add("redelivery stale after", validStaleAfter(c.RedeliveryStaleAfter))
	if c.RedeliveryStaleAfter < c.DeliveryTimeout {
		add("redelivery stale after", fmt.Errorf("%v is shorter than the delivery timeout %v", c.RedeliveryStaleAfter, c.DeliveryTimeout))
	}
	add("tracing sample ratio", validSampleRatio(c.TracingSampleRatio))
	add("health port", validHealthPort(c.HealthPort))
	add("shutdown timeout", config.ValidatePositiveDuration(c.ShutdownTimeout))

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// Location returns the schedule's time zone, UTC when it cannot be loaded.
func (c *WorkerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ServiceConfig maps the worker settings onto the dispatch service.
func (c *WorkerConfig) ServiceConfig(async bool, dedupTTL time.Duration) notify.Config {
	return notify.Config{
		Async:           async,
		Workers:         c.Workers,
		DeliveryTimeout: c.DeliveryTimeout,
		DedupTTL:        dedupTTL,
	}
}

// RedeliveryConfig maps the worker settings onto the redelivery sweep.
func (c *WorkerConfig) RedeliveryConfig() notify.RedeliveryConfig {
	return notify.RedeliveryConfig{
		MaxAttempts: c.MaxAttempts,
		Lookback:    c.RedeliveryLookback,
		BatchSize:   c.RedeliveryBatchSize,
		StaleAfter:  c.RedeliveryStaleAfter,
	}
}

// LoadConfigFromEnv loads the worker configuration. Invalid values fall
// back to the default with a warning; the returned error is always nil.
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	var c config.Collector

	cfg.RedeliverySchedule = config.Track(&c, config.LoadStringWith("REDELIVERY_SCHEDULE", cfg.RedeliverySchedule, config.ValidateCronSchedule))
	cfg.Timezone = config.Track(&c, config.LoadStringWith("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone))
	cfg.Workers = config.Track(&c, config.LoadInt("NOTIFY_WORKERS", cfg.Workers, validWorkers))
	cfg.QueueSize = config.Track(&c, config.LoadInt("NOTIFY_QUEUE_SIZE", cfg.QueueSize, validQueueSize))
	cfg.DeliveryTimeout = config.Track(&c, config.LoadDuration("DELIVERY_TIMEOUT", cfg.DeliveryTimeout, validDeliveryTimeout))
	cfg.MaxAttempts = config.Track(&c, config.LoadInt("REDELIVERY_MAX_ATTEMPTS", cfg.MaxAttempts, validMaxAttempts))
	cfg.RedeliveryLookback = config.Track(&c, config.LoadDuration("REDELIVERY_LOOKBACK", cfg.RedeliveryLookback, config.ValidatePositiveDuration))
	cfg.RedeliveryBatchSize = config.Track(&c, config.LoadInt("REDELIVERY_BATCH_SIZE", cfg.RedeliveryBatchSize, validBatchSize))
	cfg.RedeliveryStaleAfter = config.Track(&c, config.LoadDuration("REDELIVERY_STALE_AFTER", cfg.RedeliveryStaleAfter, validStaleAfter))
	if cfg.RedeliveryStaleAfter < cfg.DeliveryTimeout {
		c.Warnings = append(c.Warnings, fmt.Sprintf(
			"REDELIVERY_STALE_AFTER=%v is shorter than DELIVERY_TIMEOUT=%v, using the delivery timeout",
			cfg.RedeliveryStaleAfter, cfg.DeliveryTimeout))
		c.Fallbacks = append(c.Fallbacks, "REDELIVERY_STALE_AFTER")
		cfg.RedeliveryStaleAfter = cfg.DeliveryTimeout
	}
	cfg.RedeliveryEnabled = config.Track(&c, config.LoadBool("REDELIVERY_ENABLED", cfg.RedeliveryEnabled))
	cfg.TracingSampleRatio = config.Track(&c, config.LoadFloat("TRACING_SAMPLE_RATIO", cfg.TracingSampleRatio, validSampleRatio))
	cfg.HealthPort = config.Track(&c, config.LoadInt("WORKER_HEALTH_PORT", cfg.HealthPort, validHealthPort))
	cfg.ShutdownTimeout = config.Track(&c, config.LoadDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout, config.ValidatePositiveDuration))

	for _, warning := range c.Warnings {
		logger.Warn("Configuration fallback applied", slog.String("warning", warning))
	}
	if metrics != nil {
		metrics.Observe(c.Fallbacks)
	}
	return &cfg, nil
}

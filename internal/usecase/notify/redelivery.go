package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"casetrack/internal/repository"
)

// DefaultRedeliverySchedule runs the sweep every five minutes.
const DefaultRedeliverySchedule = "*/5 * * * *"

// RedeliveryConfig controls which failed deliveries are retried.
type RedeliveryConfig struct {
	// MaxAttempts stops redelivery once a notification was tried this often.
	MaxAttempts int
	// Lookback ignores failures older than this.
	Lookback time.Duration
	// BatchSize caps the deliveries re-enqueued per sweep.
	BatchSize int
	// StaleAfter is the age at which a delivery still pending is presumed
	// lost and requeued. Keep it above the delivery timeout.
	StaleAfter time.Duration
}

// DefaultRedeliveryConfig returns the sweep defaults.
func DefaultRedeliveryConfig() RedeliveryConfig {
	return RedeliveryConfig{MaxAttempts: 5, Lookback: time.Hour, BatchSize: 100, StaleAfter: 10 * time.Minute}
}

// SweepObserver is called after every scheduled sweep.
type SweepObserver func(requeued int, elapsed time.Duration, err error)

// Redeliverer re-submits failed and stale pending deliveries from the
// delivery log.
type Redeliverer struct {
	repo    repository.DeliveryRepository
	service Service
	cfg     RedeliveryConfig
	now     func() time.Time
	observe SweepObserver
}

// NewRedeliverer creates a sweep over repo that requeues through svc.
func NewRedeliverer(repo repository.DeliveryRepository, svc Service, cfg RedeliveryConfig) *Redeliverer {
	def := DefaultRedeliveryConfig()
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = def.Lookback
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = def.StaleAfter
	}
	return &Redeliverer{repo: repo, service: svc, cfg: cfg, now: time.Now}
}

// RunOnce requeues one batch and returns how many were handed back.
// A requeue failure stops the batch; the rest stay failed for the next sweep.
func (r *Redeliverer) RunOnce(ctx context.Context) (int, error) {
	now := r.now()
	since := now.Add(-r.cfg.Lookback)
	pending, err := r.repo.ListRetryable(ctx, r.cfg.MaxAttempts, since, now.Add(-r.cfg.StaleAfter), r.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list retryable deliveries: %w", err)
	}

	requeued := 0
	for _, n := range pending {
		if err := r.service.Requeue(ctx, n); err != nil {
			RecordRedelivered(requeued)
			return requeued, fmt.Errorf("requeue %s: %w", n.ID, err)
		}
		requeued++
	}
	RecordRedelivered(requeued)
	return requeued, nil
}

// Observe sets the observer of scheduled sweeps.
func (r *Redeliverer) Observe(fn SweepObserver) {
	r.observe = fn
}

// Schedule registers the sweep on c. An empty spec uses DefaultRedeliverySchedule.
func (r *Redeliverer) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	if spec == "" {
		spec = DefaultRedeliverySchedule
	}
	id, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		start := time.Now()
		n, err := r.RunOnce(ctx)
		if r.observe != nil {
			r.observe(n, time.Since(start), err)
		}
		if err != nil {
			slog.Error("redelivery sweep failed",
				slog.Int("requeued", n),
				slog.Any("error", err))
			return
		}
		if n > 0 {
			slog.Info("redelivery sweep completed",
				slog.Int("requeued", n),
				slog.Duration("duration", time.Since(start)))
		}
	})
	if err != nil {
		return 0, fmt.Errorf("schedule redelivery %q: %w", spec, err)
	}
	return id, nil
}

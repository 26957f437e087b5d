package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"casetrack/internal/domain/entity"
	"casetrack/internal/infra/notifier"
	"casetrack/internal/observability/logging"
	"casetrack/internal/observability/tracing"
	"casetrack/internal/repository"
	"casetrack/internal/resilience/circuitbreaker"
	"casetrack/internal/resilience/retry"
)

const (
	defaultWorkers         = 4
	defaultDeliveryTimeout = 30 * time.Second
	defaultDedupTTL        = 2 * time.Minute
)

// Service dispatches case notifications.
type Service interface {
	// AddMessage renders a notification of notifyType for caseID and submits
	// it for delivery.
	//
	// Validation, case lookup and rendering always happen before AddMessage
	// returns. In async mode the notification is then queued and the call
	// returns without waiting for the provider; in sync mode the provider is
	// called inline.
	//
	// Returns:
	//   - *ConfigurationError: unknown type, empty targets, missing credentials
	//   - *LookupError: case context unavailable
	//   - *RenderError: a template placeholder had no value
	//   - ErrDuplicateNotification: same message for the same case within the dedup window
	//   - *DeliveryError: queue full, circuit open, or (sync mode) provider failure
	AddMessage(ctx context.Context, notifyType string, caseID int64, args Args) (*entity.Notification, error)

	// Start launches the delivery workers. It returns immediately.
	Start(ctx context.Context) error

	// Requeue hands an already rendered notification back for delivery.
	// Without a queue it is sent inline.
	Requeue(ctx context.Context, n *entity.Notification) error

	// GetChannelHealth returns the health status of the push channel.
	GetChannelHealth() []ChannelHealthStatus

	// Shutdown stops consuming, waits for in-flight deliveries or the
	// context deadline, and closes the queue.
	Shutdown(ctx context.Context) error
}

// Config holds the dispatch settings.
type Config struct {
	// Async queues notifications for the workers instead of sending inline.
	Async bool
	// Workers is the number of concurrent delivery workers.
	Workers int
	// DeliveryTimeout bounds one delivery including provider retries.
	DeliveryTimeout time.Duration
	// DedupTTL is the duplicate suppression window. Ignored without a Deduper.
	DedupTTL time.Duration
}

// Dependencies are the collaborators of the service. Deliveries, Queue and
// Deduper are optional.
type Dependencies struct {
	Registry   *Registry
	Renderer   *Renderer
	Cases      repository.CaseRepository
	Channel    Channel
	Deliveries repository.DeliveryRepository
	Queue      Queue
	Deduper    Deduper
}

// ChannelHealthStatus represents the health status of a notification channel.
type ChannelHealthStatus struct {
	Name               string `json:"name"`
	Enabled            bool   `json:"enabled"`
	CircuitBreakerOpen bool   `json:"circuit_breaker_open"`
	State              string `json:"state"`
	ConsecutiveFails   uint32 `json:"consecutive_failures"`
}

// service is the concrete implementation of Service interface.
type service struct {
	cfg        Config
	registry   *Registry
	renderer   *Renderer
	cases      repository.CaseRepository
	channel    Channel
	deliveries repository.DeliveryRepository
	queue      Queue
	deduper    Deduper
	breaker    *circuitbreaker.CircuitBreaker
	now        func() time.Time

	startOnce     sync.Once
	wg            sync.WaitGroup // consumers
	inflight      sync.WaitGroup // deliveries
	consumeCtx    context.Context
	consumeCancel context.CancelFunc
}

// NewService creates a notification service.
// A MemoryQueue sized 100 is used when Async is set and no Queue is given.
func NewService(deps Dependencies, cfg Config) (Service, error) {
	if deps.Registry == nil {
		return nil, errors.New("notify: registry is required")
	}
	if deps.Cases == nil {
		return nil, errors.New("notify: case repository is required")
	}
	if deps.Channel == nil {
		return nil, errors.New("notify: channel is required")
	}
	if deps.Renderer == nil {
		deps.Renderer = NewRenderer(RenderOptions{})
	}
	if cfg.Workers < 1 {
		cfg.Workers = defaultWorkers
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = defaultDeliveryTimeout
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = defaultDedupTTL
	}
	if cfg.Async && deps.Queue == nil {
		deps.Queue = NewMemoryQueue(100)
	}

	cbCfg := circuitbreaker.PushChannelConfig(deps.Channel.Name())
	cbCfg.IsSuccessful = func(err error) bool {
		return err == nil || notifier.IsClientFault(err)
	}
	cbCfg.OnOpen = RecordCircuitBreakerOpen

	consumeCtx, consumeCancel := context.WithCancel(context.Background())

	return &service{
		cfg:           cfg,
		registry:      deps.Registry,
		renderer:      deps.Renderer,
		cases:         deps.Cases,
		channel:       deps.Channel,
		deliveries:    deps.Deliveries,
		queue:         deps.Queue,
		deduper:       deps.Deduper,
		breaker:       circuitbreaker.New(cbCfg),
		now:           time.Now,
		consumeCtx:    consumeCtx,
		consumeCancel: consumeCancel,
	}, nil
}

// AddMessage implements Service.AddMessage.
func (s *service) AddMessage(ctx context.Context, notifyType string, caseID int64, args Args) (*entity.Notification, error) {
	logger := logging.WithRequestID(ctx, logging.FromContext(ctx)).With(
		slog.String("notify_type", notifyType),
		slog.Int64("case_id", caseID))

	nt, err := s.registry.Lookup(notifyType)
	if err != nil {
		return nil, s.reject(logger, "configuration", err)
	}
	if err := s.channel.Validate(); err != nil {
		return nil, s.reject(logger, "configuration", &ConfigurationError{NotifyType: notifyType, Err: err})
	}
	targeting, err := BuildTargeting(nt.Targets)
	if err != nil {
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			cfgErr.NotifyType = notifyType
		}
		return nil, s.reject(logger, "configuration", err)
	}

	info, err := s.cases.GetCaseInfo(ctx, caseID)
	if err != nil {
		return nil, s.reject(logger, "lookup", &LookupError{CaseID: caseID, Err: err})
	}

	msg, err := s.renderer.Render(nt, info, args)
	if err != nil {
		return nil, s.reject(logger, "render", err)
	}

	n := &entity.Notification{
		ID:        uuid.NewString(),
		Type:      notifyType,
		CaseID:    caseID,
		Message:   msg,
		Targeting: targeting,
		Status:    entity.StatusPending,
		CreatedAt: s.now().UTC(),
	}
	logger = logger.With(slog.String("notification_id", n.ID))
	ctx = logging.WithNotificationLogger(ctx, logger, n.ID)

	claimed := false
	if s.deduper != nil {
		ok, err := s.deduper.Claim(ctx, DedupKey(n), s.cfg.DedupTTL)
		switch {
		case err != nil:
			logger.Warn("dedup check failed, sending anyway", slog.Any("error", err))
		case !ok:
			RecordRejected("duplicate")
			logger.Info("duplicate notification suppressed")
			return n, ErrDuplicateNotification
		default:
			claimed = true
		}
	}

	s.recordCreated(ctx, logger, n)

	if !s.cfg.Async {
		RecordAccepted(notifyType, "inline")
		if err := s.send(ctx, n); err != nil {
			s.releaseClaim(ctx, logger, n, claimed)
			return n, err
		}
		return n, nil
	}

	if err := s.queue.Enqueue(ctx, n); err != nil {
		RecordDropped(s.channel.Name(), "queue_full")
		n.Status = entity.StatusFailed
		n.LastError = err.Error()
		s.recordFailed(ctx, logger, n)
		s.releaseClaim(ctx, logger, n, claimed)
		logger.Warn("notification not queued", slog.Any("error", err))
		return n, &DeliveryError{NotificationID: n.ID, NotifyType: n.Type, CaseID: n.CaseID, Err: err}
	}
	RecordAccepted(notifyType, "queued")
	logger.Info("notification queued")
	return n, nil
}

// releaseClaim frees the dedup key of a notification the caller gets back
// as failed, so an immediate retry is not suppressed.
func (s *service) releaseClaim(ctx context.Context, logger *slog.Logger, n *entity.Notification, claimed bool) {
	if !claimed {
		return
	}
	if err := s.deduper.Release(context.WithoutCancel(ctx), DedupKey(n)); err != nil {
		logger.Warn("dedup release failed", slog.Any("error", err))
	}
}

func (s *service) reject(logger *slog.Logger, reason string, err error) error {
	RecordRejected(reason)
	if reason == "configuration" {
		logger.Error("notification rejected", slog.String("reason", reason), slog.Any("error", err))
	} else {
		logger.Warn("notification rejected", slog.String("reason", reason), slog.Any("error", err))
	}
	return err
}

// Start implements Service.Start.
func (s *service) Start(ctx context.Context) error {
	if !s.cfg.Async {
		return nil
	}
	s.startOnce.Do(func() {
		slog.Info("starting delivery workers", slog.Int("workers", s.cfg.Workers))
		for i := 0; i < s.cfg.Workers; i++ {
			s.wg.Add(1)
			go func(worker int) {
				defer s.wg.Done()
				if err := s.queue.Consume(s.consumeCtx, s.deliver); err != nil {
					slog.Error("delivery worker stopped",
						slog.Int("worker", worker),
						slog.Any("error", err))
				}
			}(i)
		}
	})
	return nil
}

// Requeue implements Service.Requeue.
func (s *service) Requeue(ctx context.Context, n *entity.Notification) error {
	if s.queue == nil {
		return s.send(ctx, n)
	}
	return s.queue.Enqueue(ctx, n)
}

// deliver is the queue handler. Shutdown stops consumption but lets a
// started delivery run to completion within DeliveryTimeout.
func (s *service) deliver(ctx context.Context, n *entity.Notification) {
	s.inflight.Add(1)
	defer s.inflight.Done()

	IncrementActiveWorkers()
	defer DecrementActiveWorkers()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in delivery worker",
				slog.String("notification_id", n.ID),
				slog.String("channel", s.channel.Name()),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	_ = s.send(context.WithoutCancel(ctx), n)
}

// send submits n through the circuit breaker and records the outcome.
func (s *service) send(ctx context.Context, n *entity.Notification) error {
	name := s.channel.Name()
	ctx, logger := logging.NotificationLogger(ctx, n)
	logger = logger.With(slog.String("channel", name))

	ctx, span := tracing.StartDelivery(ctx, n)
	defer span.End()

	if !s.channel.IsEnabled() {
		RecordDropped(name, "disabled")
		err := &DeliveryError{NotificationID: n.ID, NotifyType: n.Type, CaseID: n.CaseID, Err: ErrChannelDisabled}
		tracing.RecordError(span, err)
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.DeliveryTimeout)
	defer cancel()

	start := time.Now()
	RecordDispatch(name)
	n.Attempts++

	err := s.breaker.Run(func() error { return s.channel.Send(ctx, n) })
	duration := time.Since(start)

	if err != nil {
		if circuitbreaker.IsOpenError(err) {
			RecordDropped(name, "circuit_open")
			err = fmt.Errorf("%w: %w", ErrCircuitBreakerOpen, err)
		}
		RecordFailure(name, duration)
		n.Status = entity.StatusFailed
		n.LastError = err.Error()
		s.recordFailed(ctx, logger, n)
		tracing.RecordError(span, err)

		logger.Warn("notification delivery failed",
			slog.Int("attempts", n.Attempts),
			slog.Duration("send_duration", duration),
			slog.Any("error", err))
		return &DeliveryError{NotificationID: n.ID, NotifyType: n.Type, CaseID: n.CaseID, Err: err}
	}

	RecordSuccess(name, duration)
	n.Status = entity.StatusSent
	n.LastError = ""
	s.recordSent(ctx, logger, n)

	logger.Info("notification delivered",
		slog.Int("attempts", n.Attempts),
		slog.Duration("send_duration", duration))
	return nil
}

func (s *service) recordCreated(ctx context.Context, logger *slog.Logger, n *entity.Notification) {
	s.writeLog(ctx, logger, "create", func() error { return s.deliveries.Create(ctx, n) })
}

func (s *service) recordSent(ctx context.Context, logger *slog.Logger, n *entity.Notification) {
	s.writeLog(ctx, logger, "mark sent", func() error { return s.deliveries.MarkSent(ctx, n.ID, n.Attempts) })
}

func (s *service) recordFailed(ctx context.Context, logger *slog.Logger, n *entity.Notification) {
	s.writeLog(ctx, logger, "mark failed", func() error {
		return s.deliveries.MarkFailed(ctx, n.ID, n.Attempts, n.LastError)
	})
}

// writeLog updates the delivery log. Failures are logged; the delivery
// outcome stands regardless.
func (s *service) writeLog(ctx context.Context, logger *slog.Logger, op string, fn func() error) {
	if s.deliveries == nil {
		return
	}
	if err := retry.WithBackoff(ctx, retry.DBConfig(), fn); err != nil {
		logger.Error("delivery log update failed", slog.String("op", op), slog.Any("error", err))
	}
}

// GetChannelHealth implements Service.GetChannelHealth.
func (s *service) GetChannelHealth() []ChannelHealthStatus {
	counts := s.breaker.Counts()
	return []ChannelHealthStatus{{
		Name:               s.channel.Name(),
		Enabled:            s.channel.IsEnabled(),
		CircuitBreakerOpen: s.breaker.IsOpen(),
		State:              s.breaker.State().String(),
		ConsecutiveFails:   counts.ConsecutiveFailures,
	}}
}

// Shutdown implements Service.Shutdown.
func (s *service) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down notification service")

	s.consumeCancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		s.inflight.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		slog.Info("Notification service shutdown complete")
	case <-ctx.Done():
		slog.Warn("Notification service shutdown timeout")
		err = ctx.Err()
	}

	if s.queue != nil {
		if cerr := s.queue.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close queue: %w", cerr)
		}
		s.failUndelivered()
	}
	return err
}

// failUndelivered marks notifications left in an in-process queue as failed
// so the redelivery sweep picks them up after a restart.
func (s *service) failUndelivered() {
	mq, ok := s.queue.(*MemoryQueue)
	if !ok {
		return
	}
	left := mq.Drain()
	if len(left) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, n := range left {
		n.Status = entity.StatusFailed
		n.LastError = "not delivered before shutdown"
		s.recordFailed(ctx, logging.WithNotification(slog.Default(), n), n)
	}
	slog.Warn("undelivered notifications marked failed", slog.Int("count", len(left)))
}

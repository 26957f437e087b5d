// Package nats provides a delivery queue on NATS core subjects. Workers in
// every notifier replica join one queue group, so each notification is
// handled by exactly one of them.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	natspkg "github.com/nats-io/nats.go"

	"casetrack/internal/domain/entity"
	"casetrack/internal/observability/tracing"
	"casetrack/internal/usecase/notify"
)

const (
	DefaultSubject = "casetrack.notifications.deliver"
	DefaultGroup   = "notifier-workers"

	defaultBuffer = 256
)

// Config configures the queue connection.
type Config struct {
	URL     string
	Subject string
	Group   string
	// Buffer is the per-consumer pending message channel size.
	Buffer int
	// ConnectTimeout bounds the initial dial.
	ConnectTimeout time.Duration
}

// Queue implements notify.Queue over NATS.
type Queue struct {
	nc      *natspkg.Conn
	subject string
	group   string
	buffer  int
}

var _ notify.Queue = (*Queue)(nil)

// Connect dials the server and returns a queue bound to cfg.Subject.
func Connect(cfg Config) (*Queue, error) {
	if cfg.URL == "" {
		cfg.URL = natspkg.DefaultURL
	}
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	if cfg.Group == "" {
		cfg.Group = DefaultGroup
	}
	if cfg.Buffer < 1 {
		cfg.Buffer = defaultBuffer
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}

	nc, err := natspkg.Connect(cfg.URL,
		natspkg.Name("casetrack-notifier"),
		natspkg.Timeout(cfg.ConnectTimeout),
		natspkg.MaxReconnects(-1),
		natspkg.DisconnectErrHandler(func(_ *natspkg.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", slog.Any("error", err))
			}
		}),
		natspkg.ReconnectHandler(func(c *natspkg.Conn) {
			slog.Info("nats reconnected", slog.String("url", c.ConnectedUrlRedacted()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{nc: nc, subject: cfg.Subject, group: cfg.Group, buffer: cfg.Buffer}, nil
}

// IsConnected reports whether the connection is currently up.
func (q *Queue) IsConnected() bool {
	return q.nc != nil && q.nc.Status() == natspkg.CONNECTED
}

// Enqueue implements notify.Queue. The trace context travels in message headers.
func (q *Queue) Enqueue(ctx context.Context, n *entity.Notification) error {
	msg, err := encode(ctx, q.subject, n)
	if err != nil {
		return err
	}
	if err := q.nc.PublishMsg(msg); err != nil {
		if errors.Is(err, natspkg.ErrConnectionClosed) {
			return fmt.Errorf("%w: %w", notify.ErrQueueClosed, err)
		}
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Consume implements notify.Queue. Messages are processed one at a time per
// call; run several consumers for parallelism. When ctx is done the
// subscription is dropped and messages already buffered for this consumer
// are still handed to h, since the queue group will not redeliver them.
func (q *Queue) Consume(ctx context.Context, h notify.Handler) error {
	msgs := make(chan *natspkg.Msg, q.buffer)
	sub, err := q.nc.ChanQueueSubscribe(q.subject, q.group, msgs)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", q.subject, err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = sub.Unsubscribe()
			if n := drainBuffered(context.WithoutCancel(ctx), msgs, h); n > 0 {
				slog.Info("delivered buffered notifications after stop", slog.Int("count", n))
			}
			return nil
		case msg := <-msgs:
			handle(ctx, msg, h)
		}
	}
}

// drainBuffered hands every message left in msgs to h without blocking and
// returns how many were handled.
func drainBuffered(ctx context.Context, msgs <-chan *natspkg.Msg, h notify.Handler) int {
	n := 0
	for {
		select {
		case msg := <-msgs:
			handle(ctx, msg, h)
			n++
		default:
			return n
		}
	}
}

func handle(ctx context.Context, msg *natspkg.Msg, h notify.Handler) {
	mctx, n, err := decode(ctx, msg)
	if err != nil {
		slog.Error("dropping undecodable notification message",
			slog.String("subject", msg.Subject),
			slog.Any("error", err))
		return
	}
	h(mctx, n)
}

// Close implements notify.Queue. Pending publishes are flushed first.
func (q *Queue) Close() error {
	if q.nc == nil || q.nc.IsClosed() {
		return nil
	}
	if err := q.nc.Drain(); err != nil {
		q.nc.Close()
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}

func encode(ctx context.Context, subject string, n *entity.Notification) (*natspkg.Msg, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal notification: %w", err)
	}
	msg := natspkg.NewMsg(subject)
	msg.Data = data
	msg.Header.Set("Notification-Id", n.ID)
	tracing.Inject(ctx, msg.Header)
	return msg, nil
}

func decode(ctx context.Context, msg *natspkg.Msg) (context.Context, *entity.Notification, error) {
	var n entity.Notification
	if err := json.Unmarshal(msg.Data, &n); err != nil {
		return ctx, nil, fmt.Errorf("unmarshal notification: %w", err)
	}
	if msg.Header != nil {
		ctx = tracing.Extract(ctx, msg.Header)
	}
	return ctx, &n, nil
}

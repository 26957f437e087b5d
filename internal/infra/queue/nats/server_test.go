package nats

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	natsserver "github.com/nats-io/nats-server/v2/test"
	natspkg "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"casetrack/internal/domain/entity"
	"casetrack/internal/usecase/notify"
)

/* ───────── helpers ───────── */

func runServer(t *testing.T) *server.Server {
	t.Helper()
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	s := natsserver.RunServer(&opts)
	t.Cleanup(s.Shutdown)
	return s
}

func connectQueue(t *testing.T, url string) *Queue {
	t.Helper()
	q, err := Connect(Config{URL: url, Subject: "test.deliver", Group: "test-workers"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func tracedContext() (context.Context, trace.TraceID) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	traceID, _ := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	spanID, _ := trace.SpanIDFromHex("b7ad6b7169203331")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
	return ctx, traceID
}

// received records handled notifications per id along with their trace ids.
type received struct {
	mu     sync.Mutex
	counts map[string]int
	traces map[string]trace.TraceID
}

func newReceived() *received {
	return &received{counts: map[string]int{}, traces: map[string]trace.TraceID{}}
}

func (r *received) handle(ctx context.Context, n *entity.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[n.ID]++
	r.traces[n.ID] = trace.SpanContextFromContext(ctx).TraceID()
}

func (r *received) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := 0
	for _, c := range r.counts {
		sum += c
	}
	return sum
}

/* ───────── round trip ───────── */

func TestQueue_EnqueueConsume_QueueGroup(t *testing.T) {
	s := runServer(t)
	producer := connectQueue(t, s.ClientURL())
	workerA := connectQueue(t, s.ClientURL())
	workerB := connectQueue(t, s.ClientURL())
	assert.True(t, producer.IsConnected())

	base := s.NumSubscriptions()
	ctx, cancel := context.WithCancel(context.Background())
	rec := newReceived()
	var wg sync.WaitGroup
	for _, q := range []*Queue{workerA, workerB} {
		wg.Add(1)
		go func(q *Queue) {
			defer wg.Done()
			assert.NoError(t, q.Consume(ctx, rec.handle))
		}(q)
	}
	require.Eventually(t, func() bool { return s.NumSubscriptions() >= base+2 }, 5*time.Second, 10*time.Millisecond)

	parent, traceID := tracedContext()
	const count = 20
	for i := 0; i < count; i++ {
		n := sampleNotification()
		n.ID = fmt.Sprintf("n-%d", i)
		require.NoError(t, producer.Enqueue(parent, n))
	}

	require.Eventually(t, func() bool { return rec.total() == count }, 5*time.Second, 10*time.Millisecond)
	cancel()
	wg.Wait()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Len(t, rec.counts, count)
	for id, c := range rec.counts {
		assert.Equal(t, 1, c, "notification %s handled more than once", id)
		assert.Equal(t, traceID, rec.traces[id], "trace context lost for %s", id)
	}
}

func TestQueue_Enqueue_Closed(t *testing.T) {
	s := runServer(t)
	q := connectQueue(t, s.ClientURL())
	require.NoError(t, q.Close())
	require.Eventually(t, q.nc.IsClosed, 5*time.Second, 10*time.Millisecond)

	err := q.Enqueue(context.Background(), sampleNotification())
	assert.ErrorIs(t, err, notify.ErrQueueClosed)
	assert.False(t, q.IsConnected())
}

/* ───────── shutdown ───────── */

func TestDrainBuffered_HandsOffWithLiveContext(t *testing.T) {
	parent, traceID := tracedContext()
	msgs := make(chan *natspkg.Msg, 4)
	for i := 0; i < 3; i++ {
		n := sampleNotification()
		n.ID = fmt.Sprintf("n-%d", i)
		msg, err := encode(parent, "test.deliver", n)
		require.NoError(t, err)
		msgs <- msg
	}
	bad := natspkg.NewMsg("test.deliver")
	bad.Data = []byte("not json")
	msgs <- bad

	stopped, cancel := context.WithCancel(context.Background())
	cancel()

	var ctxErrs []error
	rec := newReceived()
	handled := drainBuffered(context.WithoutCancel(stopped), msgs, func(ctx context.Context, n *entity.Notification) {
		ctxErrs = append(ctxErrs, ctx.Err())
		rec.handle(ctx, n)
	})

	assert.Equal(t, 4, handled)
	assert.Equal(t, 3, rec.total())
	assert.Equal(t, []error{nil, nil, nil}, ctxErrs)
	assert.Equal(t, traceID, rec.traces["n-1"])
	assert.Empty(t, msgs)
}

func TestQueue_Consume_ReturnsOnCancel(t *testing.T) {
	s := runServer(t)
	q := connectQueue(t, s.ClientURL())
	base := s.NumSubscriptions()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Consume(ctx, func(context.Context, *entity.Notification) {}) }()
	require.Eventually(t, func() bool { return s.NumSubscriptions() > base }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Consume did not return after cancel")
	}
	assert.Eventually(t, func() bool { return s.NumSubscriptions() == base }, 5*time.Second, 10*time.Millisecond)
}

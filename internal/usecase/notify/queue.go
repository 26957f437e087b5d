package notify

import (
	"context"
	"sync"

	"casetrack/internal/domain/entity"
)

// Handler processes one dequeued notification.
type Handler func(ctx context.Context, n *entity.Notification)

// Queue decouples accepting a notification from delivering it.
type Queue interface {
	// Enqueue must not block on a full queue; it returns ErrQueueFull instead.
	Enqueue(ctx context.Context, n *entity.Notification) error
	// Consume calls h for each notification until ctx is done or the queue
	// is closed. It may be called from several goroutines.
	Consume(ctx context.Context, h Handler) error
	Close() error
}

// MemoryQueue is a bounded in-process queue.
type MemoryQueue struct {
	items  chan *entity.Notification
	mu     sync.RWMutex
	closed bool
}

// NewMemoryQueue creates a queue holding up to size notifications.
func NewMemoryQueue(size int) *MemoryQueue {
	if size < 1 {
		size = 1
	}
	return &MemoryQueue{items: make(chan *entity.Notification, size)}
}

// Enqueue implements Queue.
func (q *MemoryQueue) Enqueue(_ context.Context, n *entity.Notification) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.items <- n:
		SetQueueDepth(float64(len(q.items)))
		return nil
	default:
		return ErrQueueFull
	}
}

// Consume implements Queue. Items still buffered when the queue is closed
// are delivered before Consume returns.
func (q *MemoryQueue) Consume(ctx context.Context, h Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-q.items:
			if !ok {
				return nil
			}
			SetQueueDepth(float64(len(q.items)))
			h(ctx, n)
		}
	}
}

// Len returns the number of buffered notifications.
func (q *MemoryQueue) Len() int {
	return len(q.items)
}

// Close implements Queue. It is safe to call more than once.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.items)
	}
	return nil
}

// Drain removes and returns the buffered notifications without blocking.
func (q *MemoryQueue) Drain() []*entity.Notification {
	var out []*entity.Notification
	for {
		select {
		case n, ok := <-q.items:
			if !ok {
				SetQueueDepth(0)
				return out
			}
			out = append(out, n)
		default:
			SetQueueDepth(float64(len(q.items)))
			return out
		}
	}
}

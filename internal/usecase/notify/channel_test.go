package notify

import (
	"context"
	"sync"
	"time"

	"casetrack/internal/domain/entity"
)

// mockChannel is a scriptable Channel used across the package tests.
type mockChannel struct {
	name        string
	enabled     bool
	validateErr error
	sendError   error
	sendDelay   time.Duration
	panicOnSend bool
	sendCalled  int
	sent        []*entity.Notification
	mu          sync.Mutex
}

func (m *mockChannel) Name() string {
	return m.name
}

func (m *mockChannel) IsEnabled() bool {
	return m.enabled
}

func (m *mockChannel) Validate() error {
	return m.validateErr
}

func (m *mockChannel) Send(ctx context.Context, n *entity.Notification) error {
	m.mu.Lock()
	m.sendCalled++
	shouldPanic := m.panicOnSend
	m.mu.Unlock()

	if shouldPanic {
		panic("mock panic in Send()")
	}

	if !m.enabled {
		return ErrChannelDisabled
	}

	if m.sendDelay > 0 {
		select {
		case <-time.After(m.sendDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *n
	m.sent = append(m.sent, &copied)
	return m.sendError
}

func (m *mockChannel) getSendCalledCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sendCalled
}

func (m *mockChannel) setPanicOnSend(panic bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicOnSend = panic
}

func (m *mockChannel) setSendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendError = err
}

func (m *mockChannel) lastSent() *entity.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return nil
	}
	return m.sent[len(m.sent)-1]
}

var _ Channel = (*mockChannel)(nil)

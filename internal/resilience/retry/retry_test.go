package retry

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:    attempts,
		InitialDelay:   5 * time.Millisecond,
		MaxDelay:       20 * time.Millisecond,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

type providerErr struct {
	retry bool
	after time.Duration
}

func (e *providerErr) Error() string                 { return fmt.Sprintf("provider error (retry=%v)", e.retry) }
func (e *providerErr) Retryable() bool               { return e.retry }
func (e *providerErr) RetryAfterHint() time.Duration { return e.after }

var (
	errUnavailable = &providerErr{retry: true}
	errRejected    = &providerErr{retry: false}
)

/* ──────────────────────────────── 1. WithBackoff ──────────────────────────────── */

func TestWithBackoff(t *testing.T) {
	tests := []struct {
		name         string
		attempts     int
		failures     int
		err          error
		wantAttempts int
		wantErr      bool
	}{
		{name: "success on first attempt", attempts: 3, failures: 0, wantAttempts: 1},
		{name: "success after retry", attempts: 3, failures: 2, err: errUnavailable, wantAttempts: 3},
		{name: "max attempts exceeded", attempts: 3, failures: 5, err: errUnavailable, wantAttempts: 3, wantErr: true},
		{name: "rejected stops immediately", attempts: 3, failures: 5, err: errRejected, wantAttempts: 1, wantErr: true},
		{name: "connection reset retried", attempts: 2, failures: 1, err: syscall.ECONNRESET, wantAttempts: 2},
		{name: "zero attempts runs once", attempts: 0, failures: 5, err: errUnavailable, wantAttempts: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := WithBackoff(context.Background(), fastConfig(tt.attempts), func() error {
				calls++
				if calls <= tt.failures {
					return tt.err
				}
				return nil
			})

			assert.Equal(t, tt.wantAttempts, calls)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestWithBackoff_OnRetry(t *testing.T) {
	cfg := fastConfig(3)
	var seen []int
	cfg.OnRetry = func(attempt int, wait time.Duration, err error) {
		seen = append(seen, attempt)
		assert.LessOrEqual(t, wait, cfg.MaxDelay)
		assert.ErrorIs(t, err, errUnavailable)
	}

	err := WithBackoff(context.Background(), cfg, func() error { return errUnavailable })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retry attempts (3) exceeded")
	assert.Equal(t, []int{1, 2}, seen)
}

func TestWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig(5)
	cfg.InitialDelay = time.Second
	cfg.MaxDelay = time.Second

	calls := 0
	err := WithBackoff(ctx, cfg, func() error {
		calls++
		cancel()
		return errUnavailable
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, errUnavailable)
}

func TestWithBackoff_RetryAfterHintCappedByMaxDelay(t *testing.T) {
	cfg := fastConfig(2)
	cfg.MaxDelay = 30 * time.Millisecond

	var waited time.Duration
	cfg.OnRetry = func(_ int, wait time.Duration, _ error) { waited = wait }

	start := time.Now()
	calls := 0
	err := WithBackoff(context.Background(), cfg, func() error {
		calls++
		return &providerErr{retry: true, after: time.Hour}
	})

	assert.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 30*time.Millisecond, waited)
	assert.Less(t, time.Since(start), time.Second)
}

func TestConfig_WaitForPrefersLongerHint(t *testing.T) {
	cfg := Config{MaxDelay: time.Second}

	assert.Equal(t, 200*time.Millisecond, cfg.waitFor(100*time.Millisecond, &providerErr{retry: true, after: 200 * time.Millisecond}))
	assert.Equal(t, 100*time.Millisecond, cfg.waitFor(100*time.Millisecond, &providerErr{retry: true, after: 50 * time.Millisecond}))
	assert.Equal(t, 100*time.Millisecond, cfg.waitFor(100*time.Millisecond, errors.New("plain")))
	assert.Equal(t, time.Second, cfg.waitFor(5*time.Second, errors.New("plain")))
}

/* ──────────────────────────────── 2. IsRetryable ──────────────────────────────── */

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{name: "nil error", err: nil, retryable: false},
		{name: "context canceled", err: context.Canceled, retryable: false},
		{name: "context deadline exceeded", err: context.DeadlineExceeded, retryable: false},
		{name: "retryable provider error", err: errUnavailable, retryable: true},
		{name: "rejected provider error", err: errRejected, retryable: false},
		{name: "wrapped provider error", err: fmt.Errorf("onesignal: %w", errUnavailable), retryable: true},
		{name: "ECONNREFUSED", err: syscall.ECONNREFUSED, retryable: true},
		{name: "ECONNRESET", err: syscall.ECONNRESET, retryable: true},
		{name: "ETIMEDOUT", err: syscall.ETIMEDOUT, retryable: true},
		{name: "ENETUNREACH", err: syscall.ENETUNREACH, retryable: true},
		{name: "generic error", err: errors.New("some error"), retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

/* ──────────────────────────────── 3. Presets ──────────────────────────────── */

func TestPresets(t *testing.T) {
	push := PushProviderConfig()
	assert.Equal(t, 2, push.MaxAttempts)
	assert.LessOrEqual(t, push.MaxDelay, 10*time.Second)

	db := DBConfig()
	assert.Equal(t, 3, db.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, db.InitialDelay)
}

func TestAddJitter(t *testing.T) {
	duration := 100 * time.Millisecond

	for i := 0; i < 10; i++ {
		got := addJitter(duration, 0.2)
		assert.GreaterOrEqual(t, got, duration)
		assert.LessOrEqual(t, got, time.Duration(float64(duration)*1.2))
	}

	assert.Equal(t, duration, addJitter(duration, 0))
}

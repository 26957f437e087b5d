package notify

import (
	"errors"
	"fmt"
)

// Sentinel errors for notify use case operations.
var (
	// ErrUnknownType indicates that a notification type is not in the registry.
	ErrUnknownType = errors.New("unknown notification type")

	// ErrEmptyTargets indicates a role list that is present but empty. An
	// absent list means broadcast; an empty one can never reach anybody.
	ErrEmptyTargets = errors.New("notification targets list is empty")

	// ErrMissingCredentials indicates that the push provider app id or API key
	// is not configured.
	ErrMissingCredentials = errors.New("push provider credentials not configured")

	// ErrQueueFull indicates that the delivery queue rejected a notification.
	ErrQueueFull = errors.New("delivery queue is full")

	// ErrQueueClosed indicates an enqueue after the queue was closed.
	ErrQueueClosed = errors.New("delivery queue is closed")

	// ErrDuplicateNotification indicates that an identical notification for
	// the same case was already accepted within the dedup window.
	ErrDuplicateNotification = errors.New("duplicate notification suppressed")

	// ErrChannelDisabled indicates that Send() was called on a disabled channel.
	ErrChannelDisabled = errors.New("channel is disabled")

	// ErrCircuitBreakerOpen indicates that the circuit breaker is open for this channel
	// and notifications are being rejected to prevent continuous failures.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open for this channel")
)

// ConfigurationError reports a problem with the registry entry or the
// provider settings. It is never caused by the caller's arguments alone.
type ConfigurationError struct {
	NotifyType string
	Err        error
}

func (e *ConfigurationError) Error() string {
	if e.NotifyType == "" {
		return fmt.Sprintf("notify configuration: %v", e.Err)
	}
	return fmt.Sprintf("notify configuration (type %q): %v", e.NotifyType, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// LookupError reports that the case context could not be fetched.
type LookupError struct {
	CaseID int64
	Err    error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("case %d lookup: %v", e.CaseID, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// RenderError reports that a message could not be built. Placeholder names
// the template field that had no value, when that is the cause.
type RenderError struct {
	NotifyType  string
	Placeholder string
	Err         error
}

func (e *RenderError) Error() string {
	if e.Placeholder != "" {
		return fmt.Sprintf("render %q: placeholder {%s}: %v", e.NotifyType, e.Placeholder, e.Err)
	}
	return fmt.Sprintf("render %q: %v", e.NotifyType, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// DeliveryError reports that the push provider did not accept a notification:
// network failure, non-2xx status, malformed response, full queue or open
// circuit breaker.
type DeliveryError struct {
	NotificationID string
	NotifyType     string
	CaseID         int64
	Err            error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %q for case %d: %v", e.NotifyType, e.CaseID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IsDeliveryFailure reports whether err is a DeliveryError. Callers treat
// these as non-fatal to the triggering case update.
func IsDeliveryFailure(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}

package notify

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"casetrack/internal/domain/entity"
)

func TestErrorTypes(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
		wantIs  error
	}{
		{
			name:    "configuration with type",
			err:     &ConfigurationError{NotifyType: "x", Err: ErrUnknownType},
			wantMsg: `notify configuration (type "x"): unknown notification type`,
			wantIs:  ErrUnknownType,
		},
		{
			name:    "configuration without type",
			err:     &ConfigurationError{Err: ErrMissingCredentials},
			wantMsg: "notify configuration: push provider credentials not configured",
			wantIs:  ErrMissingCredentials,
		},
		{
			name:    "lookup",
			err:     &LookupError{CaseID: 9, Err: entity.ErrNotFound},
			wantMsg: "case 9 lookup: entity not found",
			wantIs:  entity.ErrNotFound,
		},
		{
			name:    "render with placeholder",
			err:     &RenderError{NotifyType: "ct_ready", Placeholder: "ct_num", Err: errors.New("no value supplied")},
			wantMsg: `render "ct_ready": placeholder {ct_num}: no value supplied`,
		},
		{
			name:    "delivery",
			err:     &DeliveryError{NotifyType: "ct_ready", CaseID: 3, Err: ErrQueueFull},
			wantMsg: `deliver "ct_ready" for case 3: delivery queue is full`,
			wantIs:  ErrQueueFull,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
			if tt.wantIs != nil {
				assert.ErrorIs(t, tt.err, tt.wantIs)
			}
		})
	}
}

func TestIsDeliveryFailure(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", &DeliveryError{Err: errors.New("x")})

	assert.True(t, IsDeliveryFailure(wrapped))
	assert.False(t, IsDeliveryFailure(&RenderError{Err: errors.New("x")}))
	assert.False(t, IsDeliveryFailure(ErrDuplicateNotification))
	assert.False(t, IsDeliveryFailure(nil))
}

func TestDedupKey(t *testing.T) {
	a := &entity.Notification{Type: "ct_ready", CaseID: 1, Message: "AL 34F -- CT 1, READY"}
	b := *a
	c := *a
	c.CaseID = 2
	d := *a
	d.Message = "AL 34F -- CT 2, READY"

	assert.Equal(t, DedupKey(a), DedupKey(&b))
	assert.NotEqual(t, DedupKey(a), DedupKey(&c))
	assert.NotEqual(t, DedupKey(a), DedupKey(&d))
	assert.Contains(t, DedupKey(a), "notify:dedup:")
}

package notifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoOpNotifier_Notify(t *testing.T) {
	var n Notifier = NewNoOpNotifier()

	receipt, err := n.Notify(context.Background(), broadcastNotification("CT 2, READY"))
	require.NoError(t, err)
	assert.Equal(t, &Receipt{}, receipt)
}

func TestNoOpNotifier_Notify_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewNoOpNotifier().Notify(ctx, broadcastNotification("x"))
	assert.NoError(t, err)
}

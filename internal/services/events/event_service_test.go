package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/interfaces"
)

func TestService_PublishSyncDeliversToSubscribers(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	var calls int32
	handler := func(ctx context.Context, event interfaces.Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}
	_, err := svc.Subscribe(interfaces.EventJobCompleted, handler)
	require.NoError(t, err)
	_, err = svc.Subscribe(interfaces.EventJobCompleted, handler)
	require.NoError(t, err)
	_, err = svc.Subscribe(interfaces.EventJobProgress, handler)
	require.NoError(t, err)

	require.NoError(t, svc.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventJobCompleted}))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestService_Unsubscribe(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	var calls int32
	id, err := svc.Subscribe(interfaces.EventWorkflowCompleted, func(ctx context.Context, event interfaces.Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, svc.Unsubscribe(id))
	assert.Error(t, svc.Unsubscribe(id))

	require.NoError(t, svc.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventWorkflowCompleted}))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestService_PublishSyncReportsHandlerErrors(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	_, err := svc.Subscribe(interfaces.EventPageCompleted, func(ctx context.Context, event interfaces.Event) error {
		return errors.New("client gone")
	})
	require.NoError(t, err)

	assert.Error(t, svc.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventPageCompleted}))
}

func TestService_SubscribeRejectsNilHandler(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	_, err := svc.Subscribe(interfaces.EventJobProgress, nil)
	assert.Error(t, err)
}

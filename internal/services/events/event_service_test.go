package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/interfaces"
)

func TestSubscribe_NilHandler(t *testing.T) {
	service := NewService(arbor.NewNoOpLogger())
	_, err := service.Subscribe(interfaces.EventNotice, nil)
	assert.Error(t, err)
}

func TestPublishSync_DeliversToTypeAndWildcard(t *testing.T) {
	service := NewService(arbor.NewNoOpLogger())
	defer service.Close()

	var mu sync.Mutex
	var received []string

	record := func(name string) interfaces.EventHandler {
		return func(ctx context.Context, event interfaces.Event) error {
			mu.Lock()
			defer mu.Unlock()
			received = append(received, name+":"+string(event.Type))
			return nil
		}
	}

	_, err := service.Subscribe(interfaces.EventJobCreated, record("typed"))
	require.NoError(t, err)
	_, err = service.Subscribe(interfaces.EventAll, record("all"))
	require.NoError(t, err)
	_, err = service.Subscribe(interfaces.EventJobRemoved, record("other"))
	require.NoError(t, err)

	require.NoError(t, service.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventJobCreated}))

	assert.ElementsMatch(t, []string{"typed:job_created", "all:job_created"}, received)
}

func TestSubscription_CloseStopsDelivery(t *testing.T) {
	service := NewService(arbor.NewNoOpLogger())
	defer service.Close()

	calls := 0
	sub, err := service.Subscribe(interfaces.EventNotice, func(ctx context.Context, event interfaces.Event) error {
		calls++
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, service.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventNotice}))
	sub.Close()
	sub.Close()
	require.NoError(t, service.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventNotice}))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, service.SubscriberCount(interfaces.EventNotice))
}

func TestPublishSync_ReportsHandlerErrorsAndPanics(t *testing.T) {
	service := NewService(arbor.NewNoOpLogger())
	defer service.Close()

	_, _ = service.Subscribe(interfaces.EventNotice, func(ctx context.Context, event interfaces.Event) error {
		return errors.New("failed")
	})
	_, _ = service.Subscribe(interfaces.EventNotice, func(ctx context.Context, event interfaces.Event) error {
		panic("boom")
	})

	err := service.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventNotice})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors")
}

func TestPublish_Async(t *testing.T) {
	service := NewService(arbor.NewNoOpLogger())
	defer service.Close()

	done := make(chan interfaces.Event, 1)
	_, err := service.Subscribe(interfaces.EventMetadataComplete, func(ctx context.Context, event interfaces.Event) error {
		done <- event
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, service.Publish(context.Background(), interfaces.Event{Type: interfaces.EventMetadataComplete, Payload: "invoice.docx"}))

	select {
	case event := <-done:
		assert.Equal(t, "invoice.docx", event.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

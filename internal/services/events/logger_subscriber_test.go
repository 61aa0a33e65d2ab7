package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/interfaces"
	"github.com/ternarybob/docsmith/internal/models"
)

func TestNewLoggerSubscriber(t *testing.T) {
	subscriber := NewLoggerSubscriber(arbor.NewNoOpLogger())
	ctx := context.Background()

	payloads := []interface{}{
		models.Job{ID: "job-1", Status: models.JobStatusRunning},
		&models.Job{ID: "job-2", Status: models.JobStatusDone},
		map[string]interface{}{"job_id": "job-3", "status": "error", "key": "invoice.docx"},
		nil,
	}

	for _, payload := range payloads {
		err := subscriber(ctx, interfaces.Event{Type: interfaces.EventJobStatusChanged, Payload: payload})
		assert.NoError(t, err)
	}
}

func TestSubscribeLoggerToAllEvents(t *testing.T) {
	service := NewService(arbor.NewNoOpLogger())
	defer service.Close()

	sub, err := SubscribeLoggerToAllEvents(service, arbor.NewNoOpLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, service.SubscriberCount(interfaces.EventAll))

	sub.Close()
	assert.Equal(t, 0, service.SubscriberCount(interfaces.EventAll))
}

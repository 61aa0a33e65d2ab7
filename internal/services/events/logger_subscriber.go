package events

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/interfaces"
	"github.com/ternarybob/docsmith/internal/models"
)

// NewLoggerSubscriber creates an event handler that logs all events
func NewLoggerSubscriber(logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		logEvent := logger.Debug().
			Str("event_type", string(event.Type))

		switch payload := event.Payload.(type) {
		case models.Job:
			logEvent = logEvent.Str("job_id", payload.ID).Str("status", string(payload.Status))
		case *models.Job:
			logEvent = logEvent.Str("job_id", payload.ID).Str("status", string(payload.Status))
		case map[string]interface{}:
			if id, ok := payload["job_id"].(string); ok {
				logEvent = logEvent.Str("job_id", id)
			}
			if key, ok := payload["key"].(string); ok {
				logEvent = logEvent.Str("key", key)
			}
			if status, ok := payload["status"].(string); ok {
				logEvent = logEvent.Str("status", status)
			}
		}

		logEvent.Msg("Event published")

		return nil
	}
}

// SubscribeLoggerToAllEvents subscribes the logger to every event
func SubscribeLoggerToAllEvents(eventService interfaces.EventService, logger arbor.ILogger) (interfaces.Subscription, error) {
	sub, err := eventService.Subscribe(interfaces.EventAll, NewLoggerSubscriber(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe logger to events: %w", err)
	}

	logger.Debug().Str("subscription_id", sub.ID()).Msg("Logger subscribed to all events")
	return sub, nil
}

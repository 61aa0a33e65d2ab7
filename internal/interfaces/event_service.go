package interfaces

import "context"

// EventType represents different event types pushed to host clients
type EventType string

const (
	EventJobCreated         EventType = "job_created"
	EventJobStatusChanged   EventType = "job_status_changed"
	EventJobRemoved         EventType = "job_removed"
	EventMetadataComplete   EventType = "metadata_complete"
	EventCompileProgress    EventType = "compile_progress"
	EventNotice             EventType = "notice"
	EventWindowStateChanged EventType = "window-state-changed"
	EventBackendStatus      EventType = "backend_status"
	EventTempFilesCleaned   EventType = "temp_files_cleaned"
	EventSetupCompleted     EventType = "setup_completed"
	EventShutdownRequested  EventType = "shutdown_requested"
	EventLog                EventType = "log"

	// EventAll subscribes to every event type
	EventAll EventType = "*"
)

// Event represents a host event
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// Subscription is the handle returned by Subscribe. Close stops delivery
// and is safe to call more than once.
type Subscription interface {
	ID() string
	Close()
}

// EventService manages the pub/sub event bus
type EventService interface {
	// Subscribe to an event type
	Subscribe(eventType EventType, handler EventHandler) (Subscription, error)

	// Publish an event to all subscribers
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes event and waits for all handlers to complete
	PublishSync(ctx context.Context, event Event) error

	// SubscriberCount returns the number of live subscriptions for eventType
	SubscriberCount(eventType EventType) int

	// Close drops every subscription
	Close() error
}

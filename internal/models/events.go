// -----------------------------------------------------------------------
// Stream Events - Tagged variants for server-pushed SSE messages
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownEvent is returned for a well-formed message with an unrecognised type
	ErrUnknownEvent = errors.New("unknown stream event type")
	// ErrMalformedEvent is returned for messages that are not valid JSON or miss required fields
	ErrMalformedEvent = errors.New("malformed stream event")
)

// StreamEventType is the value of the "type" field of a stream message
type StreamEventType string

const (
	StreamEventConnected    StreamEventType = "connected"
	StreamEventNotification StreamEventType = "notification"
	StreamEventProcessing   StreamEventType = "processing"
	StreamEventComplete     StreamEventType = "complete"
	StreamEventStep         StreamEventType = "step"
	StreamEventLog          StreamEventType = "log"
	StreamEventDone         StreamEventType = "done"
	StreamEventError        StreamEventType = "error"
)

// StreamEvent is implemented by every parsed stream message variant
type StreamEvent interface {
	EventType() StreamEventType
}

// NotificationStatus is the status carried by a notification
type NotificationStatus string

const (
	NotificationProcessing NotificationStatus = "processing"
	NotificationComplete   NotificationStatus = "complete"
	NotificationError      NotificationStatus = "error"
)

// ConnectedEvent is sent once when the server accepts the stream
type ConnectedEvent struct {
	ClientID string `json:"clientId,omitempty"`
}

// NotificationEvent reports the state of one tracked item (a filename or a template slug)
type NotificationEvent struct {
	Status   NotificationStatus `json:"status"`
	Filename string             `json:"filename,omitempty"`
	Slug     string             `json:"slug,omitempty"`
	Message  string             `json:"message,omitempty"`
}

// Key returns the tracked item identifier, preferring the filename
func (e NotificationEvent) Key() string {
	if e.Filename != "" {
		return e.Filename
	}
	return e.Slug
}

// StepEvent reports progress of one named step
type StepEvent struct {
	Name     string   `json:"name"`
	Status   string   `json:"status"` // start, ok, error
	Progress *float64 `json:"progress,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// LogEvent is a free-form log line
type LogEvent struct {
	Level   string `json:"level,omitempty"`
	Message string `json:"message"`
}

// DoneEvent terminates a compile or generation stream
type DoneEvent struct {
	OK      bool   `json:"ok"`
	File    string `json:"file,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorEvent terminates a stream with a failure
type ErrorEvent struct {
	Error string `json:"error"`
}

func (ConnectedEvent) EventType() StreamEventType    { return StreamEventConnected }
func (NotificationEvent) EventType() StreamEventType { return StreamEventNotification }
func (StepEvent) EventType() StreamEventType         { return StreamEventStep }
func (LogEvent) EventType() StreamEventType          { return StreamEventLog }
func (DoneEvent) EventType() StreamEventType         { return StreamEventDone }
func (ErrorEvent) EventType() StreamEventType        { return StreamEventError }

// streamEnvelope is the superset of fields any variant may carry
type streamEnvelope struct {
	Type     StreamEventType `json:"type"`
	Status   string          `json:"status"`
	Filename string          `json:"filename"`
	Slug     string          `json:"slug"`
	Message  string          `json:"message"`
	ClientID string          `json:"clientId"`
	Name     string          `json:"name"`
	Step     string          `json:"step"`
	Progress *float64        `json:"progress"`
	Level    string          `json:"level"`
	OK       *bool           `json:"ok"`
	File     string          `json:"file"`
	Error    string          `json:"error"`
}

// ParseStreamEvent parses one SSE data payload into its tagged variant.
//
// Notifications arrive either as {"type":"notification","status":...} or with
// the status as the type itself ({"type":"processing",...}). An "error" message
// that names a filename or slug is a notification; without one it terminates
// the stream.
func ParseStreamEvent(data []byte) (StreamEvent, error) {
	var env streamEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch env.Type {
	case StreamEventConnected:
		return ConnectedEvent{ClientID: env.ClientID}, nil

	case StreamEventNotification:
		return parseNotification(NotificationStatus(env.Status), env)

	case StreamEventProcessing, StreamEventComplete:
		return parseNotification(NotificationStatus(env.Type), env)

	case StreamEventError:
		if env.Filename != "" || env.Slug != "" {
			return parseNotification(NotificationError, env)
		}
		message := env.Error
		if message == "" {
			message = env.Message
		}
		return ErrorEvent{Error: message}, nil

	case StreamEventStep:
		name := env.Name
		if name == "" {
			name = env.Step
		}
		if name == "" {
			return nil, fmt.Errorf("%w: step without name", ErrMalformedEvent)
		}
		switch env.Status {
		case "start", "ok", "error":
		default:
			return nil, fmt.Errorf("%w: step %q has invalid status %q", ErrMalformedEvent, name, env.Status)
		}
		return StepEvent{Name: name, Status: env.Status, Progress: env.Progress, Message: env.Message}, nil

	case StreamEventLog:
		return LogEvent{Level: env.Level, Message: env.Message}, nil

	case StreamEventDone:
		ok := env.Error == ""
		if env.OK != nil {
			ok = *env.OK
		}
		return DoneEvent{OK: ok, File: env.File, Message: env.Message}, nil

	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
}

func parseNotification(status NotificationStatus, env streamEnvelope) (StreamEvent, error) {
	switch status {
	case NotificationProcessing, NotificationComplete, NotificationError:
	default:
		return nil, fmt.Errorf("%w: notification status %q", ErrMalformedEvent, status)
	}

	event := NotificationEvent{
		Status:   status,
		Filename: env.Filename,
		Slug:     env.Slug,
		Message:  env.Message,
	}
	if event.Message == "" && status == NotificationError {
		event.Message = env.Error
	}
	if event.Key() == "" {
		return nil, fmt.Errorf("%w: notification without filename or slug", ErrMalformedEvent)
	}
	return event, nil
}

// ClampPercent limits a progress value to [0,100]
func ClampPercent(value float64) int {
	switch {
	case value < 0:
		return 0
	case value > 100:
		return 100
	}
	return int(value)
}

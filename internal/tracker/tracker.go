// Package tracker follows server-side processing of uploaded files and
// templates over a notification stream. A Tracker owns one stream at a time
// together with the set of keys the server reports as in flight.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/common"
	"github.com/ternarybob/docsmith/internal/interfaces"
	"github.com/ternarybob/docsmith/internal/models"
	"github.com/ternarybob/docsmith/internal/notify"
	"github.com/ternarybob/docsmith/internal/sse"
)

// DefaultCompletionBuffer is the capacity of the completion channel
const DefaultCompletionBuffer = 16

// RefreshFunc reloads whatever view depends on a completed key
type RefreshFunc func(ctx context.Context, key string) error

// Completion is emitted once the server reports a key as complete
type Completion struct {
	Scope string    `json:"scope" yaml:"scope"`
	Key   string    `json:"key" yaml:"key"`
	At    time.Time `json:"at" yaml:"at"`
}

// Tracker is a metadata tracking session
type Tracker struct {
	name     string
	opener   interfaces.StreamOpener
	refresh  RefreshFunc
	notifier interfaces.Notifier
	events   interfaces.EventService
	logger   arbor.ILogger

	completions chan Completion

	mu         sync.Mutex
	stream     *sse.Stream
	scope      string
	generation uint64
	inFlight   map[string]struct{}
}

// Option configures a Tracker
type Option func(*Tracker)

// WithRefresh sets the callback run for every completed key
func WithRefresh(refresh RefreshFunc) Option {
	return func(t *Tracker) {
		t.refresh = refresh
	}
}

func WithNotifier(notifier interfaces.Notifier) Option {
	return func(t *Tracker) {
		t.notifier = notifier
	}
}

// WithEventService publishes metadata_complete events for completed keys
func WithEventService(events interfaces.EventService) Option {
	return func(t *Tracker) {
		t.events = events
	}
}

func WithLogger(logger arbor.ILogger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

func WithCompletionBuffer(size int) Option {
	return func(t *Tracker) {
		if size > 0 {
			t.completions = make(chan Completion, size)
		}
	}
}

// New creates a tracker that opens streams with opener
func New(name string, opener interfaces.StreamOpener, opts ...Option) *Tracker {
	t := &Tracker{
		name:        name,
		opener:      opener,
		logger:      arbor.NewNoOpLogger(),
		completions: make(chan Completion, DefaultCompletionBuffer),
		inFlight:    make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// StartTracking replaces the current session with a stream scoped to scope.
// The previous stream is closed before the new one is opened and the
// in-flight set starts empty. ctx bounds the lifetime of the new stream.
func (t *Tracker) StartTracking(ctx context.Context, scope string) error {
	t.mu.Lock()
	previous := t.stream
	t.stream = nil
	t.scope = scope
	t.generation++
	generation := t.generation
	t.inFlight = make(map[string]struct{})
	t.mu.Unlock()

	if previous != nil {
		_ = previous.Close()
	}

	stream, err := t.opener(ctx, scope)
	if err != nil {
		t.logger.Error().Err(err).Str("tracker", t.name).Str("scope", scope).Msg("Failed to open notification stream")
		return fmt.Errorf("failed to start tracking %s: %w", scope, err)
	}

	t.mu.Lock()
	if t.generation != generation {
		// superseded while dialing
		t.mu.Unlock()
		_ = stream.Close()
		return nil
	}
	t.stream = stream
	t.mu.Unlock()

	t.logger.Debug().Str("tracker", t.name).Str("scope", scope).Msg("Tracking started")

	common.SafeGo(t.logger, "tracker-"+t.name, func() {
		t.consume(ctx, generation, scope, stream)
	})

	return nil
}

// StopTracking closes the stream and forgets all in-flight keys
func (t *Tracker) StopTracking() {
	t.mu.Lock()
	stream := t.stream
	t.stream = nil
	t.generation++
	t.inFlight = make(map[string]struct{})
	t.mu.Unlock()

	if stream != nil {
		_ = stream.Close()
		t.logger.Debug().Str("tracker", t.name).Msg("Tracking stopped")
	}
}

// Active reports whether a stream is currently open
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stream != nil
}

// Scope returns the scope of the most recent StartTracking call
func (t *Tracker) Scope() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scope
}

// InFlight returns a sorted snapshot of the in-flight keys
func (t *Tracker) InFlight() []string {
	t.mu.Lock()
	keys := make([]string, 0, len(t.inFlight))
	for key := range t.inFlight {
		keys = append(keys, key)
	}
	t.mu.Unlock()

	sort.Strings(keys)
	return keys
}

// IsProcessing reports whether key is in flight
func (t *Tracker) IsProcessing(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.inFlight[key]
	return ok
}

// Completions delivers completed keys. There is a single consumer; when the
// buffer is full new completions are dropped.
func (t *Tracker) Completions() <-chan Completion {
	return t.completions
}

func (t *Tracker) consume(ctx context.Context, generation uint64, scope string, stream *sse.Stream) {
	for event := range stream.Events() {
		if closed := t.handle(ctx, generation, scope, stream, event); closed {
			// buffered events behind the closing one are not delivered
			break
		}
	}

	if err := stream.Err(); err != nil && !errors.Is(err, sse.ErrStreamClosed) && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			t.logger.Debug().Str("tracker", t.name).Str("scope", scope).Msg("Notification stream closed by server")
		} else {
			t.logger.Warn().Err(err).Str("tracker", t.name).Str("scope", scope).Msg("Notification stream error")
		}
	}

	t.mu.Lock()
	if t.generation == generation && t.stream == stream {
		t.stream = nil
	}
	t.mu.Unlock()
}

// handle applies one stream message and reports whether the stream was closed
func (t *Tracker) handle(ctx context.Context, generation uint64, scope string, stream *sse.Stream, raw sse.Event) bool {
	event, err := models.ParseStreamEvent([]byte(raw.Data))
	if err != nil {
		t.logger.Warn().Err(err).Str("tracker", t.name).Str("data", raw.Data).Msg("Rejected stream message")
		return false
	}

	switch e := event.(type) {
	case models.ConnectedEvent:
		t.logger.Info().Str("tracker", t.name).Str("scope", scope).Str("client_id", e.ClientID).Msg("Notification stream connected")

	case models.NotificationEvent:
		switch e.Status {
		case models.NotificationProcessing:
			t.onProcessing(generation, stream, e)
		case models.NotificationComplete:
			return t.onComplete(ctx, generation, scope, stream, e)
		case models.NotificationError:
			return t.onError(generation, stream, e)
		}

	case models.ErrorEvent:
		t.logger.Error().Str("tracker", t.name).Str("scope", scope).Str("error", e.Error).Msg("Stream reported an error")

	default:
		t.logger.Debug().Str("tracker", t.name).Str("type", string(event.EventType())).Msg("Ignoring stream event")
	}
	return false
}

// current reports whether stream is still the live stream of this session
func (t *Tracker) current(generation uint64, stream *sse.Stream) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generation == generation && t.stream == stream
}

func (t *Tracker) onProcessing(generation uint64, stream *sse.Stream, e models.NotificationEvent) {
	key := e.Key()

	t.mu.Lock()
	if t.generation != generation || t.stream != stream {
		t.mu.Unlock()
		return
	}
	t.inFlight[key] = struct{}{}
	t.mu.Unlock()

	notify.Info(t.notifier, "Processing %s...", key)
}

func (t *Tracker) onComplete(ctx context.Context, generation uint64, scope string, stream *sse.Stream, e models.NotificationEvent) bool {
	key := e.Key()

	if !t.current(generation, stream) {
		return true
	}

	// the refreshed view must be loaded while the key still shows as processing
	if t.refresh != nil {
		if err := t.refresh(ctx, key); err != nil {
			t.logger.Warn().Err(err).Str("tracker", t.name).Str("key", key).Msg("Refresh after completion failed")
		}
	}

	empty, ok := t.remove(generation, stream, key)
	if !ok {
		return true
	}

	notify.Success(t.notifier, "%s processed", key)

	completion := Completion{Scope: scope, Key: key, At: time.Now()}
	select {
	case t.completions <- completion:
	default:
		t.logger.Warn().Str("tracker", t.name).Str("key", key).Msg("Completion channel full, dropping completion")
	}

	if t.events != nil {
		_ = t.events.Publish(ctx, interfaces.Event{
			Type: interfaces.EventMetadataComplete,
			Payload: map[string]interface{}{
				"scope": scope,
				"key":   key,
			},
		})
	}

	if empty {
		t.closeIfCurrent(generation, stream)
	}
	return empty
}

func (t *Tracker) onError(generation uint64, stream *sse.Stream, e models.NotificationEvent) bool {
	key := e.Key()

	empty, ok := t.remove(generation, stream, key)
	if !ok {
		return true
	}

	if e.Message != "" {
		notify.Error(t.notifier, "%s failed: %s", key, e.Message)
	} else {
		notify.Error(t.notifier, "%s failed", key)
	}

	if empty {
		t.closeIfCurrent(generation, stream)
	}
	return empty
}

// remove deletes key and reports whether the set is now empty.
// ok is false when the session was replaced or the stream already closed.
func (t *Tracker) remove(generation uint64, stream *sse.Stream, key string) (empty bool, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.generation != generation || t.stream != stream {
		return false, false
	}
	delete(t.inFlight, key)
	return len(t.inFlight) == 0, true
}

func (t *Tracker) closeIfCurrent(generation uint64, stream *sse.Stream) {
	t.mu.Lock()
	if t.generation != generation || t.stream != stream {
		t.mu.Unlock()
		return
	}
	t.stream = nil
	t.mu.Unlock()

	t.logger.Debug().Str("tracker", t.name).Msg("Nothing in flight, closing notification stream")
	_ = stream.Close()
}

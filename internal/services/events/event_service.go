package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/common"
	"github.com/ternarybob/docsmith/internal/interfaces"
)

type subscriber struct {
	id        string
	eventType interfaces.EventType
	handler   interfaces.EventHandler
}

// Service implements EventService interface with pub/sub pattern
type Service struct {
	subscribers map[interfaces.EventType]map[string]*subscriber
	mu          sync.RWMutex
	logger      arbor.ILogger
}

// NewService creates a new event service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		subscribers: make(map[interfaces.EventType]map[string]*subscriber),
		logger:      logger,
	}
}

// subscription is the handle returned to callers of Subscribe
type subscription struct {
	service *Service
	sub     *subscriber
	once    sync.Once
}

func (s *subscription) ID() string {
	return s.sub.id
}

func (s *subscription) Close() {
	s.once.Do(func() {
		s.service.remove(s.sub)
	})
}

// Subscribe registers a handler for an event type
func (s *Service) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) (interfaces.Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}

	sub := &subscriber{
		id:        uuid.New().String(),
		eventType: eventType,
		handler:   handler,
	}

	s.mu.Lock()
	if s.subscribers[eventType] == nil {
		s.subscribers[eventType] = make(map[string]*subscriber)
	}
	s.subscribers[eventType][sub.id] = sub
	count := len(s.subscribers[eventType])
	s.mu.Unlock()

	s.logger.Debug().
		Str("event_type", string(eventType)).
		Str("subscription_id", sub.id).
		Int("subscriber_count", count).
		Msg("Event handler subscribed")

	return &subscription{service: s, sub: sub}, nil
}

func (s *Service) remove(sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()

	handlers := s.subscribers[sub.eventType]
	if _, ok := handlers[sub.id]; !ok {
		return
	}
	delete(handlers, sub.id)
	if len(handlers) == 0 {
		delete(s.subscribers, sub.eventType)
	}

	s.logger.Debug().
		Str("event_type", string(sub.eventType)).
		Str("subscription_id", sub.id).
		Msg("Event handler unsubscribed")
}

// handlersFor snapshots the handlers for an event, wildcard subscribers included
func (s *Service) handlersFor(eventType interfaces.EventType) []*subscriber {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*subscriber
	for _, sub := range s.subscribers[eventType] {
		result = append(result, sub)
	}
	if eventType != interfaces.EventAll {
		for _, sub := range s.subscribers[interfaces.EventAll] {
			result = append(result, sub)
		}
	}
	return result
}

// Publish sends an event to all subscribers asynchronously
func (s *Service) Publish(ctx context.Context, event interfaces.Event) error {
	handlers := s.handlersFor(event.Type)

	if len(handlers) == 0 {
		s.logger.Debug().
			Str("event_type", string(event.Type)).
			Msg("No subscribers for event")
		return nil
	}

	for _, sub := range handlers {
		h := sub
		common.SafeGo(s.logger, "event-handler-"+string(event.Type), func() {
			if err := h.handler(ctx, event); err != nil {
				s.logger.Error().
					Err(err).
					Str("event_type", string(event.Type)).
					Str("subscription_id", h.id).
					Msg("Event handler failed")
			}
		})
	}

	return nil
}

// PublishSync sends an event to all subscribers synchronously
func (s *Service) PublishSync(ctx context.Context, event interfaces.Event) error {
	handlers := s.handlersFor(event.Type)

	if len(handlers) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(handlers))

	for _, sub := range handlers {
		wg.Add(1)
		go func(h *subscriber) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errChan <- fmt.Errorf("event handler panic: %v", r)
				}
			}()
			if err := h.handler(ctx, event); err != nil {
				s.logger.Error().
					Err(err).
					Str("event_type", string(event.Type)).
					Msg("Event handler failed")
				errChan <- err
			}
		}(sub)
	}

	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("event handlers failed: %d errors", len(errs))
	}

	return nil
}

// SubscriberCount returns the number of live subscriptions for eventType
func (s *Service) SubscriberCount(eventType interfaces.EventType) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers[eventType])
}

// Close shuts down the event service
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscribers = make(map[interfaces.EventType]map[string]*subscriber)
	s.logger.Info().Msg("Event service closed")

	return nil
}

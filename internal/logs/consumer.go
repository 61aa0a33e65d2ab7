package logs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	arborlevels "github.com/ternarybob/arbor/levels"
	arbormodels "github.com/ternarybob/arbor/models"
	"github.com/ternarybob/docsmith/internal/interfaces"
)

// DefaultCapacity is the number of recent entries kept in memory
const DefaultCapacity = 500

// Entry is a log line as shown in the UI
type Entry struct {
	Timestamp     string `json:"timestamp"`
	FullTimestamp string `json:"full_timestamp"`
	Level         string `json:"level"`
	Message       string `json:"message"`
	Source        string `json:"source,omitempty"`
}

// Consumer consumes log batches from arbor's context channel, keeps the most
// recent entries and publishes them as log events.
type Consumer struct {
	eventService  interfaces.EventService
	logger        arbor.ILogger
	channel       chan []arbormodels.LogEvent
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	minEventLevel arbor.LogLevel

	mu       sync.RWMutex
	recent   []Entry
	capacity int
}

// NewConsumer creates a new log consumer
func NewConsumer(eventService interfaces.EventService, logger arbor.ILogger, minEventLevel string, capacity int) *Consumer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Consumer{
		eventService:  eventService,
		logger:        logger,
		channel:       make(chan []arbormodels.LogEvent, 10),
		ctx:           ctx,
		cancel:        cancel,
		minEventLevel: parseLogLevel(minEventLevel),
		capacity:      capacity,
	}
}

// parseLogLevel converts string log level to arbor.LogLevel
func parseLogLevel(levelStr string) arbor.LogLevel {
	switch strings.ToLower(levelStr) {
	case "debug":
		return arbor.DebugLevel
	case "info":
		return arbor.InfoLevel
	case "warn", "warning":
		return arbor.WarnLevel
	case "error":
		return arbor.ErrorLevel
	default:
		return arbor.InfoLevel
	}
}

// convertTo3Letter converts full level names to 3-letter codes
func convertTo3Letter(level string) string {
	switch strings.ToUpper(level) {
	case "INFO":
		return "INF"
	case "WARN", "WARNING":
		return "WRN"
	case "ERROR":
		return "ERR"
	case "DEBUG":
		return "DBG"
	default:
		if len(level) == 3 {
			return strings.ToUpper(level)
		}
		return "INF"
	}
}

// GetChannel returns the channel for arbor to send log batches to
func (c *Consumer) GetChannel() chan []arbormodels.LogEvent {
	return c.channel
}

// Start launches the consumer goroutine
func (c *Consumer) Start() error {
	c.wg.Add(1)
	go c.consumer()
	return nil
}

// Stop gracefully shuts down the consumer
func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.logger.Info().Msg("Log consumer stopped")
	return nil
}

// Recent returns up to limit of the newest entries, oldest first.
// A limit of zero or less returns everything kept.
func (c *Consumer) Recent(limit int) []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	start := 0
	if limit > 0 && len(c.recent) > limit {
		start = len(c.recent) - limit
	}
	return append([]Entry(nil), c.recent[start:]...)
}

func (c *Consumer) consumer() {
	defer c.wg.Done()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("LogConsumer panic recovered")
		}
	}()

	for {
		select {
		case batch, ok := <-c.channel:
			if !ok {
				return
			}
			c.process(batch)

		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Consumer) process(batch []arbormodels.LogEvent) {
	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].Timestamp.Before(batch[j].Timestamp)
	})

	for _, event := range batch {
		if event.Message == "HTTP request" ||
			event.Message == "HTTP response" ||
			strings.Contains(event.Message, "WebSocket client") {
			continue
		}

		entry := transformEvent(event)
		c.remember(entry)

		if c.eventService != nil && c.shouldPublishEvent(event.Level) {
			if err := c.eventService.Publish(c.ctx, interfaces.Event{Type: interfaces.EventLog, Payload: entry}); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to publish log event")
			}
		}
	}
}

func (c *Consumer) remember(entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.recent = append(c.recent, entry)
	if overflow := len(c.recent) - c.capacity; overflow > 0 {
		c.recent = append(c.recent[:0:0], c.recent[overflow:]...)
	}
}

// shouldPublishEvent checks if a log event should be published based on level threshold
func (c *Consumer) shouldPublishEvent(level log.Level) bool {
	eventLevel := arborlevels.FromLogLevel(level)
	return eventLevel >= c.minEventLevel
}

// transformEvent converts an arbor LogEvent to an Entry. Structured fields are
// appended to the message in key order.
func transformEvent(event arbormodels.LogEvent) Entry {
	message := event.Message
	if len(event.Fields) > 0 {
		keys := make([]string, 0, len(event.Fields))
		for key := range event.Fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			message += fmt.Sprintf(" %s=%v", key, event.Fields[key])
		}
	}

	return Entry{
		Timestamp:     event.Timestamp.Format("15:04:05"),
		FullTimestamp: event.Timestamp.Format(time.RFC3339),
		Level:         convertTo3Letter(event.Level.String()),
		Message:       message,
		Source:        event.CorrelationID,
	}
}

// Package notify delivers transient user-facing notices ("toasts") to the
// log, the host event bus or a terminal.
package notify

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/interfaces"
	"golang.org/x/time/rate"
)

func send(n interfaces.Notifier, level interfaces.NoticeLevel, format string, args ...interface{}) {
	if n == nil {
		return
	}
	n.Notify(interfaces.Notice{
		Level:   level,
		Message: fmt.Sprintf(format, args...),
		Time:    time.Now(),
	})
}

// Info sends an info notice. A nil notifier is ignored.
func Info(n interfaces.Notifier, format string, args ...interface{}) {
	send(n, interfaces.NoticeInfo, format, args...)
}

func Success(n interfaces.Notifier, format string, args ...interface{}) {
	send(n, interfaces.NoticeSuccess, format, args...)
}

func Warning(n interfaces.Notifier, format string, args ...interface{}) {
	send(n, interfaces.NoticeWarning, format, args...)
}

func Error(n interfaces.Notifier, format string, args ...interface{}) {
	send(n, interfaces.NoticeError, format, args...)
}

// Failed sends the standard "<Action> failed: <reason>" error notice
func Failed(n interfaces.Notifier, action string, err error) {
	send(n, interfaces.NoticeError, "%s failed: %v", action, err)
}

// LogNotifier writes notices to the logger
type LogNotifier struct {
	logger arbor.ILogger
}

func NewLogNotifier(logger arbor.ILogger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(notice interfaces.Notice) {
	switch notice.Level {
	case interfaces.NoticeError:
		l.logger.Error().Str("notice", string(notice.Level)).Msg(notice.Message)
	case interfaces.NoticeWarning:
		l.logger.Warn().Str("notice", string(notice.Level)).Msg(notice.Message)
	default:
		l.logger.Info().Str("notice", string(notice.Level)).Msg(notice.Message)
	}
}

// EventNotifier publishes notices on the event bus for websocket clients
type EventNotifier struct {
	events interfaces.EventService
}

func NewEventNotifier(events interfaces.EventService) *EventNotifier {
	return &EventNotifier{events: events}
}

func (e *EventNotifier) Notify(notice interfaces.Notice) {
	_ = e.events.Publish(context.Background(), interfaces.Event{
		Type:    interfaces.EventNotice,
		Payload: notice,
	})
}

// WriterNotifier prints notices for the CLI
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (p *WriterNotifier) Notify(notice interfaces.Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "[%s] %s\n", notice.Level, notice.Message)
}

// Multi fans a notice out to several notifiers
type Multi []interfaces.Notifier

func (m Multi) Notify(notice interfaces.Notice) {
	for _, n := range m {
		if n != nil {
			n.Notify(notice)
		}
	}
}

// Throttled drops repeats of the same message beyond the given rate.
// Distinct messages are limited independently.
type Throttled struct {
	next  interfaces.Notifier
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewThrottled(next interfaces.Notifier, every time.Duration, burst int) *Throttled {
	if burst < 1 {
		burst = 1
	}
	return &Throttled{
		next:     next,
		limit:    rate.Every(every),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (t *Throttled) Notify(notice interfaces.Notice) {
	key := string(notice.Level) + "|" + notice.Message

	t.mu.Lock()
	limiter, ok := t.limiters[key]
	if !ok {
		// bounded: notices are short-lived and repetitive
		if len(t.limiters) > 256 {
			t.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(t.limit, t.burst)
		t.limiters[key] = limiter
	}
	t.mu.Unlock()

	if !limiter.Allow() {
		return
	}
	t.next.Notify(notice)
}

// Recorder keeps notices in memory
type Recorder struct {
	mu      sync.Mutex
	notices []interfaces.Notice
}

func (r *Recorder) Notify(notice interfaces.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice)
}

// Notices returns a copy of everything recorded so far
func (r *Recorder) Notices() []interfaces.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]interfaces.Notice(nil), r.notices...)
}

// Messages returns the recorded messages in order
func (r *Recorder) Messages() []string {
	var messages []string
	for _, n := range r.Notices() {
		messages = append(messages, n.Message)
	}
	return messages
}

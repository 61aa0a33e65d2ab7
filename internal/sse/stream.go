package sse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sync"

	"github.com/ternarybob/arbor"
)

// ErrStreamClosed is reported by Err after Close was called
var ErrStreamClosed = errors.New("stream closed")

// Stream is an open event stream. Events are delivered on a channel that is
// closed when the connection ends for any reason.
type Stream struct {
	url    string
	events chan Event
	cancel context.CancelFunc
	body   io.ReadCloser
	logger arbor.ILogger

	mu     sync.Mutex
	err    error
	closed bool
	done   chan struct{}
}

// Dial opens an event stream with a GET request. The request context is
// derived from ctx; cancelling ctx or calling Close ends the stream.
func Dial(ctx context.Context, client *http.Client, url string, header http.Header, logger arbor.ILogger) (*Stream, error) {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}

	streamCtx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open stream %s: %w", url, err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body), URL: url}
	}

	if mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err != nil || mediaType != "text/event-stream" {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("unexpected content type %q for stream %s", resp.Header.Get("Content-Type"), url)
	}

	s := &Stream{
		url:    url,
		events: make(chan Event, 16),
		cancel: cancel,
		body:   resp.Body,
		logger: logger,
		done:   make(chan struct{}),
	}

	go s.read(streamCtx)

	logger.Debug().Str("url", url).Msg("Event stream opened")

	return s, nil
}

func (s *Stream) read(ctx context.Context) {
	defer close(s.done)
	defer close(s.events)
	defer s.body.Close()

	reader := NewReader(s.body)
	for {
		event, err := reader.Next()
		if err != nil {
			s.finish(err)
			return
		}

		select {
		case s.events <- event:
		case <-ctx.Done():
			s.finish(ctx.Err())
			return
		}
	}
}

func (s *Stream) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.err = ErrStreamClosed
		return
	}
	if errors.Is(err, io.EOF) {
		err = io.EOF
	}
	s.err = err

	s.logger.Debug().Str("url", s.url).Err(err).Msg("Event stream ended")
}

// Events returns the channel of dispatched events
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Err returns why the stream ended: io.EOF for a clean server close,
// ErrStreamClosed after Close, otherwise the transport error. Nil while open.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close ends the stream and waits for the reader goroutine to exit
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	<-s.done
	return nil
}

// StatusError is returned when the server refuses the stream
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
	URL        string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("stream %s: %s: %s", e.URL, e.Status, e.Body)
	}
	return fmt.Sprintf("stream %s: %s", e.URL, e.Status)
}

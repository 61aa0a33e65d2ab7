// Package sse reads text/event-stream responses.
package sse

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Event is one dispatched server-sent event
type Event struct {
	ID    string
	Event string // "message" when the server sent no event field
	Data  string
	Retry int // milliseconds, 0 when absent
}

// maxLineSize bounds a single line; compile logs can be long
const maxLineSize = 1 << 20

// Reader parses an event stream line by line
type Reader struct {
	scanner *bufio.Scanner
	lastID  string
}

// NewReader creates a reader over an event-stream body
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{scanner: scanner}
}

// Next returns the next event. It returns io.EOF when the stream ends cleanly;
// a partially accumulated event at EOF is discarded.
func (r *Reader) Next() (Event, error) {
	var (
		event   Event
		data    strings.Builder
		hasData bool
	)

	for r.scanner.Scan() {
		line := strings.TrimSuffix(r.scanner.Text(), "\r")

		// Blank line dispatches the event
		if line == "" {
			if !hasData {
				event = Event{}
				continue
			}
			event.Data = data.String()
			event.ID = r.lastID
			if event.Event == "" {
				event.Event = "message"
			}
			return event, nil
		}

		// Comment line (keep-alive)
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}

		switch field {
		case "event":
			event.Event = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "id":
			if !strings.ContainsRune(value, 0) {
				r.lastID = value
			}
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil {
				event.Retry = ms
			}
		}
	}

	if err := r.scanner.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}

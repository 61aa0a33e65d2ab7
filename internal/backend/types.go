// Package backend provides a client for the DocSmith backend REST and SSE API.
// This package centralizes all backend interactions for the CLI and the desktop host.
package backend

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNotFound is matched by APIErrors with a 404 status
var ErrNotFound = errors.New("not found")

// APIError represents a non-2xx response from the backend.
// The HTTP status string is surfaced as-is.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %s", e.Endpoint, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s", e.Endpoint, e.Status)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// RateLimitError is returned when the local limiter refuses to wait
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("backend rate limit exceeded, retry after %v", e.RetryAfter)
}

// errorBody is the JSON error envelope the backend uses
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// okResponse is returned by fire-and-forget endpoints
type okResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

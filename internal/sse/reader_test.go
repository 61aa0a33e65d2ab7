package sse

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_ParsesEvents(t *testing.T) {
	input := strings.Join([]string{
		": keep-alive",
		"data: {\"type\":\"connected\"}",
		"",
		"event: progress",
		"id: 7",
		"retry: 1500",
		"data: line one",
		"data: line two",
		"",
		"data:no-space",
		"",
		"",
	}, "\n")

	reader := NewReader(strings.NewReader(input))

	first, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, Event{Event: "message", Data: `{"type":"connected"}`}, first)

	second, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "progress", second.Event)
	assert.Equal(t, "7", second.ID)
	assert.Equal(t, 1500, second.Retry)
	assert.Equal(t, "line one\nline two", second.Data)

	third, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "no-space", third.Data)
	assert.Equal(t, "7", third.ID, "last event id carries over")

	_, err = reader.Next()
	assert.Equal(t, io.EOF, err)
}

func TestReader_HandlesCRLFAndDiscardsPartialEvent(t *testing.T) {
	reader := NewReader(strings.NewReader("data: a\r\n\r\ndata: partial"))

	event, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", event.Data)

	_, err = reader.Next()
	assert.Equal(t, io.EOF, err)
}

func TestReader_SkipsEventWithoutData(t *testing.T) {
	reader := NewReader(strings.NewReader("event: ping\n\ndata: x\n\n"))

	event, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "message", event.Event)
	assert.Equal(t, "x", event.Data)
}

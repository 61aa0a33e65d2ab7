package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/interfaces"
	"github.com/ternarybob/docsmith/internal/services/events"
)

func TestHelpers(t *testing.T) {
	recorder := &Recorder{}

	Info(recorder, "Processing %s", "invoice.docx")
	Success(recorder, "done")
	Failed(recorder, "Upload", errors.New("500 Internal Server Error"))
	Info(nil, "ignored")

	notices := recorder.Notices()
	require.Len(t, notices, 3)
	assert.Equal(t, interfaces.NoticeInfo, notices[0].Level)
	assert.Equal(t, "Processing invoice.docx", notices[0].Message)
	assert.Equal(t, interfaces.NoticeSuccess, notices[1].Level)
	assert.Equal(t, "Upload failed: 500 Internal Server Error", notices[2].Message)
	assert.Equal(t, interfaces.NoticeError, notices[2].Level)
}

func TestWriterNotifier(t *testing.T) {
	var buf bytes.Buffer
	Warning(NewWriterNotifier(&buf), "backend slow")
	assert.Equal(t, "[warning] backend slow\n", buf.String())
}

func TestMulti(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	Info(Multi{a, nil, b, NewLogNotifier(arbor.NewNoOpLogger())}, "hello")
	assert.Equal(t, []string{"hello"}, a.Messages())
	assert.Equal(t, []string{"hello"}, b.Messages())
}

func TestThrottled(t *testing.T) {
	recorder := &Recorder{}
	throttled := NewThrottled(recorder, time.Hour, 1)

	Info(throttled, "same")
	Info(throttled, "same")
	Info(throttled, "other")
	Error(throttled, "same")

	assert.Equal(t, []string{"same", "other", "same"}, recorder.Messages())
}

func TestEventNotifier(t *testing.T) {
	service := events.NewService(arbor.NewNoOpLogger())
	defer service.Close()

	received := make(chan interfaces.Event, 1)
	_, err := service.Subscribe(interfaces.EventNotice, func(ctx context.Context, event interfaces.Event) error {
		received <- event
		return nil
	})
	require.NoError(t, err)

	Success(NewEventNotifier(service), "Template compiled")

	select {
	case event := <-received:
		notice, ok := event.Payload.(interfaces.Notice)
		require.True(t, ok)
		assert.Equal(t, "Template compiled", notice.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("notice not published")
	}
}

package compile

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/docsmith/internal/models"
	"github.com/ternarybob/docsmith/internal/sse"
)

func float(v float64) *float64 { return &v }

func TestProgress_DerivedPercent(t *testing.T) {
	p := NewProgress("invoice")

	p.Apply(models.StepEvent{Name: "resolveTemplate", Status: "start"})
	assert.Equal(t, "resolveTemplate", p.Current)
	assert.Equal(t, 0, p.Percent)

	p.Apply(models.StepEvent{Name: "resolveTemplate", Status: "ok"})
	p.Apply(models.StepEvent{Name: "loadTemplate", Status: "ok"})
	assert.Equal(t, "", p.Current)
	assert.Equal(t, 28, p.Percent)

	assert.Equal(t, StepOK, p.Steps[0].Status)
	assert.Equal(t, StepPending, p.Steps[2].Status)
}

func TestProgress_ReportedPercentIsClamped(t *testing.T) {
	p := NewProgress("invoice")

	p.Apply(models.StepEvent{Name: "generateCode", Status: "start", Progress: float(140)})
	assert.Equal(t, 100, p.Percent)

	p.Apply(models.StepEvent{Name: "generateCode", Status: "start", Progress: float(-5)})
	assert.Equal(t, 0, p.Percent)

	p.Apply(models.StepEvent{Name: "generateCode", Status: "start", Progress: float(42.7)})
	assert.Equal(t, 42, p.Percent)
}

func TestProgress_UnknownStepAppended(t *testing.T) {
	p := NewProgress("invoice")
	p.Apply(models.StepEvent{Name: "formatCode", Status: "ok"})

	require.Len(t, p.Steps, len(Steps)+1)
	assert.Equal(t, "formatCode", p.Steps[len(Steps)].Name)
	assert.Equal(t, 0, p.Percent)
}

func TestProgress_Terminal(t *testing.T) {
	p := NewProgress("invoice")
	p.Apply(models.LogEvent{Message: "loading"})
	p.Apply(models.DoneEvent{OK: true, File: "invoice.js"})

	assert.True(t, p.Done)
	assert.Equal(t, 100, p.Percent)
	assert.Equal(t, "invoice.js", p.File)

	p.Apply(models.ErrorEvent{Error: "late"})
	assert.False(t, p.Failed)

	failed := NewProgress("invoice")
	failed.Apply(models.StepEvent{Name: "validateCode", Status: "error", Message: "syntax error"})
	failed.Apply(models.ErrorEvent{Error: "validation failed"})
	assert.True(t, failed.Failed)
	assert.Equal(t, "validation failed", failed.Error)
	assert.Equal(t, []string{"syntax error", "validation failed"}, failed.Logs)
}

func TestProgress_LogTailBounded(t *testing.T) {
	p := NewProgress("invoice")
	for i := 0; i < MaxLogLines+10; i++ {
		p.Apply(models.LogEvent{Message: fmt.Sprintf("line %d", i)})
	}
	require.Len(t, p.Logs, MaxLogLines)
	assert.Equal(t, "line 10", p.Logs[0])
}

func TestProgress_SnapshotIsIndependent(t *testing.T) {
	p := NewProgress("invoice")
	snapshot := p.Snapshot()
	p.Apply(models.StepEvent{Name: "resolveTemplate", Status: "ok"})
	assert.Equal(t, StepPending, snapshot.Steps[0].Status)
}

func serveEvents(t *testing.T, messages ...string) *sse.Stream {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, message := range messages {
			fmt.Fprintf(w, "data: %s\n\n", message)
		}
	}))
	t.Cleanup(server.Close)

	stream, err := sse.Dial(context.Background(), server.Client(), server.URL, nil, nil)
	require.NoError(t, err)
	return stream
}

func TestWatch_Done(t *testing.T) {
	stream := serveEvents(t,
		`{"type":"connected"}`,
		`{"type":"step","name":"resolveTemplate","status":"start"}`,
		`garbage`,
		`{"type":"step","name":"resolveTemplate","status":"ok"}`,
		`{"type":"log","message":"wrote generator"}`,
		`{"type":"done","ok":true}`,
	)

	var updates []Progress
	final, err := Watch(context.Background(), stream, "invoice", func(p Progress) {
		updates = append(updates, p)
	}, nil)

	require.NoError(t, err)
	assert.True(t, final.Done)
	assert.Len(t, updates, 4)
	assert.Equal(t, []string{"wrote generator"}, final.Logs)
}

func TestWatch_Error(t *testing.T) {
	stream := serveEvents(t, `{"type":"error","error":"template missing"}`)

	final, err := Watch(context.Background(), stream, "invoice", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCompileFailed))
	assert.Equal(t, "template missing", final.Error)
}

func TestWatch_StreamEndsEarly(t *testing.T) {
	stream := serveEvents(t, `{"type":"step","step":"loadTemplate","status":"ok"}`)

	final, err := Watch(context.Background(), stream, "invoice", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStreamEnded))
	assert.Equal(t, StepOK, final.Steps[1].Status)
}

func TestWatch_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	stream, err := sse.Dial(context.Background(), server.Client(), server.URL, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = Watch(ctx, stream, "invoice", nil, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

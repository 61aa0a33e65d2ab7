package compile

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/models"
	"github.com/ternarybob/docsmith/internal/sse"
)

// ErrStreamEnded is returned when the stream closes before done or error
var ErrStreamEnded = errors.New("compile stream ended before completion")

// Watch consumes a compile stream until it reports done or error. onUpdate,
// when set, receives a snapshot after every applied event. The stream is
// closed before Watch returns.
func Watch(ctx context.Context, stream *sse.Stream, slug string, onUpdate func(Progress), logger arbor.ILogger) (Progress, error) {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	defer stream.Close()

	progress := NewProgress(slug)

	for {
		select {
		case <-ctx.Done():
			return progress.Snapshot(), ctx.Err()

		case raw, ok := <-stream.Events():
			if !ok {
				err := stream.Err()
				if err == nil || errors.Is(err, io.EOF) {
					err = ErrStreamEnded
				}
				return progress.Snapshot(), fmt.Errorf("compile %s: %w", slug, err)
			}

			event, err := models.ParseStreamEvent([]byte(raw.Data))
			if err != nil {
				logger.Warn().Err(err).Str("slug", slug).Msg("Rejected compile stream message")
				continue
			}
			if _, connected := event.(models.ConnectedEvent); connected {
				continue
			}

			progress.Apply(event)
			if onUpdate != nil {
				onUpdate(progress.Snapshot())
			}

			if progress.Failed {
				logger.Warn().Str("slug", slug).Str("error", progress.Error).Msg("Template compile failed")
				return progress.Snapshot(), fmt.Errorf("%w: %s", ErrCompileFailed, progress.Error)
			}
			if progress.Done {
				logger.Info().Str("slug", slug).Msg("Template compile finished")
				return progress.Snapshot(), nil
			}
		}
	}
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/docsmith/internal/tracker"
	"github.com/urfave/cli/v3"
)

func metadataCommand() *cli.Command {
	return &cli.Command{
		Name:  "metadata",
		Usage: "Follow document metadata processing",
		Commands: []*cli.Command{
			{
				Name:  "watch",
				Usage: "Print metadata completions for a customer or for templates",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "customer", Usage: "Customer ID to follow"},
					&cli.BoolFlag{Name: "templates", Usage: "Follow template metadata instead of a customer"},
				},
				Action: metadataWatchAction,
			},
		},
	}
}

func metadataWatchAction(ctx context.Context, cmd *cli.Command) error {
	customerID := cmd.String("customer")
	templatesScope := cmd.Bool("templates")
	if customerID == "" && !templatesScope {
		return fmt.Errorf("either --customer or --templates is required")
	}
	if customerID != "" && templatesScope {
		return fmt.Errorf("--customer and --templates are mutually exclusive")
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	t, scope := s.app.MetadataTracker, customerID
	if templatesScope {
		t, scope = s.app.TemplateTracker, "templates"
	}

	if err := t.StartTracking(ctx, scope); err != nil {
		return err
	}
	defer t.StopTracking()

	s.out.line("Watching %s metadata (Ctrl+C to stop)", scope)
	_, err = followTracker(ctx, s, t)
	return err
}

// followTracker prints completions until the tracker closes its stream or
// ctx ends. The stream closes once nothing is in flight.
func followTracker(ctx context.Context, s *session, t *tracker.Tracker) ([]string, error) {
	var completed []string

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return completed, nil

		case completion := <-t.Completions():
			completed = append(completed, completion.Key)
			if err := printCompletion(s, completion); err != nil {
				return completed, err
			}

		case <-ticker.C:
			if t.Active() {
				continue
			}
			for {
				select {
				case completion := <-t.Completions():
					completed = append(completed, completion.Key)
					if err := printCompletion(s, completion); err != nil {
						return completed, err
					}
				default:
					return completed, nil
				}
			}
		}
	}
}

func printCompletion(s *session, completion tracker.Completion) error {
	if s.out.structured() {
		return s.out.encode(completion)
	}
	s.out.line("%s  processed  %s", formatTime(completion.At), completion.Key)
	return nil
}

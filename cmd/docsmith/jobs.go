package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/ternarybob/docsmith/internal/interfaces"
	"github.com/ternarybob/docsmith/internal/jobs"
	"github.com/ternarybob/docsmith/internal/models"
	"github.com/urfave/cli/v3"
)

var errJobFailed = errors.New("job did not finish successfully")

func jobsCommand() *cli.Command {
	return &cli.Command{
		Name:  "jobs",
		Usage: "Inspect and control generation jobs",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List jobs, newest first",
				Action: jobsListAction,
			},
			{
				Name:      "show",
				Usage:     "Show one job with its steps and logs",
				ArgsUsage: "<id>",
				Action:    jobsShowAction,
			},
			{
				Name:      "cancel",
				Usage:     "Request cancellation of a running job",
				ArgsUsage: "<id>",
				Action:    jobsCancelAction,
			},
			{
				Name:      "delete",
				Usage:     "Delete a job record",
				ArgsUsage: "<id>",
				Action:    jobsDeleteAction,
			},
			{
				Name:   "clear",
				Usage:  "Delete all finished job records",
				Action: jobsClearAction,
			},
			{
				Name:      "file",
				Usage:     "Download the output file of a finished job",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Usage: "Output file or directory (current directory when empty)"},
				},
				Action: jobsFileAction,
			},
			{
				Name:      "reveal",
				Usage:     "Reveal the output file on the backend host",
				ArgsUsage: "<id>",
				Action:    jobsRevealAction,
			},
			{
				Name:      "watch",
				Usage:     "Follow job changes, or one job until it finishes",
				ArgsUsage: "[id]",
				Action:    jobsWatchAction,
			},
		},
	}
}

func renderJobs(out *printer, list []models.Job) error {
	now := time.Now()
	return out.print(list, []string{"ID", "Customer", "Template", "Status", "Steps", "Duration", "Created"}, func(t *tablewriter.Table) {
		for i := range list {
			job := &list[i]
			_ = t.Append(
				job.ID,
				job.CustomerID,
				job.Template,
				string(job.Status),
				fmt.Sprintf("%d", len(job.Steps)),
				job.Duration(now).Round(time.Second).String(),
				formatTime(job.CreatedAt),
			)
		}
	})
}

func jobsListAction(ctx context.Context, cmd *cli.Command) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.app.JobsMonitor.Refresh(ctx); err != nil {
		return err
	}
	return renderJobs(s.out, s.app.JobsMonitor.Jobs())
}

func renderJob(out *printer, job *models.Job) error {
	if out.structured() {
		return out.encode(job)
	}

	rows := [][2]string{
		{"ID", job.ID},
		{"Customer", job.CustomerID},
		{"Template", job.Template},
		{"Status", string(job.Status)},
		{"Created", formatTime(job.CreatedAt)},
		{"Completed", formatTimePtr(job.CompletedAt)},
		{"Duration", job.Duration(time.Now()).Round(time.Second).String()},
	}
	if job.File != "" {
		rows = append(rows, [2]string{"File", job.File})
	}
	if job.Error != "" {
		rows = append(rows, [2]string{"Error", job.Error})
	}
	if err := out.fields(job, rows); err != nil {
		return err
	}

	if len(job.Steps) > 0 {
		err := out.print(job.Steps, []string{"Step", "Status", "Progress", "Message"}, func(t *tablewriter.Table) {
			for _, step := range job.Steps {
				progress := "-"
				if step.Progress != nil {
					progress = fmt.Sprintf("%d%%", *step.Progress)
				}
				_ = t.Append(step.Name, step.Status, progress, truncate(step.Message, 60))
			}
		})
		if err != nil {
			return err
		}
	}

	for _, line := range job.Logs {
		out.line("  %s", line)
	}
	return nil
}

func jobsShowAction(ctx context.Context, cmd *cli.Command) error {
	args, err := requireArgs(cmd, "id")
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	job, err := s.app.Client.GetJob(ctx, args[0])
	if err != nil {
		return err
	}
	return renderJob(s.out, job)
}

func jobsCancelAction(ctx context.Context, cmd *cli.Command) error {
	args, err := requireArgs(cmd, "id")
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.app.JobsMonitor.Cancel(ctx, args[0]); err != nil {
		return err
	}
	return s.out.result(actionResult{OK: true, Action: "cancel", ID: args[0]}, "Cancel requested for job %s", args[0])
}

func jobsDeleteAction(ctx context.Context, cmd *cli.Command) error {
	args, err := requireArgs(cmd, "id")
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.app.JobsMonitor.Delete(ctx, args[0]); err != nil {
		return err
	}
	return s.out.result(actionResult{OK: true, Action: "delete", ID: args[0]}, "Deleted job %s", args[0])
}

func jobsClearAction(ctx context.Context, cmd *cli.Command) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.app.JobsMonitor.Clear(ctx); err != nil {
		return err
	}
	return s.out.result(actionResult{OK: true, Action: "clear"}, "Cleared finished jobs")
}

func jobsFileAction(ctx context.Context, cmd *cli.Command) error {
	args, err := requireArgs(cmd, "id")
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	path, size, err := downloadJobFile(ctx, s, args[0], cmd.String("out"))
	if err != nil {
		return err
	}
	return s.out.result(actionResult{OK: true, Action: "file", ID: args[0], Path: path}, "Saved %s (%d bytes)", path, size)
}

// downloadJobFile writes the job output to out. A directory (or empty out)
// receives the server-provided filename.
func downloadJobFile(ctx context.Context, s *session, id, out string) (string, int64, error) {
	dir, target := out, ""
	if out == "" {
		dir = "."
	} else if info, err := os.Stat(out); err != nil || !info.IsDir() {
		dir, target = filepath.Dir(out), out
	}

	tmp, err := os.CreateTemp(dir, ".docsmith-download-*")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create download file: %w", err)
	}
	defer os.Remove(tmp.Name())

	filename, size, err := s.app.Client.DownloadJobFile(ctx, id, tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", 0, err
	}

	if target == "" {
		if filename == "" {
			filename = id
		}
		target = filepath.Join(dir, filepath.Base(filename))
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", 0, fmt.Errorf("failed to save %s: %w", target, err)
	}
	return target, size, nil
}

func jobsRevealAction(ctx context.Context, cmd *cli.Command) error {
	args, err := requireArgs(cmd, "id")
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.app.Client.RevealJob(ctx, args[0]); err != nil {
		return err
	}
	return s.out.result(actionResult{OK: true, Action: "reveal", ID: args[0]}, "Requested reveal for job %s", args[0])
}

func jobsWatchAction(ctx context.Context, cmd *cli.Command) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if cmd.Args().Len() > 0 {
		job, err := waitForJob(ctx, s, cmd.Args().First())
		if err != nil {
			return err
		}
		if job.Status != models.JobStatusDone {
			return fmt.Errorf("%w: %s", errJobFailed, job.Status)
		}
		return nil
	}

	return watchJobs(ctx, s, s.out.w)
}

// waitForJob polls one job and prints new steps and log lines as they arrive
func waitForJob(ctx context.Context, s *session, id string) (*models.Job, error) {
	stepCount, logCount := 0, 0
	var lastStatus models.JobStatus

	job, err := jobs.WaitForJob(ctx, s.app.Client, id, s.config.JobPollInterval(), func(job *models.Job) {
		if job.Status != lastStatus {
			s.out.line("%s  %s", job.ID, job.Status)
			lastStatus = job.Status
		}
		if stepCount > len(job.Steps) {
			stepCount = 0
		}
		for _, step := range job.Steps[stepCount:] {
			s.out.line("  %-6s %s", step.Status, step.Name)
		}
		stepCount = len(job.Steps)
		if logCount > len(job.Logs) {
			logCount = 0
		}
		for _, line := range job.Logs[logCount:] {
			s.out.line("    %s", line)
		}
		logCount = len(job.Logs)
	})
	if err != nil {
		return job, err
	}

	if s.out.structured() {
		if err := s.out.encode(job); err != nil {
			return job, err
		}
	}
	return job, nil
}

// watchJobs prints the current jobs then one line per change until ctx ends
func watchJobs(ctx context.Context, s *session, w io.Writer) error {
	monitor := s.app.JobsMonitor
	if _, err := monitor.Refresh(ctx); err != nil {
		return err
	}
	if err := renderJobs(s.out, monitor.Jobs()); err != nil {
		return err
	}

	ticker := time.NewTicker(monitor.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		changes, err := monitor.Refresh(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn().Err(err).Msg("Jobs poll failed")
			continue
		}

		for _, change := range changes {
			if s.out.structured() {
				if err := s.out.encode(change); err != nil {
					return err
				}
				continue
			}
			fmt.Fprintln(w, describeChange(change))
		}
	}
}

func describeChange(change jobs.Change) string {
	job := change.Job
	switch change.Type {
	case interfaces.EventJobCreated:
		return fmt.Sprintf("%s  created  %s for %s (%s)", formatTime(time.Now()), job.ID, job.CustomerID, job.Template)
	case interfaces.EventJobStatusChanged:
		line := fmt.Sprintf("%s  %s  %s -> %s", formatTime(time.Now()), job.ID, change.Previous, job.Status)
		if job.Error != "" {
			line += ": " + job.Error
		}
		return line
	case interfaces.EventJobRemoved:
		return fmt.Sprintf("%s  removed  %s", formatTime(time.Now()), job.ID)
	}
	return fmt.Sprintf("%s  %s  %s", formatTime(time.Now()), change.Type, job.ID)
}

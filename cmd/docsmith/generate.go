package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/docsmith/internal/models"
	"github.com/urfave/cli/v3"
)

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Start a document generation job",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "customer",
				Usage:    "Customer ID",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "template",
				Usage:    "Template slug",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "instructions",
				Usage: "Extra instructions for the generator",
			},
			&cli.BoolFlag{
				Name:  "wait",
				Usage: "Follow the job until it finishes",
			},
			&cli.StringFlag{
				Name:  "download",
				Usage: "With --wait, download the output file to this file or directory",
			},
		},
		Action: generateAction,
	}
}

func generateAction(ctx context.Context, cmd *cli.Command) error {
	req := models.GenerateRequest{
		CustomerID:   strings.TrimSpace(cmd.String("customer")),
		Template:     strings.TrimSpace(cmd.String("template")),
		Instructions: cmd.String("instructions"),
	}
	if req.CustomerID == "" || req.Template == "" {
		return fmt.Errorf("customer and template are required")
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	jobID, err := s.app.Client.CreateJob(ctx, req)
	if err != nil {
		return err
	}
	s.logger.Info().Str("job_id", jobID).Str("template", req.Template).Msg("Generation job started")

	if !cmd.Bool("wait") {
		return s.out.result(map[string]string{"jobId": jobID}, "Started job %s", jobID)
	}

	s.out.line("Started job %s", jobID)
	job, err := waitForJob(ctx, s, jobID)
	if err != nil {
		return err
	}
	if job.Status != models.JobStatusDone {
		if job.Error != "" {
			return fmt.Errorf("%w: %s: %s", errJobFailed, job.Status, job.Error)
		}
		return fmt.Errorf("%w: %s", errJobFailed, job.Status)
	}

	if cmd.IsSet("download") {
		path, size, err := downloadJobFile(ctx, s, jobID, cmd.String("download"))
		if err != nil {
			return err
		}
		s.out.line("Saved %s (%d bytes)", path, size)
	}
	return nil
}

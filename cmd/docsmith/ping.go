package main

import (
	"context"

	"github.com/ternarybob/docsmith/internal/models"
	"github.com/urfave/cli/v3"
)

type pingReport struct {
	Backend     string             `json:"backend" yaml:"backend"`
	BackendOK   bool               `json:"backendOk" yaml:"backendOk"`
	BackendErr  string             `json:"backendError,omitempty" yaml:"backendError,omitempty"`
	AnythingLLM *models.PingResult `json:"anythingLLM,omitempty" yaml:"anythingLLM,omitempty"`
}

func pingCommand() *cli.Command {
	return &cli.Command{
		Name:  "ping",
		Usage: "Check the backend and its AnythingLLM connection",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			report := pingReport{Backend: s.app.Client.BaseURL()}
			if err := s.app.Client.Health(ctx, s.config.Backend.HealthPath); err != nil {
				report.BackendErr = err.Error()
			} else {
				report.BackendOK = true
				if ping, err := s.app.Client.PingAnythingLLM(ctx); err == nil {
					report.AnythingLLM = ping
				} else {
					report.AnythingLLM = &models.PingResult{Message: err.Error()}
				}
			}

			rows := [][2]string{
				{"Backend", report.Backend},
				{"Backend reachable", yesNo(report.BackendOK)},
			}
			if report.BackendErr != "" {
				rows = append(rows, [2]string{"Backend error", report.BackendErr})
			}
			if report.AnythingLLM != nil {
				rows = append(rows, [2]string{"AnythingLLM online", yesNo(report.AnythingLLM.Online)})
				if report.AnythingLLM.Message != "" {
					rows = append(rows, [2]string{"AnythingLLM message", report.AnythingLLM.Message})
				}
			}
			if err := s.out.fields(report, rows); err != nil {
				return err
			}

			if !report.BackendOK {
				return errBackendUnreachable
			}
			return nil
		},
	}
}

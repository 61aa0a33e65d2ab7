package main

import (
	"context"
	"fmt"

	"github.com/ternarybob/docsmith/internal/viewer"
	"github.com/urfave/cli/v3"
)

type viewResult struct {
	Path      string       `json:"path" yaml:"path"`
	PageCount int          `json:"pageCount" yaml:"pageCount"`
	FileSize  int64        `json:"fileSize" yaml:"fileSize"`
	Encrypted bool         `json:"encrypted" yaml:"encrypted"`
	State     viewer.State `json:"state" yaml:"state"`
}

func viewCommand() *cli.Command {
	return &cli.Command{
		Name:      "view",
		Usage:     "Inspect a generated PDF",
		ArgsUsage: "<file.pdf>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "page", Usage: "Page to select (1-based)", Value: 1},
			&cli.BoolFlag{Name: "open", Usage: "Open the document with the platform viewer"},
		},
		Action: viewAction,
	}
}

func viewAction(ctx context.Context, cmd *cli.Command) error {
	args, err := requireArgs(cmd, "file")
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	metadata, err := s.app.Viewer.OpenPDF(ctx, args[0])
	if err != nil {
		return err
	}

	if page := cmd.Int("page"); !s.app.Viewer.GoToPage(page) {
		return fmt.Errorf("page %d is out of range (1-%d)", page, metadata.PageCount)
	}

	if cmd.Bool("open") {
		if err := openPath(ctx, s, metadata.Path); err != nil {
			return err
		}
	}

	state := s.app.Viewer.State()
	result := viewResult{
		Path:      metadata.Path,
		PageCount: metadata.PageCount,
		FileSize:  metadata.FileSize,
		Encrypted: metadata.IsEncrypted,
		State:     state,
	}
	return s.out.fields(result, [][2]string{
		{"Path", result.Path},
		{"Pages", fmt.Sprintf("%d", result.PageCount)},
		{"Size", fmt.Sprintf("%d bytes", result.FileSize)},
		{"Encrypted", yesNo(result.Encrypted)},
		{"Page", fmt.Sprintf("%d / %d", state.Page, state.TotalPages)},
		{"Zoom", fmt.Sprintf("%d%%", state.Zoom)},
	})
}

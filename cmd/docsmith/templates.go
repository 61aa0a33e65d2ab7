package main

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/ternarybob/docsmith/internal/compile"
	"github.com/ternarybob/docsmith/internal/models"
	"github.com/ternarybob/docsmith/internal/services/templates"
	"github.com/urfave/cli/v3"
)

type actionResult struct {
	OK     bool   `json:"ok" yaml:"ok"`
	Action string `json:"action" yaml:"action"`
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`
}

func templatesCommand() *cli.Command {
	return &cli.Command{
		Name:  "templates",
		Usage: "Manage document templates",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List templates",
				Action: templatesListAction,
			},
			{
				Name:      "upload",
				Usage:     "Upload a .docx or .xlsx template",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Display name"},
					&cli.StringFlag{Name: "slug", Usage: "Template slug (derived from the name when empty)"},
				},
				Action: templatesUploadAction,
			},
			{
				Name:      "delete",
				Usage:     "Delete a template",
				ArgsUsage: "<slug>",
				Action:    templatesDeleteAction,
			},
			{
				Name:      "compile",
				Usage:     "Compile a template and follow its progress",
				ArgsUsage: "<slug>",
				Action:    templatesCompileAction,
			},
			{
				Name:      "status",
				Usage:     "Show the compile status of a template",
				ArgsUsage: "<slug>",
				Action:    templatesStatusAction,
			},
			{
				Name:      "preview",
				Usage:     "Render the compiled preview as markdown, or export it to PDF",
				ArgsUsage: "<slug>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "pdf", Usage: "Export the preview to a PDF file"},
					&cli.StringFlag{Name: "out", Usage: "PDF output path (temp file when empty)"},
					&cli.BoolFlag{Name: "open", Usage: "Open the exported PDF"},
					&cli.BoolFlag{Name: "html", Usage: "Print the raw preview HTML"},
				},
				Action: templatesPreviewAction,
			},
			{
				Name:      "fullgen",
				Usage:     "Print the generated full-generation code",
				ArgsUsage: "<slug>",
				Action:    templatesFullGenAction,
			},
			{
				Name:      "open-folder",
				Usage:     "Open the template folder on the backend host",
				ArgsUsage: "<slug>",
				Action:    templatesOpenFolderAction,
			},
			{
				Name:      "reveal",
				Usage:     "Reveal the template file on the backend host",
				ArgsUsage: "<slug>",
				Action:    templatesRevealAction,
			},
		},
	}
}

func renderTemplates(out *printer, items []models.TemplateItem) error {
	return out.print(items, []string{"Slug", "Name", "Docx", "Excel", "Full gen", "Compiled"}, func(t *tablewriter.Table) {
		for _, item := range items {
			_ = t.Append(
				item.Slug,
				truncate(item.Name, 40),
				yesNo(item.HasDocx),
				yesNo(item.HasExcel),
				yesNo(item.HasFullGen),
				formatTimePtr(item.CompiledAt),
			)
		}
	})
}

func templatesListAction(ctx context.Context, cmd *cli.Command) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	items, err := s.app.TemplateService.List(ctx)
	if err != nil {
		return err
	}
	return renderTemplates(s.out, items)
}

func templatesUploadAction(ctx context.Context, cmd *cli.Command) error {
	var filePath string
	if cmd.Args().Len() > 0 {
		filePath = cmd.Args().First()
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	resp, err := s.app.TemplateService.Upload(ctx, templates.UploadRequest{
		FilePath: filePath,
		Name:     cmd.String("name"),
		Slug:     cmd.String("slug"),
	})
	if err != nil {
		return err
	}

	if s.out.structured() {
		return s.out.encode(resp)
	}
	s.out.line("Uploaded %s as %s", filePath, resp.Slug)
	return renderTemplates(s.out, resp.Templates)
}

func templatesDeleteAction(ctx context.Context, cmd *cli.Command) error {
	args, err := requireArgs(cmd, "slug")
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.app.TemplateService.Delete(ctx, args[0]); err != nil {
		return err
	}
	return s.out.result(actionResult{OK: true, Action: "delete", ID: args[0]}, "Deleted template %s", args[0])
}

func templatesCompileAction(ctx context.Context, cmd *cli.Command) error {
	args, err := requireArgs(cmd, "slug")
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	printed := make(map[string]compile.StepStatus)
	logCount := 0
	progress, err := s.app.TemplateService.Compile(ctx, args[0], func(p compile.Progress) {
		for _, step := range p.Steps {
			if step.Status == compile.StepPending || printed[step.Name] == step.Status {
				continue
			}
			printed[step.Name] = step.Status
			if step.Message != "" {
				s.out.line("[%3d%%] %-12s %s  %s", p.Percent, step.Status, step.Name, step.Message)
			} else {
				s.out.line("[%3d%%] %-12s %s", p.Percent, step.Status, step.Name)
			}
		}
		for _, line := range p.Logs[logCount:] {
			s.out.line("       %s", line)
		}
		logCount = len(p.Logs)
	})

	if s.out.structured() {
		if encodeErr := s.out.encode(progress); encodeErr != nil {
			return encodeErr
		}
	} else if err == nil {
		s.out.line("Compiled %s", args[0])
	}
	return err
}

func templatesStatusAction(ctx context.Context, cmd *cli.Command) error {
	args, err := requireArgs(cmd, "slug")
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	status, err := s.app.TemplateService.CompileStatus(ctx, args[0])
	if err != nil {
		return err
	}

	rows := [][2]string{
		{"Slug", status.Slug},
		{"Compiled", yesNo(status.Compiled)},
		{"Full gen", yesNo(status.HasFullGen)},
		{"Compiled at", formatTimePtr(status.CompiledAt)},
	}
	if status.Error != "" {
		rows = append(rows, [2]string{"Error", status.Error})
	}
	return s.out.fields(status, rows)
}

func templatesPreviewAction(ctx context.Context, cmd *cli.Command) error {
	args, err := requireArgs(cmd, "slug")
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	html, err := s.app.TemplateService.Preview(ctx, args[0])
	if err != nil {
		return err
	}

	if cmd.Bool("html") {
		fmt.Fprintln(s.out.w, html)
		return nil
	}

	if !cmd.Bool("pdf") {
		markdown, err := s.app.Viewer.RenderPreview(html)
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out.w, markdown)
		return nil
	}

	metadata, err := s.app.Viewer.ExportPreviewPDF(ctx, html, cmd.String("out"))
	if err != nil {
		return err
	}

	if cmd.Bool("open") {
		if err := openPath(ctx, s, metadata.Path); err != nil {
			s.logger.Warn().Err(err).Str("path", metadata.Path).Msg("Failed to open preview PDF")
		}
	}

	return s.out.fields(metadata, [][2]string{
		{"Path", metadata.Path},
		{"Pages", fmt.Sprintf("%d", metadata.PageCount)},
		{"Size", fmt.Sprintf("%d bytes", metadata.FileSize)},
	})
}

func templatesFullGenAction(ctx context.Context, cmd *cli.Command) error {
	args, err := requireArgs(cmd, "slug")
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	code, err := s.app.TemplateService.FullGen(ctx, args[0])
	if err != nil {
		return err
	}

	if s.out.structured() {
		return s.out.encode(map[string]string{"slug": args[0], "code": code})
	}
	fmt.Fprintln(s.out.w, code)
	return nil
}

func templatesOpenFolderAction(ctx context.Context, cmd *cli.Command) error {
	return templateHostAction(ctx, cmd, "open-folder", func(ctx context.Context, service *templates.Service, slug string) error {
		return service.OpenFolder(ctx, slug)
	})
}

func templatesRevealAction(ctx context.Context, cmd *cli.Command) error {
	return templateHostAction(ctx, cmd, "reveal", func(ctx context.Context, service *templates.Service, slug string) error {
		return service.Reveal(ctx, slug)
	})
}

func templateHostAction(ctx context.Context, cmd *cli.Command, action string, fn func(context.Context, *templates.Service, string) error) error {
	args, err := requireArgs(cmd, "slug")
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := fn(ctx, s.app.TemplateService, args[0]); err != nil {
		return err
	}
	return s.out.result(actionResult{OK: true, Action: action, ID: args[0]}, "Requested %s for %s", action, args[0])
}

// openPath opens a local file with the platform opener
func openPath(ctx context.Context, s *session, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	if s.app.Opener == nil {
		return fmt.Errorf("no opener configured")
	}
	return s.app.Opener.Open(ctx, path)
}

package main

import (
	"context"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/ternarybob/docsmith/internal/models"
	"github.com/urfave/cli/v3"
)

func workspacesCommand() *cli.Command {
	return &cli.Command{
		Name:  "workspaces",
		Usage: "Manage AnythingLLM workspaces through the backend",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List workspaces",
				Action: workspacesListAction,
			},
			{
				Name:      "show",
				Usage:     "Show a workspace and its threads",
				ArgsUsage: "<slug>",
				Action:    workspacesShowAction,
			},
			{
				Name:      "create",
				Usage:     "Create a workspace",
				ArgsUsage: "<name>",
				Action:    workspacesCreateAction,
			},
			{
				Name:      "delete",
				Usage:     "Delete a workspace",
				ArgsUsage: "<slug>",
				Action:    workspacesDeleteAction,
			},
		},
	}
}

func renderWorkspaces(out *printer, list []models.Workspace) error {
	return out.print(list, []string{"Slug", "Name", "Threads", "Created"}, func(t *tablewriter.Table) {
		for _, ws := range list {
			_ = t.Append(ws.Slug, truncate(ws.Name, 40), fmt.Sprintf("%d", len(ws.Threads)), formatTime(ws.CreatedAt))
		}
	})
}

func workspacesListAction(ctx context.Context, cmd *cli.Command) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	list, err := s.app.Client.ListWorkspaces(ctx)
	if err != nil {
		return err
	}
	return renderWorkspaces(s.out, list)
}

func workspacesShowAction(ctx context.Context, cmd *cli.Command) error {
	args, err := requireArgs(cmd, "slug")
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ws, err := s.app.Client.GetWorkspace(ctx, args[0])
	if err != nil {
		return err
	}
	if s.out.structured() {
		return s.out.encode(ws)
	}

	if err := s.out.fields(ws, [][2]string{
		{"Slug", ws.Slug},
		{"Name", ws.Name},
		{"Created", formatTime(ws.CreatedAt)},
	}); err != nil {
		return err
	}

	if len(ws.Threads) == 0 {
		return nil
	}
	return s.out.print(ws.Threads, []string{"Thread", "Slug"}, func(t *tablewriter.Table) {
		for _, thread := range ws.Threads {
			_ = t.Append(thread.Name, thread.Slug)
		}
	})
}

func workspacesCreateAction(ctx context.Context, cmd *cli.Command) error {
	args, err := requireArgs(cmd, "name")
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ws, err := s.app.Client.CreateWorkspace(ctx, args[0])
	if err != nil {
		return err
	}
	return s.out.result(ws, "Created workspace %s (%s)", ws.Name, ws.Slug)
}

func workspacesDeleteAction(ctx context.Context, cmd *cli.Command) error {
	args, err := requireArgs(cmd, "slug")
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.app.Client.DeleteWorkspace(ctx, args[0]); err != nil {
		return err
	}
	return s.out.result(actionResult{OK: true, Action: "delete", ID: args[0]}, "Deleted workspace %s", args[0])
}

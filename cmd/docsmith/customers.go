package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

func customersCommand() *cli.Command {
	return &cli.Command{
		Name:  "customers",
		Usage: "Manage customers and their documents",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List customers",
				Action: customersListAction,
			},
			{
				Name:      "create",
				Usage:     "Create a customer",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "workspace", Usage: "AnythingLLM workspace slug"},
				},
				Action: customersCreateAction,
			},
			{
				Name:      "delete",
				Usage:     "Delete a customer",
				ArgsUsage: "<id>",
				Action:    customersDeleteAction,
			},
			{
				Name:      "upload",
				Usage:     "Upload documents for a customer",
				ArgsUsage: "<id> <file>...",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "track", Usage: "Follow metadata processing until every upload is done"},
				},
				Action: customersUploadAction,
			},
		},
	}
}

func customersListAction(ctx context.Context, cmd *cli.Command) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	list, err := s.app.Client.ListCustomers(ctx)
	if err != nil {
		return err
	}

	return s.out.print(list, []string{"ID", "Name", "Workspace", "Documents", "Created"}, func(t *tablewriter.Table) {
		for _, customer := range list {
			_ = t.Append(
				customer.ID,
				truncate(customer.Name, 40),
				customer.WorkspaceSlug,
				fmt.Sprintf("%d", customer.DocumentCount),
				formatTime(customer.CreatedAt),
			)
		}
	})
}

func customersCreateAction(ctx context.Context, cmd *cli.Command) error {
	args, err := requireArgs(cmd, "name")
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	customer, err := s.app.Client.CreateCustomer(ctx, args[0], cmd.String("workspace"))
	if err != nil {
		return err
	}
	return s.out.result(customer, "Created customer %s (%s)", customer.Name, customer.ID)
}

func customersDeleteAction(ctx context.Context, cmd *cli.Command) error {
	args, err := requireArgs(cmd, "id")
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.app.Client.DeleteCustomer(ctx, args[0]); err != nil {
		return err
	}
	return s.out.result(actionResult{OK: true, Action: "delete", ID: args[0]}, "Deleted customer %s", args[0])
}

type uploadResult struct {
	CustomerID string            `json:"customerId" yaml:"customerId"`
	Uploaded   []string          `json:"uploaded" yaml:"uploaded"`
	Processed  []string          `json:"processed,omitempty" yaml:"processed,omitempty"`
	Pending    []string          `json:"pending,omitempty" yaml:"pending,omitempty"`
	Failures   map[string]string `json:"failures,omitempty" yaml:"failures,omitempty"`
}

func customersUploadAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 2 {
		return fmt.Errorf("upload requires a customer id and at least one file")
	}
	customerID := cmd.Args().First()
	files := cmd.Args().Tail()

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	track := cmd.Bool("track")
	if track {
		// opened first so the processing events of these uploads are not missed
		if err := s.app.MetadataTracker.StartTracking(ctx, customerID); err != nil {
			return err
		}
		defer s.app.MetadataTracker.StopTracking()
	}

	result := uploadResult{CustomerID: customerID, Failures: map[string]string{}}
	for _, file := range files {
		if err := s.app.Client.UploadCustomerDocument(ctx, customerID, file); err != nil {
			result.Failures[filepath.Base(file)] = err.Error()
			s.out.line("Failed %s: %v", file, err)
			continue
		}
		result.Uploaded = append(result.Uploaded, filepath.Base(file))
		s.out.line("Uploaded %s", file)
	}

	if track && len(result.Uploaded) > 0 {
		completed, err := followTracker(ctx, s, s.app.MetadataTracker)
		if err != nil {
			return err
		}
		result.Processed = completed
		result.Pending = s.app.MetadataTracker.InFlight()
	}

	if s.out.structured() {
		if err := s.out.encode(result); err != nil {
			return err
		}
	}

	if len(result.Failures) > 0 {
		return fmt.Errorf("%d of %d uploads failed", len(result.Failures), len(files))
	}
	return nil
}

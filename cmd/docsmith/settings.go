package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/ternarybob/docsmith/internal/models"
	"github.com/urfave/cli/v3"
)

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Read and change backend settings",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Show all settings, or one value",
				ArgsUsage: "[key]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "show-secrets", Usage: "Print the API key unmasked"},
				},
				Action: settingsGetAction,
			},
			{
				Name:      "set",
				Usage:     "Change one setting",
				ArgsUsage: "<key> <value>",
				Action:    settingsSetAction,
			},
			{
				Name:   "discover",
				Usage:  "Look for a local AnythingLLM instance",
				Action: settingsDiscoverAction,
			},
		},
	}
}

// settingsMap flattens known and extra settings into one map
func settingsMap(settings *models.Settings, showSecrets bool) map[string]any {
	values := make(map[string]any, len(settings.Extra)+4)
	for key, value := range settings.Extra {
		values[key] = value
	}
	values["anythingLLMUrl"] = settings.AnythingLLMURL
	values["anythingLLMKey"] = settings.AnythingLLMKey
	if !showSecrets {
		values["anythingLLMKey"] = maskKey(settings.AnythingLLMKey)
	}
	values["outputDir"] = settings.OutputDir
	values["defaultWorkspace"] = settings.DefaultWorkspace
	return values
}

func renderSettings(out *printer, values map[string]any) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return out.print(values, []string{"Key", "Value"}, func(t *tablewriter.Table) {
		for _, key := range keys {
			_ = t.Append(key, fmt.Sprintf("%v", values[key]))
		}
	})
}

func settingsGetAction(ctx context.Context, cmd *cli.Command) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	settings, err := s.app.SetupService.Settings(ctx)
	if err != nil {
		return err
	}
	values := settingsMap(settings, cmd.Bool("show-secrets"))

	if cmd.Args().Len() == 0 {
		return renderSettings(s.out, values)
	}

	key := cmd.Args().First()
	value, ok := values[key]
	if !ok {
		return fmt.Errorf("setting %q is not set", key)
	}
	if s.out.structured() {
		return s.out.encode(map[string]any{key: value})
	}
	fmt.Fprintln(s.out.w, value)
	return nil
}

func settingsSetAction(ctx context.Context, cmd *cli.Command) error {
	args, err := requireArgs(cmd, "key", "value")
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	settings, err := s.app.SetupService.UpdateSetting(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	if s.out.structured() {
		return s.out.encode(settingsMap(settings, false))
	}
	s.out.line("Saved %s", args[0])
	return nil
}

func settingsDiscoverAction(ctx context.Context, cmd *cli.Command) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := s.app.SetupService.Discover(ctx)
	if err != nil {
		return err
	}

	rows := [][2]string{{"Found", yesNo(result.Found)}}
	if result.URL != "" {
		rows = append(rows, [2]string{"URL", result.URL})
	}
	return s.out.fields(result, rows)
}

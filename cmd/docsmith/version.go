package main

import (
	"context"

	"github.com/ternarybob/docsmith/internal/common"
	"github.com/urfave/cli/v3"
)

type versionInfo struct {
	Version string `json:"version" yaml:"version"`
	Build   string `json:"build" yaml:"build"`
	Commit  string `json:"commit" yaml:"commit"`
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print version information",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			info := versionInfo{
				Version: common.GetVersion(),
				Build:   common.GetBuild(),
				Commit:  common.GetGitCommit(),
			}

			out := newPrinter(outWriter(cmd), cmd.String("output"))
			if !out.structured() {
				out.line("DocSmith version %s", common.GetFullVersion())
				return nil
			}
			return out.encode(info)
		},
	}
}

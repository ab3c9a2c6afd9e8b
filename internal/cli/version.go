// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"runtime"

	"github.com/urfave/cli/v3"
)

func (a *app) versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print version information",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a.command = "version"
			data := VersionData{
				Version:   Version,
				GitCommit: GitCommit,
				BuildDate: BuildDate,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}
			if cmd.Bool("json") {
				return a.emitJSON(NewJSONResponse("version", data))
			}
			fmt.Fprintf(a.stdout, "texbench version %s\n", data.Version)
			fmt.Fprintf(a.stdout, "  commit:  %s\n", data.GitCommit)
			fmt.Fprintf(a.stdout, "  built:   %s\n", data.BuildDate)
			fmt.Fprintf(a.stdout, "  go:      %s %s\n", data.GoVersion, data.Platform)
			return nil
		},
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/jeranaias/texbench/internal/config"
)

func (a *app) configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "inspect or create the configuration file",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "print the effective configuration",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd, "config show"); err != nil {
						return err
					}
					if a.jsonMode {
						return a.emitJSON(NewJSONResponse("config show", a.cfg))
					}
					data, err := a.cfg.Encode()
					if err != nil {
						return err
					}
					_, err = a.stdout.Write(data)
					return err
				},
			},
			{
				Name:  "init",
				Usage: "write a default configuration file",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Usage: "overwrite an existing file"},
				},
				Action: a.configInitAction,
			},
		},
	}
}

// configInitAction does not load the existing config so a broken file can
// be replaced with --force.
func (a *app) configInitAction(ctx context.Context, cmd *cli.Command) error {
	a.command = "config init"

	path := cmd.String("config")
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return &ConfigError{Err: err}
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil && !cmd.Bool("force") {
		return &UsageError{Message: fmt.Sprintf("%s already exists (use --force to overwrite)", path)}
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &ConfigError{Err: err}
	}

	if err := config.Save(config.Default(), path); err != nil {
		return &ConfigError{Err: err}
	}
	fmt.Fprintf(a.stdout, "%s %s\n", SuccessStyle.Render("Wrote"), path)
	return nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
)

func (a *app) healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "probe the server's health endpoint",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "wait",
				Usage: "keep probing until the server is ready or the ready timeout passes",
			},
			&cli.DurationFlag{
				Name:  "ready-timeout",
				Usage: "how long --wait keeps probing",
			},
		},
		OnUsageError: usageError,
		Action:       a.healthAction,
	}
}

func (a *app) healthAction(ctx context.Context, cmd *cli.Command) error {
	if err := a.setup(cmd, "health"); err != nil {
		return err
	}

	client := a.newClient()
	start := time.Now()

	var (
		attempts int
		err      error
	)
	if cmd.Bool("wait") {
		readyTimeout := a.cfg.ReadyTimeout()
		if cmd.IsSet("ready-timeout") {
			readyTimeout = cmd.Duration("ready-timeout")
		}
		waitCtx, cancel := context.WithTimeout(ctx, readyTimeout)
		defer cancel()
		attempts, err = client.WaitReady(waitCtx, a.cfg.ReadyInterval())
	} else {
		attempts = 1
		err = client.CheckHealth(ctx)
	}

	data := HealthData{
		URL:      client.HealthURL(),
		Ready:    err == nil,
		Attempts: attempts,
		Elapsed:  time.Since(start).Round(time.Millisecond).String(),
	}

	if a.jsonMode {
		if err != nil {
			if werr := a.emitJSON(NewJSONErrorResponse("health", err).WithData(data)); werr != nil {
				return werr
			}
			return err
		}
		return a.emitJSON(NewJSONResponse("health", data))
	}

	if err != nil {
		a.reported = true
		fmt.Fprintf(a.stderr, "%s %s: %v\n", ErrorStyle.Render("✗ Server not ready at"), data.URL, err)
		return err
	}
	fmt.Fprintf(a.stdout, "%s %s %s\n",
		SuccessStyle.Render("✓ Server ready at"), data.URL,
		DimStyle.Render(fmt.Sprintf("(%d probe(s), %s)", data.Attempts, data.Elapsed)))
	return nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"

	"github.com/jeranaias/texbench/internal/benchmark"
	"github.com/jeranaias/texbench/internal/detect"
)

func (a *app) runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "run the benchmark suite (default command)",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "only",
				Usage: "run only the named test cases (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "tex",
				Usage: "benchmark these .tex files instead of the standard suite (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "no-wait",
				Usage: "skip the /health readiness probe",
			},
			&cli.BoolFlag{
				Name:  "require-ready",
				Usage: "abort the run if the server never becomes ready",
			},
			&cli.DurationFlag{
				Name:  "ready-timeout",
				Usage: "how long to wait for the server to become ready",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "build and verify archives without contacting the server",
			},
		},
		OnUsageError: usageError,
		Action:       a.runAction,
	}
}

// runAction runs the selected cases once each and prints the report.
// It returns ErrTestsFailed when any case failed.
func (a *app) runAction(ctx context.Context, cmd *cli.Command) error {
	if err := a.setup(cmd, "run"); err != nil {
		return err
	}

	cases, err := a.selectCases(cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("dry-run") {
		return a.dryRun(cases)
	}

	readyTimeout := a.cfg.ReadyTimeout()
	if cmd.IsSet("ready-timeout") {
		readyTimeout = cmd.Duration("ready-timeout")
	}

	runner := benchmark.NewRunner(a.newClient(), benchmark.Options{
		Out:              a.progress(),
		WaitReady:        a.cfg.Run.WaitReady && !cmd.Bool("no-wait"),
		ReadyTimeout:     readyTimeout,
		ReadyInterval:    a.cfg.ReadyInterval(),
		RequireReady:     a.cfg.Run.RequireReady || cmd.Bool("require-ready"),
		BodyPreviewWidth: a.cfg.Output.BodyPreviewWidth,
		Verbose:          a.cfg.Output.Verbose,
		Decorator:        RunnerDecorator(),
		Logger:           a.logger,
		Host:             detect.HostCached(ctx),
	})

	report, runErr := runner.Run(ctx, cases)

	if a.jsonMode {
		var resp *JSONResponse
		switch {
		case runErr != nil:
			resp = NewJSONErrorResponse("run", runErr).WithData(report)
		case !report.AllPassed():
			resp = NewJSONErrorResponse("run", ErrTestsFailed).WithData(report)
		default:
			resp = NewJSONResponse("run", report)
		}
		if err := a.emitJSON(resp); err != nil {
			return err
		}
	} else if len(report.Results) > 0 {
		PrintReport(a.stdout, report)
	}

	if runErr != nil {
		return runErr
	}
	if !report.AllPassed() {
		// The report already shows which cases failed.
		a.reported = true
		return ErrTestsFailed
	}
	return nil
}

// selectCases resolves --tex, --only and run.only into the cases to run.
func (a *app) selectCases(cmd *cli.Command) ([]benchmark.TestCase, error) {
	cases := benchmark.StandardSuite()

	if files := cmd.StringSlice("tex"); len(files) > 0 {
		cases = make([]benchmark.TestCase, 0, len(files))
		for _, f := range files {
			tc, err := benchmark.LoadTestCase(f)
			if err != nil {
				return nil, &UsageError{Message: err.Error()}
			}
			cases = append(cases, tc)
		}
	}

	only := a.cfg.Run.Only
	if cmd.IsSet("only") {
		only = cmd.StringSlice("only")
	}
	cases, err := benchmark.FilterByName(cases, only)
	if err != nil {
		return nil, &UsageError{Message: err.Error()}
	}
	if len(cases) == 0 {
		return nil, &UsageError{Message: "no test cases selected"}
	}
	return cases, nil
}

func (a *app) dryRun(cases []benchmark.TestCase) error {
	err := benchmark.Verify(cases, a.progress())
	if !a.jsonMode {
		return err
	}
	if err != nil {
		return a.emitJSONError("run", err)
	}
	return a.emitJSON(NewJSONResponse("run", map[string]interface{}{
		"dry_run": true,
		"cases":   cases,
	}))
}

// emitJSONError writes an error envelope and returns err for exit code mapping.
func (a *app) emitJSONError(command string, err error) error {
	if werr := a.emitJSON(NewJSONErrorResponse(command, err)); werr != nil {
		return errors.Join(err, werr)
	}
	return err
}

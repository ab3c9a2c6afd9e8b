// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v3"

	"github.com/jeranaias/texbench/internal/benchmark"
	"github.com/jeranaias/texbench/internal/util"
)

// watchLogLines caps how much of a failing compile log watch mode prints.
const watchLogLines = 20

func (a *app) watchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "re-benchmark a .tex file every time it changes",
		ArgsUsage: "<file.tex>",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "debounce",
				Value: 300 * time.Millisecond,
				Usage: "quiet period after a change before re-running",
			},
		},
		OnUsageError: usageError,
		Action:       a.watchAction,
	}
}

func (a *app) watchAction(ctx context.Context, cmd *cli.Command) error {
	if err := a.setup(cmd, "watch"); err != nil {
		return err
	}

	path := cmd.Args().First()
	if path == "" {
		return &UsageError{Message: "watch requires a .tex file argument"}
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return &UsageError{Message: err.Error()}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return &CommandError{Command: "watch", Action: "create watcher", Err: err}
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file instead of writing it.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return &CommandError{Command: "watch", Action: "watch directory", Err: err}
	}

	out := a.progress()
	runner := benchmark.NewRunner(a.newClient(), benchmark.Options{
		Out:              out,
		BodyPreviewWidth: GetTerminalWidth(),
		Verbose:          a.cfg.Output.Verbose,
		Decorator:        RunnerDecorator(),
		Logger:           a.logger,
	})

	runOnce := func() error {
		tc, err := benchmark.LoadTestCase(absPath)
		if err != nil {
			fmt.Fprintln(out, WarningStyle.Render(err.Error()))
			return nil
		}
		res, err := runner.RunTest(ctx, tc)
		if err != nil {
			return err
		}
		// The failure line is cut to one terminal width; show the log head too.
		if res.Failure != nil && res.Failure.Kind == benchmark.RequestFailure {
			fmt.Fprintln(out, DimStyle.Render(util.FirstLines(res.Failure.Body, watchLogLines)))
		}
		return nil
	}

	if err := runOnce(); err != nil {
		return err
	}
	fmt.Fprintln(out, DimStyle.Render(fmt.Sprintf("Watching %s for changes (Ctrl-C to stop)...", path)))

	debounce := cmd.Duration("debounce")
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			a.logger.Debug("change detected", "file", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			timerC = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watch error", "error", err)

		case <-timerC:
			timerC = nil
			if err := runOnce(); err != nil {
				return err
			}
		}
	}
}

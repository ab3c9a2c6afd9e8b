// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command tree and shared setup for texbench.

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/jeranaias/texbench/internal/compile"
	"github.com/jeranaias/texbench/internal/config"
	"github.com/jeranaias/texbench/internal/logging"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// app carries state shared by every command of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	cfg      *config.Config
	timeout  time.Duration
	logger   *slog.Logger
	jsonMode bool

	// command is the name of the command that ran, for error envelopes.
	command string
	// reported is set once a command has already shown its own error.
	reported bool
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr, command: "run", logger: slog.Default()}
}

// Main runs texbench with args (including the program name) and returns
// the process exit code.
func Main(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := newApp(stdout, stderr)
	err := a.rootCommand().Run(ctx, args)
	if err != nil && !a.reported {
		if a.jsonMode {
			DisplayError(a.stdout, a.command, err, true)
		} else {
			DisplayError(a.stderr, a.command, err, false)
		}
	}
	return GetExitCode(err)
}

// =============================================================================
// COMMAND TREE
// =============================================================================

func (a *app) rootCommand() *cli.Command {
	return &cli.Command{
		Name:  "texbench",
		Usage: "benchmark a LaTeX compilation server",
		Description: "Zips each test document as main.tex, uploads it to the server's compile\n" +
			"endpoint and reports the server compile time next to the round-trip time.\n" +
			"Without a command, runs the standard suite.",
		Writer:       a.stdout,
		ErrWriter:    a.stderr,
		Flags:        globalFlags(),
		OnUsageError: usageError,
		Action:       a.runAction,
		Commands: []*cli.Command{
			a.runCommand(),
			a.healthCommand(),
			a.watchCommand(),
			a.configCommand(),
			a.versionCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "config file (default ~/.texbench/config.toml)",
		},
		&cli.StringFlag{
			Name:    "url",
			Aliases: []string{"u"},
			Usage:   "compile server base URL (env TEXBENCH_URL)",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "per-request timeout, 0 for none",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "print a JSON document on stdout; progress goes to stderr",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "show server cache and PDF size after each success",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "diagnostic log level: debug, info, warn or error",
		},
		&cli.StringFlag{
			Name:  "color",
			Usage: "color output: auto, always or never",
		},
	}
}

func usageError(ctx context.Context, cmd *cli.Command, err error, isSubcommand bool) error {
	return &UsageError{Message: err.Error()}
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// setup loads configuration, applies flag overrides and configures
// logging and colors. Every command that talks to a server calls it first.
func (a *app) setup(cmd *cli.Command, name string) error {
	a.command = name
	a.jsonMode = cmd.Bool("json")

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return &ConfigError{Err: err}
	}

	if cmd.IsSet("url") {
		cfg.Server.URL = cmd.String("url")
	}
	if cmd.IsSet("json") {
		cfg.Output.JSON = a.jsonMode
	}
	a.jsonMode = cfg.Output.JSON
	if cmd.IsSet("verbose") {
		cfg.Output.Verbose = cmd.Bool("verbose")
	}
	if cmd.IsSet("log-level") {
		cfg.Output.LogLevel = cmd.String("log-level")
	}
	if cmd.IsSet("color") {
		cfg.Output.Color = cmd.String("color")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return &ConfigError{Err: err}
	}

	a.timeout = cfg.Timeout()
	if cmd.IsSet("timeout") {
		a.timeout = cmd.Duration("timeout")
		if a.timeout < 0 {
			return &UsageError{Message: "--timeout must not be negative"}
		}
	}

	ConfigureColors(cfg.Output.Color)
	logger, err := logging.Setup(logging.Options{
		Level:   cfg.Output.LogLevel,
		Writer:  a.stderr,
		NoColor: !ColorsEnabled(cfg.Output.Color) || !IsStderrTTY(),
	})
	if err != nil {
		return &ConfigError{Err: err}
	}
	a.logger = logger
	a.cfg = cfg

	a.logger.Debug("configuration loaded",
		"url", cfg.Server.URL,
		"timeout", a.timeout,
		"wait_ready", cfg.Run.WaitReady)
	return nil
}

// progress is where human-readable lines go: stdout normally, stderr when
// stdout is reserved for JSON.
func (a *app) progress() io.Writer {
	if a.jsonMode {
		return a.stderr
	}
	return a.stdout
}

func (a *app) newClient() *compile.Client {
	return compile.NewClient(&compile.ClientConfig{
		BaseURL:     a.cfg.Server.URL,
		CompilePath: a.cfg.Server.CompilePath,
		HealthPath:  a.cfg.Server.HealthPath,
		Timeout:     a.timeout,
		UserAgent:   "texbench/" + Version,
		Logger:      a.logger,
	})
}

// emitJSON writes resp to stdout and marks the command's outcome as shown.
func (a *app) emitJSON(resp *JSONResponse) error {
	a.reported = true
	if err := resp.Write(a.stdout); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	return nil
}

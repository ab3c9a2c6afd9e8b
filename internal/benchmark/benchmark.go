// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package benchmark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/texbench/internal/archive"
	"github.com/jeranaias/texbench/internal/compile"
	"github.com/jeranaias/texbench/internal/detect"
	"github.com/jeranaias/texbench/internal/util"
)

// ErrServerNotReady is returned by Run when the readiness wait fails and
// Options.RequireReady is set.
var ErrServerNotReady = errors.New("compile server not ready")

// Compiler is the subset of the compile client the runner needs.
type Compiler interface {
	Compile(ctx context.Context, archive io.Reader) (*compile.CompileResponse, error)
	WaitReady(ctx context.Context, interval time.Duration) (int, error)
	BaseURL() string
}

// Decorator styles output lines. Nil functions leave text unchanged.
type Decorator struct {
	Success func(string) string
	Failure func(string) string
	Dim     func(string) string
}

func apply(fn func(string) string, s string) string {
	if fn == nil {
		return s
	}
	return fn(s)
}

// Options configures a Runner.
type Options struct {
	// Out receives progress and result lines. Nil discards them.
	Out io.Writer

	// WaitReady polls the health endpoint before the first test case.
	WaitReady bool
	// ReadyTimeout bounds the readiness wait (default 30s).
	ReadyTimeout time.Duration
	// ReadyInterval is the minimum spacing between health probes (default 500ms).
	ReadyInterval time.Duration
	// RequireReady aborts the run when the readiness wait fails. Otherwise
	// the failure is logged and every case still runs.
	RequireReady bool

	// BodyPreviewWidth truncates failure bodies in printed lines. Zero prints
	// them whole. Result.Failure.Body always holds the full text.
	BodyPreviewWidth int

	// Verbose adds server metadata (cache, PDF size) after success lines.
	Verbose bool

	Decorator Decorator
	Logger    *slog.Logger
	Host      *detect.HostInfo
}

// =============================================================================
// BENCHMARK RUNNER
// =============================================================================

// Runner executes test cases one at a time against a compile server.
// Runner is not safe for concurrent use.
type Runner struct {
	client Compiler
	opts   Options
	out    io.Writer
	logger *slog.Logger
}

// NewRunner creates a runner for client.
func NewRunner(client Compiler, opts Options) *Runner {
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 30 * time.Second
	}
	if opts.ReadyInterval <= 0 {
		opts.ReadyInterval = 500 * time.Millisecond
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{client: client, opts: opts, out: out, logger: logger}
}

// Run executes every case in order and returns one Result per case.
//
// A failing case does not stop the run, and neither does a failed
// readiness wait unless RequireReady is set. Run returns an error when an
// archive cannot be built, alongside the partial report.
func (r *Runner) Run(ctx context.Context, cases []TestCase) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		ServerURL: r.client.BaseURL(),
		StartTime: time.Now(),
		Host:      r.opts.Host,
		Results:   make([]Result, 0, len(cases)),
	}
	finish := func() {
		report.EndTime = time.Now()
		report.Duration = report.EndTime.Sub(report.StartTime)
	}

	fmt.Fprintln(r.out, "Waiting for server to be ready...")
	if r.opts.WaitReady {
		if err := r.waitReady(ctx); err != nil {
			if r.opts.RequireReady {
				finish()
				return report, err
			}
			r.logger.Warn("running test cases against a server that is not ready", "error", err)
		}
	}

	r.logger.Debug("starting benchmark run",
		"run_id", report.RunID,
		"server", report.ServerURL,
		"cases", len(cases))

	for _, tc := range cases {
		res, err := r.RunTest(ctx, tc)
		if err != nil {
			finish()
			return report, err
		}
		report.Add(res)
	}

	finish()
	r.logger.Debug("benchmark run complete",
		"run_id", report.RunID,
		"passed", report.Passed,
		"failed", report.Failed)
	return report, nil
}

func (r *Runner) waitReady(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, r.opts.ReadyTimeout)
	defer cancel()

	attempts, err := r.client.WaitReady(waitCtx, r.opts.ReadyInterval)
	if err != nil {
		r.logger.Debug("server readiness wait failed", "attempts", attempts, "error", err)
		return fmt.Errorf("%w after %d probe(s): %v", ErrServerNotReady, attempts, err)
	}
	r.logger.Debug("server ready", "attempts", attempts)
	return nil
}

// RunTest uploads one test case and classifies the outcome.
//
// Request and transport failures are reported in the Result and printed;
// they never produce an error. The returned error is non-nil only when the
// archive could not be built.
func (r *Runner) RunTest(ctx context.Context, tc TestCase) (Result, error) {
	fmt.Fprintf(r.out, "Running test: %s...\n", tc.Name)

	buf, err := archive.Build([]byte(tc.Content))
	if err != nil {
		return Result{}, fmt.Errorf("failed to build archive for %q: %w", tc.Name, err)
	}

	resp, err := r.client.Compile(ctx, buf)
	if err != nil {
		r.logger.Debug("transport failure", "test", tc.Name, "error", err)
		res := failed(tc.Name, &Failure{Kind: TransportFailure, Message: err.Error()})
		r.printFailure(res.Failure)
		return res, nil
	}

	if resp.StatusCode != http.StatusOK {
		res := failed(tc.Name, &Failure{
			Kind:       RequestFailure,
			StatusCode: resp.StatusCode,
			Body:       string(resp.Body),
		})
		res.Server = serverInfo(resp)
		r.printFailure(res.Failure)
		return res, nil
	}

	res := succeeded(tc.Name, resp.CompileTime(), resp.Elapsed)
	res.PDFBytes = int64(len(resp.Body))
	res.Server = serverInfo(resp)

	line := fmt.Sprintf("✅ Success! Compile time: %sms, Total RTT: %dms", *res.CompileTimeMs, res.RoundTripMs)
	fmt.Fprintln(r.out, apply(r.opts.Decorator.Success, line))
	if r.opts.Verbose {
		fmt.Fprintln(r.out, apply(r.opts.Decorator.Dim, detailLine(res)))
	}
	return res, nil
}

func (r *Runner) printFailure(f *Failure) {
	fmt.Fprintln(r.out, apply(r.opts.Decorator.Failure, "❌ "+f.Preview(r.opts.BodyPreviewWidth)))
}

func serverInfo(resp *compile.CompileResponse) ServerInfo {
	return ServerInfo{
		Cache:         resp.Cache(),
		HMR:           resp.HMR(),
		FilesReceived: resp.FilesReceived(),
		ContentType:   resp.Header.Get("Content-Type"),
		RequestID:     resp.RequestID,
	}
}

func detailLine(res Result) string {
	line := "   pdf: " + util.FormatBytes(res.PDFBytes)
	if res.Server.Cache != "" {
		line += ", cache: " + res.Server.Cache
	}
	if res.Server.HMR != "" {
		line += ", hmr: " + res.Server.HMR
	}
	if res.Server.FilesReceived != "" {
		line += ", files: " + res.Server.FilesReceived
	}
	return line
}

// =============================================================================
// DRY RUN
// =============================================================================

// Verify builds the archive for every case and checks it reads back as a
// single main.tex entry with the original content. Nothing is sent.
func Verify(cases []TestCase, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	for _, tc := range cases {
		buf, err := archive.Build([]byte(tc.Content))
		if err != nil {
			return fmt.Errorf("failed to build archive for %q: %w", tc.Name, err)
		}
		entries, err := archive.Entries(buf, buf.Size())
		if err != nil {
			return fmt.Errorf("failed to read archive for %q: %w", tc.Name, err)
		}
		if len(entries) != 1 || entries[0] != archive.MainEntry {
			return fmt.Errorf("archive for %q has unexpected entries %v", tc.Name, entries)
		}
		data, err := archive.ReadEntry(buf, buf.Size(), archive.MainEntry)
		if err != nil {
			return fmt.Errorf("failed to read archive for %q: %w", tc.Name, err)
		}
		if string(data) != tc.Content {
			return fmt.Errorf("archive for %q does not round-trip", tc.Name)
		}
		fmt.Fprintf(out, "%s: %s archive, %s source\n",
			tc.Name, util.FormatBytes(buf.Size()), util.FormatBytes(int64(len(tc.Content))))
	}
	return nil
}

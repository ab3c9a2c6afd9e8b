// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package benchmark

import (
	"fmt"
	"time"

	"github.com/jeranaias/texbench/internal/detect"
	"github.com/jeranaias/texbench/internal/util"
)

// =============================================================================
// FAILURES
// =============================================================================

// FailureKind distinguishes why a test case produced no timings.
type FailureKind string

const (
	// RequestFailure means the server answered with a status other than 200.
	RequestFailure FailureKind = "request_failure"
	// TransportFailure means no usable response was received.
	TransportFailure FailureKind = "transport_failure"
)

// Failure describes a failed test case.
type Failure struct {
	Kind FailureKind `json:"kind"`

	// StatusCode and Body are set for RequestFailure.
	StatusCode int    `json:"status_code,omitempty"`
	Body       string `json:"body,omitempty"`

	// Message is set for TransportFailure.
	Message string `json:"message,omitempty"`
}

// String renders the failure the way the runner prints it, minus the marker.
func (f *Failure) String() string {
	return f.Preview(0)
}

// Preview is String with a RequestFailure body cut to width display
// columns. A width of 0 keeps the whole body.
func (f *Failure) Preview(width int) string {
	if f.Kind == RequestFailure {
		return fmt.Sprintf("Failed: %d - %s", f.StatusCode, util.TruncateWidth(f.Body, width))
	}
	return "Error: " + f.Message
}

// =============================================================================
// RESULTS
// =============================================================================

// ServerInfo holds the optional response metadata the compile server sends.
type ServerInfo struct {
	Cache         string `json:"cache,omitempty"`
	HMR           string `json:"hmr,omitempty"`
	FilesReceived string `json:"files_received,omitempty"`
	ContentType   string `json:"content_type,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
}

// Result is the outcome of one test case.
//
// On success CompileTimeMs is non-nil (possibly "Unknown") and RoundTripMs
// holds the measured round trip. On failure CompileTimeMs is nil,
// RoundTripMs is zero and Failure explains why.
type Result struct {
	Name          string     `json:"name"`
	Succeeded     bool       `json:"succeeded"`
	CompileTimeMs *string    `json:"compile_time_ms"`
	RoundTripMs   int64      `json:"round_trip_ms"`
	PDFBytes      int64      `json:"pdf_bytes,omitempty"`
	Server        ServerInfo `json:"server,omitempty"`
	Failure       *Failure   `json:"failure,omitempty"`
}

// Timings returns the (compile time, round trip) pair. Both are nil when
// the test case failed.
func (r Result) Timings() (*string, *int64) {
	if !r.Succeeded {
		return nil, nil
	}
	rtt := r.RoundTripMs
	return r.CompileTimeMs, &rtt
}

func succeeded(name, compileTime string, roundTrip time.Duration) Result {
	ms := roundTrip.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	return Result{
		Name:          name,
		Succeeded:     true,
		CompileTimeMs: &compileTime,
		RoundTripMs:   ms,
	}
}

func failed(name string, f *Failure) Result {
	return Result{Name: name, Failure: f}
}

// =============================================================================
// REPORT
// =============================================================================

// Report collects every result of one invocation.
type Report struct {
	RunID     string           `json:"run_id"`
	ServerURL string           `json:"server_url"`
	StartTime time.Time        `json:"start_time"`
	EndTime   time.Time        `json:"end_time"`
	Duration  time.Duration    `json:"duration"`
	Host      *detect.HostInfo `json:"host,omitempty"`
	Results   []Result         `json:"results"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
}

// Add appends a result and updates the counters.
func (r *Report) Add(res Result) {
	r.Results = append(r.Results, res)
	if res.Succeeded {
		r.Passed++
	} else {
		r.Failed++
	}
}

// AllPassed reports whether every case succeeded.
func (r *Report) AllPassed() bool {
	return r.Failed == 0
}

// Summary returns a one-line pass/fail tally.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d passed, %d failed (%d total) in %s",
		r.Passed, r.Failed, len(r.Results), FormatDuration(r.Duration))
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

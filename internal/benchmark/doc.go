// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package benchmark measures a LaTeX compilation server end to end.
//
// Each test case is a LaTeX document. The runner zips it as main.tex,
// uploads it once, and records the server-reported compile time next to
// the round-trip time observed by the client.
//
// # Key Types
//
//   - TestCase: a named LaTeX document
//   - Runner: sequential executor that prints progress lines
//   - Result: outcome of one upload (timings or a Failure)
//   - Failure: RequestFailure (non-200) or TransportFailure (no response)
//   - Report: all results of one invocation plus pass/fail counts
//
// # Usage
//
//	runner := benchmark.NewRunner(client, benchmark.Options{Out: os.Stdout})
//	report, err := runner.Run(ctx, benchmark.StandardSuite())
//	if err != nil {
//	    // archive construction failed or the server never became ready
//	}
//	fmt.Println(report.Summary())
//
// # Standard Suite
//
//   - Simple Doc: minimal article
//   - TikZ Doc: a tikzpicture drawing
//   - Complex Doc: table of contents, cross-reference and an equation
//
// Requests are never retried. A failing case is reported and the next one
// runs.
package benchmark

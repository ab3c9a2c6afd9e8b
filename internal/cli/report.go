// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jeranaias/texbench/internal/benchmark"
	"github.com/jeranaias/texbench/internal/util"
)

const defaultDetailWidth = 48

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

func successDetail(res benchmark.Result) string {
	parts := []string{util.FormatBytes(res.PDFBytes)}
	if res.Server.Cache != "" {
		parts = append(parts, "cache "+res.Server.Cache)
	}
	return strings.Join(parts, ", ")
}

func failureDetail(f *benchmark.Failure, width int) string {
	if f == nil {
		return ""
	}
	if width <= 0 {
		width = defaultDetailWidth
	}
	if f.Kind == benchmark.RequestFailure {
		first := strings.SplitN(strings.TrimSpace(f.Body), "\n", 2)[0]
		return util.TruncateWidth(fmt.Sprintf("HTTP %d: %s", f.StatusCode, first), width)
	}
	return util.TruncateWidth(f.Message, width)
}

// PrintReport writes the human-readable summary after a run: host line,
// results table and pass/fail tally.
func PrintReport(w io.Writer, report *benchmark.Report) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Results"))
	if report.Host != nil {
		fmt.Fprintf(w, "%s %s\n", LabelStyle.Render("client:"), report.Host.Summary())
	}
	fmt.Fprintf(w, "%s %s\n", LabelStyle.Render("server:"), report.ServerURL)

	if len(report.Results) > 0 {
		fmt.Fprintln(w, RenderResultsTable(report.Results, defaultDetailWidth))
	}

	summary := report.Summary()
	if report.AllPassed() {
		fmt.Fprintln(w, SuccessStyle.Render(summary))
	} else {
		fmt.Fprintln(w, ErrorStyle.Render(summary))
	}
}

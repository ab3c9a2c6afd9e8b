// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared lipgloss styles for texbench output.

package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/jeranaias/texbench/internal/benchmark"
)

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")) // Cyan

	// LabelStyle is used for field labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")) // Light gray

	// SuccessStyle marks passing test cases.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")). // Green
			Bold(true)

	// ErrorStyle marks failures.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true)

	// WarningStyle is used for non-fatal problems.
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // Yellow/Orange

	// DimStyle is used for secondary details.
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")) // Dim gray

	// SeparatorStyle is used for table borders.
	SeparatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // Dark gray

	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// RunnerDecorator returns the line styling used for benchmark progress.
func RunnerDecorator() benchmark.Decorator {
	return benchmark.Decorator{
		Success: func(s string) string { return SuccessStyle.Render(s) },
		Failure: func(s string) string { return ErrorStyle.Render(s) },
		Dim:     func(s string) string { return DimStyle.Render(s) },
	}
}

// RenderStatus renders a PASS/FAIL marker.
func RenderStatus(passed bool) string {
	if passed {
		return SuccessStyle.Render("PASS")
	}
	return ErrorStyle.Render("FAIL")
}

// =============================================================================
// RESULTS TABLE
// =============================================================================

// RenderResultsTable renders one row per result: name, status, server
// compile time, round trip and a short detail column.
func RenderResultsTable(results []benchmark.Result, detailWidth int) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(SeparatorStyle).
		Headers("Test", "Status", "Compile (ms)", "RTT (ms)", "Detail").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})

	for _, res := range results {
		t.Row(resultRow(res, detailWidth)...)
	}
	return t.String()
}

func resultRow(res benchmark.Result, detailWidth int) []string {
	status := RenderStatus(res.Succeeded)
	if res.Succeeded {
		return []string{res.Name, status, *res.CompileTimeMs, formatInt(res.RoundTripMs), successDetail(res)}
	}
	return []string{res.Name, status, "-", "-", failureDetail(res.Failure, detailWidth)}
}

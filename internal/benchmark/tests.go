// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package benchmark

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// =============================================================================
// TEST CASE DEFINITION
// =============================================================================

// TestCase is a named LaTeX document to compile.
type TestCase struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Content     string `json:"-"`
}

// Standard test names.
const (
	SimpleDocName  = "Simple Doc"
	TikZDocName    = "TikZ Doc"
	ComplexDocName = "Complex Doc"
)

const simpleDoc = `\documentclass{article}
\begin{document}
Hello, World!
\end{document}
`

const tikzDoc = `\documentclass{article}
\usepackage{tikz}
\begin{document}
\begin{tikzpicture}
\draw[thick] (0,0) circle (1.5cm);
\draw[->] (-2,0) -- (2,0) node[right] {$x$};
\draw[->] (0,-2) -- (0,2) node[above] {$y$};
\fill[blue!40] (0,0) -- (1.5,0) arc (0:60:1.5cm) -- cycle;
\end{tikzpicture}
\end{document}
`

const complexDoc = `\documentclass{article}
\usepackage{amsmath}
\begin{document}
\tableofcontents
\section{Introduction}
As shown in Section \ref{sec:math}, LaTeX is fast.
\section{Math}
\label{sec:math}
\begin{equation}
e^{i\pi} + 1 = 0
\end{equation}
\end{document}
`

// StandardSuite returns the fixed test set in execution order.
func StandardSuite() []TestCase {
	return []TestCase{
		{
			Name:        SimpleDocName,
			Description: "Minimal single-page article",
			Content:     simpleDoc,
		},
		{
			Name:        TikZDocName,
			Description: "TikZ drawing with axes and a filled sector",
			Content:     tikzDoc,
		},
		{
			Name:        ComplexDocName,
			Description: "Table of contents, cross-reference and numbered equation",
			Content:     complexDoc,
		},
	}
}

// =============================================================================
// SUITE SELECTION
// =============================================================================

// FilterByName keeps the cases whose names are in names, preserving suite
// order. Matching is case-insensitive. An empty names list returns cases
// unchanged. Unknown names are an error so typos do not silently shrink a run.
func FilterByName(cases []TestCase, names []string) ([]TestCase, error) {
	if len(names) == 0 {
		return cases, nil
	}

	wanted := mapset.NewSet[string]()
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			wanted.Add(strings.ToLower(n))
		}
	}

	known := mapset.NewSet[string]()
	filtered := make([]TestCase, 0, len(cases))
	for _, tc := range cases {
		key := strings.ToLower(tc.Name)
		known.Add(key)
		if wanted.Contains(key) {
			filtered = append(filtered, tc)
		}
	}

	if unknown := wanted.Difference(known); unknown.Cardinality() > 0 {
		missing := unknown.ToSlice()
		sort.Strings(missing)
		return nil, fmt.Errorf("unknown test case(s): %s", strings.Join(missing, ", "))
	}
	return filtered, nil
}

// Names returns the names of cases in order.
func Names(cases []TestCase) []string {
	names := make([]string, len(cases))
	for i, tc := range cases {
		names[i] = tc.Name
	}
	return names
}

// LoadTestCase reads a .tex file into a TestCase named after the file.
func LoadTestCase(path string) (TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TestCase{}, fmt.Errorf("failed to read test document: %w", err)
	}
	return TestCase{
		Name:        filepath.Base(path),
		Description: path,
		Content:     string(data),
	}, nil
}

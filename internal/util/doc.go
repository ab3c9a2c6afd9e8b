// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the texbench packages.
//
// # Key Functions
//
//   - TruncateWidth: display-width aware truncation for response previews
//   - FirstLines: keep the leading lines of a multi-line server log
//   - FormatBytes: human-readable sizes for PDF payloads
//   - WriteFileAtomic: crash-safe file writing used for config files
//
// # Usage
//
//	preview := util.TruncateWidth(string(body), 200)
//	fmt.Println(util.FormatBytes(int64(len(pdf))))
package util

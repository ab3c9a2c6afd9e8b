// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package archive builds the in-memory zip payloads uploaded to the
// compilation server.
//
// Every payload holds exactly one entry, main.tex, whose bytes are the
// LaTeX source under test. Nothing touches the filesystem.
//
// # Usage
//
//	buf, err := archive.Build([]byte(`\documentclass{article}...`))
//	if err != nil {
//	    return err
//	}
//	// buf is positioned at offset 0 and ready to upload
package archive

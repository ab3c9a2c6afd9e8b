// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the process-wide slog logger.
//
// Diagnostics go to stderr through a tint handler so they never mix with
// benchmark output on stdout.
//
// # Usage
//
//	logger, err := logging.Setup(logging.Options{Level: "debug", Writer: os.Stderr})
//	if err != nil {
//	    return err
//	}
//	logger.Debug("compile request", "url", url)
package logging

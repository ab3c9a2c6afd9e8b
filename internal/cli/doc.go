// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the texbench command line.
//
// # Commands
//
//   - run (default): wait for /health, upload every test case once, print a report
//   - health: probe the health endpoint, optionally until ready
//   - watch: re-run one .tex file whenever it changes on disk
//   - config show|init: print or create the configuration file
//   - version: print build information
//
// # Global Flags
//
//	--config, -c   config file (default ~/.texbench/config.toml)
//	--url, -u      compile server base URL
//	--timeout      per-request timeout (0 = none)
//	--json         JSON document on stdout, progress on stderr
//	--verbose, -v  extra detail after each success
//	--log-level    diagnostic level for stderr logs
//	--color        auto, always or never
//
// # Exit Codes
//
//	0  every test case passed
//	1  a test case failed, or an unclassified error
//	2  usage error
//	3  configuration error
//	5  server unreachable or never became ready
//	8  timed out
//
// # Usage
//
//	os.Exit(cli.Main(ctx, os.Args, os.Stdout, os.Stderr))
package cli

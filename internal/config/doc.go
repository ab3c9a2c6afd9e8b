// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and validation for texbench.
//
// # Key Types
//
//   - Config: top-level settings
//   - ServerConfig: compile server URL, endpoint paths and request timeout
//   - RunConfig: readiness probing and default test selection
//   - OutputConfig: color, JSON, log level and failure preview width
//
// # Configuration Precedence
//
// Settings are resolved from (highest first):
//   - Command-line flags (applied by the cli package)
//   - Environment variables (TEXBENCH_*), including any loaded from .env
//   - ~/.texbench/config.toml, or the file passed with --config
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.URL, cfg.Timeout())
package config

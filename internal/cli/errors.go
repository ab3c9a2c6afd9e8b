// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes for texbench commands.
//
// Commands always return errors and never call os.Exit themselves. The
// entry point maps the returned error to an exit code with GetExitCode.

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/texbench/internal/benchmark"
	"github.com/jeranaias/texbench/internal/compile"
	"github.com/jeranaias/texbench/internal/config"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates every test case passed
	ExitSuccess = 0
	// ExitGeneralError indicates a failed test case or an unclassified error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates a configuration file or settings error
	ExitConfigError = 3
	// ExitNetworkError indicates the server could not be reached or never became ready
	ExitNetworkError = 5
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// ErrTestsFailed is returned by the run command when any case failed.
var ErrTestsFailed = errors.New("one or more test cases failed")

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "run", "health")
	Action  string // Action being performed (e.g., "load config")
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Command, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UsageError represents invalid arguments.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// ConfigError wraps a failure to load or validate configuration.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode determines the process exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ExitUsageError
	}

	var cfgErr *ConfigError
	var validateErrs config.ValidateErrors
	if errors.As(err, &cfgErr) || errors.As(err, &validateErrs) {
		return ExitConfigError
	}

	if errors.Is(err, benchmark.ErrServerNotReady) {
		return ExitNetworkError
	}

	var clientErr *compile.ClientError
	if errors.As(err, &clientErr) {
		if clientErr.Type == compile.ErrTypeTimeout {
			return ExitTimeoutError
		}
		return ExitNetworkError
	}

	return ExitGeneralError
}

// DisplayError prints err in the human-readable format. In JSON mode the
// error is emitted as a JSONResponse instead.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		_ = NewJSONErrorResponse(command, err).Write(w)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}

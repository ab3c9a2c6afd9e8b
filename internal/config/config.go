// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/texbench/internal/util"
)

// =============================================================================
// CONFIGURATION TYPES
// =============================================================================

// Config is the complete texbench configuration.
type Config struct {
	Server ServerConfig `toml:"server" json:"server"`
	Run    RunConfig    `toml:"run" json:"run"`
	Output OutputConfig `toml:"output" json:"output"`
}

// ServerConfig describes the compile server.
type ServerConfig struct {
	// URL is the server base URL.
	URL string `toml:"url" json:"url"`

	CompilePath string `toml:"compile_path" json:"compile_path"`
	HealthPath  string `toml:"health_path" json:"health_path"`

	// TimeoutSecs bounds each request. 0 disables the client-side timeout.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// RunConfig controls how a benchmark run is executed.
type RunConfig struct {
	// WaitReady probes the health endpoint before the first upload.
	WaitReady bool `toml:"wait_ready" json:"wait_ready"`
	// RequireReady aborts the run when the server never becomes ready
	// instead of reporting a failure per test case.
	RequireReady bool `toml:"require_ready" json:"require_ready"`

	ReadyTimeoutSecs int `toml:"ready_timeout_secs" json:"ready_timeout_secs"`
	ReadyIntervalMs  int `toml:"ready_interval_ms" json:"ready_interval_ms"`

	// Only restricts the standard suite to these test names.
	Only []string `toml:"only" json:"only,omitempty"`
}

// OutputConfig controls what texbench prints.
type OutputConfig struct {
	// Color is one of "auto", "always" or "never".
	Color string `toml:"color" json:"color"`

	JSON    bool `toml:"json" json:"json"`
	Verbose bool `toml:"verbose" json:"verbose"`

	// LogLevel is one of "debug", "info", "warn" or "error".
	LogLevel string `toml:"log_level" json:"log_level"`

	// BodyPreviewWidth truncates printed failure bodies. 0 prints them whole.
	BodyPreviewWidth int `toml:"body_preview_width" json:"body_preview_width"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	DefaultURL              = "http://localhost:8080"
	DefaultCompilePath      = "/compile"
	DefaultHealthPath       = "/health"
	DefaultReadyTimeoutSecs = 30
	DefaultReadyIntervalMs  = 500
	DefaultLogLevel         = "warn"
	DefaultColor            = "auto"
	DefaultBodyPreviewWidth = 0
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			URL:         DefaultURL,
			CompilePath: DefaultCompilePath,
			HealthPath:  DefaultHealthPath,
		},
		Run: RunConfig{
			WaitReady:        true,
			ReadyTimeoutSecs: DefaultReadyTimeoutSecs,
			ReadyIntervalMs:  DefaultReadyIntervalMs,
		},
		Output: OutputConfig{
			Color:            DefaultColor,
			LogLevel:         DefaultLogLevel,
			BodyPreviewWidth: DefaultBodyPreviewWidth,
		},
	}
}

// Timeout returns the per-request timeout (0 means none).
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Server.TimeoutSecs) * time.Second
}

// ReadyTimeout returns how long to wait for the server to become ready.
func (c *Config) ReadyTimeout() time.Duration {
	return time.Duration(c.Run.ReadyTimeoutSecs) * time.Second
}

// ReadyInterval returns the minimum spacing between health probes.
func (c *Config) ReadyInterval() time.Duration {
	return time.Duration(c.Run.ReadyIntervalMs) * time.Millisecond
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns ~/.texbench.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".texbench"), nil
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load builds the configuration from defaults, the config file, .env and
// the environment, then validates it.
//
// An empty path means the default location; a missing default file is not
// an error. A path given explicitly must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := LoadTOML(cfg, path); err != nil {
				return nil, fmt.Errorf("failed to load config %s: %w", path, err)
			}
		} else if explicit {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Keys absent from the file keep
// their current values.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. With no arguments it reads
// ./.env. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// SetDefaults fills zero values that have no meaningful zero setting.
func (c *Config) SetDefaults() {
	if c.Server.URL == "" {
		c.Server.URL = DefaultURL
	}
	if c.Server.CompilePath == "" {
		c.Server.CompilePath = DefaultCompilePath
	}
	if c.Server.HealthPath == "" {
		c.Server.HealthPath = DefaultHealthPath
	}
	if c.Run.ReadyTimeoutSecs == 0 {
		c.Run.ReadyTimeoutSecs = DefaultReadyTimeoutSecs
	}
	if c.Run.ReadyIntervalMs == 0 {
		c.Run.ReadyIntervalMs = DefaultReadyIntervalMs
	}
	if c.Output.Color == "" {
		c.Output.Color = DefaultColor
	}
	if c.Output.LogLevel == "" {
		c.Output.LogLevel = DefaultLogLevel
	}
	c.Output.Color = strings.ToLower(c.Output.Color)
	c.Output.LogLevel = strings.ToLower(c.Output.LogLevel)
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// Environment variable names.
const (
	EnvURL              = "TEXBENCH_URL"
	EnvTimeoutSecs      = "TEXBENCH_TIMEOUT_SECS"
	EnvWaitReady        = "TEXBENCH_WAIT_READY"
	EnvRequireReady     = "TEXBENCH_REQUIRE_READY"
	EnvReadyTimeoutSecs = "TEXBENCH_READY_TIMEOUT_SECS"
	EnvLogLevel         = "TEXBENCH_LOG_LEVEL"
	EnvColor            = "TEXBENCH_COLOR"
)

// ApplyEnvOverrides applies TEXBENCH_* variables. Malformed numeric or
// boolean values are reported rather than ignored.
func (c *Config) ApplyEnvOverrides() error {
	var errs ValidateErrors

	if v := os.Getenv(EnvURL); v != "" {
		c.Server.URL = v
	}

	if v := os.Getenv(EnvTimeoutSecs); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, ValidationError{Field: EnvTimeoutSecs, Message: "must be an integer"})
		} else {
			c.Server.TimeoutSecs = n
		}
	}

	if v := os.Getenv(EnvWaitReady); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, ValidationError{Field: EnvWaitReady, Message: "must be a boolean"})
		} else {
			c.Run.WaitReady = b
		}
	}

	if v := os.Getenv(EnvRequireReady); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, ValidationError{Field: EnvRequireReady, Message: "must be a boolean"})
		} else {
			c.Run.RequireReady = b
		}
	}

	if v := os.Getenv(EnvReadyTimeoutSecs); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, ValidationError{Field: EnvReadyTimeoutSecs, Message: "must be an integer"})
		} else {
			c.Run.ReadyTimeoutSecs = n
		}
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Output.LogLevel = v
	}

	if v := os.Getenv(EnvColor); v != "" {
		c.Output.Color = v
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors collects every invalid setting found.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

var (
	validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validColors    = map[string]bool{"auto": true, "always": true, "never": true}
)

// Validate checks the configuration and returns ValidateErrors if any
// setting is invalid.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.Server.URL); err != nil {
		errs = append(errs, ValidationError{Field: "server.url", Message: err.Error()})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, ValidationError{Field: "server.url", Message: "scheme must be http or https"})
	} else if u.Host == "" {
		errs = append(errs, ValidationError{Field: "server.url", Message: "missing host"})
	}

	if !strings.HasPrefix(c.Server.CompilePath, "/") {
		errs = append(errs, ValidationError{Field: "server.compile_path", Message: "must start with /"})
	}
	if !strings.HasPrefix(c.Server.HealthPath, "/") {
		errs = append(errs, ValidationError{Field: "server.health_path", Message: "must start with /"})
	}
	if c.Server.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "server.timeout_secs", Message: "must not be negative"})
	}
	if c.Run.ReadyTimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "run.ready_timeout_secs", Message: "must not be negative"})
	}
	if c.Run.ReadyIntervalMs < 0 {
		errs = append(errs, ValidationError{Field: "run.ready_interval_ms", Message: "must not be negative"})
	}
	if !validLogLevels[c.Output.LogLevel] {
		errs = append(errs, ValidationError{Field: "output.log_level", Message: "must be debug, info, warn or error"})
	}
	if !validColors[c.Output.Color] {
		errs = append(errs, ValidationError{Field: "output.color", Message: "must be auto, always or never"})
	}
	if c.Output.BodyPreviewWidth < 0 {
		errs = append(errs, ValidationError{Field: "output.body_preview_width", Message: "must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// SAVING
// =============================================================================

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the configuration to path atomically. An empty path means
// the default location.
func Save(cfg *Config, path string) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	data, err := cfg.Encode()
	if err != nil {
		return err
	}
	if err := util.WriteFileAtomic(path, data, 0644, 0755); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

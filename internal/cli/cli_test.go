// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/texbench/internal/archive"
	"github.com/jeranaias/texbench/internal/benchmark"
	"github.com/jeranaias/texbench/internal/compile"
	"github.com/jeranaias/texbench/internal/config"
)

// =============================================================================
// HELPERS
// =============================================================================

// isolate keeps the developer's config, env and terminal out of the test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("NO_COLOR", "1")
	for _, env := range []string{
		config.EnvURL, config.EnvTimeoutSecs, config.EnvWaitReady, config.EnvRequireReady,
		config.EnvReadyTimeoutSecs, config.EnvLogLevel, config.EnvColor,
	} {
		t.Setenv(env, "")
	}
	return home
}

type fakeServer struct {
	*httptest.Server
	compiles     atomic.Int32
	healthStatus atomic.Int32
	lastTex      atomic.Value
}

// newFakeServer answers /health with healthStatus and /compile with handler.
func newFakeServer(t *testing.T, handler http.HandlerFunc) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	fs.healthStatus.Store(http.StatusOK)
	fs.lastTex.Store("")

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(fs.healthStatus.Load()))
	})
	mux.HandleFunc("/compile", func(w http.ResponseWriter, r *http.Request) {
		fs.compiles.Add(1)
		if f, _, err := r.FormFile("file"); err == nil {
			data, _ := io.ReadAll(f)
			f.Close()
			rd := bytes.NewReader(data)
			if tex, err := archive.ReadEntry(rd, rd.Size(), archive.MainEntry); err == nil {
				fs.lastTex.Store(string(tex))
			}
		}
		handler(w, r)
	})

	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(compile.HeaderCompileTime, "42")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("%PDF-1.5"))
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Main(context.Background(), append([]string{"texbench"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

type runEnvelope struct {
	Success bool             `json:"success"`
	Error   *string          `json:"error"`
	Command string           `json:"command"`
	Data    benchmark.Report `json:"data"`
}

// =============================================================================
// RUN COMMAND
// =============================================================================

func TestRun_AllPass(t *testing.T) {
	isolate(t)
	srv := newFakeServer(t, okHandler)

	code, stdout, _ := run(t, "--url", srv.URL)

	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, int32(3), srv.compiles.Load())
	assert.True(t, strings.HasPrefix(stdout, "Waiting for server to be ready...\n"))
	assert.Contains(t, stdout, "Running test: Simple Doc...")
	assert.Contains(t, stdout, "Running test: TikZ Doc...")
	assert.Contains(t, stdout, "Running test: Complex Doc...")
	assert.Contains(t, stdout, "✅ Success! Compile time: 42ms, Total RTT: ")
	assert.Contains(t, stdout, "3 passed, 0 failed (3 total)")
}

func TestRun_SubcommandWithOnly(t *testing.T) {
	isolate(t)
	srv := newFakeServer(t, okHandler)

	code, stdout, _ := run(t, "--url", srv.URL, "run", "--only", "tikz doc")

	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, int32(1), srv.compiles.Load())
	assert.Contains(t, stdout, "Running test: TikZ Doc...")
	assert.NotContains(t, stdout, "Running test: Simple Doc...")
	assert.Contains(t, srv.lastTex.Load().(string), `\begin{tikzpicture}`)
}

func TestRun_RequestFailure(t *testing.T) {
	isolate(t)
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("compile error"))
	})

	code, stdout, stderr := run(t, "--url", srv.URL)

	assert.Equal(t, ExitGeneralError, code)
	assert.Equal(t, int32(3), srv.compiles.Load(), "a failure does not stop the run")
	assert.Contains(t, stdout, "❌ Failed: 500 - compile error")
	assert.Contains(t, stdout, "0 passed, 3 failed")
	assert.NotContains(t, stderr, "[ERROR]", "failed cases are reported by the table, not as an error")
}

func TestRun_TransportFailure(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	code, stdout, _ := run(t, "--url", url, "run", "--no-wait")

	assert.Equal(t, ExitGeneralError, code)
	assert.Equal(t, 3, strings.Count(stdout, "❌ Error: "))
}

func TestRun_ServerNeverReady(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	code, stdout, stderr := run(t, "--url", url, "run", "--ready-timeout", "150ms")

	assert.Equal(t, ExitGeneralError, code)
	assert.True(t, strings.HasPrefix(stdout, "Waiting for server to be ready...\n"))
	assert.Equal(t, 3, strings.Count(stdout, "❌ Error: "), "each case reports its own transport failure")
	assert.Contains(t, stdout, "Results")
	assert.Contains(t, stdout, "0 passed, 3 failed")
	assert.Contains(t, stderr, "compile server not ready")
}

func TestRun_RequireReadyAborts(t *testing.T) {
	isolate(t)
	srv := newFakeServer(t, okHandler)
	srv.healthStatus.Store(http.StatusServiceUnavailable)

	code, _, stderr := run(t, "--url", srv.URL, "run", "--ready-timeout", "150ms", "--require-ready")

	assert.Equal(t, ExitNetworkError, code)
	assert.Equal(t, int32(0), srv.compiles.Load())
	assert.Contains(t, stderr, "compile server not ready")
}

func TestRun_FullFailureBodyByDefault(t *testing.T) {
	isolate(t)
	longLog := strings.Repeat("! Undefined control sequence. ", 100)
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(longLog))
	})

	code, stdout, _ := run(t, "--url", srv.URL, "run", "--only", "Simple Doc")

	assert.Equal(t, ExitGeneralError, code)
	assert.Contains(t, stdout, "❌ Failed: 500 - "+longLog)
}

func TestRun_JSON(t *testing.T) {
	isolate(t)
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(compile.HeaderCache, "MISS")
		okHandler(w, r)
	})

	code, stdout, stderr := run(t, "--url", srv.URL, "--json")
	require.Equal(t, ExitSuccess, code)

	var env runEnvelope
	require.NoError(t, json.Unmarshal([]byte(stdout), &env), stdout)
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
	assert.Equal(t, "run", env.Command)
	require.Len(t, env.Data.Results, 3)
	assert.Equal(t, 3, env.Data.Passed)
	assert.NotEmpty(t, env.Data.RunID)
	assert.NotNil(t, env.Data.Host)
	for _, res := range env.Data.Results {
		require.NotNil(t, res.CompileTimeMs)
		assert.Equal(t, "42", *res.CompileTimeMs)
		assert.Equal(t, "MISS", res.Server.Cache)
	}

	assert.Contains(t, stderr, "Running test: Simple Doc...", "progress moves to stderr")
}

func TestRun_JSONFailure(t *testing.T) {
	isolate(t)
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("No main.tex found"))
	})

	code, stdout, _ := run(t, "--url", srv.URL, "--json", "run", "--only", "Simple Doc")
	assert.Equal(t, ExitGeneralError, code)

	var env runEnvelope
	require.NoError(t, json.Unmarshal([]byte(stdout), &env), stdout)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrTestsFailed.Error(), *env.Error)
	require.Len(t, env.Data.Results, 1)

	res := env.Data.Results[0]
	assert.Nil(t, res.CompileTimeMs)
	require.NotNil(t, res.Failure)
	assert.Equal(t, benchmark.RequestFailure, res.Failure.Kind)
	assert.Equal(t, 400, res.Failure.StatusCode)
	assert.Equal(t, "No main.tex found", res.Failure.Body)
}

func TestRun_TexFile(t *testing.T) {
	isolate(t)
	srv := newFakeServer(t, okHandler)

	path := filepath.Join(t.TempDir(), "paper.tex")
	doc := "\\documentclass{article}\\begin{document}Paper\\end{document}"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	code, stdout, _ := run(t, "--url", srv.URL, "run", "--tex", path)

	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, int32(1), srv.compiles.Load())
	assert.Contains(t, stdout, "Running test: paper.tex...")
	assert.Equal(t, doc, srv.lastTex.Load().(string))
}

func TestRun_UnknownTestName(t *testing.T) {
	isolate(t)

	code, _, stderr := run(t, "run", "--only", "Bogus Doc")

	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, stderr, "bogus doc")
}

func TestRun_DryRun(t *testing.T) {
	isolate(t)

	code, stdout, _ := run(t, "--url", "http://127.0.0.1:1", "run", "--dry-run")

	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "Simple Doc:")
	assert.Contains(t, stdout, "TikZ Doc:")
	assert.Contains(t, stdout, "Complex Doc:")
	assert.NotContains(t, stdout, "Running test:")
}

func TestRun_UnknownFlag(t *testing.T) {
	isolate(t)

	code, _, _ := run(t, "run", "--no-such-flag")
	assert.Equal(t, ExitUsageError, code)
}

// =============================================================================
// CONFIGURATION
// =============================================================================

func TestRun_ConfigFileURL(t *testing.T) {
	isolate(t)
	srv := newFakeServer(t, okHandler)

	path := filepath.Join(t.TempDir(), "texbench.toml")
	content := fmt.Sprintf("[server]\nurl = %q\n\n[run]\nonly = [\"Complex Doc\"]\n", srv.URL)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	code, stdout, _ := run(t, "--config", path)

	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, int32(1), srv.compiles.Load())
	assert.Contains(t, stdout, "Running test: Complex Doc...")
}

func TestRun_InvalidConfig(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nurl = \"ftp://nope\"\n"), 0644))

	code, _, stderr := run(t, "--config", path)

	assert.Equal(t, ExitConfigError, code)
	assert.Contains(t, stderr, "server.url")
}

func TestConfigInitAndShow(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "cfg", "config.toml")

	code, stdout, _ := run(t, "--config", path, "config", "init")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, path)
	_, err := os.Stat(path)
	require.NoError(t, err)

	code, _, _ = run(t, "--config", path, "config", "init")
	assert.Equal(t, ExitUsageError, code, "refuses to overwrite without --force")

	code, _, _ = run(t, "--config", path, "config", "init", "--force")
	assert.Equal(t, ExitSuccess, code)

	code, stdout, _ = run(t, "--config", path, "--url", "http://override:1", "config", "show")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, `url = "http://override:1"`)
}

// =============================================================================
// HEALTH COMMAND
// =============================================================================

func TestHealth(t *testing.T) {
	isolate(t)
	srv := newFakeServer(t, okHandler)

	code, stdout, _ := run(t, "--url", srv.URL, "health")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "Server ready at "+srv.URL+"/health")

	srv.healthStatus.Store(http.StatusServiceUnavailable)
	code, _, stderr := run(t, "--url", srv.URL, "health")
	assert.Equal(t, ExitNetworkError, code)
	assert.Contains(t, stderr, "Server not ready")
}

func TestHealth_WaitJSON(t *testing.T) {
	isolate(t)
	srv := newFakeServer(t, okHandler)

	code, stdout, _ := run(t, "--url", srv.URL, "--json", "health", "--wait")
	require.Equal(t, ExitSuccess, code)

	var env struct {
		Success bool       `json:"success"`
		Data    HealthData `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &env), stdout)
	assert.True(t, env.Success)
	assert.True(t, env.Data.Ready)
	assert.Equal(t, 1, env.Data.Attempts)
}

// =============================================================================
// WATCH COMMAND
// =============================================================================

func TestWatch_RerunsOnChange(t *testing.T) {
	isolate(t)
	srv := newFakeServer(t, okHandler)

	path := filepath.Join(t.TempDir(), "live.tex")
	require.NoError(t, os.WriteFile(path, []byte("first"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stdout, stderr bytes.Buffer
	done := make(chan int, 1)
	go func() {
		done <- Main(ctx, []string{"texbench", "--url", srv.URL, "watch", "--debounce", "20ms", path}, &stdout, &stderr)
	}()

	require.Eventually(t, func() bool { return srv.compiles.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "first", srv.lastTex.Load().(string))

	require.NoError(t, os.WriteFile(path, []byte("second"), 0644))
	require.Eventually(t, func() bool { return srv.lastTex.Load().(string) == "second" }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, ExitSuccess, code)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
	assert.Contains(t, stdout.String(), "Watching "+path)
	assert.GreaterOrEqual(t, strings.Count(stdout.String(), "Running test: live.tex..."), 2)
}

func TestWatch_MissingArgument(t *testing.T) {
	isolate(t)

	code, _, _ := run(t, "watch")
	assert.Equal(t, ExitUsageError, code)
}

// =============================================================================
// VERSION & EXIT CODES
// =============================================================================

func TestVersion(t *testing.T) {
	isolate(t)

	code, stdout, _ := run(t, "version")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "texbench version "+Version)

	code, stdout, _ = run(t, "--json", "version")
	assert.Equal(t, ExitSuccess, code)
	var env struct {
		Data VersionData `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &env))
	assert.Equal(t, Version, env.Data.Version)
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"tests failed", ErrTestsFailed, ExitGeneralError},
		{"usage", &UsageError{Message: "bad"}, ExitUsageError},
		{"config", &ConfigError{Err: errors.New("x")}, ExitConfigError},
		{"validate", fmt.Errorf("wrapped: %w", config.ValidateErrors{{Field: "a", Message: "b"}}), ExitConfigError},
		{"not ready", fmt.Errorf("%w after 3 probe(s)", benchmark.ErrServerNotReady), ExitNetworkError},
		{"connection", &compile.ClientError{Type: compile.ErrTypeConnection, Message: "x"}, ExitNetworkError},
		{"timeout", &compile.ClientError{Type: compile.ErrTypeTimeout, Message: "x"}, ExitTimeoutError},
		{"other", errors.New("boom"), ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

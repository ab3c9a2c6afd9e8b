// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package compile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/time/rate"
)

// =============================================================================
// PROTOCOL CONSTANTS
// =============================================================================

const (
	// FormField is the multipart field the server reads the archive from.
	FormField = "file"
	// UploadFilename is the filename attached to the archive part.
	UploadFilename = "test.zip"
	// UploadContentType is the media type of the archive part.
	UploadContentType = "application/zip"

	HeaderCompileTime   = "X-Compile-Time-Ms"
	HeaderCache         = "X-Cache"
	HeaderHMR           = "X-HMR"
	HeaderFilesReceived = "X-Files-Received"
	HeaderRequestID     = "X-Request-ID"

	// UnknownCompileTime is reported when a 200 response lacks X-Compile-Time-Ms.
	UnknownCompileTime = "Unknown"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents a transport-level failure talking to the server.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeCanceled
	ErrTypeInvalidResponse
	ErrTypeNotReady
)

// String returns a short name for the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeConnection:
		return "connection"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeCanceled:
		return "canceled"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	case ErrTypeNotReady:
		return "not_ready"
	default:
		return "unknown"
	}
}

// ErrNotReady is returned by CheckHealth when the server answers with a
// status other than 200.
var ErrNotReady = errors.New("server not ready")

// IsTimeout reports whether err is a ClientError of type ErrTypeTimeout.
func IsTimeout(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Type == ErrTypeTimeout
}

// classify maps an error from http.Client.Do or a body read to an ErrorType.
func classify(err error) ErrorType {
	switch {
	case errors.Is(err, context.Canceled):
		return ErrTypeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTypeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTypeTimeout
	}
	return ErrTypeConnection
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the compile client.
type ClientConfig struct {
	// BaseURL is the server base URL (default: http://localhost:8080)
	BaseURL string

	// CompilePath is appended to BaseURL for uploads (default: /compile)
	CompilePath string

	// HealthPath is appended to BaseURL for readiness probes (default: /health)
	HealthPath string

	// Timeout bounds each request. Zero means no client-side timeout;
	// the caller's context still applies.
	Timeout time.Duration

	// UserAgent sent with every request.
	UserAgent string

	// Logger receives debug output. Defaults to slog.Default().
	Logger *slog.Logger
}

const (
	DefaultBaseURL     = "http://localhost:8080"
	DefaultCompilePath = "/compile"
	DefaultHealthPath  = "/health"
	DefaultUserAgent   = "texbench"
)

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:     DefaultBaseURL,
		CompilePath: DefaultCompilePath,
		HealthPath:  DefaultHealthPath,
		UserAgent:   DefaultUserAgent,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client uploads archives to a compilation server.
//
// A Client makes no retries. Each Compile call is exactly one HTTP request.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a compile client. A nil config uses DefaultConfig.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.CompilePath == "" {
		config.CompilePath = DefaultCompilePath
	}
	if config.HealthPath == "" {
		config.HealthPath = DefaultHealthPath
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

// BaseURL returns the configured server base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// CompileURL returns the full upload URL.
func (c *Client) CompileURL() string {
	return c.config.BaseURL + c.config.CompilePath
}

// HealthURL returns the full readiness probe URL.
func (c *Client) HealthURL() string {
	return c.config.BaseURL + c.config.HealthPath
}

// =============================================================================
// COMPILE
// =============================================================================

// CompileResponse is a fully received response from the compile endpoint.
type CompileResponse struct {
	StatusCode int
	Status     string
	Header     http.Header

	// Body is the decoded response body (a PDF on success, an error log otherwise).
	Body []byte

	// Elapsed covers request dispatch through full receipt of the body.
	Elapsed time.Duration

	RequestID string
}

// OK reports whether the server answered 200.
func (r *CompileResponse) OK() bool {
	return r.StatusCode == http.StatusOK
}

// CompileTime returns the X-Compile-Time-Ms header, or "Unknown" when absent.
func (r *CompileResponse) CompileTime() string {
	if v := r.Header.Get(HeaderCompileTime); v != "" {
		return v
	}
	return UnknownCompileTime
}

// Cache returns the X-Cache header (HIT or MISS), if any.
func (r *CompileResponse) Cache() string {
	return r.Header.Get(HeaderCache)
}

// HMR returns the X-HMR header, if any.
func (r *CompileResponse) HMR() string {
	return r.Header.Get(HeaderHMR)
}

// FilesReceived returns the X-Files-Received header, if any.
func (r *CompileResponse) FilesReceived() string {
	return r.Header.Get(HeaderFilesReceived)
}

// Compile uploads archive to the compile endpoint and returns the complete
// response. Only transport failures produce an error; any HTTP status,
// including non-200, is returned as a CompileResponse.
func (c *Client) Compile(ctx context.Context, archive io.Reader) (*CompileResponse, error) {
	body, contentType, err := encodeUpload(archive)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to encode upload", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.CompileURL(), body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept-Encoding", "zstd, gzip")
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set(HeaderRequestID, requestID)

	c.logger.Debug("compile request",
		"url", req.URL.String(),
		"request_id", requestID,
		"bytes", body.Len())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ClientError{Type: classify(err), Message: "compile request failed", Cause: err}
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	elapsed := time.Since(start)
	if err != nil {
		var ce *ClientError
		if errors.As(err, &ce) {
			return nil, ce
		}
		return nil, &ClientError{Type: classify(err), Message: "failed to read response", Cause: err}
	}

	c.logger.Debug("compile response",
		"request_id", requestID,
		"status", resp.StatusCode,
		"bytes", len(data),
		"elapsed", elapsed)

	return &CompileResponse{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       data,
		Elapsed:    elapsed,
		RequestID:  requestID,
	}, nil
}

// encodeUpload wraps archive in a multipart/form-data body with a single
// file part. The body is fully buffered so the timer excludes encoding.
func encodeUpload(archive io.Reader) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name=%q; filename=%q`, FormField, UploadFilename))
	h.Set("Content-Type", UploadContentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, archive); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

// readBody reads the full response body, undoing any Content-Encoding the
// server applied.
func readBody(resp *http.Response) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "zstd":
		dec, err := zstd.NewReader(resp.Body)
		if err != nil {
			return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to create zstd reader", Cause: err}
		}
		defer dec.Close()
		data, err := io.ReadAll(dec)
		if err != nil {
			return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode zstd body", Cause: err}
		}
		return data, nil
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to create gzip reader", Cause: err}
		}
		defer zr.Close()
		data, err := io.ReadAll(zr)
		if err != nil {
			return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode gzip body", Cause: err}
		}
		return data, nil
	default:
		return io.ReadAll(resp.Body)
	}
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckHealth probes the health endpoint once. It returns nil on 200.
func (c *Client) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.HealthURL(), nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ClientError{Type: classify(err), Message: "health check failed", Cause: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:    ErrTypeNotReady,
			Message: "unexpected status from server: " + resp.Status,
			Cause:   ErrNotReady,
		}
	}
	return nil
}

// WaitReady polls the health endpoint at most once per interval until it
// answers 200 or ctx ends. It returns the number of probes made.
func (c *Client) WaitReady(ctx context.Context, interval time.Duration) (int, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	var lastErr error
	attempts := 0
	for {
		if err := limiter.Wait(ctx); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			return attempts, &ClientError{Type: ErrTypeTimeout, Message: "server did not become ready", Cause: lastErr}
		}

		attempts++
		lastErr = c.CheckHealth(ctx)
		if lastErr == nil {
			c.logger.Debug("server ready", "url", c.HealthURL(), "attempts", attempts)
			return attempts, nil
		}
		c.logger.Debug("server not ready", "attempt", attempts, "error", lastErr)
	}
}

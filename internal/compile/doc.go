// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package compile provides the HTTP client for a LaTeX compilation server.
//
// The client uploads a zip archive to the server's compile endpoint as a
// multipart form and reads the whole response before returning, so the
// measured elapsed time covers dispatch through full receipt of the PDF.
//
// # Key Types
//
//   - Client: uploads archives and probes server health
//   - ClientConfig: base URL, endpoint paths and timeout
//   - CompileResponse: status, headers, decoded body and elapsed time
//   - ClientError: transport-level failure with an ErrorType
//
// Non-200 responses are not errors at this layer. They are returned as a
// CompileResponse and left to the caller to classify.
//
// # Usage
//
//	client := compile.NewClient(compile.DefaultConfig())
//	if err := client.WaitReady(ctx, 500*time.Millisecond); err != nil {
//	    return err
//	}
//	resp, err := client.Compile(ctx, buf)
//	if err != nil {
//	    // transport failure
//	}
//	fmt.Println(resp.StatusCode, resp.CompileTime(), resp.Elapsed)
package compile

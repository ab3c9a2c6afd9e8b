// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zip"
)

// MainEntry is the entry name the compilation server looks for.
const MainEntry = "main.tex"

// ErrEntryNotFound is returned by ReadEntry when the archive lacks the entry.
var ErrEntryNotFound = errors.New("archive entry not found")

// Error describes a failure while assembling or reading an archive.
type Error struct {
	Op    string // "create", "write", "close", "open", "read"
	Entry string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("archive %s %s: %v", e.Op, e.Entry, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Build returns a zip archive holding content as main.tex.
func Build(content []byte) (*bytes.Reader, error) {
	return BuildEntry(MainEntry, content)
}

// BuildEntry returns a zip archive with a single entry called name.
// The returned reader is positioned at offset 0.
func BuildEntry(name string, content []byte) (*bytes.Reader, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create(name)
	if err != nil {
		return nil, &Error{Op: "create", Entry: name, Err: err}
	}
	if _, err := w.Write(content); err != nil {
		return nil, &Error{Op: "write", Entry: name, Err: err}
	}
	// Close writes the central directory; without it the archive is unreadable.
	if err := zw.Close(); err != nil {
		return nil, &Error{Op: "close", Entry: name, Err: err}
	}

	return bytes.NewReader(buf.Bytes()), nil
}

// ReadEntry extracts the named entry from a zip archive.
func ReadEntry(r io.ReaderAt, size int64, name string) ([]byte, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, &Error{Op: "open", Entry: name, Err: err}
	}

	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, &Error{Op: "read", Entry: name, Err: err}
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, &Error{Op: "read", Entry: name, Err: err}
		}
		return data, nil
	}

	return nil, &Error{Op: "read", Entry: name, Err: ErrEntryNotFound}
}

// Entries lists the entry names in a zip archive, in archive order.
func Entries(r io.ReaderAt, size int64) ([]string, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names, nil
}

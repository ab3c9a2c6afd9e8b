// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package archive

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// BUILD TESTS
// =============================================================================

func TestBuild_SingleMainEntry(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"minimal", `\documentclass{article}\begin{document}Hello\end{document}`},
		{"empty", ""},
		{"non-ascii", `\section{Überblick} café ñ 数学`},
		{"multiline", "\\documentclass{article}\n\\begin{document}\nA\n\\end{document}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := Build([]byte(tt.content))
			require.NoError(t, err)

			names, err := Entries(buf, buf.Size())
			require.NoError(t, err)
			assert.Equal(t, []string{MainEntry}, names)

			data, err := ReadEntry(buf, buf.Size(), MainEntry)
			require.NoError(t, err)
			assert.Equal(t, tt.content, string(data))
		})
	}
}

func TestBuild_ReaderAtStart(t *testing.T) {
	buf, err := Build([]byte("x"))
	require.NoError(t, err)

	// A fresh reader must yield the whole archive from byte 0.
	all, err := io.ReadAll(buf)
	require.NoError(t, err)
	require.Greater(t, len(all), 4)
	assert.Equal(t, []byte("PK\x03\x04"), all[:4])
}

func TestBuild_IndependentBuffers(t *testing.T) {
	a, err := Build([]byte("first"))
	require.NoError(t, err)
	b, err := Build([]byte("second"))
	require.NoError(t, err)

	da, err := ReadEntry(a, a.Size(), MainEntry)
	require.NoError(t, err)
	db, err := ReadEntry(b, b.Size(), MainEntry)
	require.NoError(t, err)

	assert.Equal(t, "first", string(da))
	assert.Equal(t, "second", string(db))
}

// =============================================================================
// READ TESTS
// =============================================================================

func TestReadEntry_Missing(t *testing.T) {
	buf, err := BuildEntry("other.tex", []byte("x"))
	require.NoError(t, err)

	_, err = ReadEntry(buf, buf.Size(), MainEntry)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEntryNotFound))

	var aerr *Error
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, MainEntry, aerr.Entry)
}

func TestReadEntry_NotAZip(t *testing.T) {
	data := []byte("this is not a zip archive")
	_, err := Entries(bytesReaderAt(data), int64(len(data)))
	require.Error(t, err)
}

type bytesReaderAt []byte

func (b bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package detect

import (
	"context"
	"runtime"
	"testing"
	"time"
)

// =============================================================================
// SUMMARY TESTS
// =============================================================================

func TestHostInfo_Summary(t *testing.T) {
	tests := []struct {
		name string
		info HostInfo
		want string
	}{
		{
			name: "minimal",
			info: HostInfo{OS: "linux", Arch: "amd64"},
			want: "linux/amd64",
		},
		{
			name: "full",
			info: HostInfo{
				OS: "linux", Arch: "amd64",
				CPUModel: "AMD Ryzen 7 5800X ", PhysicalCores: 8, LogicalCores: 16,
				MemoryTotal: 32 << 30,
			},
			want: "linux/amd64, AMD Ryzen 7 5800X (8C/16T), 32.0 GiB",
		},
		{
			name: "cpu without counts",
			info: HostInfo{OS: "darwin", Arch: "arm64", CPUModel: "Apple M2"},
			want: "darwin/arm64, Apple M2",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.info.Summary(); got != tc.want {
				t.Errorf("Summary() = %q, want %q", got, tc.want)
			}
		})
	}
}

// =============================================================================
// DETECTION TESTS
// =============================================================================

func TestDetectHost_Basics(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	info := DetectHost(ctx)
	if info == nil {
		t.Fatal("DetectHost returned nil")
	}
	if info.OS != runtime.GOOS {
		t.Errorf("OS = %q, want %q", info.OS, runtime.GOOS)
	}
	if info.Arch != runtime.GOARCH {
		t.Errorf("Arch = %q, want %q", info.Arch, runtime.GOARCH)
	}
	if info.LogicalCores <= 0 {
		t.Errorf("LogicalCores = %d, want > 0", info.LogicalCores)
	}
	if info.GoVersion == "" {
		t.Error("GoVersion is empty")
	}
}

func TestHostCached_ReusesSnapshot(t *testing.T) {
	ClearHostCache()
	defer ClearHostCache()

	ctx := context.Background()
	first := HostCached(ctx)
	second := HostCached(ctx)
	if first != second {
		t.Error("expected HostCached to return the same snapshot")
	}

	ClearHostCache()
	third := HostCached(ctx)
	if third == first {
		t.Error("expected a fresh snapshot after ClearHostCache")
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package detect

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/load"
	"github.com/shirou/gopsutil/mem"
)

// hostDetectTimeout bounds a full detection pass.
const hostDetectTimeout = 5 * time.Second

// =============================================================================
// HOST INFO
// =============================================================================

// HostInfo describes the client machine.
type HostInfo struct {
	Hostname      string   `json:"hostname,omitempty"`
	OS            string   `json:"os"`
	Platform      string   `json:"platform,omitempty"`
	KernelVersion string   `json:"kernel_version,omitempty"`
	Arch          string   `json:"arch"`
	CPUModel      string   `json:"cpu_model,omitempty"`
	LogicalCores  int      `json:"logical_cores,omitempty"`
	PhysicalCores int      `json:"physical_cores,omitempty"`
	MemoryTotal   uint64   `json:"memory_total_bytes,omitempty"`
	Load1         float64  `json:"load1"`
	GoVersion     string   `json:"go_version"`
	Warnings      []string `json:"warnings,omitempty"`
}

// Summary returns a one-line description such as
// "linux/amd64, AMD Ryzen 7 5800X (8C/16T), 31.3 GiB".
func (h *HostInfo) Summary() string {
	parts := []string{h.OS + "/" + h.Arch}
	if h.CPUModel != "" {
		cpuDesc := strings.TrimSpace(h.CPUModel)
		if h.PhysicalCores > 0 || h.LogicalCores > 0 {
			cpuDesc += fmt.Sprintf(" (%dC/%dT)", h.PhysicalCores, h.LogicalCores)
		}
		parts = append(parts, cpuDesc)
	}
	if h.MemoryTotal > 0 {
		parts = append(parts, fmt.Sprintf("%.1f GiB", float64(h.MemoryTotal)/(1<<30)))
	}
	return strings.Join(parts, ", ")
}

// =============================================================================
// DETECTION
// =============================================================================

// DetectHost probes the local machine. Individual probe failures are
// recorded as warnings rather than returned.
func DetectHost(ctx context.Context) *HostInfo {
	ctx, cancel := context.WithTimeout(ctx, hostDetectTimeout)
	defer cancel()

	info := &HostInfo{
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		GoVersion: runtime.Version(),
	}
	warn := func(probe string, err error) {
		info.Warnings = append(info.Warnings, probe+": "+err.Error())
	}

	if hi, err := host.InfoWithContext(ctx); err != nil {
		warn("host", err)
	} else {
		info.Hostname = hi.Hostname
		info.Platform = strings.TrimSpace(hi.Platform + " " + hi.PlatformVersion)
		info.KernelVersion = hi.KernelVersion
	}

	if cpus, err := cpu.InfoWithContext(ctx); err != nil {
		warn("cpu", err)
	} else if len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.LogicalCores = n
	} else {
		info.LogicalCores = runtime.NumCPU()
	}
	if n, err := cpu.CountsWithContext(ctx, false); err == nil {
		info.PhysicalCores = n
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		warn("memory", err)
	} else {
		info.MemoryTotal = vm.Total
	}

	// Load average is unavailable on some platforms; skip silently there.
	if avg, err := load.AvgWithContext(ctx); err == nil {
		info.Load1 = avg.Load1
	}

	return info
}

// =============================================================================
// CACHING
// =============================================================================

var (
	hostCache         *HostInfo
	hostCacheTime     time.Time
	hostCacheMu       sync.Mutex
	hostCacheDuration = 5 * time.Minute
)

// HostCached returns a cached HostInfo when one is fresh, otherwise it
// detects and caches. The watch command reuses one snapshot across reruns.
func HostCached(ctx context.Context) *HostInfo {
	hostCacheMu.Lock()
	defer hostCacheMu.Unlock()

	if hostCache != nil && time.Since(hostCacheTime) < hostCacheDuration {
		return hostCache
	}

	hostCache = DetectHost(ctx)
	hostCacheTime = time.Now()
	return hostCache
}

// ClearHostCache forces fresh detection on the next HostCached call.
func ClearHostCache() {
	hostCacheMu.Lock()
	defer hostCacheMu.Unlock()
	hostCache = nil
	hostCacheTime = time.Time{}
}

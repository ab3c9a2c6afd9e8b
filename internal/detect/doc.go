// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package detect describes the machine a benchmark run executes on.
//
// Round-trip times depend on the client host as well as the server, so
// every run report carries a HostInfo snapshot: OS, CPU model, core counts,
// total memory and load average at the time of the run.
//
// # Key Types
//
//   - HostInfo: client host description attached to reports
//
// # Usage
//
//	info := detect.HostCached(ctx)
//	fmt.Println(info.Summary())
//
// Detection never fails as a whole. Fields whose probe errors are left
// zero and the error text is recorded in HostInfo.Warnings.
package detect

// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports what build of logship is running: the
// --version output of both binaries and the version attribute the
// aggregator logs at startup.
//
// [GitCommit], [BuildTime], and [Version] are injected with -ldflags
// -X. Development builds and tests see "unknown" and "0.1.0-dev".
package version

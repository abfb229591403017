// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds what the logship binaries share at their
// entrypoints.
//
// NewLogger builds the fallback logger: the stderr channel that sinks
// report their own failures on. It never routes through the shipping
// pipeline, so a failing sink cannot recurse into itself.
//
// Fatal reports the error from run and exits with a code chosen by
// its fault kind, so a supervisor can tell a policy that will never
// load from an endpoint that may come back.
package process

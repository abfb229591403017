// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"io"
	"os"

	"github.com/logship/logship/lib/fault"
)

// Exit codes by fault kind. Supervisors use them to tell a bad policy
// (do not restart) from a lost endpoint (restart).
const (
	ExitFailure   = 1
	ExitConfig    = 2
	ExitTransport = 3
)

// ExitCode maps err to the process exit code for its fault kind.
func ExitCode(err error) int {
	switch fault.KindOf(err) {
	case fault.KindConfig:
		return ExitConfig
	case fault.KindTransport:
		return ExitTransport
	default:
		return ExitFailure
	}
}

// Fatal writes "error: err" to stderr and exits with ExitCode(err).
// main uses it for errors from run, where the fallback logger may not
// exist yet.
func Fatal(err error) {
	os.Exit(report(os.Stderr, err))
}

func report(output io.Writer, err error) int {
	fmt.Fprintf(output, "error: %v\n", err)
	return ExitCode(err)
}

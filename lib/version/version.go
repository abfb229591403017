// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"io"
	"os"
	"runtime"
)

// Injected at build time:
//
//	go build -ldflags "-X github.com/logship/logship/lib/version.GitCommit=$(git rev-parse --short HEAD)" ./cmd/...
var (
	GitCommit = "unknown"
	BuildTime = "unknown"
	Version   = "0.1.0-dev"
)

// Info returns "version (commit, build time)".
func Info() string {
	return fmt.Sprintf("%s (%s, %s)", Version, GitCommit, BuildTime)
}

// Full returns Info followed by the Go toolchain and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Print writes the --version output for binary to stdout.
func Print(binary string) {
	write(os.Stdout, binary)
}

func write(output io.Writer, binary string) {
	fmt.Fprintf(output, "%s %s\n", binary, Full())
}

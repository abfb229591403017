// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

package filesink

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ErrLocked is returned by Open when another sink holds the file.
var ErrLocked = errors.New("log file is held by another sink")

// lockFile takes a non-blocking exclusive flock on file. The lock is
// released when the file is closed.
func lockFile(file *os.File) error {
	err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if errors.Is(err, unix.EWOULDBLOCK) {
		return fmt.Errorf("%s: %w", file.Name(), ErrLocked)
	}
	if err != nil {
		return fmt.Errorf("locking %s: %w", file.Name(), err)
	}
	return nil
}

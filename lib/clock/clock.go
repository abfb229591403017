// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the wall clock as seen by rotation and record stamping.
type Clock interface {
	Now() time.Time
}

// Real returns the system clock.
func Real() Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

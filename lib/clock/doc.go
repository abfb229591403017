// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable wall clock so that time-based
// log rotation can be tested without waiting for real boundaries.
//
// Production code accepts a Clock instead of calling time.Now
// directly. Real() provides the standard library behavior; Fake()
// provides a clock that moves only when the test moves it:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 23, 59, 0, 0, time.UTC))
//	sink, _ := filesink.Open(filesink.Config{Clock: c, ...})
//	c.Advance(2 * time.Minute) // crosses midnight
package clock

// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"time"
)

// TB is the subset of testing.TB the helpers need.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// pollInterval is how often Eventually re-checks its condition.
const pollInterval = 10 * time.Millisecond

// RequireReceive returns the first value sent on ch, failing the test
// if none arrives within timeout or ch is closed.
//
//	err := testutil.RequireReceive(t, done, 5*time.Second, "waiting for Run to return")
func RequireReceive[V any](t TB, ch <-chan V, timeout time.Duration, description ...any) V {
	t.Helper()
	timer := time.NewTimer(timeout) //nolint:realclock test hang prevention
	defer timer.Stop()
	select {
	case value, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed before a value arrived: %s", describe(description))
		}
		return value
	case <-timer.C:
		t.Fatalf("nothing received within %v: %s", timeout, describe(description))
	}
	var zero V
	return zero
}

// Eventually polls condition until it holds, failing the test if it
// still does not after timeout. Use it to observe files written by
// another goroutine, where there is no channel to wait on.
//
//	testutil.Eventually(t, 5*time.Second, func() bool {
//	    return len(testutil.ReadLines(t, path)) == 3
//	}, "waiting for %d persisted lines", 3)
func Eventually(t TB, timeout time.Duration, condition func() bool, description ...any) {
	t.Helper()
	deadline := time.Now().Add(timeout) //nolint:realclock test hang prevention
	for !condition() {
		if time.Now().After(deadline) { //nolint:realclock test hang prevention
			t.Fatalf("condition still false after %v: %s", timeout, describe(description))
			return
		}
		time.Sleep(pollInterval) //nolint:realclock polling interval
	}
}

// describe renders the optional trailing description: nothing, a
// single value, or a format string with arguments.
func describe(description []any) string {
	switch {
	case len(description) == 0:
		return "(no description)"
	case len(description) == 1:
		return fmt.Sprint(description[0])
	}
	if format, ok := description[0].(string); ok {
		return fmt.Sprintf(format, description[1:]...)
	}
	return fmt.Sprint(description...)
}

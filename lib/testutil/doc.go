// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for logship packages.
//
// [RequireReceive] wraps the select-with-timeout pattern so tests never
// block forever on a channel. [Eventually] is the one sanctioned
// polling helper; it exists for observing log files written by another
// goroutine or process, where no channel is available.
//
// [FreePort] reserves a TCP port number for tests that must know a
// port before anything listens on it, such as pointing a forwarder at
// an aggregator that starts later. [ReadLines] returns a log file's
// lines.
//
// Helpers call t.Fatalf on failure rather than returning errors.
package testutil

// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

// Package record defines the log record shared by every sink and the
// single-line text format used both on disk and on the wire.
//
// A formatted line looks like:
//
//	2026-10-19 13:45:02.123 | WARNING  | handlers.go:88 - hotel lookup empty city=DELHI attempts=3
//
// The source segment is present only when the record carries one.
// Embedded line breaks in the message are escaped so that one record
// is always exactly one line; the aggregator relies on this to persist
// each inbound message verbatim.
package record

// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"log/slog"
	"slices"
	"time"
)

// Record is one log event. Records are values; the structured context
// is copied on construction and on read so that no two consumers ever
// share a mutable slice.
type Record struct {
	Time    time.Time
	Level   Level
	Message string

	// Source is an optional "file:line" location.
	Source string

	context []slog.Attr
}

// New creates a record. The context slice is copied.
func New(t time.Time, level Level, message string, context ...slog.Attr) Record {
	return Record{
		Time:    t,
		Level:   level,
		Message: message,
		context: slices.Clone(context),
	}
}

// WithSource returns a copy of r with Source set.
func (r Record) WithSource(source string) Record {
	r.Source = source
	return r
}

// Context returns a copy of the record's structured context.
func (r Record) Context() []slog.Attr {
	return slices.Clone(r.context)
}

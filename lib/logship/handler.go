// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

package logship

import (
	"context"
	"log/slog"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"

	"github.com/logship/logship/lib/record"
)

// Handler returns an slog.Handler writing through the client. Levels
// map onto record levels with record.FromSlog, so slog.LevelWarn
// becomes WARNING and record.SlogCritical becomes CRITICAL.
func (c *Client) Handler() slog.Handler {
	return &handler{client: c}
}

type handler struct {
	client *Client

	// attrs are the WithAttrs attributes, already nested under the
	// groups that were open when they were added.
	attrs []slog.Attr

	// groups are the open groups, outermost first.
	groups []string
}

func (h *handler) Enabled(_ context.Context, level slog.Level) bool {
	return record.FromSlog(level) >= h.client.minLevel
}

// Handle converts r to a record and logs it. Delivery errors are
// accounted for by the client and never returned: a logging call must
// not fail the caller.
func (h *handler) Handle(_ context.Context, r slog.Record) error {
	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)

	own := make([]slog.Attr, 0, r.NumAttrs())
	r.Attrs(func(attr slog.Attr) bool {
		own = append(own, attr)
		return true
	})
	attrs = append(attrs, nest(h.groups, own)...)

	timestamp := r.Time
	if timestamp.IsZero() {
		timestamp = h.client.clock.Now()
	}
	rec := record.New(timestamp, record.FromSlog(r.Level), r.Message, attrs...)
	if h.client.addSource && r.PC != 0 {
		rec = rec.WithSource(source(r.PC))
	}

	h.client.Log(rec)
	return nil
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = append(slices.Clip(h.attrs), nest(h.groups, attrs)...)
	return &clone
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(slices.Clip(h.groups), name)
	return &clone
}

// nest wraps attrs in the given groups, innermost last.
func nest(groups []string, attrs []slog.Attr) []slog.Attr {
	if len(attrs) == 0 || len(groups) == 0 {
		return attrs
	}
	values := make([]any, len(attrs))
	for i, attr := range attrs {
		values[i] = attr
	}
	nested := slog.Group(groups[len(groups)-1], values...)
	for i := len(groups) - 2; i >= 0; i-- {
		nested = slog.Group(groups[i], nested)
	}
	return []slog.Attr{nested}
}

// source renders the caller at pc as "file.go:line".
func source(pc uintptr) string {
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if frame.File == "" {
		return ""
	}
	return filepath.Base(frame.File) + ":" + strconv.Itoa(frame.Line)
}

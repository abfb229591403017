// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

// Package rotate decides when an active log file must be rotated.
//
// A Trigger is a pure function of the file's rotation State, the
// current time, and the size of the pending write. It performs no I/O
// and reads no clock, so the sink can evaluate it before every append
// and tests can drive it with arbitrary times and sizes.
//
// Triggers are usually built from the same strings the configuration
// file carries:
//
//	"10 MB"   size threshold (decimal units; KiB/MiB/GiB are binary)
//	"00:00"   daily at a time of day, in the clock's location
//	"daily"   same as "00:00"
//	"6h"      fixed interval since the file was opened
package rotate

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// State is the rotation-relevant view of the active file.
type State struct {
	// OpenedAt is when the current file generation started.
	OpenedAt time.Time

	// Size is the current byte length of the file.
	Size int64
}

// Trigger reports whether the active file must be rotated before
// appending incoming bytes at time now.
type Trigger interface {
	Due(state State, now time.Time, incoming int64) bool
	String() string
}

// Size rotates when appending the next write would push the file past
// Limit bytes. An empty file never rotates on size, so a single line
// larger than Limit is still written.
type Size struct {
	Limit int64
}

func (s Size) Due(state State, _ time.Time, incoming int64) bool {
	return state.Size > 0 && state.Size+incoming > s.Limit
}

func (s Size) String() string { return formatSize(s.Limit) }

// Daily rotates once the first wall-clock boundary at Hour:Minute
// after OpenedAt has been reached.
type Daily struct {
	Hour   int
	Minute int
}

func (d Daily) Due(state State, now time.Time, _ int64) bool {
	return !now.Before(d.Next(state.OpenedAt))
}

// Next returns the first Hour:Minute boundary strictly after t, in t's
// location.
func (d Daily) Next(t time.Time) time.Time {
	boundary := time.Date(t.Year(), t.Month(), t.Day(), d.Hour, d.Minute, 0, 0, t.Location())
	if !boundary.After(t) {
		boundary = boundary.AddDate(0, 0, 1)
	}
	return boundary
}

func (d Daily) String() string { return fmt.Sprintf("%02d:%02d", d.Hour, d.Minute) }

// Interval rotates once Every has elapsed since OpenedAt.
type Interval struct {
	Every time.Duration
}

func (i Interval) Due(state State, now time.Time, _ int64) bool {
	return now.Sub(state.OpenedAt) >= i.Every
}

func (i Interval) String() string { return i.Every.String() }

// Parse builds a Trigger from its configuration string.
func Parse(spec string) (Trigger, error) {
	text := strings.TrimSpace(spec)
	switch strings.ToLower(text) {
	case "":
		return nil, fmt.Errorf("empty rotation")
	case "daily", "midnight":
		return Daily{}, nil
	}

	if hour, minute, ok := parseTimeOfDay(text); ok {
		return Daily{Hour: hour, Minute: minute}, nil
	}

	if limit, ok, err := parseSize(text); ok {
		if err != nil {
			return nil, err
		}
		return Size{Limit: limit}, nil
	}

	if every, err := time.ParseDuration(text); err == nil {
		if every <= 0 {
			return nil, fmt.Errorf("rotation interval must be positive, got %s", every)
		}
		return Interval{Every: every}, nil
	}

	return nil, fmt.Errorf("unrecognized rotation %q (want a size like \"10 MB\", a time like \"00:00\", or a duration like \"24h\")", spec)
}

// parseTimeOfDay accepts "HH:MM".
func parseTimeOfDay(text string) (hour, minute int, ok bool) {
	hourText, minuteText, found := strings.Cut(text, ":")
	if !found || len(minuteText) != 2 || len(hourText) == 0 || len(hourText) > 2 {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(hourText)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(minuteText)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

var sizeUnits = map[string]float64{
	"b":   1,
	"kb":  1e3,
	"mb":  1e6,
	"gb":  1e9,
	"kib": 1 << 10,
	"mib": 1 << 20,
	"gib": 1 << 30,
}

// parseSize accepts "<number> <unit>" with optional whitespace. ok is
// false when text does not look like a size at all; err is set when it
// does but the value is unusable.
func parseSize(text string) (limit int64, ok bool, err error) {
	index := strings.IndexFunc(text, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	if index <= 0 {
		return 0, false, nil
	}
	unit := strings.ToLower(strings.TrimSpace(text[index:]))
	multiplier, known := sizeUnits[unit]
	if !known {
		return 0, false, nil
	}
	number, parseErr := strconv.ParseFloat(text[:index], 64)
	if parseErr != nil {
		return 0, true, fmt.Errorf("invalid rotation size %q: %w", text, parseErr)
	}
	limit = int64(number * multiplier)
	if limit <= 0 {
		return 0, true, fmt.Errorf("rotation size must be positive, got %q", text)
	}
	return limit, true, nil
}

func formatSize(limit int64) string {
	for _, unit := range []struct {
		name  string
		value int64
	}{{"GiB", 1 << 30}, {"MiB", 1 << 20}, {"KiB", 1 << 10}, {"GB", 1e9}, {"MB", 1e6}, {"KB", 1e3}} {
		if limit >= unit.value && limit%unit.value == 0 {
			return fmt.Sprintf("%d %s", limit/unit.value, unit.name)
		}
	}
	return fmt.Sprintf("%d B", limit)
}

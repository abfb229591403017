// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"TRACE", LevelTrace},
		{"debug", LevelDebug},
		{" Info ", LevelInfo},
		{"SUCCESS", LevelSuccess},
		{"warning", LevelWarning},
		{"WARN", LevelWarning},
		{"Error", LevelError},
		{"CRITICAL", LevelCritical},
	}
	for _, test := range tests {
		got, err := ParseLevel(test.input)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", test.input, err)
		}
		if got != test.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", test.input, got, test.want)
		}
	}
}

func TestParseLevelRejectsUnknown(t *testing.T) {
	for _, input := range []string{"", "VERBOSE", "30", "fatal"} {
		if _, err := ParseLevel(input); err == nil {
			t.Errorf("ParseLevel(%q) succeeded, want error", input)
		}
	}
}

func TestLevelOrdering(t *testing.T) {
	ordered := []Level{LevelTrace, LevelDebug, LevelInfo, LevelSuccess, LevelWarning, LevelError, LevelCritical}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1] >= ordered[i] {
			t.Fatalf("%v should sort below %v", ordered[i-1], ordered[i])
		}
	}
}

func TestSlogMappingRoundTrips(t *testing.T) {
	for _, level := range []Level{LevelTrace, LevelDebug, LevelInfo, LevelSuccess, LevelWarning, LevelError, LevelCritical} {
		if got := FromSlog(level.Slog()); got != level {
			t.Errorf("FromSlog(%v.Slog()) = %v", level, got)
		}
	}
}

func TestFromSlogStandardLevels(t *testing.T) {
	tests := []struct {
		input slog.Level
		want  Level
	}{
		{slog.LevelDebug, LevelDebug},
		{slog.LevelInfo, LevelInfo},
		{slog.LevelWarn, LevelWarning},
		{slog.LevelError, LevelError},
		{slog.LevelError + 2, LevelError},
		{slog.LevelDebug - 10, LevelTrace},
		{slog.Level(100), LevelCritical},
	}
	for _, test := range tests {
		if got := FromSlog(test.input); got != test.want {
			t.Errorf("FromSlog(%v) = %v, want %v", test.input, got, test.want)
		}
	}
}

func TestUnknownLevelString(t *testing.T) {
	if got := Level(7).String(); got != "LEVEL(7)" {
		t.Fatalf("Level(7).String() = %q", got)
	}
}

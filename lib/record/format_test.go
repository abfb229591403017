// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

var stamp = time.Date(2026, 10, 19, 13, 45, 2, 123_000_000, time.UTC)

func TestFormatBasicLine(t *testing.T) {
	line := Format(New(stamp, LevelWarning, "No dummy hotels available for city"))
	want := "2026-10-19 13:45:02.123 | WARNING  | No dummy hotels available for city"
	if line != want {
		t.Fatalf("Format =\n  %q\nwant\n  %q", line, want)
	}
}

func TestFormatSourceAndContext(t *testing.T) {
	rec := New(stamp, LevelInfo, "weather fetched",
		slog.String("city", "Paris"),
		slog.Int("status", 200),
		slog.Duration("took", 1500*time.Millisecond),
	).WithSource("app.go:61")

	want := "2026-10-19 13:45:02.123 | INFO     | app.go:61 - weather fetched city=Paris status=200 took=1.5s"
	if got := Format(rec); got != want {
		t.Fatalf("Format =\n  %q\nwant\n  %q", got, want)
	}
}

func TestFormatQuotesAwkwardValues(t *testing.T) {
	rec := New(stamp, LevelError, "request failed",
		slog.String("city", "New Delhi"),
		slog.String("empty", ""),
		slog.String("query", "a=b"),
		slog.Any("error", errors.New("dial tcp: refused")),
	)
	line := Format(rec)
	for _, fragment := range []string{
		`city="New Delhi"`,
		`empty=""`,
		`query="a=b"`,
		`error="dial tcp: refused"`,
	} {
		if !strings.Contains(line, fragment) {
			t.Errorf("line %q missing %s", line, fragment)
		}
	}
}

func TestFormatFlattensGroups(t *testing.T) {
	rec := New(stamp, LevelDebug, "lookup",
		slog.Group("geo", slog.Float64("lat", 28.61), slog.Float64("lon", 77.2)),
		slog.Group("empty"),
		slog.Group("", slog.String("inline", "yes")),
	)
	want := "2026-10-19 13:45:02.123 | DEBUG    | lookup geo.lat=28.61 geo.lon=77.2 inline=yes"
	if got := Format(rec); got != want {
		t.Fatalf("Format =\n  %q\nwant\n  %q", got, want)
	}
}

func TestFormatEscapesLineBreaks(t *testing.T) {
	rec := New(stamp, LevelCritical, "traceback:\n  line 1\r\n  line 2")
	line := Format(rec)
	if strings.ContainsAny(line, "\r\n") {
		t.Fatalf("formatted line contains a raw line break: %q", line)
	}
	if !strings.HasSuffix(line, `traceback:\n  line 1\r\n  line 2`) {
		t.Fatalf("escaped message not preserved: %q", line)
	}
}

func TestRecordContextIsCopied(t *testing.T) {
	context := []slog.Attr{slog.String("city", "Rome")}
	rec := New(stamp, LevelInfo, "hello", context...)

	context[0] = slog.String("city", "Oslo")
	if got := rec.Context()[0].Value.String(); got != "Rome" {
		t.Fatalf("record context changed through caller slice: %q", got)
	}

	view := rec.Context()
	view[0] = slog.String("city", "Lima")
	if got := rec.Context()[0].Value.String(); got != "Rome" {
		t.Fatalf("record context changed through Context() result: %q", got)
	}
}

func TestEscapeLine(t *testing.T) {
	tests := map[string]string{
		"plain":         "plain",
		"two\nlines":    `two\nlines`,
		"crlf\r\nended": `crlf\r\nended`,
		"":              "",
	}
	for input, want := range tests {
		if got := EscapeLine(input); got != want {
			t.Errorf("EscapeLine(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestFormatQuotesAwkwardKeys(t *testing.T) {
	rec := New(stamp, LevelInfo, "msg",
		slog.String("a\nb c", "v"),
		slog.Group("geo\r", slog.Int("lat", 1)),
	).WithSource("app.go\n:61")

	line := Format(rec)
	if strings.ContainsAny(line, "\r\n") {
		t.Fatalf("formatted line contains a raw line break: %q", line)
	}
	for _, fragment := range []string{
		`app.go\n:61 - msg`,
		`"a\nb c"=v`,
		`"geo\r.lat"=1`,
	} {
		if !strings.Contains(line, fragment) {
			t.Errorf("line %q missing %s", line, fragment)
		}
	}
}

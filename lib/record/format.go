// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// TimeLayout is the timestamp layout at the start of every line.
const TimeLayout = "2006-01-02 15:04:05.000"

var lineBreaks = strings.NewReplacer("\r", `\r`, "\n", `\n`)

// EscapeLine escapes CR and LF in text so it occupies exactly one line.
func EscapeLine(text string) string {
	if !strings.ContainsAny(text, "\r\n") {
		return text
	}
	return lineBreaks.Replace(text)
}

// Format renders r as a single line without a trailing newline.
func Format(r Record) string {
	var builder strings.Builder
	builder.Grow(64 + len(r.Message))

	builder.WriteString(r.Time.Format(TimeLayout))
	builder.WriteString(" | ")
	fmt.Fprintf(&builder, "%-8s", r.Level)
	builder.WriteString(" | ")
	if r.Source != "" {
		lineBreaks.WriteString(&builder, r.Source)
		builder.WriteString(" - ")
	}
	lineBreaks.WriteString(&builder, r.Message)

	for _, attr := range r.context {
		appendAttr(&builder, "", attr)
	}
	return builder.String()
}

// appendAttr writes " key=value" for attr, flattening groups into
// dotted keys. Empty attrs and empty groups are skipped, matching
// slog's handler rules.
func appendAttr(builder *strings.Builder, prefix string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}

	key := attr.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}

	if attr.Value.Kind() == slog.KindGroup {
		for _, member := range attr.Value.Group() {
			appendAttr(builder, key, member)
		}
		return
	}

	if needsQuoting(key) {
		key = strconv.Quote(key)
	}
	builder.WriteByte(' ')
	builder.WriteString(key)
	builder.WriteByte('=')
	value := renderValue(attr.Value)
	if needsQuoting(value) {
		value = strconv.Quote(value)
	}
	builder.WriteString(value)
}

func renderValue(value slog.Value) string {
	switch value.Kind() {
	case slog.KindString:
		return value.String()
	case slog.KindTime:
		return value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		return value.Duration().String()
	case slog.KindAny:
		if err, ok := value.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(value.Any())
	default:
		return value.String()
	}
}

func needsQuoting(value string) bool {
	if value == "" {
		return true
	}
	for _, r := range value {
		if r == '=' || r == '"' || unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return true
		}
	}
	return false
}

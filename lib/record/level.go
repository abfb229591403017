// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level is a record severity. The numeric values leave gaps so that
// ordering comparisons work and custom levels could slot in between.
type Level uint8

const (
	LevelTrace    Level = 5
	LevelDebug    Level = 10
	LevelInfo     Level = 20
	LevelSuccess  Level = 25
	LevelWarning  Level = 30
	LevelError    Level = 40
	LevelCritical Level = 50
)

// String returns the upper-case level name used in formatted lines.
func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelSuccess:
		return "SUCCESS"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	default:
		return fmt.Sprintf("LEVEL(%d)", uint8(l))
	}
}

// ParseLevel parses a level name, case-insensitively. "WARN" is
// accepted as an alias for WARNING.
func ParseLevel(name string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "SUCCESS":
		return LevelSuccess, nil
	case "WARNING", "WARN":
		return LevelWarning, nil
	case "ERROR":
		return LevelError, nil
	case "CRITICAL":
		return LevelCritical, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}

// slog equivalents for the levels slog does not define.
const (
	SlogTrace    = slog.Level(-8)
	SlogSuccess  = slog.Level(2)
	SlogCritical = slog.Level(12)
)

// Slog returns the slog.Level that maps back to l through FromSlog.
func (l Level) Slog() slog.Level {
	switch {
	case l < LevelDebug:
		return SlogTrace
	case l < LevelInfo:
		return slog.LevelDebug
	case l < LevelSuccess:
		return slog.LevelInfo
	case l < LevelWarning:
		return SlogSuccess
	case l < LevelError:
		return slog.LevelWarn
	case l < LevelCritical:
		return slog.LevelError
	default:
		return SlogCritical
	}
}

// FromSlog maps an slog.Level onto the nearest Level at or below it.
func FromSlog(level slog.Level) Level {
	switch {
	case level < slog.LevelDebug:
		return LevelTrace
	case level < slog.LevelInfo:
		return LevelDebug
	case level < SlogSuccess:
		return LevelInfo
	case level < slog.LevelWarn:
		return LevelSuccess
	case level < slog.LevelError:
		return LevelWarning
	case level < SlogCritical:
		return LevelError
	default:
		return LevelCritical
	}
}

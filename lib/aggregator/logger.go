// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

package aggregator

import (
	"fmt"
	"log/slog"
)

// serverLogger adapts slog to the embedded server's logger interface.
// The server's own Fatalf exits the process; here it is reported on
// fatal so Start can turn it into an error.
type serverLogger struct {
	logger *slog.Logger
	fatal  chan string
}

func newServerLogger(logger *slog.Logger) *serverLogger {
	return &serverLogger{
		logger: logger.With("subsystem", "nats"),
		fatal:  make(chan string, 1),
	}
}

func (l *serverLogger) Noticef(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

func (l *serverLogger) Warnf(format string, v ...any) {
	l.logger.Warn(fmt.Sprintf(format, v...))
}

func (l *serverLogger) Errorf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

func (l *serverLogger) Fatalf(format string, v ...any) {
	message := fmt.Sprintf(format, v...)
	l.logger.Error(message)
	select {
	case l.fatal <- message:
	default:
	}
}

func (l *serverLogger) Debugf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

func (l *serverLogger) Tracef(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

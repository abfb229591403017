// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

// Package fault defines the error taxonomy shared by the sink, the
// forwarder, and the aggregator.
//
// Every error that crosses a package boundary is a *Error carrying a
// Kind. Callers that care (metrics, the aggregator's shutdown logic,
// tests) classify with [Is]:
//
//	if fault.Is(err, fault.KindTransport) {
//	    dropped.Inc()
//	}
//
// Callers that do not care are free to ignore the error entirely. The
// producer-side logging path does exactly that.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how the system reacts to it.
type Kind uint8

const (
	// KindConfig is fatal at startup: missing or invalid policy
	// fields, an uncreatable log directory, an unbindable port, or a
	// log file already held by another process.
	KindConfig Kind = iota + 1

	// KindTransport is non-fatal on the producer side (the record is
	// dropped) and non-fatal in the aggregator except when the
	// endpoint itself is lost.
	KindTransport

	// KindPersistence is a disk I/O failure while writing or
	// rotating. The record is dropped and the sink keeps running.
	KindPersistence
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindTransport:
		return "transport"
	case KindPersistence:
		return "persistence"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Error is a classified error. Op names the operation that failed
// ("open", "write", "rotate", "publish", "bind", ...).
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind and operation. Returns nil if err is nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf is New with a formatted message. Use %w in format to keep the
// underlying cause reachable through errors.Is and errors.As.
func Newf(kind Kind, op string, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Is reports whether any error in err's chain is a *Error of the
// given kind.
func Is(err error, kind Kind) bool {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or 0 if
// there is none.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return 0
}

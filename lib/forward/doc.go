// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

// Package forward implements the remote forwarder: a best-effort,
// at-most-once publisher of formatted log lines to the aggregator.
//
// The forwarder never makes the producer wait on the network. It dials
// lazily on the first record, and a dial that fails leaves the
// connection in reconnecting state rather than failing. Lines published
// while the aggregator is away are held in the client's bounded
// reconnect buffer and flushed when the connection returns. Anything
// past the buffer is dropped, counted, and reported to the caller as a
// fault.KindTransport error.
//
// Transport errors are never written to the local log file: the file
// is the producer's own log stream, and filling it with reports about
// an unreachable aggregator would bury the records it exists to keep.
// Connection state changes go to an optional logger (normally stderr).
package forward

// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

// Package filesink implements the local durable sink: an append-only
// log file that rotates on a size or time trigger and compresses each
// rotated generation.
//
// Every append goes straight to the file with one write(2) per line, so
// a crash loses at most the line being written and there is no
// user-space buffer to flush on shutdown. A single mutex serializes
// appends and rotation, which gives two guarantees:
//
//   - lines from concurrent callers never interleave, and
//   - callers block for at most one append or one rotation.
//
// Rotation is evaluated before every append:
//
//	trigger.Due(state, clock.Now(), len(line)) → close → rename to
//	<stem>.<YYYY-MM-DD_HH-MM-SS>[.N]<ext> → reopen fresh file →
//	compress the renamed file → log the archive digest
//
// The active file holds an exclusive flock for as long as it is open.
// A second sink (in this or another process) pointed at the same path
// fails to open rather than interleaving writes.
//
// I/O failures never propagate as panics or process exits: the record
// is dropped, the failure is reported on the fallback logger, and the
// error is returned for callers that count drops. The sink reopens the
// file on the next write if the handle was lost.
package filesink

// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

// Package aggregator implements the aggregator service: the single
// process that receives every producer's forwarded lines and persists
// them to one unified, rotated, compressed log file.
//
// The inbound endpoint is an embedded NATS server bound on the
// configured host and port. Producers publish one message per line.
// The service reads them through an in-process subscriber connection
// and appends each payload verbatim to its own filesink.Sink.
//
// Lifecycle:
//
//	STOPPED → Start → BINDING → LISTENING → Run → (ctx done | endpoint lost)
//	        → SHUTTING_DOWN → STOPPED
//
// Start fails with a fault.KindConfig error if the port cannot be
// bound. Within Run, per-message problems (a line that fails to
// persist, a slow-consumer drop) are logged and the loop continues.
// Losing the endpoint itself ends Run with ErrEndpointLost. A cancelled
// context is a clean stop: messages already delivered to the
// subscriber are persisted before the sink closes and the port is
// released.
package aggregator

// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

// logship-aggregator receives forwarded log lines from every producer
// and persists them to one unified, rotated, compressed log file.
//
// It reads the [aggregator] section of a policy file (--config), binds
// the inbound endpoint, and runs until SIGINT or SIGTERM, at which
// point it persists every message already received, closes the
// unified log, and releases the port. SIGHUP forces a rotation of the
// unified log.
//
// Failing to load the policy, bind the port, or open the unified log is
// fatal at startup (exit 2). Losing the endpoint while running is also
// fatal (exit 3). Everything else is logged to stderr and the service
// keeps going.
//
// With --metrics-listen (or metrics_listen in the policy), Prometheus
// metrics are served at /metrics on that address.
package main

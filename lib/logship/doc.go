// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

// Package logship is the producer-side entry point: it pairs a local
// durable sink with a remote forwarder under one sink policy and hands
// every record to both.
//
// There is no package-level logger. A process opens a Client from its
// policy and passes the Client (or the *slog.Logger built from it) to
// the code that logs:
//
//	client, err := logship.Open(policy, logship.Options{Name: "trip-planner"})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	logger := client.Logger()
//	logger.Warn("No dummy hotels available for city", "city", city)
//
// The two consumers are independent. Each formats the record itself,
// and a failure in one never blocks the other. Log returns both
// failures joined for callers that care. The slog path ignores them.
// Logging never panics or exits. When a record is lost everywhere, an
// alert goes to the fallback logger, at most once a minute.
package logship

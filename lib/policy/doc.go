// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

// Package policy loads the sink policy: where a process persists its
// log stream, the minimum level it keeps, how the file rotates and
// compresses, and where the aggregator listens.
//
// A policy file is TOML, YAML, or JSONC (JSON with comments and
// trailing commas), chosen by extension. All three share one key
// schema, and unknown keys are rejected so a typo never silently falls
// back to a default:
//
//	log_file_name   = "logs/trip_planner.log"
//	min_log_level   = "INFO"
//	log_rotation    = "00:00"     # or "10 MB", "6h", "daily"
//	log_compression = "zip"       # zip, gz, zst, lz4, none
//
//	[remote]
//	host = "localhost"
//	port = 9999
//
//	[aggregator]
//	port          = 9999
//	log_file_name = "logs/unified.log"
//
// Producers call Load and use the top-level keys plus [remote]. The
// aggregator calls LoadAggregator and uses [aggregator]; one file can
// carry both. Loading is the only place the package touches the
// filesystem: the parent directory of each sink path is created so the
// sink can open at startup.
package policy

// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

// logship-emit ships log records through a producer policy: to the
// policy's local log file and to the aggregator.
//
// With arguments, the arguments joined by spaces form one record.
// Without, each line of stdin becomes a record, so existing programs
// can be piped through it:
//
//	logship-emit --config logging_config.toml --level WARNING "No dummy hotels available for city"
//	some-tool 2>&1 | logship-emit --config logging_config.toml --name some-tool
//
// --attr key=value adds structured context to every record and may be
// repeated. The exit status is non-zero only when a record reached
// neither the local file nor the aggregator.
package main

// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/logship/logship/lib/fault"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New("plain"), ExitFailure},
		{fault.Newf(fault.KindConfig, "load policy", "log_file_name is required"), ExitConfig},
		{fmt.Errorf("running: %w", fault.Newf(fault.KindTransport, "run", "endpoint lost")), ExitTransport},
		{fault.Newf(fault.KindPersistence, "close", "fsync failed"), ExitFailure},
	}
	for _, test := range tests {
		if got := ExitCode(test.err); got != test.want {
			t.Errorf("ExitCode(%v) = %d, want %d", test.err, got, test.want)
		}
	}
}

func TestReport(t *testing.T) {
	var output bytes.Buffer
	code := report(&output, fault.Newf(fault.KindConfig, "start", "port 9999 in use"))
	if code != ExitConfig {
		t.Errorf("code = %d, want %d", code, ExitConfig)
	}
	if got, want := output.String(), "error: config: start: port 9999 in use\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

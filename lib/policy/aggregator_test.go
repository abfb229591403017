// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/logship/logship/lib/compress"
	"github.com/logship/logship/lib/fault"
	"github.com/logship/logship/lib/record"
	"github.com/logship/logship/lib/rotate"
)

func TestAggregatorDefaults(t *testing.T) {
	directory := t.TempDir()
	t.Chdir(directory)

	policy, err := ParseAggregator(nil, TOML)
	if err != nil {
		t.Fatalf("ParseAggregator: %v", err)
	}

	if policy.Address() != "0.0.0.0:9999" {
		t.Errorf("Address() = %q, want 0.0.0.0:9999", policy.Address())
	}
	if policy.Subject != DefaultSubject {
		t.Errorf("Subject = %q", policy.Subject)
	}
	if policy.PendingMessages != 65536 || policy.PendingBytes != 64<<20 {
		t.Errorf("pending limits = %d msgs / %d bytes", policy.PendingMessages, policy.PendingBytes)
	}
	if policy.BindTimeout != 5*time.Second {
		t.Errorf("BindTimeout = %v", policy.BindTimeout)
	}
	if policy.Sink.Path != DefaultAggregatorFile {
		t.Errorf("Sink.Path = %q", policy.Sink.Path)
	}
	if policy.Sink.MinLevel != record.LevelTrace {
		t.Errorf("Sink.MinLevel = %v, want TRACE", policy.Sink.MinLevel)
	}
	if policy.Sink.Remote.Enabled {
		t.Error("aggregator sink must not forward")
	}
	if policy.Sink.Rotation != (rotate.Daily{}) || policy.Sink.Compression != compress.Zip {
		t.Errorf("Sink storage = %v / %v", policy.Sink.Rotation, policy.Sink.Compression)
	}
	if _, err := os.Stat(filepath.Join(directory, "logs")); err != nil {
		t.Errorf("unified log directory not created: %v", err)
	}
}

func TestLoadAggregatorSharedFile(t *testing.T) {
	directory := t.TempDir()
	unified := filepath.Join(directory, "unified", "all.log")
	path := writePolicy(t, "logging_config.yaml", `
log_file_name: `+filepath.Join(directory, "producer.log")+`
min_log_level: INFO
remote:
  port: 4333
  subject: trips.logs
aggregator:
  host: 127.0.0.1
  port: 4333
  log_file_name: `+unified+`
  log_rotation: 10 MiB
  log_compression: zst
  bind_timeout: 2s
  metrics_listen: 127.0.0.1:9102
`)

	policy, err := LoadAggregator(path)
	if err != nil {
		t.Fatalf("LoadAggregator: %v", err)
	}
	if policy.Address() != "127.0.0.1:4333" {
		t.Errorf("Address() = %q", policy.Address())
	}
	if policy.Subject != "trips.logs" {
		t.Errorf("Subject = %q, want the remote subject to carry over", policy.Subject)
	}
	if policy.Sink.Path != unified {
		t.Errorf("Sink.Path = %q", policy.Sink.Path)
	}
	if policy.Sink.Rotation != (rotate.Size{Limit: 10 << 20}) {
		t.Errorf("Sink.Rotation = %#v", policy.Sink.Rotation)
	}
	if policy.Sink.Compression != compress.Zstd {
		t.Errorf("Sink.Compression = %v", policy.Sink.Compression)
	}
	if policy.BindTimeout != 2*time.Second || policy.MetricsListen != "127.0.0.1:9102" {
		t.Errorf("BindTimeout = %v, MetricsListen = %q", policy.BindTimeout, policy.MetricsListen)
	}

	// The producer view of the same file is independent.
	producer, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if producer.Remote.Port != 4333 || producer.Remote.Subject != "trips.logs" {
		t.Errorf("producer remote = %+v", producer.Remote)
	}
}

func TestAggregatorRejects(t *testing.T) {
	for name, content := range map[string]string{
		"port":         "[aggregator]\nport = 123456\nlog_file_name = \"x/unified.log\"\n",
		"bind timeout": "[aggregator]\nbind_timeout = \"-1s\"\nlog_file_name = \"x/unified.log\"\n",
		"unknown key":  "[aggregator]\nbacklog = 5\n",
	} {
		t.Run(name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			if _, err := ParseAggregator([]byte(content), TOML); !fault.Is(err, fault.KindConfig) {
				t.Errorf("ParseAggregator error = %v, want a config fault", err)
			}
		})
	}
}

// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/logship/logship/lib/compress"
	"github.com/logship/logship/lib/fault"
	"github.com/logship/logship/lib/forward"
	"github.com/logship/logship/lib/metrics"
	"github.com/logship/logship/lib/policy"
	"github.com/logship/logship/lib/record"
	"github.com/logship/logship/lib/testutil"
)

var stamp = time.Date(2026, 10, 19, 13, 45, 2, 123_000_000, time.UTC)

func testPolicy(t *testing.T, port int) policy.AggregatorPolicy {
	t.Helper()
	return policy.AggregatorPolicy{
		Host:            "127.0.0.1",
		Port:            port,
		Subject:         policy.DefaultSubject,
		PendingMessages: 1024,
		PendingBytes:    1 << 20,
		BindTimeout:     5 * time.Second,
		Sink: policy.SinkPolicy{
			Path:        filepath.Join(t.TempDir(), "unified.log"),
			MinLevel:    record.LevelTrace,
			Compression: compress.Zip,
		},
	}
}

func startService(t *testing.T, config Config) *Service {
	t.Helper()
	service := New(config)
	if err := service.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { service.Close() })
	return service
}

// runService runs the service in the background and returns a stop
// function that cancels it and returns Run's result.
func runService(t *testing.T, service *Service) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- service.Run(ctx) }()
	return func() error {
		cancel()
		return testutil.RequireReceive(t, result, 10*time.Second, "waiting for Run to return")
	}
}

func newForwarder(t *testing.T, service *Service, producer string) *forward.Forwarder {
	t.Helper()
	forwarder, err := forward.New(forward.Config{
		Producer: producer,
		Remote: policy.Remote{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    service.Port(),
		},
	})
	if err != nil {
		t.Fatalf("forward.New: %v", err)
	}
	t.Cleanup(func() { forwarder.Close() })
	return forwarder
}

func publisher(t *testing.T, service *Service) *nats.Conn {
	t.Helper()
	conn, err := nats.Connect(service.ClientURL())
	if err != nil {
		t.Fatalf("nats.Connect: %v", err)
	}
	t.Cleanup(conn.Close)
	return conn
}

func TestRoundTripIsByteForByte(t *testing.T) {
	config := Config{Policy: testPolicy(t, -1)}
	service := startService(t, config)
	stop := runService(t, service)

	if service.State() != Listening {
		t.Fatalf("State = %v, want LISTENING", service.State())
	}
	forwarder := newForwarder(t, service, "trip-planner")

	records := []record.Record{
		record.New(stamp, record.LevelInfo, "Fetching hotels", slog.String("city", "Lisbon")),
		record.New(stamp, record.LevelWarning, "No dummy hotels available for city"),
		record.New(stamp, record.LevelCritical, "traceback:\n  line 1").WithSource("planner.go:88"),
	}
	for _, rec := range records {
		if err := forwarder.Forward(rec); err != nil {
			t.Fatalf("Forward: %v", err)
		}
	}

	path := config.Policy.Sink.Path
	testutil.Eventually(t, 10*time.Second, func() bool {
		return len(testutil.ReadLines(t, path)) == len(records)
	}, "waiting for %d persisted lines", len(records))

	lines := testutil.ReadLines(t, path)
	for i, rec := range records {
		if lines[i] != record.Format(rec) {
			t.Errorf("line %d = %q, want %q", i, lines[i], record.Format(rec))
		}
	}

	if err := stop(); err != nil {
		t.Fatalf("Run after cancel = %v, want nil", err)
	}
	if service.State() != Stopped {
		t.Errorf("State after stop = %v, want STOPPED", service.State())
	}
}

func TestConcurrentProducersPreserveOwnOrder(t *testing.T) {
	config := Config{Policy: testPolicy(t, -1)}
	service := startService(t, config)
	stop := runService(t, service)
	defer stop()

	const producers, perProducer = 4, 50
	var wait sync.WaitGroup
	for producer := range producers {
		forwarder := newForwarder(t, service, fmt.Sprintf("producer-%d", producer))
		wait.Add(1)
		go func() {
			defer wait.Done()
			for n := range perProducer {
				forwarder.ForwardLine(fmt.Sprintf("producer=%d seq=%d", producer, n))
			}
		}()
	}
	wait.Wait()

	path := config.Policy.Sink.Path
	testutil.Eventually(t, 10*time.Second, func() bool {
		return len(testutil.ReadLines(t, path)) == producers*perProducer
	}, "waiting for every producer's lines")

	next := make(map[int]int)
	for _, line := range testutil.ReadLines(t, path) {
		var producer, seq int
		if _, err := fmt.Sscanf(line, "producer=%d seq=%d", &producer, &seq); err != nil {
			t.Fatalf("malformed line %q: %v", line, err)
		}
		if seq != next[producer] {
			t.Fatalf("producer %d: got seq %d, want %d", producer, seq, next[producer])
		}
		next[producer]++
	}
}

func TestStartFailsWhenPortIsBound(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()
	port := listener.Addr().(*net.TCPAddr).Port

	service := New(Config{Policy: testPolicy(t, port)})
	err = service.Start()
	if err == nil {
		service.Close()
		t.Fatal("Start succeeded on a bound port")
	}
	if !fault.Is(err, fault.KindConfig) {
		t.Errorf("Start error = %v, want a config fault", err)
	}
	if service.State() != Stopped {
		t.Errorf("State = %v, want STOPPED", service.State())
	}
}

func TestStartTwiceFails(t *testing.T) {
	service := startService(t, Config{Policy: testPolicy(t, -1)})
	if err := service.Start(); !fault.Is(err, fault.KindConfig) {
		t.Errorf("second Start = %v, want a config fault", err)
	}
}

func TestCleanStopPersistsPendingMessages(t *testing.T) {
	config := Config{Policy: testPolicy(t, -1)}
	service := startService(t, config)

	// Publish before Run so every message is sitting in the
	// subscription when the stop begins.
	conn := publisher(t, service)
	const count = 50
	for n := range count {
		if err := conn.Publish(policy.DefaultSubject, []byte(fmt.Sprintf("pending %d", n))); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	if err := conn.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	port := service.Port()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := service.Run(ctx); err != nil {
		t.Fatalf("Run with cancelled context = %v, want nil", err)
	}

	lines := testutil.ReadLines(t, config.Policy.Sink.Path)
	if len(lines) != count {
		t.Fatalf("persisted %d lines, want %d", len(lines), count)
	}
	if lines[0] != "pending 0" || lines[count-1] != fmt.Sprintf("pending %d", count-1) {
		t.Errorf("lines out of order: first %q, last %q", lines[0], lines[count-1])
	}
	if service.State() != Stopped {
		t.Errorf("State = %v, want STOPPED", service.State())
	}

	listener, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", fmt.Sprint(port)))
	if err != nil {
		t.Fatalf("port %d still bound after stop: %v", port, err)
	}
	listener.Close()
}

func TestCloseDuringRunPersistsEveryReceivedMessage(t *testing.T) {
	config := Config{Policy: testPolicy(t, -1)}
	config.Policy.PendingMessages = 10000
	config.Policy.PendingBytes = 16 << 20
	service := startService(t, config)

	conn := publisher(t, service)
	const count = 5000
	for n := range count {
		if err := conn.Publish(policy.DefaultSubject, []byte(fmt.Sprintf("in flight %d", n))); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	if err := conn.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	result := make(chan error, 1)
	go func() { result <- service.Run(context.Background()) }()
	testutil.Eventually(t, 10*time.Second, func() bool {
		return service.Stats().Received > 0
	}, "Run persisting its first message")

	if err := service.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if service.State() != Stopped {
		t.Errorf("State after Close = %v, want STOPPED", service.State())
	}
	if err := testutil.RequireReceive(t, result, 10*time.Second, "waiting for Run to return"); err != nil {
		t.Fatalf("Run after Close = %v, want nil", err)
	}

	stats := service.Stats()
	if stats.Sink.Dropped != 0 {
		t.Errorf("sink dropped %d messages during Close", stats.Sink.Dropped)
	}
	lines := testutil.ReadLines(t, config.Policy.Sink.Path)
	if uint64(len(lines)) != stats.Received {
		t.Errorf("persisted %d lines, received %d", len(lines), stats.Received)
	}
	if len(lines) != count {
		t.Errorf("persisted %d lines, want all %d published", len(lines), count)
	}
}

func TestRunAfterCloseReturnsNil(t *testing.T) {
	service := startService(t, Config{Policy: testPolicy(t, -1)})
	if err := service.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := service.Run(context.Background()); err != nil {
		t.Fatalf("Run after Close = %v, want nil", err)
	}
}

func TestEndpointLossEndsRun(t *testing.T) {
	service := startService(t, Config{Policy: testPolicy(t, -1)})

	result := make(chan error, 1)
	go func() { result <- service.Run(context.Background()) }()

	service.server.Shutdown()

	err := testutil.RequireReceive(t, result, 10*time.Second, "waiting for Run to notice the lost endpoint")
	if !errors.Is(err, ErrEndpointLost) {
		t.Fatalf("Run = %v, want ErrEndpointLost", err)
	}
	if !fault.Is(err, fault.KindTransport) {
		t.Errorf("Run error %v is not a transport fault", err)
	}
	if service.State() != Stopped {
		t.Errorf("State = %v, want STOPPED", service.State())
	}
}

func TestPayloadLineBreaksAreEscaped(t *testing.T) {
	config := Config{Policy: testPolicy(t, -1)}
	service := startService(t, config)
	stop := runService(t, service)

	conn := publisher(t, service)
	conn.Publish(policy.DefaultSubject, []byte("first\nsecond"))
	conn.Flush()

	path := config.Policy.Sink.Path
	testutil.Eventually(t, 10*time.Second, func() bool {
		return len(testutil.ReadLines(t, path)) > 0
	}, "waiting for the line")
	stop()

	lines := testutil.ReadLines(t, path)
	if len(lines) != 1 || lines[0] != `first\nsecond` {
		t.Errorf("file = %q, want one escaped line", lines)
	}
}

func TestRotateArchivesUnifiedLog(t *testing.T) {
	config := Config{Policy: testPolicy(t, -1)}
	service := startService(t, config)
	stop := runService(t, service)
	defer stop()

	conn := publisher(t, service)
	conn.Publish(policy.DefaultSubject, []byte("before rotation"))
	conn.Flush()

	path := config.Policy.Sink.Path
	testutil.Eventually(t, 10*time.Second, func() bool {
		return len(testutil.ReadLines(t, path)) == 1
	}, "waiting for the first line")

	if err := service.Rotate(); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	archives, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "unified.*.log.zip"))
	if len(archives) != 1 {
		t.Fatalf("archives = %v, want exactly one", archives)
	}
	if lines := testutil.ReadLines(t, path); len(lines) != 0 {
		t.Errorf("active file after rotation = %q, want empty", lines)
	}
}

func TestMetricsAndStats(t *testing.T) {
	registry := prometheus.NewRegistry()
	collectors := metrics.New(registry)
	config := Config{Policy: testPolicy(t, -1), Metrics: collectors}
	service := startService(t, config)
	stop := runService(t, service)

	conn := publisher(t, service)
	for n := range 3 {
		conn.Publish(policy.DefaultSubject, []byte(fmt.Sprintf("line %d", n)))
	}
	conn.Flush()

	testutil.Eventually(t, 10*time.Second, func() bool {
		return service.Stats().Received == 3
	}, "waiting for three received lines")
	stop()

	if got := promtest.ToFloat64(collectors.Aggregator().Received); got != 3 {
		t.Errorf("received counter = %v, want 3", got)
	}
	if got := promtest.ToFloat64(collectors.Sink("unified").Written); got != 3 {
		t.Errorf("unified sink written = %v, want 3", got)
	}
	stats := service.Stats()
	if stats.Sink.Written != 3 || stats.State != Stopped {
		t.Errorf("Stats = %+v", stats)
	}
}

func TestServerLoggerReportsFatal(t *testing.T) {
	var output strings.Builder
	adapter := newServerLogger(slog.New(slog.NewTextHandler(&output, nil)))
	adapter.Fatalf("Error listening on port: %s", "127.0.0.1:9999")
	adapter.Fatalf("second fatal is not queued")

	message := testutil.RequireReceive(t, adapter.fatal, time.Second, "waiting for the fatal report")
	if message != "Error listening on port: 127.0.0.1:9999" {
		t.Errorf("fatal message = %q", message)
	}
	if !strings.Contains(output.String(), "Error listening on port") {
		t.Errorf("fatal not logged: %q", output.String())
	}
}

// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

package forward

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/logship/logship/lib/clock"
	"github.com/logship/logship/lib/fault"
	"github.com/logship/logship/lib/metrics"
	"github.com/logship/logship/lib/policy"
	"github.com/logship/logship/lib/record"
)

// ErrClosed is returned for records forwarded after Close.
var ErrClosed = errors.New("forwarder closed")

// DefaultFlushTimeout bounds the flush in Close.
const DefaultFlushTimeout = 2 * time.Second

// Config configures a Forwarder.
type Config struct {
	// Producer names this process in metrics and in the connection
	// name the aggregator sees. Defaults to "logship".
	Producer string

	// Remote locates the aggregator.
	Remote policy.Remote

	// MinLevel is the lowest level Forward sends.
	MinLevel record.Level

	// Logger receives connection state changes. Defaults to
	// discarding.
	Logger *slog.Logger

	// Metrics receives counters labelled with Producer. May be nil.
	Metrics *metrics.Metrics

	// FlushTimeout bounds the flush in Close. Defaults to
	// DefaultFlushTimeout.
	FlushTimeout time.Duration

	// Clock paces dial retries. Defaults to clock.Real().
	Clock clock.Clock
}

// Stats is a snapshot of the forwarder's counters.
type Stats struct {
	Sent     uint64
	Filtered uint64
	Dropped  uint64

	// Connected reports whether the connection is currently up.
	Connected bool
}

// Forwarder publishes lines to the aggregator. Safe for concurrent
// use.
type Forwarder struct {
	producer     string
	remote       policy.Remote
	minLevel     record.Level
	logger       *slog.Logger
	counters     metrics.ForwardCounters
	flushTimeout time.Duration
	clock        clock.Clock

	mu      sync.Mutex
	conn    *nats.Conn
	retryAt time.Time
	closed  bool

	sent     atomic.Uint64
	filtered atomic.Uint64
	dropped  atomic.Uint64
}

// New validates config and returns a Forwarder. No connection is made
// until the first record is forwarded.
func New(config Config) (*Forwarder, error) {
	if config.Remote.Port < 1 || config.Remote.Port > 65535 {
		return nil, fault.Newf(fault.KindConfig, "new forwarder", "aggregator port %d out of range", config.Remote.Port)
	}
	if config.Remote.Host == "" {
		config.Remote.Host = policy.DefaultRemoteHost
	}
	if config.Remote.Subject == "" {
		config.Remote.Subject = policy.DefaultSubject
	}
	if config.Producer == "" {
		config.Producer = "logship"
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.FlushTimeout <= 0 {
		config.FlushTimeout = DefaultFlushTimeout
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Remote.ConnectTimeout <= 0 {
		config.Remote.ConnectTimeout = policy.DefaultConnectTimeout
	}
	if config.Remote.ReconnectWait <= 0 {
		config.Remote.ReconnectWait = policy.DefaultReconnectWait
	}
	if config.Remote.ReconnectBufferBytes <= 0 {
		config.Remote.ReconnectBufferBytes = policy.DefaultReconnectBufferBytes
	}
	return &Forwarder{
		producer:     config.Producer,
		remote:       config.Remote,
		minLevel:     config.MinLevel,
		logger:       config.Logger.With("aggregator", config.Remote.URL()),
		counters:     config.Metrics.Forward(config.Producer),
		flushTimeout: config.FlushTimeout,
		clock:        config.Clock,
	}, nil
}

// Forward formats and publishes rec if it is at or above the minimum
// level. Records below it are discarded before formatting.
func (f *Forwarder) Forward(rec record.Record) error {
	if rec.Level < f.minLevel {
		f.filtered.Add(1)
		f.counters.Filtered.Inc()
		return nil
	}
	return f.ForwardLine(record.Format(rec))
}

// ForwardLine publishes line verbatim. It does not wait for the
// aggregator: the line is queued in the client and sent in the
// background.
func (f *Forwarder) ForwardLine(line string) error {
	conn, err := f.connection()
	if err != nil {
		f.drop()
		return fault.New(fault.KindTransport, "forward", err)
	}
	if err := conn.Publish(f.remote.Subject, []byte(line)); err != nil {
		f.drop()
		return fault.New(fault.KindTransport, "forward", err)
	}
	f.sent.Add(1)
	f.counters.Sent.Inc()
	return nil
}

// Close flushes what the client has queued, bounded by the flush
// timeout, and closes the connection. Lines still in the reconnect
// buffer when the aggregator is unreachable are discarded. Safe to
// call more than once.
func (f *Forwarder) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	conn := f.conn
	f.conn = nil
	f.mu.Unlock()

	if conn == nil {
		return nil
	}
	var flushErr error
	if conn.IsConnected() {
		flushErr = conn.FlushTimeout(f.flushTimeout)
	}
	conn.Close()
	return fault.New(fault.KindTransport, "close", flushErr)
}

// Stats returns a snapshot of the forwarder's counters.
func (f *Forwarder) Stats() Stats {
	f.mu.Lock()
	connected := f.conn != nil && f.conn.IsConnected()
	f.mu.Unlock()
	return Stats{
		Sent:      f.sent.Load(),
		Filtered:  f.filtered.Load(),
		Dropped:   f.dropped.Load(),
		Connected: connected,
	}
}

// connection returns the connection, dialing on first use. A dial that
// fails outright (as opposed to an unreachable aggregator, which the
// client retries on its own) is not retried until ReconnectWait has
// passed, so a broken endpoint does not cost a dial per record.
func (f *Forwarder) connection() (*nats.Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrClosed
	}
	if f.conn != nil {
		return f.conn, nil
	}
	if f.clock.Now().Before(f.retryAt) {
		return nil, fmt.Errorf("dialing %s: waiting to retry", f.remote.URL())
	}

	conn, err := nats.Connect(f.remote.URL(), f.options()...)
	if err != nil {
		f.retryAt = f.clock.Now().Add(f.remote.ReconnectWait)
		f.logger.Warn("dialing aggregator failed", "error", err)
		return nil, fmt.Errorf("dialing %s: %w", f.remote.URL(), err)
	}
	f.conn = conn
	return conn, nil
}

func (f *Forwarder) options() []nats.Option {
	return []nats.Option{
		nats.Name(f.producer + "-" + uuid.NewString()),
		nats.Timeout(f.remote.ConnectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(f.remote.ReconnectWait),
		nats.ReconnectBufSize(f.remote.ReconnectBufferBytes),
		nats.NoCallbacksAfterClientClose(),
		nats.ConnectHandler(func(conn *nats.Conn) {
			f.logger.Info("connected to aggregator", "server", conn.ConnectedUrlRedacted())
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			f.logger.Warn("aggregator connection lost, buffering", "error", err)
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			f.logger.Info("reconnected to aggregator", "server", conn.ConnectedUrlRedacted())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			f.logger.Warn("aggregator connection error", "error", err)
		}),
	}
}

func (f *Forwarder) drop() {
	f.dropped.Add(1)
	f.counters.Dropped.Inc()
}

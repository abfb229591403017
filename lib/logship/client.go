// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

package logship

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/logship/logship/lib/clock"
	"github.com/logship/logship/lib/filesink"
	"github.com/logship/logship/lib/forward"
	"github.com/logship/logship/lib/metrics"
	"github.com/logship/logship/lib/policy"
	"github.com/logship/logship/lib/process"
	"github.com/logship/logship/lib/record"
)

// lossAlertInterval is the minimum gap between total-loss alerts.
const lossAlertInterval = time.Minute

// Options configures a Client beyond its policy.
type Options struct {
	// Name identifies the producer to the aggregator and in metrics.
	// Defaults to the executable's base name.
	Name string

	// Clock stamps slog records that carry no time and drives the
	// sink's rotation. Defaults to clock.Real().
	Clock clock.Clock

	// Fallback receives the sink's own failures, connection state
	// changes, and total-loss alerts. Defaults to a stderr logger.
	Fallback *slog.Logger

	// Metrics receives sink, forwarder, and loss counters. May be nil.
	Metrics *metrics.Metrics

	// AddSource prefixes each line from the slog handler with the
	// caller's file:line.
	AddSource bool
}

// Stats is a snapshot of the client's counters.
type Stats struct {
	Sink    filesink.Stats
	Forward forward.Stats
	Lost    uint64
}

// Client is a producer's sink/forwarder pair. Safe for concurrent use.
type Client struct {
	minLevel  record.Level
	sink      *filesink.Sink
	forwarder *forward.Forwarder
	clock     clock.Clock
	fallback  *slog.Logger
	addSource bool

	lossCounter prometheus.Counter
	lost        atomic.Uint64
	lossAlert   rate.Sometimes

	closeOnce sync.Once
	closeErr  error
}

// Open opens the local sink and prepares the forwarder. Only the sink
// touches the outside world here: the forwarder dials on first use.
// Errors are fault.KindConfig.
func Open(sinkPolicy *policy.SinkPolicy, options Options) (*Client, error) {
	if options.Name == "" {
		options.Name = filepath.Base(os.Args[0])
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Fallback == nil {
		options.Fallback = process.NewLogger(options.Name)
	}

	sink, err := filesink.Open(filesink.Config{
		Name:        options.Name,
		Path:        sinkPolicy.Path,
		MinLevel:    sinkPolicy.MinLevel,
		Trigger:     sinkPolicy.Rotation,
		Compression: sinkPolicy.Compression,
		Clock:       options.Clock,
		Logger:      options.Fallback,
		Metrics:     options.Metrics,
	})
	if err != nil {
		return nil, err
	}

	var forwarder *forward.Forwarder
	if sinkPolicy.Remote.Enabled {
		forwarder, err = forward.New(forward.Config{
			Producer: options.Name,
			Remote:   sinkPolicy.Remote,
			MinLevel: sinkPolicy.MinLevel,
			Logger:   options.Fallback,
			Metrics:  options.Metrics,
			Clock:    options.Clock,
		})
		if err != nil {
			sink.Close()
			return nil, err
		}
	}

	return &Client{
		minLevel:    sinkPolicy.MinLevel,
		sink:        sink,
		forwarder:   forwarder,
		clock:       options.Clock,
		fallback:    options.Fallback,
		addSource:   options.AddSource,
		lossCounter: options.Metrics.RecordsLost(),
		lossAlert:   rate.Sometimes{Interval: lossAlertInterval},
	}, nil
}

// Log hands rec to the sink and the forwarder. The returned error joins
// whichever of the two failed. Records below the policy minimum are
// dropped by both without error.
func (c *Client) Log(rec record.Record) error {
	sinkErr := c.sink.Write(rec)
	var forwardErr error
	if c.forwarder != nil {
		forwardErr = c.forwarder.Forward(rec)
	}
	if sinkErr != nil && (c.forwarder == nil || forwardErr != nil) {
		c.recordLost(rec, sinkErr, forwardErr)
	}
	return errors.Join(sinkErr, forwardErr)
}

// recordLost counts a record that reached no consumer and raises a
// rate-limited alert on the fallback logger.
func (c *Client) recordLost(rec record.Record, sinkErr, forwardErr error) {
	total := c.lost.Add(1)
	c.lossCounter.Inc()
	c.lossAlert.Do(func() {
		attributes := []any{
			"level", rec.Level.String(),
			"log_message", rec.Message,
			"lost_total", total,
			"sink_error", sinkErr,
		}
		if forwardErr != nil {
			attributes = append(attributes, "forward_error", forwardErr)
		}
		c.fallback.Error("log record lost: local sink and aggregator both failed", attributes...)
	})
}

// Logger returns a *slog.Logger writing through the client.
func (c *Client) Logger() *slog.Logger {
	return slog.New(c.Handler())
}

// Close closes the sink and the forwarder. Safe to call more than
// once; later calls return the first call's result.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		var forwardErr error
		if c.forwarder != nil {
			forwardErr = c.forwarder.Close()
		}
		c.closeErr = errors.Join(c.sink.Close(), forwardErr)
	})
	return c.closeErr
}

// Stats returns a snapshot of the client's counters.
func (c *Client) Stats() Stats {
	stats := Stats{
		Sink: c.sink.Stats(),
		Lost: c.lost.Load(),
	}
	if c.forwarder != nil {
		stats.Forward = c.forwarder.Stats()
	}
	return stats
}

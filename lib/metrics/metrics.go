// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics holds the prometheus collectors for the sink, the
// forwarder, and the aggregator.
//
// Collectors are registered on a caller-supplied Registerer rather
// than the global default registry, so two clients in one test binary
// do not collide. Components receive scoped counter sets:
//
//	m := metrics.New(registry)
//	sink, _ := filesink.Open(filesink.Config{Counters: m.Sink("server"), ...})
//
// A nil *Metrics hands out unregistered counters, which keeps call
// sites free of nil checks when metrics are disabled.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "logship"

// Metrics is the full collector set for one process.
type Metrics struct {
	sinkWritten   *prometheus.CounterVec
	sinkBytes     *prometheus.CounterVec
	sinkFiltered  *prometheus.CounterVec
	sinkDropped   *prometheus.CounterVec
	sinkRotations *prometheus.CounterVec

	forwardSent     *prometheus.CounterVec
	forwardFiltered *prometheus.CounterVec
	forwardDropped  *prometheus.CounterVec

	aggregatorReceived      prometheus.Counter
	aggregatorReceiveErrors prometheus.Counter

	recordsLost prometheus.Counter
}

// New creates the collectors and registers them on registerer.
// Panics if any collector is already registered, like MustRegister.
func New(registerer prometheus.Registerer) *Metrics {
	sinkLabel := []string{"sink"}
	m := &Metrics{
		sinkWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sink", Name: "records_written_total",
			Help: "Lines appended to the active log file.",
		}, sinkLabel),
		sinkBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sink", Name: "bytes_written_total",
			Help: "Bytes appended to the active log file, including newlines.",
		}, sinkLabel),
		sinkFiltered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sink", Name: "records_filtered_total",
			Help: "Records dropped for being below the minimum level.",
		}, sinkLabel),
		sinkDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sink", Name: "records_dropped_total",
			Help: "Records lost to write or rotation I/O errors.",
		}, sinkLabel),
		sinkRotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sink", Name: "rotations_total",
			Help: "Completed log file rotations.",
		}, sinkLabel),

		forwardSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "forward", Name: "records_sent_total",
			Help: "Records handed to the transport. Delivery is not confirmed.",
		}, []string{"producer"}),
		forwardFiltered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "forward", Name: "records_filtered_total",
			Help: "Records not forwarded for being below the minimum level.",
		}, []string{"producer"}),
		forwardDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "forward", Name: "records_dropped_total",
			Help: "Records the transport refused, e.g. reconnect buffer full.",
		}, []string{"producer"}),

		aggregatorReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "aggregator", Name: "messages_received_total",
			Help: "Messages taken off the inbound endpoint.",
		}),
		aggregatorReceiveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "aggregator", Name: "receive_errors_total",
			Help: "Non-fatal receive errors, e.g. slow consumer notifications.",
		}),

		recordsLost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "records_lost_total",
			Help: "Records that failed on every configured sink.",
		}),
	}

	registerer.MustRegister(
		m.sinkWritten, m.sinkBytes, m.sinkFiltered, m.sinkDropped, m.sinkRotations,
		m.forwardSent, m.forwardFiltered, m.forwardDropped,
		m.aggregatorReceived, m.aggregatorReceiveErrors,
		m.recordsLost,
	)
	return m
}

// SinkCounters is the counter set for one local durable sink.
type SinkCounters struct {
	Written   prometheus.Counter
	Bytes     prometheus.Counter
	Filtered  prometheus.Counter
	Dropped   prometheus.Counter
	Rotations prometheus.Counter
}

// Sink returns the counters labelled with the given sink name.
func (m *Metrics) Sink(name string) SinkCounters {
	if m == nil {
		return SinkCounters{
			Written: detached(), Bytes: detached(), Filtered: detached(),
			Dropped: detached(), Rotations: detached(),
		}
	}
	return SinkCounters{
		Written:   m.sinkWritten.WithLabelValues(name),
		Bytes:     m.sinkBytes.WithLabelValues(name),
		Filtered:  m.sinkFiltered.WithLabelValues(name),
		Dropped:   m.sinkDropped.WithLabelValues(name),
		Rotations: m.sinkRotations.WithLabelValues(name),
	}
}

// ForwardCounters is the counter set for one remote forwarder.
type ForwardCounters struct {
	Sent     prometheus.Counter
	Filtered prometheus.Counter
	Dropped  prometheus.Counter
}

// Forward returns the counters labelled with the given producer name.
func (m *Metrics) Forward(producer string) ForwardCounters {
	if m == nil {
		return ForwardCounters{Sent: detached(), Filtered: detached(), Dropped: detached()}
	}
	return ForwardCounters{
		Sent:     m.forwardSent.WithLabelValues(producer),
		Filtered: m.forwardFiltered.WithLabelValues(producer),
		Dropped:  m.forwardDropped.WithLabelValues(producer),
	}
}

// AggregatorCounters is the counter set for the aggregator's receive
// loop. Persistence is counted by the aggregator's own SinkCounters.
type AggregatorCounters struct {
	Received      prometheus.Counter
	ReceiveErrors prometheus.Counter
}

// Aggregator returns the aggregator counters.
func (m *Metrics) Aggregator() AggregatorCounters {
	if m == nil {
		return AggregatorCounters{Received: detached(), ReceiveErrors: detached()}
	}
	return AggregatorCounters{
		Received:      m.aggregatorReceived,
		ReceiveErrors: m.aggregatorReceiveErrors,
	}
}

// RecordsLost returns the counter for records that failed on every
// sink.
func (m *Metrics) RecordsLost() prometheus.Counter {
	if m == nil {
		return detached()
	}
	return m.recordsLost
}

// detached returns a working counter that no registry exports.
func detached() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Name: "detached"})
}

// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/logship/logship/lib/fault"
	"github.com/logship/logship/lib/record"
)

// Aggregator defaults.
const (
	DefaultAggregatorHost    = "0.0.0.0"
	DefaultAggregatorPort    = 9999
	DefaultAggregatorFile    = "logs/unified.log"
	DefaultPendingMessages   = 65536
	DefaultPendingBytes      = 64 << 20
	DefaultBindTimeout       = 5 * time.Second
	defaultAggregatorMinimum = record.LevelTrace
)

// AggregatorPolicy configures the aggregator service.
type AggregatorPolicy struct {
	// Host and Port are the inbound endpoint.
	Host string
	Port int

	// Subject is the subject records arrive on.
	Subject string

	// Sink is the unified log. Its MinLevel is Trace and its Remote is
	// disabled: the aggregator persists every line it receives and
	// forwards nothing.
	Sink SinkPolicy

	// PendingMessages and PendingBytes bound the subscription backlog
	// before the server starts dropping for this slow consumer.
	PendingMessages int
	PendingBytes    int

	// BindTimeout bounds how long Start waits for the endpoint.
	BindTimeout time.Duration

	// MetricsListen is the address for the Prometheus endpoint. Empty
	// disables it.
	MetricsListen string
}

// Address returns host:port of the inbound endpoint.
func (a AggregatorPolicy) Address() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// LoadAggregator reads the [aggregator] section of a policy file.
func LoadAggregator(path string) (*AggregatorPolicy, error) {
	parsed, err := readFile(path)
	if err != nil {
		return nil, err
	}
	policy, err := parsed.aggregatorPolicy()
	if err != nil {
		return nil, fault.New(fault.KindConfig, "load aggregator policy", fmt.Errorf("%s: %w", path, err))
	}
	return policy, nil
}

// ParseAggregator decodes the [aggregator] section from data.
func ParseAggregator(data []byte, format Format) (*AggregatorPolicy, error) {
	parsed, err := decode(data, format)
	if err != nil {
		return nil, fault.New(fault.KindConfig, "parse aggregator policy", err)
	}
	policy, err := parsed.aggregatorPolicy()
	if err != nil {
		return nil, fault.New(fault.KindConfig, "parse aggregator policy", err)
	}
	return policy, nil
}

func (d *document) aggregatorPolicy() (*AggregatorPolicy, error) {
	section := d.Aggregator
	if section == nil {
		section = &aggregatorSection{}
	}

	policy := &AggregatorPolicy{
		Host:            section.Host,
		Port:            section.Port,
		Subject:         section.Subject,
		PendingMessages: section.PendingMessages,
		PendingBytes:    section.PendingBytes,
		MetricsListen:   section.MetricsListen,
	}
	if policy.Host == "" {
		policy.Host = DefaultAggregatorHost
	}
	if policy.Port == 0 {
		policy.Port = DefaultAggregatorPort
	}
	if err := checkPort(policy.Port); err != nil {
		return nil, fmt.Errorf("aggregator: %w", err)
	}
	if policy.Subject == "" && d.Remote != nil {
		policy.Subject = d.Remote.Subject
	}
	if policy.Subject == "" {
		policy.Subject = DefaultSubject
	}
	if policy.PendingMessages == 0 {
		policy.PendingMessages = DefaultPendingMessages
	}
	if policy.PendingBytes == 0 {
		policy.PendingBytes = DefaultPendingBytes
	}
	if policy.PendingMessages < 0 || policy.PendingBytes < 0 {
		return nil, fmt.Errorf("aggregator: pending limits must not be negative")
	}

	var err error
	if policy.BindTimeout, err = duration("bind_timeout", section.BindTimeout, DefaultBindTimeout); err != nil {
		return nil, fmt.Errorf("aggregator: %w", err)
	}

	path := section.LogFileName
	if path == "" {
		path = DefaultAggregatorFile
	}
	rotation, compression, err := storage(section.LogRotation, section.LogCompression)
	if err != nil {
		return nil, fmt.Errorf("aggregator: %w", err)
	}
	if err := ensureParent(path); err != nil {
		return nil, fmt.Errorf("aggregator: %w", err)
	}
	policy.Sink = SinkPolicy{
		Path:        path,
		MinLevel:    defaultAggregatorMinimum,
		Rotation:    rotation,
		Compression: compression,
	}
	return policy, nil
}

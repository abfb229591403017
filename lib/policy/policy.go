// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/logship/logship/lib/compress"
	"github.com/logship/logship/lib/fault"
	"github.com/logship/logship/lib/record"
	"github.com/logship/logship/lib/rotate"
)

// Defaults applied to keys a policy file leaves out.
const (
	DefaultRotation             = "00:00"
	DefaultCompression          = "zip"
	DefaultRemoteHost           = "localhost"
	DefaultSubject              = "logship.records"
	DefaultConnectTimeout       = time.Second
	DefaultReconnectWait        = 250 * time.Millisecond
	DefaultReconnectBufferBytes = 8 << 20
)

// SinkPolicy describes how one process persists and forwards its log
// stream. Immutable once loaded.
type SinkPolicy struct {
	// Path is the active log file.
	Path string

	// MinLevel is the lowest level persisted locally and forwarded.
	MinLevel record.Level

	// Rotation decides when the active file is rotated.
	Rotation rotate.Trigger

	// Compression is applied to rotated files.
	Compression compress.Format

	// Remote locates the aggregator.
	Remote Remote
}

// Remote locates the aggregator endpoint and tunes the forwarder's
// connection.
type Remote struct {
	// Enabled turns forwarding on. Defaults to true.
	Enabled bool

	Host    string
	Port    int
	Subject string

	// ConnectTimeout bounds each dial attempt.
	ConnectTimeout time.Duration

	// ReconnectWait is the pause between reconnection attempts.
	ReconnectWait time.Duration

	// ReconnectBufferBytes caps the bytes buffered while the
	// aggregator is unreachable. Records beyond it are dropped.
	ReconnectBufferBytes int
}

// URL returns the NATS URL of the aggregator endpoint.
func (r Remote) URL() string {
	return "nats://" + net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// Load reads and validates a producer policy file. The format is
// chosen by extension. All errors are fault.KindConfig.
func Load(path string) (*SinkPolicy, error) {
	parsed, err := readFile(path)
	if err != nil {
		return nil, err
	}
	policy, err := parsed.sinkPolicy()
	if err != nil {
		return nil, fault.New(fault.KindConfig, "load policy", fmt.Errorf("%s: %w", path, err))
	}
	return policy, nil
}

// Parse decodes and validates a producer policy from data.
func Parse(data []byte, format Format) (*SinkPolicy, error) {
	parsed, err := decode(data, format)
	if err != nil {
		return nil, fault.New(fault.KindConfig, "parse policy", err)
	}
	policy, err := parsed.sinkPolicy()
	if err != nil {
		return nil, fault.New(fault.KindConfig, "parse policy", err)
	}
	return policy, nil
}

func readFile(path string) (*document, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, fault.New(fault.KindConfig, "load policy", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fault.New(fault.KindConfig, "load policy", err)
	}
	parsed, err := decode(data, format)
	if err != nil {
		return nil, fault.New(fault.KindConfig, "load policy", fmt.Errorf("%s: %w", path, err))
	}
	return parsed, nil
}

func (d *document) sinkPolicy() (*SinkPolicy, error) {
	if d.LogFileName == "" {
		return nil, fmt.Errorf("log_file_name is required")
	}
	if d.MinLogLevel == "" {
		return nil, fmt.Errorf("min_log_level is required")
	}
	minLevel, err := record.ParseLevel(d.MinLogLevel)
	if err != nil {
		return nil, fmt.Errorf("min_log_level: %w", err)
	}
	rotation, compression, err := storage(d.LogRotation, d.LogCompression)
	if err != nil {
		return nil, err
	}
	remote, err := d.Remote.resolve()
	if err != nil {
		return nil, fmt.Errorf("remote: %w", err)
	}
	if err := ensureParent(d.LogFileName); err != nil {
		return nil, err
	}
	return &SinkPolicy{
		Path:        d.LogFileName,
		MinLevel:    minLevel,
		Rotation:    rotation,
		Compression: compression,
		Remote:      remote,
	}, nil
}

// storage resolves the rotation and compression keys shared by the
// producer and aggregator sections.
func storage(rotation, compression string) (rotate.Trigger, compress.Format, error) {
	if rotation == "" {
		rotation = DefaultRotation
	}
	trigger, err := rotate.Parse(rotation)
	if err != nil {
		return nil, 0, fmt.Errorf("log_rotation: %w", err)
	}
	if compression == "" {
		compression = DefaultCompression
	}
	format, err := compress.ParseFormat(compression)
	if err != nil {
		return nil, 0, fmt.Errorf("log_compression: %w", err)
	}
	return trigger, format, nil
}

func (r *remoteSection) resolve() (Remote, error) {
	if r == nil {
		r = &remoteSection{}
	}
	remote := Remote{
		Enabled:              r.Enabled == nil || *r.Enabled,
		Host:                 r.Host,
		Port:                 r.Port,
		Subject:              r.Subject,
		ReconnectBufferBytes: r.ReconnectBufferBytes,
	}
	if remote.Host == "" {
		remote.Host = DefaultRemoteHost
	}
	if remote.Subject == "" {
		remote.Subject = DefaultSubject
	}
	if remote.ReconnectBufferBytes == 0 {
		remote.ReconnectBufferBytes = DefaultReconnectBufferBytes
	}
	if remote.ReconnectBufferBytes < 0 {
		return Remote{}, fmt.Errorf("reconnect_buffer_bytes must not be negative")
	}

	var err error
	if remote.ConnectTimeout, err = duration("connect_timeout", r.ConnectTimeout, DefaultConnectTimeout); err != nil {
		return Remote{}, err
	}
	if remote.ReconnectWait, err = duration("reconnect_wait", r.ReconnectWait, DefaultReconnectWait); err != nil {
		return Remote{}, err
	}

	if !remote.Enabled {
		return remote, nil
	}
	if remote.Port == 0 {
		return Remote{}, fmt.Errorf("port is required when forwarding is enabled")
	}
	if err := checkPort(remote.Port); err != nil {
		return Remote{}, err
	}
	return remote, nil
}

func duration(key, text string, fallback time.Duration) (time.Duration, error) {
	if text == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(text)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, text)
	}
	return value, nil
}

func checkPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", port)
	}
	return nil
}

// ensureParent creates the directory that will hold path.
func ensureParent(path string) error {
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	return nil
}

// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

package filesink

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/logship/logship/lib/clock"
	"github.com/logship/logship/lib/compress"
	"github.com/logship/logship/lib/fault"
	"github.com/logship/logship/lib/metrics"
	"github.com/logship/logship/lib/record"
	"github.com/logship/logship/lib/rotate"
)

// ErrClosed is returned for writes after Close.
var ErrClosed = errors.New("sink closed")

// archiveStampLayout is the timestamp inserted into rotated file names.
const archiveStampLayout = "2006-01-02_15-04-05"

// Config configures a Sink.
type Config struct {
	// Name labels metrics and fallback log entries. Defaults to the
	// base name of Path.
	Name string

	// Path is the active log file. Its parent directory must exist.
	Path string

	// MinLevel is the lowest level Write persists. WriteLine ignores
	// it.
	MinLevel record.Level

	// Trigger decides when to rotate. Nil disables rotation.
	Trigger rotate.Trigger

	// Compression is applied to each rotated file.
	Compression compress.Format

	// Clock drives rotation decisions and archive names. Defaults to
	// clock.Real().
	Clock clock.Clock

	// Logger is the fallback channel for the sink's own failures and
	// rotation events. Defaults to discarding.
	Logger *slog.Logger

	// Metrics receives counters labelled with Name. May be nil.
	Metrics *metrics.Metrics
}

// Stats is a snapshot of the sink's operational counters.
type Stats struct {
	Written   uint64
	Filtered  uint64
	Dropped   uint64
	Rotations uint64

	// Size is the current length of the active file.
	Size int64
}

// Sink is the local durable sink. Safe for concurrent use.
type Sink struct {
	name        string
	path        string
	minLevel    record.Level
	trigger     rotate.Trigger
	compression compress.Format
	clock       clock.Clock
	logger      *slog.Logger
	counters    metrics.SinkCounters

	mu     sync.Mutex
	file   *os.File
	state  rotate.State
	closed bool

	// failureLog throttles fallback reports for repeated write
	// failures (a full disk fails every write). rotateLog does the same
	// for rotations retried on every append.
	failureLog rate.Sometimes
	rotateLog  rate.Sometimes

	// Compressions of rotated files run outside mu.
	archiving sync.WaitGroup

	// File operations used by rotation; replaced in tests.
	rename       func(oldpath, newpath string) error
	compressFile func(path string, format compress.Format) (string, error)

	written   atomic.Uint64
	filtered  atomic.Uint64
	dropped   atomic.Uint64
	rotations atomic.Uint64
}

// Open opens (or creates) the active file and locks it. Errors are
// fault.KindConfig: a sink that cannot open at startup means the
// process cannot start.
func Open(config Config) (*Sink, error) {
	if config.Path == "" {
		return nil, fault.Newf(fault.KindConfig, "open", "sink path is empty")
	}
	if config.Name == "" {
		config.Name = filepath.Base(config.Path)
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}

	sink := &Sink{
		name:        config.Name,
		path:        config.Path,
		minLevel:    config.MinLevel,
		trigger:     config.Trigger,
		compression: config.Compression,
		clock:       config.Clock,
		logger:      config.Logger.With("sink", config.Name, "path", config.Path),
		counters:    config.Metrics.Sink(config.Name),
		failureLog:  rate.Sometimes{First: 3, Interval: 10 * time.Second},
		rotateLog:   rate.Sometimes{First: 3, Interval: 10 * time.Second},

		rename:       os.Rename,
		compressFile: compress.File,
	}

	if err := sink.reopenLocked(sink.clock.Now()); err != nil {
		return nil, fault.New(fault.KindConfig, "open", err)
	}
	return sink, nil
}

// Path returns the active file path.
func (s *Sink) Path() string { return s.path }

// Write formats and appends rec if it is at or above the minimum
// level. Records below it are counted and discarded before formatting.
func (s *Sink) Write(rec record.Record) error {
	if rec.Level < s.minLevel {
		s.filtered.Add(1)
		s.counters.Filtered.Inc()
		return nil
	}
	return s.WriteLine(record.Format(rec))
}

// WriteLine appends line verbatim followed by a newline. The caller is
// responsible for line not containing newlines of its own.
func (s *Sink) WriteLine(line string) error {
	data := make([]byte, 0, len(line)+1)
	data = append(data, line...)
	data = append(data, '\n')

	s.mu.Lock()
	rotated, err := s.appendLocked(data)
	s.mu.Unlock()

	if rotated != "" {
		s.archive(rotated)
	}
	return err
}

// appendLocked writes data to the active file, rotating first when the
// trigger is due. It returns the path of a file moved aside by that
// rotation, still waiting to be archived.
func (s *Sink) appendLocked(data []byte) (rotated string, err error) {
	if s.closed {
		s.drop()
		return "", fault.New(fault.KindPersistence, "write", ErrClosed)
	}

	now := s.clock.Now()
	if s.file != nil {
		rotated = s.maybeRotateLocked(now, int64(len(data)))
	}
	if s.file == nil {
		if err := s.reopenLocked(now); err != nil {
			return rotated, s.fail("write", err)
		}
	}

	written, err := s.file.Write(data)
	s.state.Size += int64(written)
	if err != nil {
		// Drop the handle so the next write reopens the path.
		s.file.Close()
		s.file = nil
		return rotated, s.fail("write", err)
	}

	s.written.Add(1)
	s.counters.Written.Inc()
	s.counters.Bytes.Add(float64(written))
	return rotated, nil
}

// Rotate forces a rotation of a non-empty active file, regardless of
// the trigger.
func (s *Sink) Rotate() error {
	rotated, err := s.rotateNow()
	if rotated != "" {
		s.archive(rotated)
	}
	return err
}

func (s *Sink) rotateNow() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", fault.New(fault.KindPersistence, "rotate", ErrClosed)
	}
	now := s.clock.Now()
	if s.file == nil {
		if err := s.reopenLocked(now); err != nil {
			return "", fault.New(fault.KindPersistence, "rotate", err)
		}
	}
	if s.state.Size == 0 {
		return "", nil
	}
	rotated, err := s.rotateLocked(now)
	return rotated, fault.New(fault.KindPersistence, "rotate", err)
}

// Close syncs and closes the active file. Safe to call more than once;
// calls after the first return nil.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	var err error
	if s.file != nil {
		err = errors.Join(s.file.Sync(), s.file.Close())
		s.file = nil
	}
	s.mu.Unlock()

	s.archiving.Wait()
	return fault.New(fault.KindPersistence, "close", err)
}

// Stats returns a snapshot of the sink's counters.
func (s *Sink) Stats() Stats {
	s.mu.Lock()
	size := s.state.Size
	s.mu.Unlock()
	return Stats{
		Written:   s.written.Load(),
		Filtered:  s.filtered.Load(),
		Dropped:   s.dropped.Load(),
		Rotations: s.rotations.Load(),
		Size:      size,
	}
}

// maybeRotateLocked rotates if the trigger is due and returns the path
// moved aside, if any. A due trigger on an empty file only restarts
// the generation clock: rotating would produce an empty archive.
// Rotation failures are reported and the append proceeds on whatever
// file is open afterwards.
func (s *Sink) maybeRotateLocked(now time.Time, incoming int64) string {
	if s.trigger == nil || !s.trigger.Due(s.state, now, incoming) {
		return ""
	}
	if s.state.Size == 0 {
		s.state.OpenedAt = now
		return ""
	}
	rotated, err := s.rotateLocked(now)
	if err != nil {
		s.rotateLog.Do(func() {
			s.logger.Error("log rotation failed", "error", err)
		})
	}
	return rotated
}

// rotateLocked moves the active file aside and opens a fresh one. The
// active path is reopened even when the rename fails, so writes
// continue into the old generation. On success the moved path is
// returned and the caller must pass it to archive after releasing mu.
func (s *Sink) rotateLocked(now time.Time) (string, error) {
	if err := s.file.Sync(); err != nil {
		s.logger.Warn("sync before rotation failed", "error", err)
	}
	closeErr := s.file.Close()
	s.file = nil

	rotated := archiveName(s.path, now, s.compression)
	renameErr := s.rename(s.path, rotated)

	reopenErr := s.reopenLocked(now)
	if renameErr != nil {
		return "", errors.Join(closeErr, fmt.Errorf("moving %s aside: %w", s.path, renameErr), reopenErr)
	}

	s.rotations.Add(1)
	s.counters.Rotations.Inc()
	s.archiving.Add(1)
	return rotated, errors.Join(closeErr, reopenErr)
}

// archive compresses a rotated file and logs its digest. It runs
// without mu so concurrent writers only wait for the rename.
func (s *Sink) archive(rotated string) {
	defer s.archiving.Done()

	archive, err := s.compressFile(rotated, s.compression)
	if err != nil {
		s.logger.Error("compressing rotated log failed, keeping it uncompressed",
			"rotated", rotated,
			"compression", s.compression,
			"error", err,
		)
		archive = rotated
	}

	digest, size, err := compress.Digest(archive)
	if err != nil {
		s.logger.Warn("log file rotated, digest unavailable", "archive", archive, "error", err)
		return
	}
	s.logger.Info("log file rotated",
		"archive", archive,
		"bytes", size,
		"blake3", digest,
		"trigger", s.trigger,
	)
}

// reopenLocked opens the active path and loads its rotation state. A
// non-empty existing file keeps its modification time as the
// generation start, so a file left over from yesterday rotates on the
// first write after a daily boundary.
func (s *Sink) reopenLocked(now time.Time) error {
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.path, err)
	}
	if err := lockFile(file); err != nil {
		file.Close()
		return err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat %s: %w", s.path, err)
	}

	openedAt := now
	if info.Size() > 0 {
		openedAt = info.ModTime()
	}
	s.file = file
	s.state = rotate.State{OpenedAt: openedAt, Size: info.Size()}
	return nil
}

// fail records a dropped line and reports err on the fallback logger.
func (s *Sink) fail(op string, err error) error {
	s.drop()
	s.failureLog.Do(func() {
		s.logger.Error("log write failed, record dropped",
			"error", err,
			"dropped_total", s.dropped.Load(),
		)
	})
	return fault.New(fault.KindPersistence, op, err)
}

func (s *Sink) drop() {
	s.dropped.Add(1)
	s.counters.Dropped.Inc()
}

// archiveName picks a rotated file name that collides with neither an
// existing rotated file nor an existing archive.
func archiveName(path string, at time.Time, compression compress.Format) string {
	directory, base := filepath.Split(path)
	extension := filepath.Ext(base)
	stem := strings.TrimSuffix(base, extension)
	stamp := at.Format(archiveStampLayout)

	candidate := filepath.Join(directory, stem+"."+stamp+extension)
	for n := 1; exists(candidate) || exists(candidate+compression.Extension()); n++ {
		candidate = filepath.Join(directory, fmt.Sprintf("%s.%s.%d%s", stem, stamp, n, extension))
	}
	return candidate
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

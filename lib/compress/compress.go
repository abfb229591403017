// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

// Package compress archives rotated log files.
//
// Each Format writes a single-member archive next to the source file
// (source + extension), then removes the source. The archive is first
// written to a temporary name and renamed into place, so a crash mid-
// compression leaves the uncompressed rotated file intact rather than
// a truncated archive.
package compress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Format identifies the archive format for rotated files.
type Format uint8

const (
	// None leaves rotated files uncompressed.
	None Format = iota

	// Zip writes a single-entry zip archive. This is the default: it
	// opens everywhere without extra tooling.
	Zip

	// Gzip writes a .gz stream.
	Gzip

	// Zstd writes a .zst stream. Best ratio for text logs.
	Zstd

	// LZ4 writes an LZ4 frame. Fastest, lowest ratio.
	LZ4
)

// String returns the canonical configuration name of the format.
func (f Format) String() string {
	switch f {
	case None:
		return "none"
	case Zip:
		return "zip"
	case Gzip:
		return "gz"
	case Zstd:
		return "zst"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(f))
	}
}

// Extension returns the file suffix the format appends, including the
// dot. None has no extension.
func (f Format) Extension() string {
	if f == None {
		return ""
	}
	return "." + f.String()
}

// ParseFormat parses a compression name. The aliases "gzip" and
// "zstd" and a leading dot (".gz") are accepted.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "none", "off":
		return None, nil
	case "zip":
		return Zip, nil
	case "gz", "gzip":
		return Gzip, nil
	case "zst", "zstd":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression format %q", name)
	}
}

// File compresses source into source+Extension() and removes source.
// Returns the archive path. For None it returns source unchanged.
func File(source string, format Format) (string, error) {
	if format == None {
		return source, nil
	}

	input, err := os.Open(source)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", source, err)
	}
	defer input.Close()

	info, err := input.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", source, err)
	}

	archive := source + format.Extension()
	temporary, err := os.CreateTemp(filepath.Dir(source), filepath.Base(archive)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("creating archive for %s: %w", source, err)
	}
	temporaryPath := temporary.Name()
	committed := false
	defer func() {
		if !committed {
			temporary.Close()
			os.Remove(temporaryPath)
		}
	}()

	if err := encode(temporary, input, info, format); err != nil {
		return "", fmt.Errorf("%s compress %s: %w", format, source, err)
	}
	if err := temporary.Sync(); err != nil {
		return "", fmt.Errorf("syncing archive %s: %w", temporaryPath, err)
	}
	if err := temporary.Close(); err != nil {
		return "", fmt.Errorf("closing archive %s: %w", temporaryPath, err)
	}
	if err := os.Rename(temporaryPath, archive); err != nil {
		return "", fmt.Errorf("renaming archive into place: %w", err)
	}
	committed = true

	input.Close()
	if err := os.Remove(source); err != nil {
		return archive, fmt.Errorf("removing %s after compression: %w", source, err)
	}
	return archive, nil
}

func encode(destination io.Writer, source io.Reader, info os.FileInfo, format Format) error {
	switch format {
	case Zip:
		return encodeZip(destination, source, info)
	case Gzip:
		writer, err := gzip.NewWriterLevel(destination, gzip.DefaultCompression)
		if err != nil {
			return err
		}
		writer.Name = info.Name()
		writer.ModTime = info.ModTime()
		return copyAndClose(writer, source)
	case Zstd:
		writer, err := zstd.NewWriter(destination, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		return copyAndClose(writer, source)
	case LZ4:
		return copyAndClose(lz4.NewWriter(destination), source)
	default:
		return fmt.Errorf("unsupported compression format %d", format)
	}
}

func encodeZip(destination io.Writer, source io.Reader, info os.FileInfo) error {
	archive := zip.NewWriter(destination)
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Method = zip.Deflate
	entry, err := archive.CreateHeader(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(entry, source); err != nil {
		return err
	}
	return archive.Close()
}

func copyAndClose(writer io.WriteCloser, source io.Reader) error {
	if _, err := io.Copy(writer, source); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

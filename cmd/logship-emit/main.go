// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/logship/logship/lib/clock"
	"github.com/logship/logship/lib/fault"
	"github.com/logship/logship/lib/logship"
	"github.com/logship/logship/lib/policy"
	"github.com/logship/logship/lib/process"
	"github.com/logship/logship/lib/record"
	"github.com/logship/logship/lib/version"
)

const binary = "logship-emit"

// maxLineBytes caps a single stdin line.
const maxLineBytes = 1 << 20

func main() {
	if err := run(os.Args[1:], os.Stdin); err != nil {
		process.Fatal(err)
	}
}

type options struct {
	configPath  string
	name        string
	level       record.Level
	attrs       []slog.Attr
	message     string
	showVersion bool
}

func parseFlags(args []string) (options, error) {
	var (
		parsed    options
		levelName string
		attrs     []string
	)
	flagSet := pflag.NewFlagSet(binary, pflag.ContinueOnError)
	flagSet.StringVarP(&parsed.configPath, "config", "c", "logging_config.toml", "producer policy file")
	flagSet.StringVarP(&parsed.name, "name", "n", binary, "producer name reported to the aggregator")
	flagSet.StringVarP(&levelName, "level", "l", "INFO", "record level (TRACE, DEBUG, INFO, SUCCESS, WARNING, ERROR, CRITICAL)")
	flagSet.StringArrayVarP(&attrs, "attr", "a", nil, "key=value context added to every record (repeatable)")
	flagSet.BoolVar(&parsed.showVersion, "version", false, "print version information and exit")
	flagSet.SetOutput(os.Stderr)
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] [message...]\n\nWithout a message, each stdin line is one record.\n\nFlags:\n", binary)
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}

	level, err := record.ParseLevel(levelName)
	if err != nil {
		return options{}, fmt.Errorf("--level: %w", err)
	}
	parsed.level = level

	for _, pair := range attrs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return options{}, fmt.Errorf("--attr %q: want key=value", pair)
		}
		parsed.attrs = append(parsed.attrs, slog.String(key, value))
	}

	parsed.message = strings.Join(flagSet.Args(), " ")
	return parsed, nil
}

func run(args []string, stdin io.Reader) error {
	parsed, err := parseFlags(args)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	if parsed.showVersion {
		version.Print(binary)
		return nil
	}

	sinkPolicy, err := policy.Load(parsed.configPath)
	if err != nil {
		return err
	}
	client, err := logship.Open(sinkPolicy, logship.Options{
		Name:     parsed.name,
		Fallback: process.NewLogger(binary),
	})
	if err != nil {
		return err
	}
	return emit(client, parsed, stdin, clock.Real())
}

// emit logs the message, or each stdin line, through client and closes
// it. Records the aggregator missed but the local file kept are not
// failures.
func emit(client *logship.Client, parsed options, stdin io.Reader, now clock.Clock) error {
	send := func(message string) {
		client.Log(record.New(now.Now(), parsed.level, message, parsed.attrs...))
	}

	var readErr error
	if parsed.message != "" {
		send(parsed.message)
	} else {
		scanner := bufio.NewScanner(stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			send(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			readErr = fmt.Errorf("reading stdin: %w", err)
		}
	}

	closeErr := client.Close()
	if lost := client.Stats().Lost; lost > 0 {
		return errors.Join(readErr, fmt.Errorf("%d records reached neither the log file nor the aggregator", lost))
	}
	if readErr != nil {
		return readErr
	}
	// A transport error on close only means the aggregator may have
	// missed the tail; the local file already holds it.
	if fault.Is(closeErr, fault.KindPersistence) {
		return closeErr
	}
	return nil
}

// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/logship/logship/lib/aggregator"
	"github.com/logship/logship/lib/metrics"
	"github.com/logship/logship/lib/policy"
	"github.com/logship/logship/lib/process"
	"github.com/logship/logship/lib/version"
)

const binary = "logship-aggregator"

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

type flags struct {
	configPath    string
	port          int
	metricsListen string
	showVersion   bool
}

func parseFlags(args []string) (flags, error) {
	var parsed flags
	flagSet := pflag.NewFlagSet(binary, pflag.ContinueOnError)
	flagSet.StringVarP(&parsed.configPath, "config", "c", "logging_config.toml", "policy file (.toml, .yaml, .yml, .json, .jsonc)")
	flagSet.IntVarP(&parsed.port, "port", "p", 0, "listen port, overriding the policy's [aggregator] port")
	flagSet.StringVar(&parsed.metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address, overriding metrics_listen")
	flagSet.BoolVar(&parsed.showVersion, "version", false, "print version information and exit")
	flagSet.SetOutput(os.Stderr)
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\nFlags:\n", binary)
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return flags{}, err
	}
	if extra := flagSet.Args(); len(extra) > 0 {
		return flags{}, fmt.Errorf("unexpected argument: %s", extra[0])
	}
	return parsed, nil
}

func run(args []string) error {
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

	logger := process.NewLogger(binary)

	aggregatorPolicy, err := policy.LoadAggregator(parsed.configPath)
	if err != nil {
		return err
	}
	if parsed.port != 0 {
		aggregatorPolicy.Port = parsed.port
	}
	if parsed.metricsListen != "" {
		aggregatorPolicy.MetricsListen = parsed.metricsListen
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	service := aggregator.New(aggregator.Config{
		Policy:  *aggregatorPolicy,
		Logger:  logger,
		Metrics: metrics.New(registry),
	})
	if err := service.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if aggregatorPolicy.MetricsListen != "" {
		metricsServer, err := serveMetrics(aggregatorPolicy.MetricsListen, registry, logger)
		if err != nil {
			service.Close()
			return err
		}
		defer metricsServer.shutdown()
	}

	go rotateOnHangup(ctx, service, logger)

	logger.Info("aggregator running", "version", version.Info(), "client_url", service.ClientURL())
	return service.Run(ctx)
}

// rotateOnHangup forces a rotation of the unified log on each SIGHUP
// until ctx is done.
func rotateOnHangup(ctx context.Context, service *aggregator.Service, logger *slog.Logger) {
	hangups := make(chan os.Signal, 1)
	signal.Notify(hangups, syscall.SIGHUP)
	defer signal.Stop(hangups)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hangups:
			if err := service.Rotate(); err != nil {
				logger.Error("rotation on SIGHUP failed", "error", err)
				continue
			}
			logger.Info("unified log rotated on SIGHUP")
		}
	}
}

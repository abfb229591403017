// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/logship/logship/lib/clock"
	"github.com/logship/logship/lib/fault"
	"github.com/logship/logship/lib/filesink"
	"github.com/logship/logship/lib/metrics"
	"github.com/logship/logship/lib/policy"
	"github.com/logship/logship/lib/record"
)

// ErrEndpointLost is returned by Run when the inbound endpoint fails
// underneath the receive loop.
var ErrEndpointLost = errors.New("aggregator endpoint lost")

// flushTimeout bounds the round trip that settles in-flight messages
// during a clean stop.
const flushTimeout = 2 * time.Second

// State is the service lifecycle state.
type State int32

const (
	Stopped State = iota
	Binding
	Listening
	ShuttingDown
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "STOPPED"
	case Binding:
		return "BINDING"
	case Listening:
		return "LISTENING"
	case ShuttingDown:
		return "SHUTTING_DOWN"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Config configures a Service.
type Config struct {
	// Policy is the aggregator policy. A Port of -1 binds a random
	// free port.
	Policy policy.AggregatorPolicy

	// Logger receives service events and the embedded server's log.
	// It is also the unified sink's fallback channel. Defaults to
	// discarding.
	Logger *slog.Logger

	// Metrics receives receive-loop and sink counters. May be nil.
	Metrics *metrics.Metrics

	// Clock drives the unified sink's rotation. Defaults to
	// clock.Real().
	Clock clock.Clock
}

// Stats is a snapshot of the service's counters.
type Stats struct {
	State         State
	Received      uint64
	ReceiveErrors uint64
	Sink          filesink.Stats
}

// Service is the aggregator. Start binds it, Run drives it until the
// context ends or the endpoint is lost. A Service is started once.
type Service struct {
	policy   policy.AggregatorPolicy
	logger   *slog.Logger
	metrics  *metrics.Metrics
	counters metrics.AggregatorCounters
	clock    clock.Clock

	state atomic.Int32

	// Set by Start, released by stop.
	server       *server.Server
	conn         *nats.Conn
	subscription *nats.Subscription
	sink         *filesink.Sink
	stopOnce     sync.Once
	stopErr      error

	// Guards the active Run so Close can hand the stop to it.
	runMu     sync.Mutex
	runCancel context.CancelFunc
	runDone   chan struct{}
	closing   bool

	received      atomic.Uint64
	receiveErrors atomic.Uint64
}

// New returns a stopped Service. It does no I/O.
func New(config Config) *Service {
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Policy.Subject == "" {
		config.Policy.Subject = policy.DefaultSubject
	}
	if config.Policy.BindTimeout <= 0 {
		config.Policy.BindTimeout = policy.DefaultBindTimeout
	}
	return &Service{
		policy:   config.Policy,
		logger:   config.Logger.With("component", "aggregator"),
		metrics:  config.Metrics,
		counters: config.Metrics.Aggregator(),
		clock:    config.Clock,
	}
}

// State returns the current lifecycle state.
func (s *Service) State() State { return State(s.state.Load()) }

// Start opens the unified sink, binds the endpoint, and subscribes.
// All failures are fault.KindConfig and leave the service STOPPED.
func (s *Service) Start() error {
	if !s.state.CompareAndSwap(int32(Stopped), int32(Binding)) {
		return fault.Newf(fault.KindConfig, "start", "aggregator is %s", s.State())
	}
	if err := s.start(); err != nil {
		s.state.Store(int32(Stopped))
		return fault.New(fault.KindConfig, "start", err)
	}
	s.state.Store(int32(Listening))
	s.logger.Info("aggregator listening",
		"address", net.JoinHostPort(s.policy.Host, strconv.Itoa(s.Port())),
		"subject", s.policy.Subject,
		"file", s.policy.Sink.Path,
		"rotation", s.policy.Sink.Rotation,
		"compression", s.policy.Sink.Compression,
	)
	return nil
}

func (s *Service) start() error {
	sink, err := filesink.Open(filesink.Config{
		Name:        "unified",
		Path:        s.policy.Sink.Path,
		MinLevel:    s.policy.Sink.MinLevel,
		Trigger:     s.policy.Sink.Rotation,
		Compression: s.policy.Sink.Compression,
		Clock:       s.clock,
		Logger:      s.logger,
		Metrics:     s.metrics,
	})
	if err != nil {
		return err
	}

	ns, err := s.bind()
	if err != nil {
		sink.Close()
		return err
	}

	conn, err := nats.Connect(ns.ClientURL(),
		nats.InProcessServer(ns),
		nats.NoReconnect(),
		nats.Name("logship-aggregator"),
		nats.NoCallbacksAfterClientClose(),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			s.logger.Warn("subscriber error", "error", err)
		}),
	)
	if err != nil {
		ns.Shutdown()
		sink.Close()
		return fmt.Errorf("connecting subscriber: %w", err)
	}

	subscription, err := conn.SubscribeSync(s.policy.Subject)
	if err == nil {
		err = subscription.SetPendingLimits(s.policy.PendingMessages, s.policy.PendingBytes)
	}
	if err == nil {
		err = conn.FlushTimeout(s.policy.BindTimeout)
	}
	if err != nil {
		conn.Close()
		ns.Shutdown()
		sink.Close()
		return fmt.Errorf("subscribing to %q: %w", s.policy.Subject, err)
	}

	s.server = ns
	s.conn = conn
	s.subscription = subscription
	s.sink = sink
	return nil
}

// bind starts the embedded server and waits for it to accept
// connections. A listen failure surfaces through the server's Fatalf,
// which the adapter reports instead of exiting.
func (s *Service) bind() (*server.Server, error) {
	ns, err := server.NewServer(&server.Options{
		ServerName: "logship-aggregator",
		Host:       s.policy.Host,
		Port:       s.policy.Port,
		NoSigs:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("configuring endpoint: %w", err)
	}
	adapter := newServerLogger(s.logger)
	ns.SetLoggerV2(adapter, false, false, false)

	go ns.Start()

	ready := make(chan bool, 1)
	go func() { ready <- ns.ReadyForConnections(s.policy.BindTimeout) }()

	select {
	case ok := <-ready:
		if !ok {
			ns.Shutdown()
			return nil, fmt.Errorf("binding %s: not ready within %s", s.policy.Address(), s.policy.BindTimeout)
		}
		return ns, nil
	case message := <-adapter.fatal:
		ns.Shutdown()
		return nil, fmt.Errorf("binding %s: %s", s.policy.Address(), message)
	}
}

// Run persists inbound lines until ctx is done (clean stop, returns
// nil) or the endpoint is lost (returns ErrEndpointLost). Run must be
// called once, after a successful Start.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.runMu.Lock()
	if s.closing {
		s.runMu.Unlock()
		return nil
	}
	if state := s.State(); state != Listening || s.runDone != nil {
		s.runMu.Unlock()
		return fmt.Errorf("aggregator: Run called while %s", state)
	}
	done := make(chan struct{})
	s.runCancel, s.runDone = cancel, done
	s.runMu.Unlock()
	defer close(done)

	for {
		message, err := s.subscription.NextMsgWithContext(ctx)
		if err == nil {
			s.persist(message.Data)
			continue
		}
		if ctx.Err() != nil {
			return s.stop(true)
		}

		switch {
		case errors.Is(err, nats.ErrConnectionClosed), errors.Is(err, nats.ErrBadSubscription):
			s.logger.Error("aggregator endpoint lost", "error", err)
			s.stop(false)
			return fault.New(fault.KindTransport, "run", fmt.Errorf("%w: %w", ErrEndpointLost, err))
		case errors.Is(err, nats.ErrSlowConsumer):
			dropped, _ := s.subscription.Dropped()
			s.receiveError()
			s.logger.Warn("aggregator fell behind, endpoint dropped messages",
				"dropped_total", dropped,
			)
		default:
			s.receiveError()
			s.logger.Warn("receive failed", "error", err)
		}
	}
}

// Close stops a started service. If Run is active, Close cancels it and
// waits until Run has persisted every pending message and unbound. Safe
// to call at any time and more than once.
func (s *Service) Close() error {
	s.runMu.Lock()
	s.closing = true
	cancel, done := s.runCancel, s.runDone
	s.runMu.Unlock()

	if done != nil {
		cancel()
		<-done
		return s.stop(true)
	}
	if s.State() == Stopped {
		return nil
	}
	return s.stop(true)
}

// Rotate forces the unified log to rotate.
func (s *Service) Rotate() error {
	if s.State() != Listening {
		return fmt.Errorf("aggregator: Rotate called while %s", s.State())
	}
	return s.sink.Rotate()
}

// Port returns the bound port, or 0 if the service is not listening.
func (s *Service) Port() int {
	if s.server == nil {
		return 0
	}
	address, ok := s.server.Addr().(*net.TCPAddr)
	if !ok {
		return 0
	}
	return address.Port
}

// ClientURL returns the URL producers use to reach the endpoint.
func (s *Service) ClientURL() string {
	if s.server == nil {
		return ""
	}
	return s.server.ClientURL()
}

// Stats returns a snapshot of the service's counters.
func (s *Service) Stats() Stats {
	stats := Stats{
		State:         s.State(),
		Received:      s.received.Load(),
		ReceiveErrors: s.receiveErrors.Load(),
	}
	if s.sink != nil {
		stats.Sink = s.sink.Stats()
	}
	return stats
}

func (s *Service) persist(data []byte) {
	s.received.Add(1)
	s.counters.Received.Inc()
	// The sink reports its own failures on the fallback logger.
	s.sink.WriteLine(record.EscapeLine(string(data)))
}

func (s *Service) receiveError() {
	s.receiveErrors.Add(1)
	s.counters.ReceiveErrors.Inc()
}

// stop tears the service down once. With drain set, the subscription
// stops taking new messages, one flush round trip settles what the
// server already routed to it, and every pending message is persisted
// before the sink closes. The port is released last.
func (s *Service) stop(drain bool) error {
	s.stopOnce.Do(func() {
		s.state.Store(int32(ShuttingDown))

		drained := 0
		if drain && s.conn.IsConnected() {
			if drainErr := s.subscription.Drain(); drainErr != nil {
				s.logger.Warn("draining subscription failed", "error", drainErr)
			}
			if flushErr := s.conn.FlushTimeout(flushTimeout); flushErr != nil {
				s.logger.Warn("flushing subscriber failed", "error", flushErr)
			}
			for {
				message, nextErr := s.subscription.NextMsg(0)
				if errors.Is(nextErr, nats.ErrSlowConsumer) {
					s.receiveError()
					continue
				}
				if nextErr != nil {
					break
				}
				s.persist(message.Data)
				drained++
			}
		}

		s.stopErr = s.sink.Close()
		s.conn.Close()
		s.server.Shutdown()
		s.server.WaitForShutdown()

		s.state.Store(int32(Stopped))
		s.logger.Info("aggregator stopped",
			"received", s.received.Load(),
			"drained", drained,
		)
	})
	return s.stopErr
}

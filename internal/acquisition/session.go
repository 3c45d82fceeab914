// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package acquisition runs one force/torque session: configure the DAQ, then
// read, calibrate, filter and publish one wrench per packet until something
// goes wrong or a stop is requested.
package acquisition

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/forcetorque/internal/calibration"
	"github.com/relabs-tech/forcetorque/internal/daq"
	"github.com/relabs-tech/forcetorque/internal/filter"
	"github.com/relabs-tech/forcetorque/internal/poll"
	"github.com/relabs-tech/forcetorque/internal/publish"
	"github.com/relabs-tech/forcetorque/internal/wrench"
)

// State of a session. Terminated is absorbing.
type State int32

const (
	Idle State = iota
	Configuring
	Streaming
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Configuring:
		return "configuring"
	case Streaming:
		return "streaming"
	case Terminated:
		return "terminated"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Reason a session terminated.
type Reason int32

const (
	NotTerminated Reason = iota
	ConfigTimeout
	ReadTimeout
	ConnectionLost
	Rejected
	Stopped
)

func (r Reason) String() string {
	switch r {
	case NotTerminated:
		return "none"
	case ConfigTimeout:
		return "config timeout"
	case ReadTimeout:
		return "read timeout"
	case ConnectionLost:
		return "connection lost"
	case Rejected:
		return "rejected"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("reason(%d)", int32(r))
}

// Options tune a Session. Zero values pick the defaults.
type Options struct {
	Config        daq.Config
	UseFilter     bool
	Cutoff        float64 // normalized to the sample rate, (0, 0.5)
	ConfigTimeout time.Duration
	ReadTimeout   time.Duration
	Key           string
	Clock         poll.Clock
	// StatusInterval between status log lines; 0 disables them.
	StatusInterval time.Duration
	Logger         *zerolog.Logger
}

func (o *Options) setDefaults() {
	if o.Config == (daq.Config{}) {
		o.Config = daq.DefaultConfig()
	}
	if o.Cutoff == 0 {
		o.Cutoff = filter.DefaultCutoff
	}
	if o.ConfigTimeout <= 0 {
		o.ConfigTimeout = DefaultConfigTimeout
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.Key == "" {
		o.Key = publish.DefaultKey
	}
	if o.Clock == nil {
		o.Clock = poll.System
	}
	if o.Logger == nil {
		o.Logger = &log.Logger
	}
}

// Telemetry summarises the streaming phase so far.
type Telemetry struct {
	LoopDuration time.Duration // last iteration, read to publish
	Elapsed      time.Duration // since streaming started
	Rate         float64       // samples per second over Elapsed
	Samples      uint64
}

// Session is everything one acquisition run needs. It is used once: after
// Run returns the session stays Terminated.
type Session struct {
	id       uuid.UUID
	conn     daq.Connection
	desc     daq.Descriptor
	identity calibration.Identity
	registry *calibration.Registry
	sink     publish.Sink
	opts     Options
	logger   zerolog.Logger

	filter  filter.Butterworth
	state   atomic.Int32
	reason  atomic.Int32
	samples atomic.Uint64
	stop    atomic.Bool

	closeOnce sync.Once

	mu        sync.Mutex
	telemetry Telemetry
}

// NewSession prepares a session for an already opened connection.
func NewSession(conn daq.Connection, desc daq.Descriptor, registry *calibration.Registry, sink publish.Sink, opts Options) (*Session, error) {
	if conn == nil || registry == nil || sink == nil {
		return nil, errors.New("acquisition: connection, registry and sink are required")
	}
	opts.setDefaults()
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.UseFilter && (opts.Cutoff <= 0 || opts.Cutoff >= 0.5) {
		return nil, fmt.Errorf("%w: %v", filter.ErrCutoff, opts.Cutoff)
	}

	id := uuid.New()
	s := &Session{
		id:       id,
		conn:     conn,
		desc:     desc,
		identity: calibration.IdentityOf(desc),
		registry: registry,
		sink:     sink,
		opts:     opts,
		logger: opts.Logger.With().
			Str("session", id.String()).
			Str("device", desc.SerialNumber).
			Logger(),
	}
	return s, nil
}

func (s *Session) ID() uuid.UUID  { return s.id }
func (s *Session) State() State   { return State(s.state.Load()) }
func (s *Session) Reason() Reason { return Reason(s.reason.Load()) }
func (s *Session) Samples() uint64 {
	return s.samples.Load()
}

func (s *Session) Telemetry() Telemetry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.telemetry
}

// Stop asks a running session to end and closes the connection. Run returns
// nil once it notices.
func (s *Session) Stop() {
	s.stop.Store(true)
	s.closeConn()
}

func (s *Session) closeConn() {
	s.closeOnce.Do(func() {
		if err := s.conn.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("closing connection")
		}
	})
}

func (s *Session) terminate(r Reason, err error) error {
	s.reason.Store(int32(r))
	s.state.Store(int32(Terminated))
	s.closeConn()

	if r == Stopped {
		s.logger.Info().Uint64("samples", s.Samples()).Msg("session stopped")
		return nil
	}
	s.logger.Error().Err(err).Str("reason", r.String()).Uint64("samples", s.Samples()).Msg("session terminated")
	return err
}

// failure maps an error from the handshake or the reader to a terminal reason.
func (s *Session) failure(err error, timeout Reason) error {
	switch {
	case s.stop.Load():
		return s.terminate(Stopped, nil)
	case errors.Is(err, ErrConnectionClosed):
		return s.terminate(ConnectionLost, err)
	default:
		return s.terminate(timeout, err)
	}
}

// Run configures the DAQ and streams until a read fails, a packet is
// rejected, or Stop is called. The connection is closed when Run returns.
func (s *Session) Run() error {
	if !s.state.CompareAndSwap(int32(Idle), int32(Configuring)) {
		if s.State() == Terminated {
			return ErrTerminated
		}
		return ErrRunning
	}
	if s.stop.Load() {
		return s.terminate(Stopped, nil)
	}

	s.logger.Info().
		Int("rate_hz", s.opts.Config.SampleRateHz).
		Uint8("hw_filter", uint8(s.opts.Config.Filter)).
		Bool("zero_offset", s.opts.Config.ZeroOffset).
		Msg("configuring DAQ")
	if err := Configure(s.conn, s.opts.Config, s.opts.ConfigTimeout, s.opts.Clock); err != nil {
		return s.failure(err, ConfigTimeout)
	}

	if s.opts.UseFilter {
		axes := wrench.Channels
		if p, ok := s.registry.Lookup(s.identity); ok {
			axes = p.Axes
		}
		if err := s.filter.Initialize(axes, s.opts.Cutoff); err != nil {
			return s.terminate(Rejected, err)
		}
	}

	s.state.Store(int32(Streaming))
	s.logger.Info().
		Bool("filter", s.opts.UseFilter).
		Float64("cutoff", s.opts.Cutoff).
		Str("key", s.opts.Key).
		Msg("streaming")
	return s.stream()
}

func (s *Session) stream() error {
	clk := s.opts.Clock
	start := clk.Now()
	lastStatus := start

	for {
		if s.stop.Load() {
			return s.terminate(Stopped, nil)
		}
		iterStart := clk.Now()

		pkt, err := ReadLatest(s.conn, s.opts.ReadTimeout, clk)
		if err != nil {
			return s.failure(err, ReadTimeout)
		}
		if !s.conn.IsValid() {
			return s.failure(ErrConnectionClosed, ConnectionLost)
		}

		w, err := s.registry.Calibrate(pkt, s.identity)
		if err != nil {
			return s.terminate(Rejected, err)
		}
		if s.opts.UseFilter {
			if w, err = s.filter.Update(w); err != nil {
				return s.terminate(Rejected, err)
			}
		}

		if err := s.sink.Publish(s.opts.Key, w); err != nil {
			s.logger.Warn().Err(err).Uint16("counter", pkt.Counter).Msg("publish failed")
		}

		n := s.samples.Add(1)
		now := clk.Now()
		s.record(now.Sub(iterStart), now.Sub(start), n)

		if s.opts.StatusInterval > 0 && now.Sub(lastStatus) >= s.opts.StatusInterval {
			lastStatus = now
			t := s.Telemetry()
			s.logger.Info().
				Uint64("samples", t.Samples).
				Float64("rate_hz", t.Rate).
				Dur("loop", t.LoopDuration).
				Dur("elapsed", t.Elapsed).
				Str("wrench", w.String()).
				Msg("status")
		}
	}
}

func (s *Session) record(loop, elapsed time.Duration, n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.telemetry.LoopDuration = loop
	s.telemetry.Elapsed = elapsed
	s.telemetry.Samples = n
	if elapsed > 0 {
		s.telemetry.Rate = float64(n) / elapsed.Seconds()
	}
}

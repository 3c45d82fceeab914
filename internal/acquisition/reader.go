// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package acquisition

import (
	"errors"
	"fmt"
	"time"

	"github.com/relabs-tech/forcetorque/internal/daq"
	"github.com/relabs-tech/forcetorque/internal/poll"
)

var (
	ErrConfigTimeout    = errors.New("acquisition: device did not acknowledge configuration")
	ErrReadTimeout      = errors.New("acquisition: no packet before timeout")
	ErrConnectionClosed = errors.New("acquisition: connection closed")
	ErrTerminated       = errors.New("acquisition: session already terminated")
	ErrRunning          = errors.New("acquisition: session already running")
)

const (
	DefaultConfigTimeout = time.Second
	DefaultReadTimeout   = time.Second

	configRetryInterval = time.Millisecond
	readPollInterval    = 100 * time.Microsecond
)

// Configure sends cfg until the device acknowledges it, then asks for the
// sensitivity report exactly once. The timeout is measured from the first
// attempt; ErrConfigTimeout is never returned before it has elapsed.
func Configure(conn daq.Connection, cfg daq.Config, timeout time.Duration, clk poll.Clock) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	err := poll.Until(clk, timeout, configRetryInterval, func() (bool, error) {
		if !conn.IsValid() {
			return false, ErrConnectionClosed
		}
		return conn.SendConfig(cfg), nil
	})
	if errors.Is(err, poll.ErrDeadline) {
		return fmt.Errorf("%w after %v", ErrConfigTimeout, timeout)
	}
	if err != nil {
		return err
	}
	if err := conn.RequestSensitivityReport(); err != nil {
		return fmt.Errorf("request sensitivity report: %w", err)
	}
	return nil
}

// ReadLatest waits up to timeout for the connection to hold a packet and
// returns it. The connection keeps only the newest packet, so whatever
// arrived between two calls except the last one is never seen.
func ReadLatest(conn daq.Connection, timeout time.Duration, clk poll.Clock) (daq.Packet, error) {
	var pkt daq.Packet
	err := poll.Until(clk, timeout, readPollInterval, func() (bool, error) {
		if !conn.IsValid() {
			return false, ErrConnectionClosed
		}
		p, ok := conn.TryLatestPacket()
		if ok {
			pkt = p
		}
		return ok, nil
	})
	if errors.Is(err, poll.ErrDeadline) {
		return daq.Packet{}, fmt.Errorf("%w (%v)", ErrReadTimeout, timeout)
	}
	if err != nil {
		return daq.Packet{}, err
	}
	return pkt, nil
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package acquisition

import (
	"sync"
	"time"

	"github.com/relabs-tech/forcetorque/internal/daq"
	"github.com/relabs-tech/forcetorque/internal/poll"
)

// scriptedConn is a daq.Connection driven by a test script. Packets are
// handed out one per TryLatestPacket call; once exhausted the device goes
// silent.
type scriptedConn struct {
	mu sync.Mutex

	// ackAfter is the number of SendConfig calls that go unacknowledged
	// before the device acks; negative means never.
	ackAfter int
	packets  []daq.Packet

	// clk, when set, is advanced by step for each packet handed out.
	clk  *poll.ManualClock
	step time.Duration

	valid        bool
	configCalls  int
	sensRequests int
	closed       int
	lastConfig   daq.Config
}

func newScriptedConn(ackAfter int, packets ...daq.Packet) *scriptedConn {
	return &scriptedConn{ackAfter: ackAfter, packets: packets, valid: true}
}

func (c *scriptedConn) Open() error { return nil }

func (c *scriptedConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	c.closed++
	return nil
}

func (c *scriptedConn) IsValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid
}

func (c *scriptedConn) SendConfig(cfg daq.Config) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configCalls++
	c.lastConfig = cfg
	return c.ackAfter >= 0 && c.configCalls > c.ackAfter
}

func (c *scriptedConn) RequestSensitivityReport() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sensRequests++
	return nil
}

func (c *scriptedConn) TryLatestPacket() (daq.Packet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sensRequests == 0 || len(c.packets) == 0 {
		return daq.Packet{}, false
	}
	p := c.packets[0]
	c.packets = c.packets[1:]
	if c.clk != nil {
		c.clk.Advance(c.step)
	}
	return p, true
}

func (c *scriptedConn) counts() (config, sens, closed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.configCalls, c.sensRequests, c.closed
}

// slotConn keeps a single latest-packet slot, like the serial connection.
type slotConn struct {
	mu     sync.Mutex
	latest daq.Packet
	fresh  bool
}

func (c *slotConn) push(p daq.Packet) {
	c.mu.Lock()
	c.latest, c.fresh = p, true
	c.mu.Unlock()
}

func (c *slotConn) Open() error                     { return nil }
func (c *slotConn) Close() error                    { return nil }
func (c *slotConn) IsValid() bool                   { return true }
func (c *slotConn) SendConfig(daq.Config) bool      { return true }
func (c *slotConn) RequestSensitivityReport() error { return nil }

func (c *slotConn) TryLatestPacket() (daq.Packet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.fresh {
		return daq.Packet{}, false
	}
	c.fresh = false
	return c.latest, true
}

func packets(n int) []daq.Packet {
	out := make([]daq.Packet, n)
	for i := range out {
		f := float64(i + 1)
		out[i] = daq.Packet{
			Counter: uint16(i),
			Values:  [6]float64{f, -f, 2 * f, f / 10, -f / 10, f / 100},
			Valid:   true,
		}
	}
	return out
}

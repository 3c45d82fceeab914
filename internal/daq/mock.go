// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package daq

import (
	"math"
	"sync"
	"time"
)

// MockDescriptor is the identity reported by MockConn. It matches the
// shipped calibration profile.
var MockDescriptor = Descriptor{
	Address:         "mock://daq0",
	ProtocolVersion: "1.0",
	SerialNumber:    "HEXHB148",
	TypeName:        "64",
}

// MockConn simulates a DAQ that streams a smoothly changing wrench at the
// configured rate once it has been configured.
type MockConn struct {
	mu         sync.Mutex
	open       bool
	rate       int
	streaming  bool
	start      time.Time
	lastSample int64
}

func NewMockConn() *MockConn {
	return &MockConn{lastSample: -1}
}

func (m *MockConn) Open() error {
	m.mu.Lock()
	m.open = true
	m.mu.Unlock()
	return nil
}

func (m *MockConn) Close() error {
	m.mu.Lock()
	m.open = false
	m.streaming = false
	m.mu.Unlock()
	return nil
}

func (m *MockConn) IsValid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

func (m *MockConn) SendConfig(cfg Config) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open || cfg.Validate() != nil {
		return false
	}
	m.rate = cfg.SampleRateHz
	return true
}

func (m *MockConn) RequestSensitivityReport() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return ErrNotOpen
	}
	m.streaming = true
	m.start = time.Now()
	return nil
}

func (m *MockConn) TryLatestPacket() (Packet, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.streaming || m.rate == 0 {
		return Packet{}, false
	}
	elapsed := time.Since(m.start)
	idx := int64(elapsed.Seconds() * float64(m.rate))
	if idx == m.lastSample {
		return Packet{}, false
	}
	m.lastSample = idx

	t := float64(idx) / float64(m.rate)
	return Packet{
		Counter: uint16(idx),
		Values: [6]float64{
			1.5 * math.Sin(0.7*t),
			0.8 * math.Cos(0.5*t),
			-5 + 2*math.Sin(t),
			0.02 * math.Sin(1.3*t),
			0.015 * math.Cos(0.9*t),
			0.01 * math.Sin(0.4*t),
		},
		Valid: true,
	}, true
}

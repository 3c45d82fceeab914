// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package daq describes the force/torque data acquisition unit: its identity,
// its configuration, the packets it streams, and the connection used to
// talk to it.
package daq

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("daq: invalid configuration")
	// ErrNotOpen is returned when writing to a closed connection.
	ErrNotOpen = errors.New("daq: connection not open")
	// ErrNoDevice is returned when the requested device index is not enumerated.
	ErrNoDevice = errors.New("daq: no device at index")
)

// MaxSampleRateHz is the fastest rate the DAQ streams at.
const MaxSampleRateHz = 500

// Descriptor identifies one enumerated DAQ. It is read-only once produced.
type Descriptor struct {
	Address         string `json:"address" yaml:"address"`
	ProtocolVersion string `json:"protocol_version" yaml:"protocol_version"`
	SerialNumber    string `json:"serial_number" yaml:"serial_number"`
	TypeName        string `json:"type_name" yaml:"type_name"`
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s (type %s, serial %s, protocol %s)", d.Address, d.TypeName, d.SerialNumber, d.ProtocolVersion)
}

// FilterSelector chooses the DAQ's on-board filter.
//
//	0 - no filtering
//	1 - 500 Hz
//	2 - 150 Hz
//	3 - 50 Hz
//	4 - 15 Hz (default)
//	5 - 5 Hz
//	6 - 1.5 Hz
type FilterSelector uint8

const (
	FilterNone FilterSelector = iota
	Filter500Hz
	Filter150Hz
	Filter50Hz
	Filter15Hz
	Filter5Hz
	Filter1_5Hz
)

// Config is sent to the DAQ once per session.
type Config struct {
	SampleRateHz int
	Filter       FilterSelector
	ZeroOffset   bool // hardware zeroing
}

// DefaultConfig streams at the maximum rate with the 15 Hz on-board filter
// and hardware zeroing off.
func DefaultConfig() Config {
	return Config{SampleRateHz: MaxSampleRateHz, Filter: Filter15Hz}
}

// Validate checks SampleRateHz is in (0, 500] and Filter is 0-6.
func (c Config) Validate() error {
	if c.SampleRateHz <= 0 || c.SampleRateHz > MaxSampleRateHz {
		return fmt.Errorf("%w: sample rate must be 1-%d Hz, got %d", ErrInvalidConfig, MaxSampleRateHz, c.SampleRateHz)
	}
	if c.Filter > Filter1_5Hz {
		return fmt.Errorf("%w: filter selector must be 0-6, got %d", ErrInvalidConfig, c.Filter)
	}
	return nil
}

// Packet is one 6D sample. Values are already scaled to N and N·m by the
// connection using the DAQ's sensitivity report, in the order
// Fx, Fy, Fz, Tx, Ty, Tz.
type Packet struct {
	Counter uint16
	Status  uint16
	Values  [6]float64
	Valid   bool
}

// Connection is an open link to one DAQ.
type Connection interface {
	Open() error
	Close() error
	// IsValid reports whether the link is open and healthy.
	IsValid() bool
	// SendConfig sends cfg and reports whether the DAQ has acknowledged it.
	SendConfig(cfg Config) bool
	RequestSensitivityReport() error
	// TryLatestPacket returns the newest packet received since the previous
	// call, without blocking. Older unread packets are discarded.
	TryLatestPacket() (Packet, bool)
}

// Enumerator lists connected DAQs.
type Enumerator interface {
	// Connected returns a copy of at most capacity descriptors.
	Connected(capacity int) []Descriptor
}

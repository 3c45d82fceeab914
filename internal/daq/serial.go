// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package daq

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jacobsa/go-serial/serial"
	"github.com/rs/zerolog/log"
)

// DefaultBaudRate is the DAQ's USB-serial line speed.
const DefaultBaudRate = 1000000

// SerialOptions tunes a SerialConn.
type SerialOptions struct {
	BaudRate uint
	// ResendInterval throttles how often SendConfig rewrites the config
	// frame while waiting for the acknowledgement.
	ResendInterval time.Duration
}

func (o SerialOptions) withDefaults() SerialOptions {
	if o.BaudRate == 0 {
		o.BaudRate = DefaultBaudRate
	}
	if o.ResendInterval <= 0 {
		o.ResendInterval = 50 * time.Millisecond
	}
	return o
}

// SerialConn is a Connection to a DAQ on a USB-serial port. A background
// goroutine decodes incoming frames and keeps only the newest sample.
type SerialConn struct {
	desc Descriptor
	opts SerialOptions

	mu          sync.Mutex
	port        io.ReadWriteCloser
	valid       bool
	acked       bool
	lastSent    time.Time
	sensitivity [6]float64
	haveSens    bool
	latest      Packet
	fresh       bool
	dropped     uint64
}

// NewSerialConn returns an unopened connection to desc.
func NewSerialConn(desc Descriptor, opts SerialOptions) *SerialConn {
	return &SerialConn{desc: desc, opts: opts.withDefaults()}
}

// Descriptor returns the identity this connection was created for.
func (c *SerialConn) Descriptor() Descriptor { return c.desc }

// Open opens the serial port and starts the frame reader.
func (c *SerialConn) Open() error {
	c.mu.Lock()
	opened := c.port != nil
	c.mu.Unlock()
	if opened {
		return nil
	}

	serialOpts := serial.OpenOptions{
		PortName:              c.desc.Address,
		BaudRate:              c.opts.BaudRate,
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		MinimumReadSize:       0,
		InterCharacterTimeout: 100, // ms; lets the reader notice Close
	}
	port, err := serial.Open(serialOpts)
	if err != nil {
		return fmt.Errorf("open %s: %w", c.desc.Address, err)
	}
	c.attach(port)
	log.Debug().Str("port", c.desc.Address).Uint("baud", c.opts.BaudRate).Msg("daq: serial port opened")
	return nil
}

func (c *SerialConn) attach(port io.ReadWriteCloser) {
	c.mu.Lock()
	c.port = port
	c.valid = true
	c.acked = false
	c.haveSens = false
	c.fresh = false
	c.lastSent = time.Time{}
	c.mu.Unlock()

	go c.readLoop(port)
}

func (c *SerialConn) readLoop(port io.ReadWriteCloser) {
	var dec decoder
	buf := make([]byte, 256)
	for {
		n, err := port.Read(buf)
		for i := 0; i < n; i++ {
			if f, ok := dec.feed(buf[i]); ok {
				c.handle(f)
			}
		}
		if err == nil {
			continue
		}
		c.mu.Lock()
		current := c.port == port
		c.mu.Unlock()
		if errors.Is(err, io.EOF) && n == 0 && current {
			// inter-character timeout with no data
			continue
		}
		c.mu.Lock()
		if current {
			c.valid = false
		}
		c.mu.Unlock()
		if current {
			log.Warn().Err(err).Str("port", c.desc.Address).Uint64("checksum_errors", dec.errors).Msg("daq: serial read failed, connection invalid")
		}
		return
	}
}

func (c *SerialConn) handle(f frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch f.kind {
	case kindConfigAck:
		if len(f.payload) == 1 && f.payload[0] == 0 {
			c.acked = true
		} else {
			log.Warn().Bytes("payload", f.payload).Msg("daq: config rejected by device")
		}
	case kindSensitivityReport:
		s, ok := decodeSensitivity(f.payload)
		if !ok {
			log.Warn().Msg("daq: malformed sensitivity report")
			return
		}
		c.sensitivity = s
		c.haveSens = true
	case kindSample6D:
		if len(f.payload) != sample6DLen {
			return
		}
		if c.fresh {
			c.dropped++
		}
		c.latest = c.scale(f.payload)
		c.fresh = true
	}
}

// scale converts raw counts with the sensitivity report. Samples that arrive
// before the report, or that carry a non-zero status, are marked invalid.
func (c *SerialConn) scale(p []byte) Packet {
	pkt := Packet{
		Counter: uint16(p[0])<<8 | uint16(p[1]),
		Status:  uint16(p[2])<<8 | uint16(p[3]),
	}
	for i := range pkt.Values {
		counts := int16(uint16(p[4+i*2])<<8 | uint16(p[5+i*2]))
		if c.haveSens {
			pkt.Values[i] = float64(counts) / c.sensitivity[i]
		} else {
			pkt.Values[i] = float64(counts)
		}
	}
	pkt.Valid = c.haveSens && pkt.Status == 0
	return pkt
}

// Close closes the port. The reader goroutine exits on its next read.
func (c *SerialConn) Close() error {
	c.mu.Lock()
	port := c.port
	c.port = nil
	c.valid = false
	c.mu.Unlock()
	if port == nil {
		return nil
	}
	return port.Close()
}

func (c *SerialConn) IsValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid
}

// SendConfig writes the config frame (at most once per ResendInterval) and
// reports whether the acknowledgement has arrived.
func (c *SerialConn) SendConfig(cfg Config) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return false
	}
	if c.acked {
		return true
	}
	now := time.Now()
	if now.Sub(c.lastSent) >= c.opts.ResendInterval {
		if _, err := c.port.Write(encodeConfig(cfg)); err != nil {
			log.Warn().Err(err).Msg("daq: config write failed")
			return false
		}
		c.lastSent = now
	}
	return c.acked
}

func (c *SerialConn) RequestSensitivityReport() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return ErrNotOpen
	}
	if _, err := c.port.Write(encodeFrame(kindSensitivityRequest, nil)); err != nil {
		return fmt.Errorf("sensitivity request: %w", err)
	}
	return nil
}

func (c *SerialConn) TryLatestPacket() (Packet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.fresh {
		return Packet{}, false
	}
	c.fresh = false
	return c.latest, true
}

// Dropped returns how many samples were overwritten before being read.
func (c *SerialConn) Dropped() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

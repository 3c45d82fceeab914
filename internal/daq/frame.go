// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package daq

import (
	"encoding/binary"
	"math"
)

// Serial framing:
//
//	0xAA | group | type | len | payload[len] | checksum (u16 BE, sum of all previous bytes)
const (
	frameSync    = 0xAA
	headerSize   = 4
	checksumSize = 2
	maxPayload   = 64
)

// Frame kinds as group<<8 | type.
const (
	kindConfig             uint16 = 0x0032
	kindSensitivityRequest uint16 = 0x0033
	kindConfigAck          uint16 = 0x0050
	kindSample6D           uint16 = 0x0708
	kindSensitivityReport  uint16 = 0x0709
)

const (
	sample6DLen    = 16
	sensitivityLen = 24
	configLen      = 4
)

type frame struct {
	kind    uint16
	payload []byte
}

func checksum(b []byte) uint16 {
	var sum uint16
	for _, v := range b {
		sum += uint16(v)
	}
	return sum
}

func encodeFrame(kind uint16, payload []byte) []byte {
	out := make([]byte, 0, headerSize+len(payload)+checksumSize)
	out = append(out, frameSync, byte(kind>>8), byte(kind), byte(len(payload)))
	out = append(out, payload...)
	return binary.BigEndian.AppendUint16(out, checksum(out))
}

func encodeConfig(cfg Config) []byte {
	zero := byte(0)
	if cfg.ZeroOffset {
		zero = 0xFF
	}
	p := make([]byte, configLen)
	binary.BigEndian.PutUint16(p, uint16(cfg.SampleRateHz))
	p[2] = byte(cfg.Filter)
	p[3] = zero
	return encodeFrame(kindConfig, p)
}

func encodeSensitivityReport(countsPerUnit [6]float64) []byte {
	p := make([]byte, sensitivityLen)
	for i, v := range countsPerUnit {
		binary.BigEndian.PutUint32(p[i*4:], math.Float32bits(float32(v)))
	}
	return encodeFrame(kindSensitivityReport, p)
}

func encodeSample6D(counter, status uint16, counts [6]int16) []byte {
	p := make([]byte, sample6DLen)
	binary.BigEndian.PutUint16(p[0:], counter)
	binary.BigEndian.PutUint16(p[2:], status)
	for i, c := range counts {
		binary.BigEndian.PutUint16(p[4+i*2:], uint16(c))
	}
	return encodeFrame(kindSample6D, p)
}

func decodeSensitivity(p []byte) ([6]float64, bool) {
	var s [6]float64
	if len(p) != sensitivityLen {
		return s, false
	}
	for i := range s {
		s[i] = float64(math.Float32frombits(binary.BigEndian.Uint32(p[i*4:])))
		if s[i] == 0 || math.IsNaN(s[i]) || math.IsInf(s[i], 0) {
			return s, false
		}
	}
	return s, true
}

// decoder reassembles frames from a byte stream, one byte at a time.
type decoder struct {
	buf    [headerSize + maxPayload + checksumSize]byte
	n      int
	length int
	errors uint64
}

// feed consumes one byte and returns a frame when one is complete and its
// checksum matches.
func (d *decoder) feed(b byte) (frame, bool) {
	if d.n == 0 {
		if b != frameSync {
			return frame{}, false
		}
		d.buf[0] = b
		d.n = 1
		return frame{}, false
	}

	d.buf[d.n] = b
	d.n++

	if d.n == headerSize {
		d.length = int(d.buf[3])
		if d.length > maxPayload {
			d.n = 0
			d.errors++
			return frame{}, false
		}
	}
	if d.n < headerSize+d.length+checksumSize {
		return frame{}, false
	}

	end := headerSize + d.length
	d.n = 0
	if checksum(d.buf[:end]) != binary.BigEndian.Uint16(d.buf[end:]) {
		d.errors++
		return frame{}, false
	}
	payload := make([]byte, d.length)
	copy(payload, d.buf[headerSize:end])
	return frame{kind: uint16(d.buf[1])<<8 | uint16(d.buf[2]), payload: payload}, true
}

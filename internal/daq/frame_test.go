// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package daq

import (
	"bytes"
	"testing"
)

func feedAll(d *decoder, b []byte) []frame {
	var out []frame
	for _, v := range b {
		if f, ok := d.feed(v); ok {
			out = append(out, f)
		}
	}
	return out
}

func TestDecoderResyncsAfterNoise(t *testing.T) {
	var stream []byte
	stream = append(stream, 0x01, 0x02, 0x03) // line noise before sync
	stream = append(stream, encodeSample6D(7, 0, [6]int16{1, -1, 2, -2, 3, -3})...)
	stream = append(stream, encodeFrame(kindConfigAck, []byte{0})...)

	var d decoder
	frames := feedAll(&d, stream)
	if len(frames) != 2 {
		t.Fatalf("decoded %d frames, want 2", len(frames))
	}
	if frames[0].kind != kindSample6D || len(frames[0].payload) != sample6DLen {
		t.Errorf("first frame = %#04x len %d", frames[0].kind, len(frames[0].payload))
	}
	if frames[1].kind != kindConfigAck || !bytes.Equal(frames[1].payload, []byte{0}) {
		t.Errorf("second frame = %#04x %v", frames[1].kind, frames[1].payload)
	}
}

func TestDecoderDropsBadChecksum(t *testing.T) {
	bad := encodeFrame(kindConfigAck, []byte{0})
	bad[len(bad)-1] ^= 0xFF
	good := encodeFrame(kindConfigAck, []byte{0})

	var d decoder
	frames := feedAll(&d, append(bad, good...))
	if len(frames) != 1 {
		t.Fatalf("decoded %d frames, want 1", len(frames))
	}
	if d.errors != 1 {
		t.Fatalf("checksum errors = %d, want 1", d.errors)
	}
}

func TestDecoderRejectsOversizedLength(t *testing.T) {
	var d decoder
	frames := feedAll(&d, []byte{frameSync, 0x07, 0x08, maxPayload + 1})
	if len(frames) != 0 || d.n != 0 || d.errors != 1 {
		t.Fatalf("oversized header not discarded: frames=%d n=%d errors=%d", len(frames), d.n, d.errors)
	}
}

func TestEncodeConfigPayload(t *testing.T) {
	b := encodeConfig(Config{SampleRateHz: 500, Filter: Filter15Hz, ZeroOffset: true})
	var d decoder
	frames := feedAll(&d, b)
	if len(frames) != 1 || frames[0].kind != kindConfig {
		t.Fatalf("config frame not decoded: %v", frames)
	}
	if want := []byte{0x01, 0xF4, 4, 0xFF}; !bytes.Equal(frames[0].payload, want) {
		t.Fatalf("payload = %v, want %v", frames[0].payload, want)
	}
}

func TestDecodeSensitivityRejectsZero(t *testing.T) {
	var d decoder
	frames := feedAll(&d, encodeSensitivityReport([6]float64{1, 1, 0, 1, 1, 1}))
	if len(frames) != 1 {
		t.Fatal("sensitivity frame not decoded")
	}
	if _, ok := decodeSensitivity(frames[0].payload); ok {
		t.Fatal("zero sensitivity accepted")
	}
}

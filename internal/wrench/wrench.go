// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package wrench

import (
	"encoding/json"
	"fmt"
)

// Channel indices in fixed order.
const (
	Fx = iota
	Fy
	Fz
	Tx
	Ty
	Tz

	Channels = 6
)

// Wrench is one calibrated force/torque sample: Fx, Fy, Fz in newtons and
// Tx, Ty, Tz in newton-meters. It serialises as a 6-element JSON array.
type Wrench [Channels]float64

// Force returns the force components.
func (w Wrench) Force() [3]float64 {
	return [3]float64{w[Fx], w[Fy], w[Fz]}
}

// Torque returns the torque components.
func (w Wrench) Torque() [3]float64 {
	return [3]float64{w[Tx], w[Ty], w[Tz]}
}

func (w Wrench) String() string {
	return fmt.Sprintf("F=[%.3f %.3f %.3f]N T=[%.4f %.4f %.4f]Nm",
		w[Fx], w[Fy], w[Fz], w[Tx], w[Ty], w[Tz])
}

// Encode returns the JSON array form used on every sink.
func Encode(w Wrench) ([]byte, error) {
	return json.Marshal([Channels]float64(w))
}

// Decode parses the JSON array form.
func Decode(b []byte) (Wrench, error) {
	var v []float64
	if err := json.Unmarshal(b, &v); err != nil {
		return Wrench{}, fmt.Errorf("decode wrench: %w", err)
	}
	if len(v) != Channels {
		return Wrench{}, fmt.Errorf("decode wrench: expected %d values, got %d", Channels, len(v))
	}
	var w Wrench
	copy(w[:], v)
	return w, nil
}

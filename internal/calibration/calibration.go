// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration gates raw DAQ packets on device identity and extracts
// the calibrated wrench.
//
// Count-to-unit scaling comes from the DAQ's own sensitivity report and is
// applied by the connection. The sensitivity report is per unit and is not
// described by the packet itself, so a packet is only trusted when the
// connected device (type name + serial number) has a registered profile. An
// unknown device is always rejected; adding one means adding a profile.
package calibration

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/forcetorque/internal/daq"
	"github.com/relabs-tech/forcetorque/internal/wrench"
)

var (
	ErrUnknownDevice = errors.New("calibration: no profile for device")
	ErrInvalidPacket = errors.New("calibration: packet flagged invalid")
	ErrDuplicate     = errors.New("calibration: duplicate profile")
	ErrAxes          = errors.New("calibration: profile axes must be 3 or 6")
)

// Identity is the key a profile is registered under.
type Identity struct {
	TypeName     string `yaml:"type_name"`
	SerialNumber string `yaml:"serial_number"`
}

// IdentityOf extracts the identity of an enumerated device.
func IdentityOf(d daq.Descriptor) Identity {
	return Identity{TypeName: d.TypeName, SerialNumber: d.SerialNumber}
}

func (id Identity) String() string {
	return id.TypeName + "/" + id.SerialNumber
}

// Profile describes one known sensor.
type Profile struct {
	Identity `yaml:",inline"`
	Label    string    `yaml:"label,omitempty"`
	Axes     int       `yaml:"axes"` // 6 for 6D sensors, 3 for force-only
	AddedAt  time.Time `yaml:"added_at,omitempty"`
}

// Registry maps identities to profiles.
type Registry struct {
	profiles map[Identity]Profile
}

// NewRegistry builds a registry, rejecting duplicate identities and bad axis
// counts.
func NewRegistry(profiles ...Profile) (*Registry, error) {
	r := &Registry{profiles: make(map[Identity]Profile, len(profiles))}
	for _, p := range profiles {
		if err := r.add(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) add(p Profile) error {
	if p.Axes != 3 && p.Axes != 6 {
		return fmt.Errorf("%w: %s has %d", ErrAxes, p.Identity, p.Axes)
	}
	if p.TypeName == "" || p.SerialNumber == "" {
		return fmt.Errorf("calibration: profile needs type name and serial number, got %q", p.Identity)
	}
	if _, ok := r.profiles[p.Identity]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, p.Identity)
	}
	r.profiles[p.Identity] = p
	return nil
}

// Default returns the registry shipped with the driver: the round 6D sensor
// HEXHB148 on a type 64 DAQ.
func Default() *Registry {
	r, _ := NewRegistry(Profile{
		Identity: Identity{TypeName: "64", SerialNumber: "HEXHB148"},
		Label:    "round 6D sensor",
		Axes:     6,
	})
	return r
}

// Lookup returns the profile registered for id.
func (r *Registry) Lookup(id Identity) (Profile, bool) {
	p, ok := r.profiles[id]
	return p, ok
}

// Profiles returns all profiles sorted by type name then serial number.
func (r *Registry) Profiles() []Profile {
	out := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TypeName != out[j].TypeName {
			return out[i].TypeName < out[j].TypeName
		}
		return out[i].SerialNumber < out[j].SerialNumber
	})
	return out
}

// Register adds a profile.
func (r *Registry) Register(p Profile) error {
	return r.add(p)
}

// Calibrate maps a packet from device id to a wrench. A 3-axis profile
// yields forces only; torques stay zero.
func (r *Registry) Calibrate(pkt daq.Packet, id Identity) (wrench.Wrench, error) {
	p, ok := r.profiles[id]
	if !ok {
		return wrench.Wrench{}, fmt.Errorf("%w %s", ErrUnknownDevice, id)
	}
	if !pkt.Valid {
		return wrench.Wrench{}, fmt.Errorf("%w (counter %d, status %#04x)", ErrInvalidPacket, pkt.Counter, pkt.Status)
	}
	var w wrench.Wrench
	copy(w[:p.Axes], pkt.Values[:p.Axes])
	return w, nil
}

type profileFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// Load reads a YAML profile file.
func Load(path string) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	var f profileFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse profiles %s: %w", path, err)
	}
	r, err := NewRegistry(f.Profiles...)
	if err != nil {
		return nil, fmt.Errorf("profiles %s: %w", path, err)
	}
	return r, nil
}

// Save writes the registry as YAML.
func (r *Registry) Save(path string) error {
	b, err := yaml.Marshal(profileFile{Profiles: r.Profiles()})
	if err != nil {
		return fmt.Errorf("encode profiles: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write profiles: %w", err)
	}
	return nil
}

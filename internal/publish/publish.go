// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package publish delivers calibrated wrenches to telemetry stores.
//
// Every backend receives the same key and the same JSON array payload
// ("[fx,fy,fz,tx,ty,tz]"); only the key spelling is adapted to the backend's
// naming rules.
package publish

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/relabs-tech/forcetorque/internal/wrench"
)

// DefaultKey identifies the force/torque stream.
const DefaultKey = "sai2::optoforceSensor::6Dsensor::force"

// Sink receives one wrench per accepted sample. Implementations must be safe
// for concurrent use.
type Sink interface {
	Publish(key string, w wrench.Wrench) error
	Close() error
}

// MQTTTopic maps a key to an MQTT topic: "a::b::c" -> "a/b/c".
func MQTTTopic(key string) string {
	return strings.ReplaceAll(key, "::", "/")
}

// NATSSubject maps a key to a NATS subject: "a::b::c" -> "a.b.c".
func NATSSubject(key string) string {
	return strings.ReplaceAll(key, "::", ".")
}

// Func adapts a function to a Sink.
type Func func(key string, w wrench.Wrench) error

func (f Func) Publish(key string, w wrench.Wrench) error { return f(key, w) }
func (f Func) Close() error                              { return nil }

// Memory records every publish. Used by tests and the mock console.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
	hook    func(Entry)
}

// Entry is one recorded publish.
type Entry struct {
	Key    string
	Wrench wrench.Wrench
}

// NewMemory returns an empty Memory sink. hook, when non-nil, is called
// after each publish is recorded, outside the lock.
func NewMemory(hook func(Entry)) *Memory {
	return &Memory{hook: hook}
}

func (m *Memory) Publish(key string, w wrench.Wrench) error {
	e := Entry{Key: key, Wrench: w}
	m.mu.Lock()
	m.entries = append(m.entries, e)
	m.mu.Unlock()
	if m.hook != nil {
		m.hook(e)
	}
	return nil
}

func (m *Memory) Close() error { return nil }

// Entries returns a copy of everything published so far.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Multi fans one publish out to several sinks.
type Multi []Sink

func (m Multi) Publish(key string, w wrench.Wrench) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(key, w); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Options selects and configures backends for New.
type Options struct {
	Backends []string // any of "mqtt", "redis", "nats"

	MQTTBroker   string
	MQTTClientID string

	RedisAddr      string
	RedisTimeoutMS int

	NATSURL string
}

// New connects every backend named in opts.Backends. If one fails, the ones
// already connected are closed.
func New(opts Options) (Sink, error) {
	if len(opts.Backends) == 0 {
		return nil, errors.New("publish: no backends configured")
	}
	var sinks Multi
	for _, name := range opts.Backends {
		var (
			s   Sink
			err error
		)
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "mqtt":
			s, err = NewMQTTSink(opts.MQTTBroker, opts.MQTTClientID)
		case "redis":
			s, err = NewRedisSink(opts.RedisAddr, opts.RedisTimeoutMS)
		case "nats":
			s, err = NewNATSSink(opts.NATSURL)
		default:
			err = fmt.Errorf("publish: unknown backend %q", name)
		}
		if err != nil {
			sinks.Close()
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return sinks, nil
}

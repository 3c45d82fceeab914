// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package publish

import (
	"errors"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/relabs-tech/forcetorque/internal/wrench"
)

func TestKeyMapping(t *testing.T) {
	if got, want := MQTTTopic(DefaultKey), "sai2/optoforceSensor/6Dsensor/force"; got != want {
		t.Errorf("MQTTTopic = %q, want %q", got, want)
	}
	if got, want := NATSSubject(DefaultKey), "sai2.optoforceSensor.6Dsensor.force"; got != want {
		t.Errorf("NATSSubject = %q, want %q", got, want)
	}
}

func TestRedisSinkSetsKey(t *testing.T) {
	srv := miniredis.RunT(t)
	sink, err := NewRedisSink(srv.Addr(), 0)
	if err != nil {
		t.Fatalf("NewRedisSink: %v", err)
	}
	defer sink.Close()

	if err := sink.Publish(DefaultKey, wrench.Wrench{1, 2, 3, 0.5, 0, -1}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := sink.Publish(DefaultKey, wrench.Wrench{4, 5, 6, 0, 0, 0}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	got, err := srv.Get(DefaultKey)
	if err != nil {
		t.Fatalf("key missing: %v", err)
	}
	if got != "[4,5,6,0,0,0]" {
		t.Fatalf("stored %q, want latest wrench only", got)
	}
}

func TestRedisSinkUnreachable(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()
	if _, err := NewRedisSink(addr, 100); err == nil {
		t.Fatal("NewRedisSink succeeded against a closed server")
	}
}

func TestMemoryHookAndOrder(t *testing.T) {
	var seen []float64
	m := NewMemory(func(e Entry) { seen = append(seen, e.Wrench[0]) })
	for i := 0; i < 5; i++ {
		m.Publish("k", wrench.Wrench{float64(i)})
	}
	entries := m.Entries()
	if len(entries) != 5 || len(seen) != 5 {
		t.Fatalf("entries=%d hook calls=%d", len(entries), len(seen))
	}
	for i, e := range entries {
		if e.Wrench[0] != float64(i) || e.Key != "k" {
			t.Fatalf("entry %d = %+v", i, e)
		}
	}
}

type failingSink struct{ closed bool }

func (f *failingSink) Publish(string, wrench.Wrench) error { return errors.New("down") }
func (f *failingSink) Close() error                        { f.closed = true; return nil }

func TestMultiPublishesToAllAndJoinsErrors(t *testing.T) {
	mem := NewMemory(nil)
	bad := &failingSink{}
	m := Multi{bad, mem}

	err := m.Publish("k", wrench.Wrench{1})
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("Publish error = %v", err)
	}
	if len(mem.Entries()) != 1 {
		t.Fatal("healthy sink skipped after a failing one")
	}
	m.Close()
	if !bad.closed {
		t.Fatal("Close not forwarded")
	}
}

func TestNewRejectsBadBackends(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("New with no backends succeeded")
	}
	if _, err := New(Options{Backends: []string{"kafka"}}); err == nil {
		t.Fatal("New with unknown backend succeeded")
	}
}

func TestNewRedisOnly(t *testing.T) {
	srv := miniredis.RunT(t)
	sink, err := New(Options{Backends: []string{" Redis "}, RedisAddr: srv.Addr()})
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()
	if _, ok := sink.(*RedisSink); !ok {
		t.Fatalf("single backend wrapped: %T", sink)
	}
}

func TestFuncSink(t *testing.T) {
	var keys []string
	var s Sink = Func(func(key string, w wrench.Wrench) error {
		keys = append(keys, key)
		return nil
	})
	s.Publish("a", wrench.Wrench{})
	s.Publish("b", wrench.Wrench{})
	if len(keys) != 2 || keys[1] != "b" || s.Close() != nil {
		t.Fatalf("keys %v", keys)
	}
}

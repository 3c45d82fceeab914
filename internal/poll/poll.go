// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package poll implements bounded busy-poll-with-sleep waits.
//
// Every wait has an explicit ceiling: the caller's goroutine is occupied for
// at most the given timeout, measured from the first attempt.
package poll

import (
	"errors"
	"time"
)

// ErrDeadline is returned by Until when the timeout elapsed before the
// attempt reported success.
var ErrDeadline = errors.New("poll: deadline exceeded")

// Clock is the time source used by Until. Production code uses System;
// tests substitute a manual clock.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// System is the wall clock.
var System Clock = systemClock{}

// Until calls attempt until it reports done, sleeping interval between
// attempts. The first attempt runs immediately. If attempt returns an error,
// Until stops and returns it unchanged. If timeout has elapsed since the first
// attempt without success, Until returns ErrDeadline.
func Until(clk Clock, timeout, interval time.Duration, attempt func() (bool, error)) error {
	if clk == nil {
		clk = System
	}
	start := clk.Now()
	for {
		done, err := attempt()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if clk.Now().Sub(start) >= timeout {
			return ErrDeadline
		}
		clk.Sleep(interval)
	}
}

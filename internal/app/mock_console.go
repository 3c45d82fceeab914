// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"io"
	"os"

	"github.com/relabs-tech/forcetorque/internal/acquisition"
	"github.com/relabs-tech/forcetorque/internal/calibration"
	"github.com/relabs-tech/forcetorque/internal/daq"
	"github.com/relabs-tech/forcetorque/internal/publish"
	"github.com/relabs-tech/forcetorque/internal/wrench"
)

// RunMockConsole runs the full pipeline against a simulated DAQ and prints
// every published wrench. It needs no hardware and no broker.
func RunMockConsole(opts acquisition.Options, every int) error {
	conn := daq.NewMockConn()
	if err := conn.Open(); err != nil {
		return err
	}
	sess, err := newConsoleSession(conn, os.Stdout, opts, every)
	if err != nil {
		return err
	}
	release := stopOnSignal(sess.Stop)
	defer release()
	return sess.Run()
}

// newConsoleSession prints one line per every published samples.
func newConsoleSession(conn daq.Connection, out io.Writer, opts acquisition.Options, every int) (*acquisition.Session, error) {
	if every < 1 {
		every = 1
	}
	n := 0
	sink := publish.Func(func(_ string, w wrench.Wrench) error {
		n++
		if n%every == 0 {
			_, err := fmt.Fprintln(out, formatWrench(w))
			return err
		}
		return nil
	})
	return acquisition.NewSession(conn, daq.MockDescriptor, calibration.Default(), sink, opts)
}

func formatWrench(w wrench.Wrench) string {
	return fmt.Sprintf(
		"Fx=%8.3f  Fy=%8.3f  Fz=%8.3f  Tx=%7.4f  Ty=%7.4f  Tz=%7.4f",
		w[wrench.Fx], w[wrench.Fy], w[wrench.Fz], w[wrench.Tx], w[wrench.Ty], w[wrench.Tz],
	)
}

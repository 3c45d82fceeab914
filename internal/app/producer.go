// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/forcetorque/internal/acquisition"
	"github.com/relabs-tech/forcetorque/internal/config"
	"github.com/relabs-tech/forcetorque/internal/daq"
	"github.com/relabs-tech/forcetorque/internal/publish"
)

// RunForceTorqueProducer discovers the configured DAQ, streams its wrenches
// to the configured backends and returns when the session ends.
func RunForceTorqueProducer() error {
	cfg := config.Get()

	watcher := daq.NewWatcher(daq.WatcherOptions{Glob: cfg.DAQPortGlob})
	watcher.Start()
	defer watcher.Stop()

	desc, err := daq.Discover(watcher, cfg.DAQPortIndex, time.Duration(cfg.DAQEnumWaitMS)*time.Millisecond)
	if err != nil {
		return err
	}
	fmt.Printf("DAQ %d: %s\n", cfg.DAQPortIndex, desc)

	registry, err := loadRegistry(cfg.ProfilesFile)
	if err != nil {
		return err
	}

	conn := daq.NewSerialConn(desc, daq.SerialOptions{BaudRate: uint(cfg.DAQBaudRate)})
	if err := conn.Open(); err != nil {
		return fmt.Errorf("open %s: %w", desc.Address, err)
	}

	sink, err := publish.New(publishOptions(cfg))
	if err != nil {
		conn.Close()
		return err
	}
	defer sink.Close()

	sess, err := acquisition.NewSession(conn, desc, registry, sink, sessionOptions(cfg))
	if err != nil {
		conn.Close()
		return err
	}
	release := stopOnSignal(sess.Stop)
	defer release()

	log.Info().Str("session", sess.ID().String()).Str("port", desc.Address).Msg("producer: session starting")
	err = sess.Run()

	tel := sess.Telemetry()
	log.Info().
		Str("reason", sess.Reason().String()).
		Uint64("samples", tel.Samples).
		Float64("rate_hz", tel.Rate).
		Uint64("dropped", conn.Dropped()).
		Msg("producer: session ended")
	return err
}

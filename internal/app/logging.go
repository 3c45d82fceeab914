// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/forcetorque/internal/acquisition"
	"github.com/relabs-tech/forcetorque/internal/calibration"
	"github.com/relabs-tech/forcetorque/internal/config"
	"github.com/relabs-tech/forcetorque/internal/daq"
	"github.com/relabs-tech/forcetorque/internal/publish"
)

// SetupLogging points the global logger at a console writer on stderr and
// applies level. An unknown level falls back to info.
func SetupLogging(level string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"})

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		log.Warn().Str("level", level).Msg("invalid log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func daqConfig(cfg *config.Config) daq.Config {
	return daq.Config{
		SampleRateHz: cfg.DAQSampleRateHz,
		Filter:       daq.FilterSelector(cfg.DAQFilter),
		ZeroOffset:   cfg.DAQZeroOffset,
	}
}

func sessionOptions(cfg *config.Config) acquisition.Options {
	return acquisition.Options{
		Config:         daqConfig(cfg),
		UseFilter:      cfg.UseFilter,
		Cutoff:         cfg.FilterCutoff,
		ConfigTimeout:  time.Duration(cfg.ConfigTimeoutMS) * time.Millisecond,
		ReadTimeout:    time.Duration(cfg.ReadTimeoutMS) * time.Millisecond,
		Key:            cfg.PublishKey,
		StatusInterval: time.Duration(cfg.StatusLogInterval) * time.Millisecond,
	}
}

func publishOptions(cfg *config.Config) publish.Options {
	return publish.Options{
		Backends:       cfg.PublishBackends,
		MQTTBroker:     cfg.MQTTBroker,
		MQTTClientID:   cfg.MQTTClientIDProducer,
		RedisAddr:      cfg.RedisAddr,
		RedisTimeoutMS: cfg.RedisTimeoutMS,
		NATSURL:        cfg.NATSURL,
	}
}

// loadRegistry reads the profile file. An empty path, or a file that does
// not exist yet, yields the built-in profile.
func loadRegistry(path string) (*calibration.Registry, error) {
	if path == "" {
		return calibration.Default(), nil
	}
	reg, err := calibration.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", path).Msg("profiles file not found, using built-in profile")
		return calibration.Default(), nil
	}
	return reg, err
}

// stopOnSignal calls stop once on SIGINT or SIGTERM. The returned func
// releases the signal handler.
func stopOnSignal(stop func()) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigCh:
			log.Info().Str("signal", sig.String()).Msg("shutting down")
			stop()
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

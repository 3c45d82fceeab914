// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"

	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/forcetorque/internal/acquisition"
	"github.com/relabs-tech/forcetorque/internal/app"
	"github.com/relabs-tech/forcetorque/internal/daq"
)

func main() {
	rate := flag.Int("rate", daq.MaxSampleRateHz, "simulated sample rate in Hz (1-500)")
	useFilter := flag.Bool("filter", false, "enable the software Butterworth filter")
	cutoff := flag.Float64("cutoff", 0.05, "filter cutoff, normalized to the sample rate")
	every := flag.Int("every", 50, "print one line per this many samples")
	flag.Parse()

	app.SetupLogging("info")
	log.Info().Msg("starting force/torque console (mock DAQ)")

	cfg := daq.DefaultConfig()
	cfg.SampleRateHz = *rate
	opts := acquisition.Options{
		Config:    cfg,
		UseFilter: *useFilter,
		Cutoff:    *cutoff,
	}
	if err := app.RunMockConsole(opts, *every); err != nil {
		log.Fatal().Err(err).Msg("console stopped")
	}
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"

	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/forcetorque/internal/app"
	"github.com/relabs-tech/forcetorque/internal/config"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to configuration file")
	flag.Parse()

	app.SetupLogging("info")
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	app.SetupLogging(config.Get().LogLevel)

	log.Info().Msg("starting force/torque web server (MQTT subscriber)")
	if err := app.RunWeb(); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

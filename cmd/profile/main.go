// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Manage calibration profiles for force/torque sensors.
//
// Usage:
//
//	profile [-config forcetorque_config.txt] [-profiles file.yaml] list
//	profile add -type 64 -serial HEXHB148 [-axes 6] [-label text]
//	profile scan
//
// A DAQ whose type name and serial number are not registered is rejected by
// the producer, so adding a sensor means adding a profile here.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/relabs-tech/forcetorque/internal/app"
	"github.com/relabs-tech/forcetorque/internal/config"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to configuration file")
	profiles := flag.String("profiles", "", "Profiles file (overrides PROFILES_FILE)")
	flag.Parse()

	app.SetupLogging("warn")

	path := *profiles
	if path == "" {
		if err := config.InitGlobal(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Failed to load config from %s: %v\n", *configPath, err)
			os.Exit(1)
		}
		path = config.Get().ProfilesFile
	}

	if err := app.RunProfile(path, flag.Args(), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/relabs-tech/forcetorque/internal/calibration"
	"github.com/relabs-tech/forcetorque/internal/daq"
)

// RunProfile manages the calibration profile file:
//
//	list                              print registered sensors
//	add -type T -serial S [-axes N]   register a sensor
//	scan                              list connected DAQs and whether they are registered
func RunProfile(path string, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: profile [list|add|scan]")
	}
	reg, err := loadRegistry(path)
	if err != nil {
		return err
	}

	switch args[0] {
	case "list":
		return printProfiles(out, reg)

	case "add":
		if path == "" {
			return errors.New("add needs a profiles file (PROFILES_FILE or -profiles)")
		}
		fs := flag.NewFlagSet("add", flag.ContinueOnError)
		fs.SetOutput(out)
		typeName := fs.String("type", "", "DAQ type name, e.g. 64")
		serial := fs.String("serial", "", "sensor serial number, e.g. HEXHB148")
		axes := fs.Int("axes", 6, "3 for force-only sensors, 6 for force/torque")
		label := fs.String("label", "", "free-form description")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		p := calibration.Profile{
			Identity: calibration.Identity{TypeName: *typeName, SerialNumber: *serial},
			Label:    *label,
			Axes:     *axes,
			AddedAt:  time.Now().UTC().Truncate(time.Second),
		}
		if err := reg.Register(p); err != nil {
			return err
		}
		if err := reg.Save(path); err != nil {
			return err
		}
		fmt.Fprintf(out, "registered %s in %s\n", p.Identity, path)
		return nil

	case "scan":
		w := daq.NewWatcher(daq.WatcherOptions{})
		return printScan(out, reg, w.Scan())

	default:
		return fmt.Errorf("unknown profile command %q", args[0])
	}
}

func printProfiles(out io.Writer, reg *calibration.Registry) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tSERIAL\tAXES\tLABEL")
	for _, p := range reg.Profiles() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.TypeName, p.SerialNumber, p.Axes, p.Label)
	}
	return tw.Flush()
}

func printScan(out io.Writer, reg *calibration.Registry, descs []daq.Descriptor) error {
	if len(descs) == 0 {
		fmt.Fprintln(out, "no DAQ connected")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tPORT\tTYPE\tSERIAL\tPROTOCOL\tREGISTERED")
	for i, d := range descs {
		_, ok := reg.Lookup(calibration.IdentityOf(d))
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%t\n", i, d.Address, d.TypeName, d.SerialNumber, d.ProtocolVersion, ok)
	}
	return tw.Flush()
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package daq

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// MaxDevices bounds how many DAQs are reported at once.
const MaxDevices = 16

// WatcherOptions configures serial discovery.
type WatcherOptions struct {
	Glob      string        // device nodes to consider, e.g. /dev/ttyACM*
	SysfsRoot string        // tty class directory, /sys/class/tty on Linux
	Interval  time.Duration // rescan period
}

func (o WatcherOptions) withDefaults() WatcherOptions {
	if o.Glob == "" {
		o.Glob = "/dev/ttyACM*"
	}
	if o.SysfsRoot == "" {
		o.SysfsRoot = "/sys/class/tty"
	}
	if o.Interval <= 0 {
		o.Interval = 250 * time.Millisecond
	}
	return o
}

// Watcher enumerates DAQs on USB-serial ports in the background. Callers only
// ever receive copies of its descriptor list.
type Watcher struct {
	opts WatcherOptions

	mu    sync.RWMutex
	found []Descriptor

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewWatcher(opts WatcherOptions) *Watcher {
	return &Watcher{opts: opts.withDefaults()}
}

// Start scans once synchronously, then keeps rescanning until Stop.
func (w *Watcher) Start() {
	w.refresh()
	w.stop = make(chan struct{})
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-w.stop:
				return
			case <-ticker.C:
				w.refresh()
			}
		}
	}()
}

func (w *Watcher) Stop() {
	if w.stop == nil {
		return
	}
	close(w.stop)
	w.wg.Wait()
	w.stop = nil
}

func (w *Watcher) refresh() {
	found := w.Scan()
	w.mu.Lock()
	w.found = found
	w.mu.Unlock()
}

// Connected returns a copy of at most capacity descriptors.
func (w *Watcher) Connected(capacity int) []Descriptor {
	w.mu.RLock()
	defer w.mu.RUnlock()
	n := len(w.found)
	if capacity < n {
		n = capacity
	}
	if n <= 0 {
		return nil
	}
	out := make([]Descriptor, n)
	copy(out, w.found[:n])
	return out
}

// Scan lists matching ports now, reading identity from sysfs. Ports without
// a serial number are skipped: they cannot be matched to a calibration
// profile anyway.
func (w *Watcher) Scan() []Descriptor {
	ports, err := filepath.Glob(w.opts.Glob)
	if err != nil {
		log.Error().Err(err).Str("glob", w.opts.Glob).Msg("daq: bad port pattern")
		return nil
	}
	sort.Strings(ports)

	var found []Descriptor
	for _, port := range ports {
		desc, err := w.describe(port)
		if err != nil {
			log.Debug().Err(err).Str("port", port).Msg("daq: skipping port")
			continue
		}
		found = append(found, desc)
		if len(found) == MaxDevices {
			break
		}
	}
	return found
}

// describe reads the USB device attributes behind a tty node. The tty's
// "device" link points at the USB interface; the attributes live one level up.
func (w *Watcher) describe(port string) (Descriptor, error) {
	usbDir := w.opts.SysfsRoot + "/" + filepath.Base(port) + "/device/.."

	serialNumber, err := readAttr(usbDir, "serial")
	if err != nil {
		return Descriptor{}, err
	}
	product, _ := readAttr(usbDir, "product")
	version, _ := readAttr(usbDir, "bcdDevice")

	return Descriptor{
		Address:         port,
		ProtocolVersion: version,
		SerialNumber:    serialNumber,
		TypeName:        typeNameFromProduct(product),
	}, nil
}

func readAttr(dir, name string) (string, error) {
	b, err := os.ReadFile(dir + "/" + name)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return strings.TrimSpace(string(b)), nil
}

// typeNameFromProduct takes the model token at the end of the USB product
// string, e.g. "OptoForce DAQ 64" -> "64".
func typeNameFromProduct(product string) string {
	fields := strings.Fields(product)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// Discover waits for enumeration to settle and returns the descriptor at
// index.
func Discover(e Enumerator, index int, settle time.Duration) (Descriptor, error) {
	time.Sleep(settle)
	descs := e.Connected(MaxDevices)
	if index < 0 || index >= len(descs) {
		return Descriptor{}, fmt.Errorf("%w %d (%d connected)", ErrNoDevice, index, len(descs))
	}
	return descs[index], nil
}

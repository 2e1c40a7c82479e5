// Copyright 2024 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// thermalbar shows SoC and DDR temperatures on an i3bar status line.
//
// Usage, in the i3 config:
//
//	bar {
//	  status_command thermalbar -settings ~/.config/thermalbar/settings.yaml
//	}
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"text/tabwriter"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"github.com/soumya92/thermalbar/controller"
	"github.com/soumya92/thermalbar/display"
	l "github.com/soumya92/thermalbar/logging"
	"github.com/soumya92/thermalbar/panel"
	"github.com/soumya92/thermalbar/settings"
	"github.com/soumya92/thermalbar/thermal"
)

var (
	settingsPath = flag.String("settings", defaultSettingsPath(),
		"YAML file holding show-mode and show-icons, empty to keep settings in memory")
	thermalDir = flag.String("thermal-dir", thermal.DefaultBaseDir,
		"directory containing thermal_zone* entries")
	interval   = flag.Duration("interval", thermal.DefaultInterval, "sampling interval")
	printState = flag.Bool("print-state", false, "print resolved sensors and readings, then exit")
	realtime   = flag.Bool("realtime", false, "schedule samples on the real-time clock")
	// Parsed by the logging package, declared so that flag.Parse accepts it.
	_ = flag.String("finelog", "", "comma separated packages to enable fine logging for")
)

func defaultSettingsPath() string {
	usr, err := user.Current()
	if err != nil {
		return ""
	}
	return filepath.Join(usr.HomeDir, ".config", "thermalbar", "settings.yaml")
}

func openStore(path string) (settings.Store, func(), error) {
	if path == "" {
		return settings.NewMemory(nil), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("settings directory: %w", err)
	}
	f, err := settings.OpenFile(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

// writeState samples every sensor once and writes a table of the results.
func writeState(w io.Writer, store settings.Store, baseDir string) error {
	sensors := thermal.ResolveAll(thermal.DefaultSpecs, baseDir)
	sampler := thermal.NewSampler(sensors)
	sampler.Tick()
	cfg := settings.Load(store)
	state := display.Reconcile(sampler.Sensors(), cfg)

	fmt.Fprintf(w, "mode: %s, icons: %v\n", cfg.Mode, cfg.ShowIcons)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SENSOR\tPATH\tSHOWN\tREADING\tFAHRENHEIT\tSAMPLED")
	for _, sensor := range sampler.Sensors() {
		slot, _ := state.Slot(sensor.ID)
		fahrenheit := "-"
		if sensor.Reading.OK {
			fahrenheit = fmt.Sprintf("%.1f°F", sensor.Reading.Temperature().Fahrenheit())
		}
		fmt.Fprintf(tw, "%s\t%s\t%v\t%s\t%s\t%s\n",
			sensor.ID, sensor.Path, slot.Visible, slot.Text, fahrenheit,
			humanize.Time(sensor.Reading.At))
	}
	return tw.Flush()
}

func sdNotify(state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		l.Log("sd_notify %s: %v", state, err)
	}
}

func run() error {
	store, closeStore, err := openStore(*settingsPath)
	if err != nil {
		return err
	}
	defer closeStore()

	if *printState {
		return writeState(os.Stdout, store, *thermalDir)
	}
	if *interval <= 0 {
		return errors.New("-interval must be positive")
	}

	opts := []controller.Option{
		controller.WithBaseDir(*thermalDir),
		controller.WithInterval(*interval),
	}
	if *realtime {
		opts = append(opts, controller.WithRealtimeScheduler())
	}
	ctrl := controller.New(store, opts...)

	errChan := make(chan error, 1)
	go func() { errChan <- panel.New(ctrl).Run() }()
	sdNotify(daemon.SdNotifyReady)
	defer sdNotify(daemon.SdNotifyStopping)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGINT, unix.SIGTERM)
	defer signal.Stop(sigs)
	select {
	case err := <-errChan:
		return err
	case sig := <-sigs:
		l.Log("exiting on %v", sig)
		ctrl.Stop()
		return nil
	}
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "thermalbar: %v\n", err)
		os.Exit(1)
	}
}

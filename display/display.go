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

// Package display derives what the panel shows from the latest sensor
// readings and the user's display settings.
package display // import "github.com/soumya92/thermalbar/display"

import (
	"fmt"
	"math"

	"github.com/soumya92/thermalbar/thermal"
)

// Mode selects which sensors are shown.
type Mode int

const (
	// Both shows the SoC and the DDR sensors.
	Both Mode = iota
	// SocOnly shows only the SoC sensor.
	SocOnly
	// DdrOnly shows only the DDR sensor.
	DdrOnly
)

// DefaultMode is used when the stored mode is missing or unrecognised.
const DefaultMode = Both

var modeNames = map[Mode]string{
	SocOnly: "soc",
	DdrOnly: "ddr",
	Both:    "both",
}

// ParseMode parses a stored mode name ("soc", "ddr" or "both"). Unknown
// names return DefaultMode and false.
func ParseMode(name string) (Mode, bool) {
	for mode, n := range modeNames {
		if n == name {
			return mode, true
		}
	}
	return DefaultMode, false
}

// String returns the stored name of the mode.
func (m Mode) String() string {
	if n, ok := modeNames[m]; ok {
		return n
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Includes returns true if sensors with the given ID are shown in this mode.
func (m Mode) Includes(sensorID string) bool {
	switch m {
	case SocOnly:
		return sensorID == "soc"
	case DdrOnly:
		return sensorID == "ddr"
	case Both:
		return sensorID == "soc" || sensorID == "ddr"
	}
	return false
}

// Next returns the mode after m when cycling through modes,
// in the order soc, ddr, both.
func (m Mode) Next() Mode {
	switch m {
	case SocOnly:
		return DdrOnly
	case DdrOnly:
		return Both
	}
	return SocOnly
}

// Config is a snapshot of the user's display settings.
type Config struct {
	Mode      Mode
	ShowIcons bool
}

// DefaultConfig is used for any setting that is not stored.
var DefaultConfig = Config{Mode: DefaultMode, ShowIcons: true}

// Placeholder is shown for a sensor without a valid reading.
const Placeholder = "--°C"

// Slot is the derived display state of one sensor.
type Slot struct {
	ID          string
	Visible     bool
	IconVisible bool
	Text        string
	// OK and Celsius expose the reading behind Text, for styling.
	OK      bool
	Celsius float64
}

// State is the derived display state of all sensors, in sensor order.
// It is always recomputed as a whole by Reconcile, never modified.
type State struct {
	Slots []Slot
}

// Slot returns the slot for the given sensor ID.
func (s State) Slot(id string) (Slot, bool) {
	for _, slot := range s.Slots {
		if slot.ID == id {
			return slot, true
		}
	}
	return Slot{}, false
}

// FormatCelsius formats a temperature with one decimal digit, e.g. "45.3°C".
// Readings are rounded at millidegree precision, with ties away from zero,
// so 45250 millidegrees is shown as "45.3°C".
func FormatCelsius(celsius float64) string {
	tenths := math.Round(math.Round(celsius*1000) / 100)
	return fmt.Sprintf("%.1f°C", tenths/10)
}

// Reconcile derives the display state from sensor readings and settings.
// It has no side effects and does not modify its inputs.
func Reconcile(sensors []thermal.Sensor, cfg Config) State {
	slots := make([]Slot, len(sensors))
	for i, sensor := range sensors {
		celsius, ok := sensor.Celsius()
		slot := Slot{
			ID:          sensor.ID,
			Visible:     cfg.Mode.Includes(sensor.ID),
			IconVisible: cfg.ShowIcons,
			Text:        Placeholder,
			OK:          ok,
		}
		if ok {
			slot.Text = FormatCelsius(celsius)
			slot.Celsius = celsius
		}
		slots[i] = slot
	}
	return State{Slots: slots}
}

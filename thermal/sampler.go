// Copyright 2017, 2024 Google Inc.
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

package thermal

import (
	"strconv"
	"time"

	"github.com/martinlindhe/unit"
	"golang.org/x/time/rate"

	l "github.com/soumya92/thermalbar/logging"
	"github.com/soumya92/thermalbar/timing"
)

// DefaultInterval is how often sensors are sampled.
const DefaultInterval = 2 * time.Second

// Spec describes a logical sensor: its ID, the thermal zone type to look
// for, and the temperature file to use if no zone of that type exists.
type Spec struct {
	ID       string
	Type     string
	Fallback string
}

// DefaultSpecs are the SoC and DDR sensors of Amlogic based boards.
var DefaultSpecs = []Spec{
	{ID: "soc", Type: "soc_thermal", Fallback: DefaultBaseDir + "/thermal_zone0/temp"},
	{ID: "ddr", Type: "ddr_thermal", Fallback: DefaultBaseDir + "/thermal_zone1/temp"},
}

// Reading is the result of the latest sample of a sensor. It is always
// replaced as a whole.
type Reading struct {
	// Celsius is exactly the raw millidegree value divided by 1000.
	Celsius float64
	OK      bool
	// At is when the sample was taken, whether or not it succeeded.
	At time.Time
}

// Temperature returns the reading as a unit.Temperature.
func (r Reading) Temperature() unit.Temperature {
	return unit.FromCelsius(r.Celsius)
}

// Sensor is a logical sensor resolved to a concrete temperature file.
type Sensor struct {
	ID string
	// Path is resolved once, and never changes for the sensor's lifetime.
	Path    string
	Reading Reading
}

// Celsius returns the latest reading in degrees Celsius, and whether the
// latest sample succeeded.
func (s Sensor) Celsius() (float64, bool) {
	return s.Reading.Celsius, s.Reading.OK
}

// ResolveAll resolves each spec against baseDir, returning fresh sensors
// with no readings.
func ResolveAll(specs []Spec, baseDir string) []*Sensor {
	sensors := make([]*Sensor, len(specs))
	for i, spec := range specs {
		sensors[i] = &Sensor{ID: spec.ID, Path: Resolve(spec.Type, spec.Fallback, baseDir)}
	}
	return sensors
}

// SampleOnce reads the sensor's temperature file, which contains an integer
// in millidegrees Celsius. Returns false if the file cannot be read or does
// not contain a base-10 integer.
func SampleOnce(sensor *Sensor) (float64, bool) {
	text, ok := ReadText(sensor.Path)
	if !ok {
		return 0, false
	}
	milliC, err := strconv.Atoi(text)
	if err != nil {
		l.Fine("%s: %v", sensor.ID, err)
		return 0, false
	}
	return float64(milliC) / 1000.0, true
}

// Sampler samples a fixed set of sensors. It is not safe for concurrent use;
// the controller's worker owns it.
type Sampler struct {
	sensors []*Sensor
	// Failures are logged at most this often, fine logging shows all.
	failureLog *rate.Limiter
}

// NewSampler creates a sampler over the given sensors.
func NewSampler(sensors []*Sensor) *Sampler {
	return &Sampler{
		sensors:    sensors,
		failureLog: rate.NewLimiter(rate.Every(time.Minute), 1),
	}
}

// Tick samples every sensor once. A failing sensor does not affect the others.
func (s *Sampler) Tick() {
	now := timing.Now()
	for _, sensor := range s.sensors {
		celsius, ok := SampleOnce(sensor)
		if !ok && s.failureLog.Allow() {
			l.Log("%s: no reading from %s", sensor.ID, sensor.Path)
		}
		sensor.Reading = Reading{Celsius: celsius, OK: ok, At: now}
	}
}

// Sensors returns a copy of the current sensors, in their configured order.
func (s *Sampler) Sensors() []Sensor {
	out := make([]Sensor, len(s.sensors))
	for i, sensor := range s.sensors {
		out[i] = *sensor
	}
	return out
}

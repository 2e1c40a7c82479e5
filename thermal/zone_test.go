// Copyright 2022, 2024 Google Inc.
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
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

func setupZones(t *testing.T, files map[string]string) {
	fs = afero.NewMemMapFs()
	for path, contents := range files {
		writeFile(t, path, contents)
	}
}

func TestZoneIndex(t *testing.T) {
	for name, expected := range map[string]int{
		"thermal_zone0":  0,
		"thermal_zone3":  3,
		"thermal_zone12": 12,
	} {
		idx, ok := zoneIndex(name)
		assert.True(t, ok, name)
		assert.Equal(t, expected, idx, name)
	}
	for _, name := range []string{
		"thermal_zone", "thermal_zone-1", "thermal_zone1a", "cooling_device0", "zone1",
	} {
		_, ok := zoneIndex(name)
		assert.False(t, ok, name)
	}
}

func TestResolve(t *testing.T) {
	setupZones(t, map[string]string{
		"/sys/class/thermal/thermal_zone0/type": "soc_thermal\n",
		"/sys/class/thermal/thermal_zone0/temp": "45000\n",
		"/sys/class/thermal/thermal_zone3/type": "ddr_thermal\n",
		"/sys/class/thermal/thermal_zone3/temp": "41000\n",
		"/sys/class/thermal/cooling_device0/type": "ddr_thermal\n",
	})
	fallback := "/sys/class/thermal/thermal_zone1/temp"

	assert.Equal(t, "/sys/class/thermal/thermal_zone3/temp",
		Resolve("ddr_thermal", fallback, "/sys/class/thermal"))
	assert.Equal(t, "/sys/class/thermal/thermal_zone0/temp",
		Resolve("soc_thermal", "/unused", "/sys/class/thermal"))
	assert.Equal(t, fallback,
		Resolve("gpu_thermal", fallback, "/sys/class/thermal"),
		"no matching zone")
	assert.Equal(t, fallback,
		Resolve("ddr_thermal", fallback, "/sys/class/missing"),
		"unreadable base directory")
}

func TestResolveLowestIndexWins(t *testing.T) {
	setupZones(t, map[string]string{
		"/thermal/thermal_zone10/type": "soc_thermal",
		"/thermal/thermal_zone2/type":  "soc_thermal",
		"/thermal/thermal_zone7/type":  "soc_thermal",
	})
	// Lexically thermal_zone10 sorts first, but zone 2 has the lowest index.
	assert.Equal(t, "/thermal/thermal_zone2/temp",
		Resolve("soc_thermal", "/fallback", "/thermal"))
}

func TestResolveSkipsUnreadableType(t *testing.T) {
	setupZones(t, map[string]string{
		"/thermal/thermal_zone0/temp": "1000",
		"/thermal/thermal_zone1/type": "ddr_thermal",
	})
	assert.Equal(t, "/thermal/thermal_zone1/temp",
		Resolve("ddr_thermal", "/fallback", "/thermal"))
}

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


package controller

import (
	"path"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soumya92/thermalbar/display"
	"github.com/soumya92/thermalbar/settings"
	"github.com/soumya92/thermalbar/testing/notifier"
	"github.com/soumya92/thermalbar/thermal"
	"github.com/soumya92/thermalbar/timing"
)

const baseDir = "/sys/class/thermal"

type testFs struct {
	t *testing.T
	afero.Fs
}

func setup(t *testing.T, files map[string]string) testFs {
	timing.TestMode()
	fs := testFs{t, afero.NewMemMapFs()}
	t.Cleanup(thermal.SetFs(fs.Fs))
	for name, contents := range files {
		fs.write(name, contents)
	}
	return fs
}

func (f testFs) write(name, contents string) {
	f.t.Helper()
	name = path.Join(baseDir, name)
	require.NoError(f.t, f.MkdirAll(path.Dir(name), 0755))
	require.NoError(f.t, afero.WriteFile(f.Fs, name, []byte(contents), 0644))
}

func (f testFs) remove(name string) {
	f.t.Helper()
	require.NoError(f.t, f.RemoveAll(path.Join(baseDir, name)))
}

func slot(t *testing.T, c *Controller, id string) display.Slot {
	t.Helper()
	s, ok := c.State().Slot(id)
	require.True(t, ok, "slot %s", id)
	return s
}

func TestStartPublishesSynchronously(t *testing.T) {
	setup(t, map[string]string{
		"thermal_zone0/type": "soc_thermal",
		"thermal_zone0/temp": "45260",
		"thermal_zone3/type": "ddr_thermal",
		"thermal_zone3/temp": "50000\n",
	})
	store := settings.NewMemory(map[string]string{settings.KeyShowMode: "soc"})
	c := New(store)
	require.False(t, c.Running())
	require.Empty(t, c.State().Slots, "nothing published before start")

	require.NoError(t, c.Start())
	defer c.Stop()
	require.True(t, c.Running())

	soc := slot(t, c, "soc")
	assert.True(t, soc.Visible)
	assert.True(t, soc.IconVisible)
	assert.True(t, soc.OK)
	assert.Equal(t, "45.3°C", soc.Text)

	ddr := slot(t, c, "ddr")
	assert.False(t, ddr.Visible)
	assert.Equal(t, "50.0°C", ddr.Text, "hidden sensors are still sampled")

	sensors := c.Sensors()
	require.Len(t, sensors, 2)
	assert.Equal(t, baseDir+"/thermal_zone0/temp", sensors[0].Path)
	assert.Equal(t, baseDir+"/thermal_zone3/temp", sensors[1].Path)
	assert.Equal(t, timing.Now(), sensors[0].Reading.At)
}

func TestModeChangeWithoutTick(t *testing.T) {
	setup(t, map[string]string{
		"thermal_zone0/type": "soc_thermal",
		"thermal_zone0/temp": "45000",
		"thermal_zone3/type": "ddr_thermal",
		"thermal_zone3/temp": "50000",
	})
	store := settings.NewMemory(map[string]string{settings.KeyShowMode: "soc"})
	c := New(store)
	require.NoError(t, c.Start())
	defer c.Stop()

	sub := notifier.Subscribe(t, c.Subscribe)
	require.NoError(t, store.Set(settings.KeyShowMode, "both"))
	sub.AssertNotified("on settings change")

	assert.True(t, slot(t, c, "soc").Visible)
	ddr := slot(t, c, "ddr")
	assert.True(t, ddr.Visible)
	assert.Equal(t, "50.0°C", ddr.Text)

	require.NoError(t, store.Set(settings.KeyShowIcons, "false"))
	sub.AssertNotified("on settings change")
	assert.False(t, slot(t, c, "soc").IconVisible)
	assert.False(t, slot(t, c, "ddr").IconVisible)
}

func TestTicks(t *testing.T) {
	fs := setup(t, map[string]string{
		"thermal_zone0/type": "soc_thermal",
		"thermal_zone0/temp": "45000",
		"thermal_zone1/type": "ddr_thermal",
		"thermal_zone1/temp": "50000",
	})
	c := New(settings.NewMemory(nil))
	require.NoError(t, c.Start())
	defer c.Stop()

	sub := notifier.Subscribe(t, c.Subscribe)
	start := timing.Now()

	fs.write("thermal_zone0/temp", "47500")
	fs.remove("thermal_zone1/temp")
	now := timing.NextTick()
	assert.Equal(t, thermal.DefaultInterval, now.Sub(start))
	sub.AssertNotified("on tick")

	assert.Equal(t, "47.5°C", slot(t, c, "soc").Text)
	ddr := slot(t, c, "ddr")
	assert.False(t, ddr.OK)
	assert.Equal(t, display.Placeholder, ddr.Text, "failed reading")
	assert.Equal(t, now, c.Sensors()[1].Reading.At)

	fs.write("thermal_zone1/temp", "51000")
	timing.NextTick()
	sub.AssertNotified("on tick")
	assert.Equal(t, "51.0°C", slot(t, c, "ddr").Text, "recovers on next tick")
}

func TestCustomIntervalAndSpecs(t *testing.T) {
	setup(t, map[string]string{
		"thermal_zone4/type": "cpu_thermal",
		"thermal_zone4/temp": "38125",
	})
	c := New(settings.NewMemory(nil),
		WithSpecs(thermal.Spec{ID: "soc", Type: "cpu_thermal"}),
		WithBaseDir(baseDir),
		WithInterval(5*time.Second))
	require.NoError(t, c.Start())
	defer c.Stop()

	require.Len(t, c.State().Slots, 1)
	assert.Equal(t, "38.1°C", slot(t, c, "soc").Text)

	start := timing.Now()
	assert.Equal(t, 5*time.Second, timing.NextTick().Sub(start))
}

func TestStop(t *testing.T) {
	setup(t, map[string]string{
		"thermal_zone0/temp": "45000",
		"thermal_zone1/temp": "50000",
	})
	store := settings.NewMemory(nil)
	c := New(store)
	c.Stop() // stopping a stopped controller does nothing.

	require.NoError(t, c.Start())
	sub := notifier.Subscribe(t, c.Subscribe)

	c.Stop()
	c.Stop()
	assert.False(t, c.Running())

	timing.NextTick()
	sub.AssertNoUpdate("tick after stop")
	require.NoError(t, store.Set(settings.KeyShowMode, "ddr"))
	sub.AssertNoUpdate("settings change after stop")

	assert.True(t, slot(t, c, "soc").Visible, "last state is kept")
	assert.Equal(t, "45.0°C", slot(t, c, "soc").Text)
}

func TestStartWhileRunning(t *testing.T) {
	setup(t, map[string]string{"thermal_zone0/temp": "45000"})
	c := New(settings.NewMemory(nil))
	require.NoError(t, c.Start())
	defer c.Stop()

	sub := notifier.Subscribe(t, c.Subscribe)
	require.NoError(t, c.Start())
	sub.AssertNoUpdate("second start")
	assert.True(t, c.Running())

	timing.NextTick()
	sub.AssertNotified("on tick")
	sub.AssertNoUpdate("only one worker")
}

func TestRestartResolvesAgain(t *testing.T) {
	fs := setup(t, map[string]string{
		"thermal_zone0/type": "soc_thermal",
		"thermal_zone0/temp": "45000",
		"thermal_zone3/type": "ddr_thermal",
		"thermal_zone3/temp": "50000",
	})
	store := settings.NewMemory(nil)
	c := New(store)
	require.NoError(t, c.Start())
	assert.Equal(t, baseDir+"/thermal_zone3/temp", c.Sensors()[1].Path)
	c.Stop()

	fs.remove("thermal_zone3")
	fs.write("thermal_zone7/type", "ddr_thermal")
	fs.write("thermal_zone7/temp", "52000")
	require.NoError(t, store.Set(settings.KeyShowMode, "ddr"))

	require.NoError(t, c.Start())
	defer c.Stop()
	assert.Equal(t, baseDir+"/thermal_zone7/temp", c.Sensors()[1].Path)
	assert.False(t, slot(t, c, "soc").Visible, "settings are reloaded")
	assert.Equal(t, "52.0°C", slot(t, c, "ddr").Text)
}

func TestFallbackAndInvalidSettings(t *testing.T) {
	setup(t, map[string]string{
		"thermal_zone0/temp": "45000",
		"thermal_zone1/type": "gpu_thermal",
	})
	store := settings.NewMemory(map[string]string{
		settings.KeyShowMode:  "none",
		settings.KeyShowIcons: "maybe",
	})
	c := New(store)
	require.NoError(t, c.Start())
	defer c.Stop()

	sensors := c.Sensors()
	assert.Equal(t, baseDir+"/thermal_zone0/temp", sensors[0].Path)
	assert.Equal(t, baseDir+"/thermal_zone1/temp", sensors[1].Path)

	soc := slot(t, c, "soc")
	assert.True(t, soc.Visible)
	assert.True(t, soc.IconVisible)
	assert.Equal(t, "45.0°C", soc.Text)
	ddr := slot(t, c, "ddr")
	assert.True(t, ddr.Visible, "unknown mode shows both")
	assert.Equal(t, display.Placeholder, ddr.Text)
}

func TestUserActions(t *testing.T) {
	setup(t, map[string]string{
		"thermal_zone0/temp": "45000",
		"thermal_zone1/temp": "50000",
	})
	store := settings.NewMemory(nil)
	c := New(store)
	require.NoError(t, c.Start())
	defer c.Stop()
	sub := notifier.Subscribe(t, c.Subscribe)

	require.NoError(t, c.CycleMode())
	sub.AssertNotified("cycle mode")
	v, _ := store.Get(settings.KeyShowMode)
	assert.Equal(t, "soc", v)
	assert.False(t, slot(t, c, "ddr").Visible)

	require.NoError(t, c.CycleMode())
	sub.AssertNotified("cycle mode")
	assert.False(t, slot(t, c, "soc").Visible)
	assert.True(t, slot(t, c, "ddr").Visible)

	require.NoError(t, c.SelectMode(display.Both))
	sub.AssertNotified("select mode")
	assert.True(t, slot(t, c, "soc").Visible)

	require.NoError(t, c.ToggleIcons())
	sub.AssertNotified("toggle icons")
	v, _ = store.Get(settings.KeyShowIcons)
	assert.Equal(t, "false", v)
	assert.False(t, slot(t, c, "soc").IconVisible)

	require.NoError(t, c.ToggleIcons())
	sub.AssertNotified("toggle icons")
	assert.True(t, slot(t, c, "soc").IconVisible)
}

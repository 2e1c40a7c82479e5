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

package settings

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soumya92/thermalbar/display"
	"github.com/soumya92/thermalbar/testing/notifier"
)

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(KeyShowMode, "soc"))
	assert.NoError(t, Validate(KeyShowMode, "ddr"))
	assert.NoError(t, Validate(KeyShowMode, "both"))
	assert.NoError(t, Validate(KeyShowIcons, "true"))
	assert.NoError(t, Validate(KeyShowIcons, "false"))

	err := Validate(KeyShowMode, "none")
	assert.True(t, errors.Is(err, ErrInvalidValue), "%v", err)
	err = Validate(KeyShowIcons, "sometimes")
	assert.True(t, errors.Is(err, ErrInvalidValue), "%v", err)
	err = Validate("show-colours", "true")
	assert.True(t, errors.Is(err, ErrUnknownKey), "%v", err)
}

func TestLoad(t *testing.T) {
	assert.Equal(t, display.DefaultConfig, Load(NewMemory(nil)), "empty store")
	assert.Equal(t, display.Config{Mode: display.Both, ShowIcons: true}, display.DefaultConfig)

	store := NewMemory(map[string]string{KeyShowMode: "soc", KeyShowIcons: "false"})
	assert.Equal(t, display.Config{Mode: display.SocOnly, ShowIcons: false}, Load(store))

	store = NewMemory(map[string]string{KeyShowMode: "bogus", KeyShowIcons: "bogus"})
	assert.Equal(t, display.DefaultConfig, Load(store), "malformed values use defaults")
}

func TestMemoryStore(t *testing.T) {
	var store Memory
	sub := notifier.Subscribe(t, store.Subscribe)

	_, ok := store.Get(KeyShowMode)
	assert.False(t, ok, "zero value is empty")

	require.NoError(t, SetMode(&store, display.DdrOnly))
	sub.AssertNotified("on set")
	v, ok := store.Get(KeyShowMode)
	assert.True(t, ok)
	assert.Equal(t, "ddr", v)

	require.NoError(t, SetMode(&store, display.DdrOnly))
	sub.AssertNoUpdate("setting the same value")

	require.NoError(t, SetShowIcons(&store, false))
	sub.AssertNotified("on set of a different key")
	assert.Equal(t, display.Config{Mode: display.DdrOnly, ShowIcons: false}, Load(&store))

	assert.Error(t, store.Set(KeyShowMode, "none"))
	sub.AssertNoUpdate("invalid values are rejected")
	assert.Equal(t, map[string]string{KeyShowMode: "ddr", KeyShowIcons: "false"}, store.All())
}

func TestMemoryReplace(t *testing.T) {
	store := NewMemory(map[string]string{KeyShowMode: "soc"})
	sub := notifier.Subscribe(t, store.Subscribe)

	assert.False(t, store.Replace(map[string]string{KeyShowMode: "soc"}))
	sub.AssertNoUpdate("replace without changes")

	assert.True(t, store.Replace(map[string]string{KeyShowIcons: "false"}))
	sub.AssertNotified("replace with changes")
	_, ok := store.Get(KeyShowMode)
	assert.False(t, ok, "replace drops missing keys")
}

func TestMemoryDoesNotAliasInput(t *testing.T) {
	initial := map[string]string{KeyShowMode: "soc"}
	store := NewMemory(initial)
	initial[KeyShowMode] = "ddr"
	v, _ := store.Get(KeyShowMode)
	assert.Equal(t, "soc", v)

	all := store.All()
	all[KeyShowMode] = "both"
	v, _ = store.Get(KeyShowMode)
	assert.Equal(t, "soc", v)
}

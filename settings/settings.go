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

// Package settings provides the key-value store that holds the user's
// display settings, with change notifications.
//
// Notifications do not say which key changed; subscribers are expected to
// re-read everything they care about, typically through Load.
package settings // import "github.com/soumya92/thermalbar/settings"

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/soumya92/thermalbar/display"
	l "github.com/soumya92/thermalbar/logging"
)

const (
	// KeyShowMode holds the display mode: "soc", "ddr" or "both".
	KeyShowMode = "show-mode"
	// KeyShowIcons holds whether icons are shown: "true" or "false".
	KeyShowIcons = "show-icons"
)

var (
	// ErrUnknownKey is returned when setting a key that is not a known setting.
	ErrUnknownKey = errors.New("unknown settings key")
	// ErrInvalidValue is returned when setting a value that cannot be parsed.
	ErrInvalidValue = errors.New("invalid settings value")
)

// Store is a key-value store of settings.
type Store interface {
	// Get returns the stored value of key, and false if it is not set.
	Get(key string) (string, bool)
	// Set stores a value and notifies subscribers if it changed.
	Set(key, value string) error
	// Subscribe returns a channel that is notified whenever any setting
	// changes, until done is called.
	Subscribe() (sub <-chan struct{}, done func())
}

// Validate checks that value is acceptable for key.
func Validate(key, value string) error {
	switch key {
	case KeyShowMode:
		if _, ok := display.ParseMode(value); !ok {
			return fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, value)
		}
	case KeyShowIcons:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, value)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return nil
}

// Load reads a full display configuration from the store. Missing or
// malformed values use display.DefaultConfig.
func Load(s Store) display.Config {
	cfg := display.DefaultConfig
	if v, ok := s.Get(KeyShowMode); ok {
		mode, valid := display.ParseMode(v)
		if !valid {
			l.Log("ignoring %s=%q, using %s", KeyShowMode, v, mode)
		}
		cfg.Mode = mode
	}
	if v, ok := s.Get(KeyShowIcons); ok {
		if show, err := strconv.ParseBool(v); err == nil {
			cfg.ShowIcons = show
		} else {
			l.Log("ignoring %s=%q: %v", KeyShowIcons, v, err)
		}
	}
	return cfg
}

// SetMode stores the display mode.
func SetMode(s Store, mode display.Mode) error {
	return s.Set(KeyShowMode, mode.String())
}

// SetShowIcons stores whether icons are shown.
func SetShowIcons(s Store, show bool) error {
	return s.Set(KeyShowIcons, strconv.FormatBool(show))
}

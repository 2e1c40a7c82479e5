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
	"sync"

	"github.com/soumya92/thermalbar/base/value"
	l "github.com/soumya92/thermalbar/logging"
)

// Memory is an in-memory Store. The zero value is an empty store.
type Memory struct {
	mu     sync.Mutex
	values value.Value // of map[string]string, replaced on every change.
}

var _ Store = (*Memory)(nil)

// NewMemory creates an in-memory store with the given initial values, which
// are not validated.
func NewMemory(initial map[string]string) *Memory {
	m := &Memory{}
	m.values.Set(copyMap(initial))
	return m
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (m *Memory) snapshot() map[string]string {
	if values, ok := m.values.Get().(map[string]string); ok {
		return values
	}
	return nil
}

// Get implements Store.
func (m *Memory) Get(key string) (string, bool) {
	v, ok := m.snapshot()[key]
	return v, ok
}

// Set implements Store.
func (m *Memory) Set(key, value string) error {
	if err := Validate(key, value); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.snapshot()
	if prev, ok := current[key]; ok && prev == value {
		return nil
	}
	next := copyMap(current)
	next[key] = value
	l.Fine("%s: %s=%q", l.ID(m), key, value)
	m.values.Set(next)
	return nil
}

// Replace swaps all stored values at once, notifying subscribers only if
// something changed.
func (m *Memory) Replace(values map[string]string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if equalMaps(m.snapshot(), values) {
		return false
	}
	m.values.Set(copyMap(values))
	return true
}

// All returns a copy of all stored values.
func (m *Memory) All() map[string]string {
	return copyMap(m.snapshot())
}

func equalMaps(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

// Subscribe implements Store.
func (m *Memory) Subscribe() (<-chan struct{}, func()) {
	return m.values.Subscribe()
}

// Copyright 2018, 2024 Google Inc.
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

// Package value provides atomic values with update notifications.
package value // import "github.com/soumya92/thermalbar/base/value"

import (
	"sync/atomic"

	"github.com/soumya92/thermalbar/base/notifier"
	l "github.com/soumya92/thermalbar/logging"
)

// box wraps the stored value so that atomic.Value sees a single concrete
// type, allowing values of different types (and nil) to be stored.
type box struct {
	value interface{}
}

// Value provides atomic value storage with update notifications.
type Value struct {
	value  atomic.Value
	source notifier.Source
}

// Next returns a channel that will be closed on the next update.
// Useful in a select, or as <-Next() to wait for value changes.
func (v *Value) Next() <-chan struct{} {
	return v.source.Next()
}

// Subscribe returns a channel that will receive an empty struct{} on each
// value change until it's cleaned up using the done func.
func (v *Value) Subscribe() (sub <-chan struct{}, done func()) {
	return v.source.Subscribe()
}

// Get returns the currently stored value, or nil if nothing was ever stored.
func (v *Value) Get() interface{} {
	if b, ok := v.value.Load().(box); ok {
		return b.value
	}
	return nil
}

// Set updates the stored value and notifies any subscribers.
func (v *Value) Set(value interface{}) {
	v.value.Store(box{value})
	l.Fine("%s: Store %#v", l.ID(v), value)
	v.source.Notify()
}

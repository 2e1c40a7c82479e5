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

// Package notifier wraps subscriptions to published state, such as
// value.Value, settings.Store or controller.Controller, and scheduler
// channels, for assertions about the signals they receive.
package notifier // import "github.com/soumya92/thermalbar/testing/notifier"

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// A signal is expected well within waitFor; silence is checked for quietFor.
var (
	waitFor  = time.Second
	quietFor = 10 * time.Millisecond
)

// Subscription receives signals on behalf of a test.
type Subscription struct {
	t    *testing.T
	ch   <-chan struct{}
	done func()
}

// Subscribe starts a subscription using subscribe, typically a Subscribe
// method value, e.g. notifier.Subscribe(t, store.Subscribe). The
// subscription is released when the test finishes, or on Done.
func Subscribe(t *testing.T, subscribe func() (<-chan struct{}, func())) *Subscription {
	ch, done := subscribe()
	t.Cleanup(done)
	return &Subscription{t: t, ch: ch, done: done}
}

// Channel wraps a bare signal channel, such as timing.Scheduler.C or
// value.Value.Next().
func Channel(t *testing.T, ch <-chan struct{}) *Subscription {
	return &Subscription{t: t, ch: ch, done: func() {}}
}

// Done releases the subscription early.
func (s *Subscription) Done() {
	s.done()
}

// AssertNotified requires a signal to arrive.
func (s *Subscription) AssertNotified(msgAndArgs ...interface{}) {
	s.t.Helper()
	select {
	case _, ok := <-s.ch:
		if !ok {
			require.Fail(s.t, "Expected signal but channel was closed", msgAndArgs...)
		}
	case <-time.After(waitFor):
		require.Fail(s.t, "Expected signal not received", msgAndArgs...)
	}
}

// AssertClosed requires the channel to be closed, as Next() channels are.
func (s *Subscription) AssertClosed(msgAndArgs ...interface{}) {
	s.t.Helper()
	select {
	case _, ok := <-s.ch:
		if ok {
			require.Fail(s.t, "Expected channel close, received signal", msgAndArgs...)
		}
	case <-time.After(waitFor):
		require.Fail(s.t, "Channel not closed when expected", msgAndArgs...)
	}
}

// AssertNoUpdate requires the channel to stay silent for a short while.
func (s *Subscription) AssertNoUpdate(msgAndArgs ...interface{}) {
	s.t.Helper()
	select {
	case <-s.ch:
		require.Fail(s.t, "Unexpected signal", msgAndArgs...)
	case <-time.After(quietFor):
	}
}

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

/*
Package timing provides a testable interface for timing and scheduling.

The controller makes a scheduler per session:
    sch := timing.NewScheduler().Every(2 * time.Second)
and its worker loops over the notification channel:
    for range sch.C {
	  // sample sensors.
    }

Code should use timing.Now() instead of time.Now() so that tests can
control time through TestMode, NextTick and AdvanceBy.
*/
package timing // import "github.com/soumya92/thermalbar/timing"

import (
	"errors"
	"time"

	"github.com/soumya92/thermalbar/base/notifier"
	l "github.com/soumya92/thermalbar/logging"
)

// schedulerImpl is the strategy behind a Scheduler. Implementations call f
// whenever the scheduler fires, and must not call f after Stop returns.
type schedulerImpl interface {
	Every(time.Duration, func())
	Stop()
	Close()
}

// Scheduler is a repeating trigger owned by a single sampling session.
// Notifications are coalesced, so a slow consumer sees at most one pending
// tick.
type Scheduler struct {
	// C receives an empty struct{} whenever the scheduler fires.
	C <-chan struct{}

	impl     schedulerImpl
	notifyFn func()
}

func newScheduler(impl schedulerImpl) *Scheduler {
	fn, ch := notifier.New()
	s := &Scheduler{C: ch, impl: impl, notifyFn: fn}
	l.Fine("%s: new scheduler", l.ID(s))
	return s
}

// Every sets the scheduler to fire at an interval, replacing any previous
// interval. Panics on a non-positive interval.
func (s *Scheduler) Every(interval time.Duration) *Scheduler {
	if interval <= 0 {
		panic(errors.New("timing: non-positive interval for Scheduler#Every"))
	}
	s.impl.Every(interval, s.notifyFn)
	return s
}

// Stop cancels all further triggers for the scheduler. Safe to call
// repeatedly.
func (s *Scheduler) Stop() {
	s.impl.Stop()
}

// Close stops the scheduler and releases any resources held by it. The
// scheduler cannot be used after Close.
func (s *Scheduler) Close() {
	s.impl.Close()
	l.Forget(s.impl)
	l.Forget(s)
}

// Now returns the current time. Used to control time in tests.
func Now() time.Time {
	mu.Lock()
	defer mu.Unlock()
	if testMode {
		return testNow()
	}
	return time.Now()
}

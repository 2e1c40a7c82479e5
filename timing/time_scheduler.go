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

package timing

import (
	"sync"
	"time"
)

var _ schedulerImpl = &timeScheduler{}

// timeScheduler implements schedulerImpl using a ticker.
type timeScheduler struct {
	mu      sync.Mutex
	ticker  *time.Ticker
	quitter chan struct{}
}

// NewScheduler creates a new scheduler.
//
// The scheduler is backed by package time (i.e. monotonic clock), unless
// test mode is active.
func NewScheduler() *Scheduler {
	if testModeScheduler := maybeNewTestModeScheduler(); testModeScheduler != nil {
		return newScheduler(testModeScheduler)
	}
	return newScheduler(&timeScheduler{})
}

// Every implements the schedulerImpl interface.
func (s *timeScheduler) Every(interval time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop()
	quitter := make(chan struct{})
	ticker := time.NewTicker(interval)
	s.quitter = quitter
	s.ticker = ticker
	go func() {
		for {
			select {
			case <-ticker.C:
				f()
			case <-quitter:
				return
			}
		}
	}()
}

// Stop implements the schedulerImpl interface.
func (s *timeScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop()
}

// Close implements the schedulerImpl interface.
func (s *timeScheduler) Close() {
	s.Stop()
}

func (s *timeScheduler) stop() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.quitter != nil {
		close(s.quitter)
		s.quitter = nil
	}
}

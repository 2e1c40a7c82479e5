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
Package notifier provides a channel that can send update notifications.
Specifically, a notifier automatically coalesces multiple notifications
such that if a previous notification is already pending, a new notification
will not be created. This is useful for settings changes and sensor ticks,
where if multiple updates come in before the first one is processed, only
the latest state matters.
*/
package notifier // import "github.com/soumya92/thermalbar/base/notifier"

import (
	"sync"
)

// New constructs a new notifier. It returns a func that triggers a
// notification, and a <-chan that consumes these notifications.
func New() (func(), <-chan struct{}) {
	ch := make(chan struct{}, 1)
	return func() { notify(ch) }, ch
}

func notify(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Source can be used to notify multiple listeners of a signal. It provides both
// one-shot listening via Next and repeated subscriptions via Subscribe.
type Source struct {
	mu   sync.Mutex
	obs  []chan struct{}
	subs map[*int]func()
}

// Next returns a channel that will be closed on the next signal.
func (s *Source) Next() <-chan struct{} {
	ch := make(chan struct{})
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obs = append(s.obs, ch)
	return ch
}

// Subscribe returns a channel that will receive an empty struct{} on each
// signal, coalescing signals that arrive before the previous one is consumed.
// The done func releases the subscription, and is safe to call more than once.
func (s *Source) Subscribe() (sub <-chan struct{}, done func()) {
	fn, ch := New()
	key := new(int)
	s.mu.Lock()
	if s.subs == nil {
		s.subs = map[*int]func(){}
	}
	s.subs[key] = fn
	s.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, key)
		})
	}
}

// Notify sends a signal to all listeners.
func (s *Source) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.obs {
		close(o)
	}
	s.obs = nil
	for _, fn := range s.subs {
		fn()
	}
}

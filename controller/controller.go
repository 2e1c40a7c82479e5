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

// Package controller runs the sampling and display state machinery: it owns
// the sampling schedule and the settings subscription, and publishes a fresh
// display.State whenever readings or settings change.
//
// A controller is either stopped or running. While running, one worker
// goroutine owns the sensors, and handles scheduler ticks and settings
// changes one at a time, so sensor state is never mutated concurrently.
package controller // import "github.com/soumya92/thermalbar/controller"

import (
	"fmt"
	"sync"
	"time"

	"github.com/soumya92/thermalbar/base/value"
	"github.com/soumya92/thermalbar/display"
	l "github.com/soumya92/thermalbar/logging"
	"github.com/soumya92/thermalbar/settings"
	"github.com/soumya92/thermalbar/thermal"
	"github.com/soumya92/thermalbar/timing"
)

// Controller samples sensors and keeps the display state in sync with the
// settings store.
type Controller struct {
	store        settings.Store
	specs        []thermal.Spec
	baseDir      string
	interval     time.Duration
	newScheduler func() (*timing.Scheduler, error)

	mu      sync.Mutex
	session *session // nil while stopped.

	state   value.Value // of display.State
	sensors value.Value // of []thermal.Sensor
}

// session holds everything created by Start and released by Stop.
type session struct {
	sampler     *thermal.Sampler
	config      display.Config
	scheduler   *timing.Scheduler
	settingsCh  <-chan struct{}
	unsubscribe func()
	quit        chan struct{}
	done        chan struct{}
}

// Option configures a controller.
type Option func(*Controller)

// WithSpecs sets the sensors to sample, instead of thermal.DefaultSpecs.
func WithSpecs(specs ...thermal.Spec) Option {
	return func(c *Controller) { c.specs = specs }
}

// WithBaseDir sets the directory scanned for thermal zones.
func WithBaseDir(baseDir string) Option {
	return func(c *Controller) { c.baseDir = baseDir }
}

// WithInterval sets the sampling interval.
func WithInterval(interval time.Duration) Option {
	return func(c *Controller) { c.interval = interval }
}

// WithRealtimeScheduler samples on a scheduler backed by the real-time
// clock, which resamples immediately after a suspend or clock change.
func WithRealtimeScheduler() Option {
	return func(c *Controller) { c.newScheduler = timing.NewRealtimeScheduler }
}

// New creates a stopped controller reading settings from store.
func New(store settings.Store, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		specs:    thermal.DefaultSpecs,
		baseDir:  thermal.DefaultBaseDir,
		interval: thermal.DefaultInterval,
		newScheduler: func() (*timing.Scheduler, error) {
			return timing.NewScheduler(), nil
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state.Set(display.State{})
	c.sensors.Set([]thermal.Sensor(nil))
	return c
}

// Start resolves the sensors, samples them once and publishes the initial
// display state before returning, then keeps sampling every interval and
// follows settings changes until Stop. Calling Start while running does
// nothing. Sensors are resolved afresh on every Start.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return nil
	}
	sch, err := c.newScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	s := &session{
		sampler:   thermal.NewSampler(thermal.ResolveAll(c.specs, c.baseDir)),
		scheduler: sch,
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	s.sampler.Tick()
	// Subscribe before the first read of the settings, so that a change in
	// between is not lost.
	s.settingsCh, s.unsubscribe = c.store.Subscribe()
	s.config = settings.Load(c.store)
	c.publish(s)

	sch.Every(c.interval)
	c.session = s
	go c.run(s)
	l.Log("started: %d sensors every %v", len(c.specs), c.interval)
	return nil
}

// Stop stops sampling and unsubscribes from settings changes. No ticks or
// settings changes are processed after Stop returns. Calling Stop while
// stopped does nothing. The last published state remains available.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.session
	if s == nil {
		return
	}
	c.session = nil
	close(s.quit)
	<-s.done
	s.scheduler.Close()
	s.unsubscribe()
	l.Log("stopped")
}

// Running returns true between Start and Stop.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

func (c *Controller) run(s *session) {
	defer close(s.done)
	for {
		// Prefer quitting over pending work.
		select {
		case <-s.quit:
			return
		default:
		}
		select {
		case <-s.quit:
			return
		case <-s.scheduler.C:
			s.sampler.Tick()
			l.Fine("%s: tick", l.ID(c))
		case <-s.settingsCh:
			s.config = settings.Load(c.store)
			l.Fine("%s: settings changed: %+v", l.ID(c), s.config)
		}
		c.publish(s)
	}
}

// publish is the single path by which the display state is updated, whether
// triggered by startup, a tick, or a settings change.
func (c *Controller) publish(s *session) {
	sensors := s.sampler.Sensors()
	c.sensors.Set(sensors)
	c.state.Set(display.Reconcile(sensors, s.config))
}

// State returns the latest display state.
func (c *Controller) State() display.State {
	state, _ := c.state.Get().(display.State)
	return state
}

// Sensors returns a copy of the latest sensor readings.
func (c *Controller) Sensors() []thermal.Sensor {
	sensors, _ := c.sensors.Get().([]thermal.Sensor)
	return append([]thermal.Sensor(nil), sensors...)
}

// Subscribe returns a channel that is notified whenever a new display state
// is published, until done is called.
func (c *Controller) Subscribe() (sub <-chan struct{}, done func()) {
	return c.state.Subscribe()
}

// SelectMode stores a new display mode. The display state is updated once
// the store notifies the change.
func (c *Controller) SelectMode(mode display.Mode) error {
	return settings.SetMode(c.store, mode)
}

// CycleMode stores the display mode after the current one.
func (c *Controller) CycleMode() error {
	return c.SelectMode(settings.Load(c.store).Mode.Next())
}

// ToggleIcons flips whether icons are shown.
func (c *Controller) ToggleIcons() error {
	return settings.SetShowIcons(c.store, !settings.Load(c.store).ShowIcons)
}

// Copyright 2017, 2024 Google Inc.
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


// Package panel renders the display state as an i3bar status line, and turns
// clicks on it into settings changes.
//
// The status line is written using the i3bar protocol, with one block per
// visible sensor. Left clicking a block cycles the display mode, right
// clicking toggles icons. While the bar is hidden (SIGUSR1 until SIGUSR2),
// sampling is stopped.
package panel // import "github.com/soumya92/thermalbar/panel"

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/martinlindhe/unit"
	"golang.org/x/sys/unix"

	"github.com/soumya92/thermalbar/display"
	l "github.com/soumya92/thermalbar/logging"
)

// Controller is the subset of controller.Controller used by the panel.
type Controller interface {
	Start() error
	Stop()
	State() display.State
	Subscribe() (sub <-chan struct{}, done func())
	CycleMode() error
	ToggleIcons() error
}

// Mouse buttons, as reported by i3bar.
const (
	ButtonLeft   = 1
	ButtonMiddle = 2
	ButtonRight  = 3
)

// i3Event instances are received from i3bar on stdin.
type i3Event struct {
	Name   string `json:"name"`
	Button int    `json:"button"`
}

// i3Header is sent at the beginning of output.
type i3Header struct {
	Version     int  `json:"version"`
	StopSignal  int  `json:"stop_signal,omitempty"`
	ContSignal  int  `json:"cont_signal,omitempty"`
	ClickEvents bool `json:"click_events"`
}

// Icons maps sensor IDs to the icon shown before their reading, as Font
// Awesome code points.
var Icons = map[string]string{
	"soc": "\uf2db", // microchip
	"ddr": "\uf538", // memory
}

// defaultIcon is used for sensors without an entry in Icons.
const defaultIcon = "\uf2c9" // thermometer

// Gradient colours readings from Cool at or below CoolAt, to Hot at or above
// HotAt, blending in HCL space in between.
type Gradient struct {
	CoolAt, HotAt unit.Temperature
	Cool, Hot     colorful.Color
}

// DefaultGradient goes from green at 40°C to red at 85°C.
var DefaultGradient = Gradient{
	CoolAt: unit.FromCelsius(40),
	HotAt:  unit.FromCelsius(85),
	Cool:   colorful.Hcl(120, 0.8, 0.7).Clamped(),
	Hot:    colorful.Hcl(40, 0.8, 0.7).Clamped(),
}

// Color returns the colour for a temperature.
func (g Gradient) Color(t unit.Temperature) colorful.Color {
	span := g.HotAt.Celsius() - g.CoolAt.Celsius()
	if span <= 0 {
		if t.Celsius() < g.HotAt.Celsius() {
			return g.Cool
		}
		return g.Hot
	}
	frac := (t.Celsius() - g.CoolAt.Celsius()) / span
	switch {
	case frac <= 0:
		return g.Cool
	case frac >= 1:
		return g.Hot
	}
	return g.Cool.BlendHcl(g.Hot, frac).Clamped()
}

// Panel streams display states to i3bar.
type Panel struct {
	ctrl     Controller
	reader   io.Reader
	writer   io.Writer
	encoder  *json.Encoder
	gradient Gradient
	// The channel that aggregates all events from i3.
	events chan i3Event
	// Receives SIGUSR1/SIGUSR2, nil if signals are suppressed.
	signals         chan os.Signal
	suppressSignals bool
	paused          bool
	// Closed when the event reader exits.
	readerDone chan struct{}
}

// Option configures a panel.
type Option func(*Panel)

// WithStreams reads click events from r and writes the status line to w,
// instead of stdin and stdout.
func WithStreams(r io.Reader, w io.Writer) Option {
	return func(p *Panel) {
		p.reader = r
		p.writer = w
	}
}

// WithGradient sets the colours used for readings.
func WithGradient(g Gradient) Option {
	return func(p *Panel) { p.gradient = g }
}

// SuppressSignals skips the pause/resume signal handling.
func SuppressSignals() Option {
	return func(p *Panel) { p.suppressSignals = true }
}

// New creates a panel for the given controller.
func New(ctrl Controller, opts ...Option) *Panel {
	p := &Panel{
		ctrl:       ctrl,
		reader:     os.Stdin,
		writer:     os.Stdout,
		gradient:   DefaultGradient,
		events:     make(chan i3Event),
		readerDone: make(chan struct{}),
		// panel starts paused, and is resumed on Run().
		paused: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run starts the controller, writes the status line on every state change,
// and handles events until stdin is exhausted or output fails. The
// controller is stopped when Run returns.
func (p *Panel) Run() error {
	if p.signals == nil && !p.suppressSignals {
		p.signals = make(chan os.Signal, 2)
		signal.Notify(p.signals, unix.SIGUSR1, unix.SIGUSR2)
		defer signal.Stop(p.signals)
	}
	defer p.pause()

	header := i3Header{Version: 1, ClickEvents: true}
	if !p.suppressSignals {
		// Go doesn't allow us to handle the default SIGSTOP,
		// so we'll use SIGUSR1 and SIGUSR2 for pause/resume.
		header.StopSignal = int(unix.SIGUSR1)
		header.ContSignal = int(unix.SIGUSR2)
	}
	p.encoder = json.NewEncoder(p.writer)
	if err := p.encoder.Encode(&header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	// Start the infinite array.
	if _, err := io.WriteString(p.writer, "["); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	// Lets the reader drop events that arrive after Run has returned.
	quit := make(chan struct{})
	defer close(quit)
	errChan := make(chan error, 1)
	go func() {
		defer close(p.readerDone)
		errChan <- p.readEvents(quit)
	}()

	update, done := p.ctrl.Subscribe()
	defer done()
	// Starting the controller publishes the initial state.
	if err := p.resume(); err != nil {
		return err
	}

	for {
		select {
		case <-update:
			if err := p.print(); err != nil {
				return err
			}
		case event := <-p.events:
			p.click(event)
		case sig := <-p.signals:
			switch sig {
			case unix.SIGUSR1:
				p.pause()
			case unix.SIGUSR2:
				if err := p.resume(); err != nil {
					l.Log("resume failed: %v", err)
				}
			}
		case err := <-errChan:
			return err
		}
	}
}

// i3map serialises a slot in the format used by i3bar.
func (p *Panel) i3map(slot display.Slot) map[string]interface{} {
	i3map := map[string]interface{}{
		"name":       slot.ID,
		"short_text": slot.Text,
		"markup":     "none",
	}
	txt := slot.Text
	if slot.IconVisible {
		icon, ok := Icons[slot.ID]
		if !ok {
			icon = defaultIcon
		}
		txt = icon + " " + txt
	}
	i3map["full_text"] = txt
	if slot.OK {
		i3map["color"] = p.gradient.Color(unit.FromCelsius(slot.Celsius)).Hex()
	}
	return i3map
}

// print outputs the current state of all visible slots.
func (p *Panel) print() error {
	output := make([]map[string]interface{}, 0)
	for _, slot := range p.ctrl.State().Slots {
		if slot.Visible {
			output = append(output, p.i3map(slot))
		}
	}
	if err := p.encoder.Encode(output); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	if _, err := io.WriteString(p.writer, ",\n"); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	return nil
}

// click translates a click on any block into a settings change.
func (p *Panel) click(event i3Event) {
	l.Fine("Clicked on '%s' with button %d", event.Name, event.Button)
	var err error
	switch event.Button {
	case ButtonLeft:
		err = p.ctrl.CycleMode()
	case ButtonRight:
		err = p.ctrl.ToggleIcons()
	default:
		return
	}
	if err != nil {
		l.Log("click on '%s': %v", event.Name, err)
	}
}

// readEvents parses the infinite stream of events received from i3,
// until quit is closed.
func (p *Panel) readEvents(quit <-chan struct{}) error {
	decoder := json.NewDecoder(p.reader)
	// Consume opening '['
	if _, err := decoder.Token(); err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	for decoder.More() {
		var event i3Event
		if err := decoder.Decode(&event); err != nil {
			return fmt.Errorf("read events: %w", err)
		}
		select {
		case p.events <- event:
		case <-quit:
			return nil
		}
	}
	return errors.New("stdin exhausted")
}

// pause stops sampling while the bar is hidden.
func (p *Panel) pause() {
	if p.paused {
		return
	}
	l.Log("Panel paused")
	p.paused = true
	p.ctrl.Stop()
}

// resume restarts sampling. The controller publishes a fresh state on start.
func (p *Panel) resume() error {
	if !p.paused {
		return nil
	}
	l.Log("Panel resumed")
	if err := p.ctrl.Start(); err != nil {
		return fmt.Errorf("start sampling: %w", err)
	}
	p.paused = false
	return nil
}

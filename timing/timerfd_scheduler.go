// Copyright 2020, 2024 Google Inc.
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

//go:build linux
// +build linux

package timing

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	l "github.com/soumya92/thermalbar/logging"
)

// errClockChanged is returned by wait when CLOCK_REALTIME was set, e.g. on
// resume from suspend. See man timerfd_settime, TFD_TIMER_CANCEL_ON_SET.
var errClockChanged = errors.New("realtime clock changed discontinuously")

// realtimeTimer is a timerfd on CLOCK_REALTIME.
type realtimeTimer struct {
	f *os.File
}

func newRealtimeTimer() (*realtimeTimer, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_REALTIME, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("timerfd_create: %w", err)
	}
	return &realtimeTimer{os.NewFile(uintptr(fd), "timerfd")}, nil
}

// settime arms the timer with spec, or disarms it if spec is zero.
func (t *realtimeTimer) settime(spec *unix.ItimerSpec, flags int) error {
	conn, err := t.f.SyscallConn()
	if err != nil {
		return err
	}
	var setErr error
	err = conn.Control(func(fd uintptr) {
		setErr = unix.TimerfdSettime(int(fd), flags, spec, nil)
	})
	if err != nil {
		return err
	}
	return setErr
}

// wait blocks until the timer expires. The expiration count is discarded:
// missed ticks are coalesced by the scheduler anyway.
func (t *realtimeTimer) wait() error {
	var buf [8]byte
	_, err := t.f.Read(buf[:])
	if errors.Is(err, unix.ECANCELED) {
		return errClockChanged
	}
	return err
}

var _ schedulerImpl = &timerfdScheduler{}

// timerfdScheduler fires at aligned wall-clock times, following changes to
// the real-time clock.
type timerfdScheduler struct {
	mu       sync.Mutex
	timer    *realtimeTimer
	interval time.Duration
	offset   time.Duration
	f        func()
}

// NewRealtimeScheduler creates a scheduler backed by system real-time clock.
//
// It properly handles system suspend and time adjustments: a periodic
// scheduler fires immediately whenever time changes discontinuously, so
// sensors are resampled right after resume instead of up to one interval
// later.
//
// This scheduler is only supported on Linux. On other systems, the plain
// scheduler based on package time is returned. Call Close() to release the
// underlying file descriptor.
func NewRealtimeScheduler() (*Scheduler, error) {
	if testModeScheduler := maybeNewTestModeScheduler(); testModeScheduler != nil {
		return newScheduler(testModeScheduler), nil
	}
	timer, err := newRealtimeTimer()
	if err != nil {
		return nil, err
	}
	impl := &timerfdScheduler{timer: timer}
	go impl.loop()
	return newScheduler(impl), nil
}

// Every implements the schedulerImpl interface.
func (s *timerfdScheduler) Every(interval time.Duration, f func()) {
	now := Now()
	offset := now.Sub(now.Truncate(interval))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = interval
	s.offset = offset
	s.f = f
	s.rearmLocked()
}

// Stop implements the schedulerImpl interface.
func (s *timerfdScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = 0
	s.f = nil
	if err := s.timer.settime(&unix.ItimerSpec{}, 0); err != nil {
		l.Log("%s: disarm: %v", l.ID(s), err)
	}
}

// Close implements the schedulerImpl interface.
func (s *timerfdScheduler) Close() {
	s.Stop()
	s.timer.f.Close()
}

// rearmLocked arms the timer for the next aligned expiration. It panics on
// errors, which can only come from invalid arguments (see man timerfd).
func (s *timerfdScheduler) rearmLocked() {
	if s.interval == 0 {
		return
	}
	var current unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_REALTIME, &current); err != nil {
		panic("timerfd rearm: " + err.Error())
	}
	initial := nextAlignedExpiration(time.Unix(current.Unix()), s.interval, s.offset)
	initialSpec, err := unix.TimeToTimespec(initial)
	if err != nil {
		panic("timerfd rearm: " + err.Error())
	}
	err = s.timer.settime(&unix.ItimerSpec{
		Interval: unix.NsecToTimespec(s.interval.Nanoseconds()),
		Value:    initialSpec,
	}, unix.TFD_TIMER_ABSTIME|unix.TFD_TIMER_CANCEL_ON_SET)
	if err != nil {
		panic("timerfd rearm: " + err.Error())
	}
}

func (s *timerfdScheduler) loop() {
	// s.f is called without holding the mutex, so that it can call back
	// into the scheduler without deadlocking.
	for {
		err := s.timer.wait()
		s.mu.Lock()
		switch {
		case err == nil:
		case errors.Is(err, errClockChanged):
			l.Fine("%s: discontinuous time change detected", l.ID(s))
			s.rearmLocked()
		case errors.Is(err, os.ErrClosed):
			s.mu.Unlock()
			return
		default:
			s.mu.Unlock()
			l.Log("%s: timerfd read: %v", l.ID(s), err)
			return
		}
		f := s.f
		s.mu.Unlock()
		if f != nil {
			f()
		}
	}
}

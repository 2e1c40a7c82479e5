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

// Package mockio provides an infinite output stream that can be used in
// place of stdout when testing the panel protocol.
package mockio // import "github.com/soumya92/thermalbar/testing/mockio"

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// Writable is an infinite stream that satisfies io.Writer,
// and adds methods to get portions of the output written to it.
type Writable struct {
	buffer bytes.Buffer
	// Signals any time new output is available.
	signal chan struct{}
	mutex  sync.Mutex
	// If set, the next write returns this error instead of writing.
	nextError error
}

var _ io.Writer = (*Writable)(nil)

// Write satisfies the io.Writer interface.
func (w *Writable) Write(out []byte) (n int, e error) {
	w.mutex.Lock()
	if w.nextError != nil {
		e = w.nextError
		w.nextError = nil
		w.mutex.Unlock()
		return
	}
	n, e = w.buffer.Write(out)
	w.mutex.Unlock()
	select {
	case w.signal <- struct{}{}:
	default:
	}
	return
}

// ReadNow clears the buffer and returns its previous contents.
func (w *Writable) ReadNow() string {
	w.mutex.Lock()
	val := w.buffer.String()
	w.buffer = bytes.Buffer{}
	w.mutex.Unlock()
	nonBlockingConsume(w.signal)
	return val
}

// ReadUntil reads up to the first occurrence of the given character,
// or until the timeout expires, whichever comes first.
func (w *Writable) ReadUntil(delim byte, timeout time.Duration) (string, error) {
	w.mutex.Lock()
	val, err := w.buffer.ReadString(delim)
	w.mutex.Unlock()
	if err == nil {
		nonBlockingConsume(w.signal)
		return val, nil
	}
	timeoutChan := time.After(timeout)
	// EOF means we ran out of bytes, so we need to wait until more are written.
	for err == io.EOF {
		select {
		case <-timeoutChan:
			return val, err
		case <-w.signal:
			var v string
			w.mutex.Lock()
			v, err = w.buffer.ReadString(delim)
			w.mutex.Unlock()
			val += v
		}
	}
	return val, err
}

// ShouldError sets the stream to return an error on the next write.
func (w *Writable) ShouldError(e error) {
	w.mutex.Lock()
	w.nextError = e
	w.mutex.Unlock()
}

// Stdout returns a Writable that can be used for making assertions
// against what was written to stdout.
func Stdout() *Writable {
	return &Writable{signal: make(chan struct{}, 1)}
}

func nonBlockingConsume(ch <-chan struct{}) {
	select {
	case <-ch:
	default:
	}
}

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

// Package thermal reads temperatures from the sysfs thermal class.
//
// Each logical sensor (e.g. "soc" or "ddr") is resolved once per session to a
// concrete thermal zone by matching the zone's declared type, and is then
// sampled periodically. Any failure along the way degrades to "no reading"
// rather than an error: a missing sensor is displayed as a placeholder.
package thermal // import "github.com/soumya92/thermalbar/thermal"

import (
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/spf13/afero"

	l "github.com/soumya92/thermalbar/logging"
)

var fs = afero.NewOsFs()

// SetFs replaces the filesystem used to read sensors, and returns a func
// that restores the previous one. Used by tests of dependent packages.
func SetFs(newFs afero.Fs) (restore func()) {
	prev := fs
	fs = newFs
	return func() { fs = prev }
}

// maxFileSize bounds a single read. Sensor files hold a short line of text,
// anything longer is not a sensor file.
const maxFileSize = 4096

// readTimeout bounds how long a tick can stall on a misbehaving driver.
var readTimeout = 500 * time.Millisecond

type readResult struct {
	text string
	ok   bool
}

// pending holds the paths of reads that timed out but have not returned yet.
// A hung driver then costs one stuck goroutine per file, not one per tick.
var pending sync.Map // of string to struct{}

// ReadText returns the whitespace-trimmed contents of the file at path.
// It returns false if the file is missing, unreadable, larger than
// maxFileSize, not valid UTF-8, takes longer than readTimeout to read, or
// if an earlier read of the same file is still stuck.
func ReadText(path string) (string, bool) {
	if _, stuck := pending.LoadOrStore(path, struct{}{}); stuck {
		l.Fine("read of %s still pending, skipping", path)
		return "", false
	}
	readFs := fs
	ch := make(chan readResult, 1)
	go func() {
		text, ok := readBounded(readFs, path)
		pending.Delete(path)
		ch <- readResult{text, ok}
	}()
	timeout := time.NewTimer(readTimeout)
	defer timeout.Stop()
	select {
	case r := <-ch:
		return r.text, r.ok
	case <-timeout.C:
		l.Log("read of %s timed out after %v", path, readTimeout)
		return "", false
	}
}

func readBounded(readFs afero.Fs, path string) (string, bool) {
	f, err := readFs.Open(path)
	if err != nil {
		l.Fine("open %s: %v", path, err)
		return "", false
	}
	defer f.Close()
	b, err := io.ReadAll(io.LimitReader(f, maxFileSize+1))
	if err != nil {
		l.Fine("read %s: %v", path, err)
		return "", false
	}
	if len(b) > maxFileSize {
		l.Fine("read %s: larger than %d bytes", path, maxFileSize)
		return "", false
	}
	if !utf8.Valid(b) {
		l.Fine("read %s: invalid utf-8", path)
		return "", false
	}
	return strings.TrimSpace(string(b)), true
}

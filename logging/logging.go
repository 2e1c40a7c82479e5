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

// Package logging provides logging functions for use by the sampler, the
// controller and the panel. Messages go to stderr, since stdout carries the
// i3bar protocol.
//
// Log always writes. Fine writes only when fine logging is enabled for the
// calling package, using the commandline flag `--finelog=$pkg1,$pkg2`.
package logging // import "github.com/soumya92/thermalbar/logging"

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
)

const modulePath = "github.com/soumya92/thermalbar"

var (
	logger    = log.New(os.Stderr, "", 0)
	fileFlags int64

	fineLogModules      []string
	fineLogModulesCache sync.Map
)

func init() {
	SetFlags(log.LstdFlags | log.Lshortfile)
	for _, arg := range os.Args {
		for _, prefix := range []string{"--finelog=", "-finelog="} {
			if mods, ok := trimPrefix(arg, prefix); ok {
				fineLogModules = append(fineLogModules, strings.Split(mods, ",")...)
			}
		}
	}
}

func trimPrefix(s, prefix string) (result string, trimmed bool) {
	return strings.TrimPrefix(s, prefix), strings.HasPrefix(s, prefix)
}

// shorten turns a fully qualified function name into a module identifier,
// e.g. github.com/soumya92/thermalbar/thermal.(*Sampler).Tick becomes
// thermal.Sampler.Tick.
func shorten(path string) string {
	path = strings.NewReplacer("*", "", "(", "", ")", "").Replace(path)
	if pkg, ok := trimPrefix(path, modulePath+"/"); ok {
		return pkg
	}
	if main, ok := trimPrefix(path, modulePath+"."); ok {
		return "thermalbar." + main
	}
	return path
}

// EnableFine enables fine logging for modules with any of the given prefixes.
func EnableFine(mods ...string) {
	fineLogModules = append(fineLogModules, mods...)
	fineLogModulesCache.Range(func(k, _ interface{}) bool {
		fineLogModulesCache.Delete(k)
		return true
	})
}

func fineLogEnabled(mod string) bool {
	if cached, ok := fineLogModulesCache.Load(mod); ok {
		return cached.(bool)
	}
	enabled := false
	for _, fineMod := range fineLogModules {
		if strings.HasPrefix(mod, fineMod) {
			enabled = true
			break
		}
	}
	fineLogModulesCache.Store(mod, enabled)
	return enabled
}

func callingModule() (mod string, loc string) {
	pc, file, line, ok := runtime.Caller(2)
	if fFlags := int(atomic.LoadInt64(&fileFlags)); fFlags != 0 {
		if fFlags&log.Lshortfile != 0 {
			file = filepath.Base(file)
		}
		loc = fmt.Sprintf("%s:%d", file, line)
	}
	if !ok {
		return "unknown", loc
	}
	return shorten(runtime.FuncForPC(pc).Name()), loc
}

func doLog(mod, loc string, format string, args ...interface{}) {
	out := fmt.Sprintf(format, args...)
	if loc != "" {
		out = fmt.Sprintf("%s (%s) %s", loc, mod, out)
	}
	logger.Output(3, out)
}

// SetOutput sets the output stream for logging.
func SetOutput(output io.Writer) {
	logger.SetOutput(output)
}

// SetFlags sets flags to control logging output. File flags are handled
// here rather than by log, since the caller is always this package.
func SetFlags(flags int) {
	fFlags := flags & (log.Llongfile | log.Lshortfile)
	atomic.StoreInt64(&fileFlags, int64(fFlags))
	logger.SetFlags(flags &^ fFlags)
}

// Log logs a formatted message.
func Log(format string, args ...interface{}) {
	mod, loc := callingModule()
	doLog(mod, loc, format, args...)
}

// Fine logs a formatted message if fine logging is enabled for the
// calling module.
func Fine(format string, args ...interface{}) {
	mod, loc := callingModule()
	if fineLogEnabled(mod) {
		doLog(mod, loc, format, args...)
	}
}

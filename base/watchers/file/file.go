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

// Package file uses the fsnotify library to watch for changes to files.
package file // import "github.com/soumya92/thermalbar/base/watchers/file"

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/soumya92/thermalbar/base/notifier"
	l "github.com/soumya92/thermalbar/logging"
)

// Watcher watches for changes to a single named file. It notifies the Updates
// chan on any changes to the watched file, while also handling parts of the
// path hierarchy to the file being removed and recreated, as happens when an
// editor or a settings writer replaces the file by renaming over it.
type Watcher struct {
	Updates <-chan struct{}
	Errors  <-chan error

	fswatcher *fsnotify.Watcher
	// Successive parent dirs of the file, closest first. If the watched level
	// is removed, the watch moves up a level; if the level below is created,
	// it moves down.
	hierarchy []string
	filename  string
	notifyFn  func()
	errorCh   chan error
	done      int32 // atomic bool.
	started   chan struct{}
}

// Unsubscribe stops listening for updates and frees any resources used.
// Safe to call more than once.
func (w *Watcher) Unsubscribe() {
	if atomic.CompareAndSwapInt32(&w.done, 0, 1) {
		l.Fine("%s done", l.ID(w))
		if w.fswatcher != nil {
			w.fswatcher.Close()
		}
	}
}

func (w *Watcher) watchLoop() {
	defer l.Forget(w)
	restarted := false
	for {
		l.Fine("%s (re)starting watches", l.ID(w))
		err := w.tryWatch(restarted)
		if atomic.LoadInt32(&w.done) > 0 {
			return
		}
		if err != nil {
			w.Unsubscribe()
			w.errorCh <- err
			return
		}
		restarted = true
	}
}

func (w *Watcher) markStarted() {
	select {
	case w.started <- struct{}{}:
	default:
	}
}

func (w *Watcher) notifyIfExists() {
	if _, err := os.Stat(w.filename); err == nil {
		w.notifyFn()
	}
}

func (w *Watcher) tryWatch(restarted bool) error {
	defer w.markStarted()
	currentLvl := -1
	for lvl, p := range w.hierarchy {
		err := w.fswatcher.Add(p)
		if err == nil {
			currentLvl = lvl
			l.Fine("%s: watch added for %s", l.ID(w), p)
			break
		}
		if !os.IsNotExist(err) {
			l.Log("%s: %v", l.ID(w), err)
			return err
		}
	}
	if currentLvl == -1 {
		return fmt.Errorf("unable to add file watch for any of %v", w.hierarchy)
	}
	if restarted {
		w.notifyIfExists()
	}
	w.markStarted()
	for {
		select {
		case event, ok := <-w.fswatcher.Events:
			if !ok {
				return nil
			}
			l.Fine("%s notified: %s", l.ID(w), event)
			if event.Name == w.filename {
				w.notifyFn()
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && event.Name == w.hierarchy[currentLvl] {
				// The watched directory itself went away, start over.
				w.fswatcher.Remove(w.hierarchy[currentLvl])
				return nil
			}
			if currentLvl == 0 || event.Op&fsnotify.Create == 0 {
				continue
			}
			if event.Name != w.hierarchy[currentLvl-1] {
				continue
			}
			newLvl := currentLvl - 1
			for newLvl >= 0 {
				if err := w.fswatcher.Add(w.hierarchy[newLvl]); err != nil {
					if !os.IsNotExist(err) {
						l.Log("%s: %v", l.ID(w), err)
						return err
					}
					break
				}
				w.fswatcher.Remove(w.hierarchy[currentLvl])
				l.Fine("%s: watch moved from %s -> %s",
					l.ID(w), w.hierarchy[currentLvl], w.hierarchy[newLvl])
				currentLvl = newLvl
				newLvl--
			}
			w.notifyIfExists()
		case err, ok := <-w.fswatcher.Errors:
			if !ok {
				return nil
			}
			l.Log("%s: %v", l.ID(w), err)
			return err
		}
	}
}

// Watch creates a new file watcher for the given filename. The watch is
// established by the time Watch returns.
func Watch(filename string) *Watcher {
	filename = filepath.Clean(filename)
	w := &Watcher{filename: filename}
	l.Label(w, filename)
	w.errorCh = make(chan error, 1)
	w.Errors = w.errorCh
	w.notifyFn, w.Updates = notifier.New()
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.errorCh <- err
		atomic.StoreInt32(&w.done, 1)
		l.Forget(w)
		return w
	}
	w.fswatcher = watcher
	// The file itself is not watched, only its directory, so that
	// replacing the file is seen as a write.
	for p := filepath.Dir(filename); ; p = filepath.Dir(p) {
		w.hierarchy = append(w.hierarchy, p)
		if p == filepath.Dir(p) {
			break
		}
	}
	w.started = make(chan struct{}, 1)
	go w.watchLoop()
	<-w.started
	return w
}

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

package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"

	"github.com/soumya92/thermalbar/base/watchers/file"
	l "github.com/soumya92/thermalbar/logging"
)

var fs = afero.NewOsFs()

// File is a Store persisted as a YAML file, e.g.
//
//	show-mode: both
//	show-icons: true
//
// Changes made to the file by other programs are picked up and notified to
// subscribers the same way as changes made through Set.
type File struct {
	path    string
	cache   *Memory
	watcher *file.Watcher
	// Serialises writes, so that concurrent Sets do not lose updates.
	writeMu   sync.Mutex
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var _ Store = (*File)(nil)

// OpenFile opens the settings file at path, and starts watching it for
// changes. A missing file is treated as empty, and created on the first Set.
// Close must be called to stop watching.
func OpenFile(path string) (*File, error) {
	f := &File{
		path:  filepath.Clean(path),
		cache: NewMemory(nil),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	l.Label(f, f.path)
	if err := f.reload(); err != nil {
		return nil, err
	}
	f.watcher = file.Watch(f.path)
	go f.watchLoop()
	return f, nil
}

func (f *File) watchLoop() {
	defer close(f.done)
	for {
		select {
		case <-f.watcher.Updates:
			if err := f.reload(); err != nil {
				l.Log("%s: keeping previous settings: %v", l.ID(f), err)
			}
		case err := <-f.watcher.Errors:
			l.Log("%s: no longer watching for external changes: %v", l.ID(f), err)
			<-f.quit
			return
		case <-f.quit:
			return
		}
	}
}

// reload reads the file into the cache.
func (f *File) reload() error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	values, err := f.read()
	if err != nil {
		return err
	}
	if f.cache.Replace(values) {
		l.Fine("%s: reloaded %v", l.ID(f), values)
	}
	return nil
}

func (f *File) read() (map[string]string, error) {
	data, err := afero.ReadFile(fs, f.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", f.path, err)
	}
	values := map[string]string{}
	for key, v := range raw {
		switch key {
		case KeyShowMode, KeyShowIcons:
			values[key] = fmt.Sprint(v)
		default:
			l.Fine("%s: ignoring unknown key %q", l.ID(f), key)
		}
	}
	return values, nil
}

func (f *File) write(values map[string]string) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	doc := yaml.MapSlice{}
	for _, k := range keys {
		var v interface{} = values[k]
		if b, err := strconv.ParseBool(values[k]); err == nil && k == KeyShowIcons {
			v = b
		}
		doc = append(doc, yaml.MapItem{Key: k, Value: v})
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	dir := filepath.Dir(f.path)
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	// Write to a temporary file and rename, so that readers (including our
	// own watcher) never see a partially written file.
	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = fs.Rename(tmp.Name(), f.path)
	}
	if err != nil {
		fs.Remove(tmp.Name())
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Get implements Store.
func (f *File) Get(key string) (string, bool) {
	return f.cache.Get(key)
}

// Set implements Store. The value is persisted before subscribers are
// notified.
func (f *File) Set(key, value string) error {
	if err := Validate(key, value); err != nil {
		return err
	}
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	values := f.cache.All()
	if prev, ok := values[key]; ok && prev == value {
		return nil
	}
	values[key] = value
	if err := f.write(values); err != nil {
		return err
	}
	f.cache.Replace(values)
	return nil
}

// Subscribe implements Store.
func (f *File) Subscribe() (<-chan struct{}, func()) {
	return f.cache.Subscribe()
}

// Close stops watching the file. The store remains readable, but no longer
// sees external changes.
func (f *File) Close() {
	f.closeOnce.Do(func() {
		close(f.quit)
		<-f.done
		f.watcher.Unsubscribe()
		l.Forget(f)
	})
}

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

package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func assertNotified(t *testing.T, ch <-chan struct{}, formatAndArgs ...interface{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		require.Fail(t, "Was not notified", formatAndArgs...)
	}
	// fsnotify can emit several events for one change, drain them.
	deadline := time.After(20 * time.Millisecond)
	for {
		select {
		case <-ch:
		case <-deadline:
			return
		}
	}
}

func assertNotNotified(t *testing.T, ch <-chan struct{}, formatAndArgs ...interface{}) {
	t.Helper()
	select {
	case <-time.After(20 * time.Millisecond):
	case <-ch:
		require.Fail(t, "Unexpectedly notified", formatAndArgs...)
	}
}

func TestWatchOnExistingFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`foo`), 0644))

	w := Watch(tmpFile)
	defer w.Unsubscribe()
	assertNotNotified(t, w.Updates, "On start")

	require.NoError(t, os.WriteFile(tmpFile, []byte(`bar`), 0644))
	assertNotified(t, w.Updates, "On write")

	other := filepath.Join(filepath.Dir(tmpFile), "other")
	require.NoError(t, os.WriteFile(other, []byte(`baz`), 0644))
	assertNotNotified(t, w.Updates, "On write to a different file")
}

func TestWatchReplacedByRename(t *testing.T) {
	dir := t.TempDir()
	tmpFile := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`a`), 0644))

	w := Watch(tmpFile)
	defer w.Unsubscribe()

	staged := filepath.Join(dir, ".settings.yaml.tmp")
	require.NoError(t, os.WriteFile(staged, []byte(`b`), 0644))
	require.NoError(t, os.Rename(staged, tmpFile))
	assertNotified(t, w.Updates, "On rename over the file")
}

func TestWatchOnMissingDirectory(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "config", "thermalbar")
	tmpFile := filepath.Join(nested, "settings.yaml")

	w := Watch(tmpFile)
	defer w.Unsubscribe()
	assertNotNotified(t, w.Updates, "On start")

	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(tmpFile, []byte(`a`), 0644))
	assertNotified(t, w.Updates, "When created along with its parents")
}

func TestUnsubscribe(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "settings.yaml")
	w := Watch(tmpFile)
	w.Unsubscribe()
	w.Unsubscribe()
	require.NoError(t, os.WriteFile(tmpFile, []byte(`a`), 0644))
	assertNotNotified(t, w.Updates, "After unsubscribe")
}

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

package thermal

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	l "github.com/soumya92/thermalbar/logging"
)

// DefaultBaseDir is where the kernel exposes thermal zones.
const DefaultBaseDir = "/sys/class/thermal"

const zonePrefix = "thermal_zone"

// zoneIndex returns N for a directory named thermal_zone<N>.
func zoneIndex(name string) (int, bool) {
	digits := strings.TrimPrefix(name, zonePrefix)
	if digits == name || digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	idx, err := strconv.Atoi(digits)
	return idx, err == nil
}

// Resolve finds the temperature file of the zone in baseDir whose type
// file contains typeName. If several zones declare the same type, the one
// with the lowest zone index wins. If baseDir cannot be listed or no zone
// matches, fallbackPath is returned.
func Resolve(typeName, fallbackPath, baseDir string) string {
	entries, err := afero.ReadDir(fs, baseDir)
	if err != nil {
		l.Log("cannot list %s, using %s for %q: %v", baseDir, fallbackPath, typeName, err)
		return fallbackPath
	}
	best, path := -1, ""
	for _, entry := range entries {
		idx, ok := zoneIndex(entry.Name())
		if !ok {
			continue
		}
		zoneDir := filepath.Join(baseDir, entry.Name())
		typ, ok := ReadText(filepath.Join(zoneDir, "type"))
		if !ok || typ != typeName {
			continue
		}
		if best < 0 || idx < best {
			best, path = idx, filepath.Join(zoneDir, "temp")
		}
	}
	if best < 0 {
		l.Fine("no zone of type %q in %s, using %s", typeName, baseDir, fallbackPath)
		return fallbackPath
	}
	l.Fine("resolved %q to %s", typeName, path)
	return path
}

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

package logging

import (
	"fmt"
	"reflect"
	"sync"
)

// ident stores a type+address combination that uniquely identifies an object.
type ident struct {
	typeName string
	address  uintptr
}

var (
	mu        sync.Mutex
	instances = map[string]int{}
	objectIDs = map[ident]string{}
	labels    = map[ident]string{}
)

func identify(thing interface{}) (ident, bool) {
	val := reflect.ValueOf(thing)
	if !val.IsValid() {
		return ident{}, false
	}
	switch val.Kind() {
	case reflect.Ptr, reflect.Chan, reflect.Map, reflect.Func:
		if val.IsNil() {
			return ident{}, false
		}
		typ := val.Type()
		if typ.Kind() == reflect.Ptr {
			typ = typ.Elem()
		}
		return ident{typeName: shorten(typ.PkgPath() + "." + typ.Name()), address: val.Pointer()}, true
	}
	return ident{}, false
}

// ID returns a unique name for the given value of the form 'type'#'index'
// for addressable types, with the label appended if one was set.
func ID(thing interface{}) string {
	id, ok := identify(thing)
	if !ok {
		return fmt.Sprintf("%T", thing)
	}
	mu.Lock()
	defer mu.Unlock()
	name, ok := objectIDs[id]
	if !ok {
		name = fmt.Sprintf("%s#%d", id.typeName, instances[id.typeName])
		instances[id.typeName]++
		objectIDs[id] = name
	}
	if label, ok := labels[id]; ok {
		return fmt.Sprintf("%s<%s>", name, label)
	}
	return name
}

// Label adds an additional label to thing, incorporated as part of its
// identifier, e.g. logging.Label(sensor, "soc") gives thermal.Sensor#0<soc>.
func Label(thing interface{}, label string) {
	id, ok := identify(thing)
	if !ok {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	labels[id] = label
}

// Labelf is Label with built-in formatting.
func Labelf(thing interface{}, format string, args ...interface{}) {
	Label(thing, fmt.Sprintf(format, args...))
}

// Forget drops the ID and label of thing, which must not be used afterwards.
// Short-lived objects call it on Close, so that their entries do not pile up
// and a later object at the same address does not inherit them.
func Forget(thing interface{}) {
	id, ok := identify(thing)
	if !ok {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	delete(objectIDs, id)
	delete(labels, id)
}

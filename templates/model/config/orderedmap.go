// Copyright 2024 The Authors (see AUTHORS file)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

// orderedMap is a string-keyed map that remembers the order keys were first
// set, matching Python dict update semantics: overwriting an existing key's
// value leaves its position unchanged, a new key is appended at the end.
// This is what preserves a template's declared question order (§4.D) across
// document merges and !include expansion, since a plain Go map iterates in
// randomized order.
type orderedMap struct {
	keys   []string
	values map[string]any
}

func newOrderedMap() *orderedMap {
	return &orderedMap{values: map[string]any{}}
}

func (m *orderedMap) set(k string, v any) {
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = v
}

// merge folds other into m, later values winning but keeping m's original
// key order for keys already present.
func (m *orderedMap) merge(other *orderedMap) {
	for _, k := range other.keys {
		m.set(k, other.values[k])
	}
}

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

// Package answers implements the Answers Map (component C): a layered,
// precedence-ordered view of template answers, plus the serialization
// rules for persisting a subset of it to the destination's answers file.
package answers

import (
	structcopier "github.com/jinzhu/copier"
	"gopkg.in/yaml.v3"
)

// layerOrder lists the layers from highest to lowest precedence (§3).
// "user" wins over "init", which wins over "last", and so on.
var layerOrder = []string{"user", "init", "last", "metadata", "default"}

// Map is the layered AnswersMap of §3/§4.C. Every layer is a plain map;
// User is the only layer a consumer outside this package should mutate
// directly (via SetUser), matching the source's "each layer is mutable
// only by its producer" invariant.
type Map struct {
	User     map[string]any
	Init     map[string]any
	Last     map[string]any
	Metadata map[string]any
	Default  map[string]any
}

// New returns an empty Map with every layer initialized.
func New() *Map {
	return &Map{
		User:     map[string]any{},
		Init:     map[string]any{},
		Last:     map[string]any{},
		Metadata: map[string]any{},
		Default:  map[string]any{},
	}
}

// SetUser records a user-provided (interactive) answer, visible immediately
// in Combined().
func (m *Map) SetUser(key string, val any) {
	if m.User == nil {
		m.User = map[string]any{}
	}
	m.User[key] = val
}

// Combined returns the flattened, read-only, precedence-ordered view of
// every layer: user > init > last > metadata > default (§3).
func (m *Map) Combined() map[string]any {
	out := map[string]any{}
	// Apply lowest precedence first so later (higher-precedence) layers
	// overwrite it.
	for i := len(layerOrder) - 1; i >= 0; i-- {
		for k, v := range m.layer(layerOrder[i]) {
			out[k] = v
		}
	}
	return out
}

// Get looks up key across every layer in precedence order, matching the
// semantics of Combined()[key] without materializing the whole map.
func (m *Map) Get(key string) (any, bool) {
	for _, name := range layerOrder {
		if v, ok := m.layer(name)[key]; ok {
			return v, true
		}
	}
	return nil, false
}

func (m *Map) layer(name string) map[string]any {
	switch name {
	case "user":
		return m.User
	case "init":
		return m.Init
	case "last":
		return m.Last
	case "metadata":
		return m.Metadata
	case "default":
		return m.Default
	default:
		return nil
	}
}

// Clone deep-copies every layer, so the update orchestrator can derive the
// new template's AnswersMap from the shadow render's (§4.G steps 7-8) and
// mutate it without affecting the original.
func (m *Map) Clone() *Map {
	out := &Map{}
	_ = structcopier.CopyWithOption(&out.User, &m.User, structcopier.Option{DeepCopy: true})
	_ = structcopier.CopyWithOption(&out.Init, &m.Init, structcopier.Option{DeepCopy: true})
	_ = structcopier.CopyWithOption(&out.Last, &m.Last, structcopier.Option{DeepCopy: true})
	_ = structcopier.CopyWithOption(&out.Metadata, &m.Metadata, structcopier.Option{DeepCopy: true})
	_ = structcopier.CopyWithOption(&out.Default, &m.Default, structcopier.Option{DeepCopy: true})
	return out
}

// Persistable computes the subset of Combined() written to the answers
// file (§4.C): the internal _commit/_src_path keys, plus every combined
// key that isn't underscore-prefixed, isn't secret, and is JSON-serializable.
func (m *Map) Persistable(commit, srcPath string, secretQuestions map[string]struct{}) map[string]any {
	out := map[string]any{}
	if srcPath != "" {
		out["_src_path"] = srcPath
	}
	if commit != "" {
		out["_commit"] = commit
	}

	for k, v := range m.Combined() {
		if len(k) > 0 && k[0] == '_' {
			continue
		}
		if _, secret := secretQuestions[k]; secret {
			continue
		}
		if !isJSONSerializable(v) {
			continue
		}
		out[k] = v
	}
	return out
}

// Marshal serializes vals (normally the output of Persistable) as YAML with
// stable (alphabetical) key ordering, per §4.C.
func Marshal(vals map[string]any) ([]byte, error) {
	return yaml.Marshal(vals) //nolint:wrapcheck
}

// isJSONSerializable reports whether v is built only from primitives,
// slices and maps with string keys — the values §4.C allows into the
// answers file.
func isJSONSerializable(v any) bool {
	switch val := v.(type) {
	case nil, bool, string, int, int64, float64, float32:
		return true
	case []any:
		for _, e := range val {
			if !isJSONSerializable(e) {
				return false
			}
		}
		return true
	case map[string]any:
		for _, e := range val {
			if !isJSONSerializable(e) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

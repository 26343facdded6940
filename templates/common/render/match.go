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

package render

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"golang.org/x/text/unicode/norm"
)

// patternMatcher implements §4.E's gitignore-style exclude/skip matching:
// patterns are evaluated in order, a "!"-prefixed pattern re-includes a
// path an earlier pattern excluded (supplemented feature 2 in
// SPEC_FULL.md), and pattern text is NFD-normalized before compiling so
// that visually identical Unicode paths compare equal regardless of
// composed/decomposed form.
type patternMatcher struct {
	compiled []compiledPattern
}

type compiledPattern struct {
	g      glob.Glob
	negate bool
}

// newPatternMatcher compiles patterns once so the whole render walk can
// reuse the same matcher.
func newPatternMatcher(patterns []string) (*patternMatcher, error) {
	m := &patternMatcher{}
	for _, p := range patterns {
		negate := strings.HasPrefix(p, "!")
		body := p
		if negate {
			body = p[1:]
		}
		normalized := norm.NFD.String(body)
		g, err := glob.Compile(normalized, '/')
		if err != nil {
			return nil, fmt.Errorf("compiling pattern %q: %w", p, err)
		}
		m.compiled = append(m.compiled, compiledPattern{g: g, negate: negate})
	}
	return m, nil
}

// Match reports whether relPath is excluded (or skip-matched) by this
// pattern set. The last pattern to match wins, so a later "!pattern" can
// re-include a path an earlier pattern excluded.
func (m *patternMatcher) Match(relPath string) bool {
	if m == nil {
		return false
	}
	normalized := norm.NFD.String(relPath)
	matched := false
	for _, cp := range m.compiled {
		if cp.g.Match(normalized) {
			matched = !cp.negate
		}
	}
	return matched
}

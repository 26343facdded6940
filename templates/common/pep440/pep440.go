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

// Package pep440 orders template version tags and engine-version gates.
//
// There's no PEP-440 implementation in the retrieved example pack. The
// closest available library is github.com/Masterminds/semver/v3, which the
// teacher already uses to pick the "latest" git tag (see
// templates/common/templatesource/git.go upstream). We reuse it here rather
// than hand-rolling a full PEP-440 parser (epochs, .postN, .devN); semver
// ordering agrees with PEP 440 for the common case of plain vMAJOR.MINOR.PATCH
// tags, which is what templates in practice use. See DESIGN.md Open Question
// decisions.
package pep440

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Version is a parsed, orderable version.
type Version struct {
	sv  *semver.Version
	raw string
}

// Parse parses s (optionally prefixed with "v") as a version.
func Parse(s string) (*Version, error) {
	sv, err := semver.NewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("%q is not a recognized version: %w", s, err)
	}
	return &Version{sv: sv, raw: s}, nil
}

// String returns the original input string.
func (v *Version) String() string { return v.raw }

// IsPrerelease returns true if the version has a prerelease or metadata
// suffix, e.g. "1.2.3-rc1".
func (v *Version) IsPrerelease() bool {
	return v.sv.Prerelease() != "" || v.sv.Metadata() != ""
}

// Compare returns -1, 0 or +1 if v is less than, equal to, or greater than
// other.
func (v *Version) Compare(other *Version) int {
	return v.sv.Compare(other.sv)
}

// LessThan reports whether v < other.
func (v *Version) LessThan(other *Version) bool { return v.Compare(other) < 0 }

// GreaterThan reports whether v > other.
func (v *Version) GreaterThan(other *Version) bool { return v.Compare(other) > 0 }

// Max returns the greatest of a non-empty slice of versions.
func Max(versions []*Version) *Version {
	max := versions[0]
	for _, v := range versions[1:] {
		if v.GreaterThan(max) {
			max = v
		}
	}
	return max
}

// InRange reports whether lo < v <= hi, which is the applicability rule for a
// migration (§3 Migration.Applicability): parsed(from) < parsed(version) <=
// parsed(to).
func InRange(lo, v, hi *Version) bool {
	return lo.LessThan(v) && !v.GreaterThan(hi)
}

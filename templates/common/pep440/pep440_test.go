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

package pep440

import "testing"

func TestCompare(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		a, b     string
		wantLess bool
	}{
		{name: "patch", a: "1.2.3", b: "1.2.4", wantLess: true},
		{name: "minor", a: "1.2.3", b: "1.3.0", wantLess: true},
		{name: "equal", a: "v1.2.3", b: "1.2.3", wantLess: false},
		{name: "prerelease_less", a: "1.2.3-rc1", b: "1.2.3", wantLess: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			a, err := Parse(tc.a)
			if err != nil {
				t.Fatal(err)
			}
			b, err := Parse(tc.b)
			if err != nil {
				t.Fatal(err)
			}
			if got := a.LessThan(b); got != tc.wantLess {
				t.Errorf("%s.LessThan(%s) = %v, want %v", tc.a, tc.b, got, tc.wantLess)
			}
		})
	}
}

func TestInRange(t *testing.T) {
	t.Parallel()

	lo, _ := Parse("1.0.0")
	hi, _ := Parse("2.0.0")

	cases := []struct {
		version string
		want    bool
	}{
		{version: "0.9.0", want: false},
		{version: "1.0.0", want: false}, // exclusive lower bound
		{version: "1.5.0", want: true},
		{version: "2.0.0", want: true}, // inclusive upper bound
		{version: "2.0.1", want: false},
	}

	for _, tc := range cases {
		v, err := Parse(tc.version)
		if err != nil {
			t.Fatal(err)
		}
		if got := InRange(lo, v, hi); got != tc.want {
			t.Errorf("InRange(1.0.0, %s, 2.0.0) = %v, want %v", tc.version, got, tc.want)
		}
	}
}

func TestMax(t *testing.T) {
	t.Parallel()

	raw := []string{"1.0.0", "1.9.0", "1.2.3", "2.0.0-rc1"}
	versions := make([]*Version, 0, len(raw))
	for _, r := range raw {
		v, err := Parse(r)
		if err != nil {
			t.Fatal(err)
		}
		versions = append(versions, v)
	}

	got := Max(versions)
	if got.String() != "2.0.0-rc1" {
		t.Errorf("Max() = %q, want %q", got.String(), "2.0.0-rc1")
	}
}

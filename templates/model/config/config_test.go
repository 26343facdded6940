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

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/abcxyz/gocopier/templates/model"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, contents := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(contents), 0o600); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLoad_Basic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"copier.yml": `
_min_copier_version: "0.0.0"
_exclude:
  - "*.bak"
name:
  type: str
  default: world
  help: "What is your name?"
secret_token:
  type: str
  secret: true
`,
	})

	loaded, err := Load(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"*.bak"}, loaded.Settings.Exclude); diff != "" {
		t.Errorf("Exclude mismatch (-want +got):\n%s", diff)
	}
	if _, ok := loaded.Settings.SecretQuestions["secret_token"]; !ok {
		t.Errorf("expected secret_token to be in SecretQuestions")
	}

	want := []model.Question{
		{Name: "name", Type: "str", Default: "world", Help: "What is your name?"},
		{Name: "secret_token", Type: "str", Secret: true},
	}
	if diff := cmp.Diff(want, loaded.Questions, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Questions mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_BareScalarSugar(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"copier.yml": "project_name: myapp\n",
	})

	loaded, err := Load(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Questions) != 1 || loaded.Questions[0].Default != "myapp" {
		t.Fatalf("got %+v, want a single question defaulting to myapp", loaded.Questions)
	}
}

func TestLoad_Rules(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"copier.yml": `
name:
  type: str
  default: world
  rules:
    - "len(name) < 64"
    - expression: "name != 'forbidden'"
      message: "that name is reserved"
`,
	})

	loaded, err := Load(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Questions) != 1 {
		t.Fatalf("got %d questions, want 1", len(loaded.Questions))
	}
	rs := loaded.Questions[0].Rules
	if len(rs) != 2 {
		t.Fatalf("got %d rules, want 2: %+v", len(rs), rs)
	}
	if rs[0].Expr != "len(name) < 64" || rs[0].Message != "" {
		t.Errorf("rule 0 = %+v", rs[0])
	}
	if rs[1].Expr != "name != 'forbidden'" || rs[1].Message != "that name is reserved" {
		t.Errorf("rule 1 = %+v", rs[1])
	}
}

func TestLoad_QuestionOrderPreserved(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"copier.yml": `
zeta_first:
  default: z
author_name:
  default: Ada
project_name:
  default: myapp
alpha_last:
  default: a
`,
	})

	loaded, err := Load(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, q := range loaded.Questions {
		got = append(got, q.Name)
	}
	want := []string{"zeta_first", "author_name", "project_name", "alpha_last"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("question order mismatch, should be declared order not alphabetical (-want +got):\n%s", diff)
	}
}

func TestLoad_MultipleConfigFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"copier.yml":  "a: 1\n",
		"copier.yaml": "b: 2\n",
	})

	_, err := Load(context.Background(), dir)
	var cfgErr *model.ConfigFileError
	if !errors.As(err, &cfgErr) || cfgErr.Reason != "multiple_config_files" {
		t.Fatalf("got err %v, want a multiple_config_files ConfigFileError", err)
	}
}

func TestLoad_Include(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"copier.yml": `
!include 'included/*.yml'
---
name:
  default: overridden-in-root
`,
		"included/base.yml": `
name:
  default: from-base
greeting:
  default: hello
`,
	})

	loaded, err := Load(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}

	got := map[string]any{}
	for _, q := range loaded.Questions {
		got[q.Name] = q.Default
	}
	want := map[string]any{"name": "overridden-in-root", "greeting": "hello"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("merged questions mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_IncludeCycle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"copier.yml": "!include 'b.yml'\n",
		"b.yml":      "!include 'copier.yml'\n",
	})

	_, err := Load(context.Background(), dir)
	var cfgErr *model.ConfigFileError
	if !errors.As(err, &cfgErr) || cfgErr.Reason != "include_cycle" {
		t.Fatalf("got err %v, want an include_cycle ConfigFileError", err)
	}
}

func TestLoad_MinVersionGate_SkippedForSentinelBuild(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"copier.yml": `_min_copier_version: "9999.0.0"` + "\n",
	})

	// Under "go test", version.EngineVersion() always reports the sentinel
	// (non-release) build, so even an absurd requirement must not fail.
	if _, err := Load(context.Background(), dir); err != nil {
		t.Fatalf("got err %v, want nil (sentinel build always satisfies the version gate)", err)
	}
}

func TestCheckMinVersion(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		required string
		current  string
		wantErr  bool
	}{
		{name: "no_requirement", required: "", current: "1.0.0"},
		{name: "sentinel_build_always_passes", required: "9999.0.0", current: "0.0.0"},
		{name: "satisfied", required: "1.0.0", current: "1.5.0"},
		{name: "too_old", required: "2.0.0", current: "1.5.0", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := checkMinVersion(tc.required, tc.current)
			if tc.wantErr {
				var verErr *model.UnsupportedVersionError
				if !errors.As(err, &verErr) {
					t.Fatalf("got err %v, want UnsupportedVersionError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("got err %v, want nil", err)
			}
		})
	}
}

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

package update

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/abcxyz/gocopier/templates/model"
)

func TestCheckDowngrade(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		old     string
		new     string
		wantErr bool
	}{
		{"upgrade_ok", "v1.0.0", "v1.1.0", false},
		{"same_ok", "v1.0.0", "v1.0.0", false},
		{"downgrade_rejected", "v2.0.0", "v1.0.0", true},
		{"non_version_commits_pass_through", "abc123", "def456", false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := checkDowngrade(&model.Template{Commit: tc.old}, &model.Template{Commit: tc.new})
			if (err != nil) != tc.wantErr {
				t.Errorf("got err %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestSameTree(t *testing.T) {
	t.Parallel()

	dirA := t.TempDir()
	dirB := t.TempDir()
	if err := os.WriteFile(filepath.Join(dirA, "f.txt"), []byte("same"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dirB, "f.txt"), []byte("same"), 0o600); err != nil {
		t.Fatal(err)
	}

	same, err := sameTree(&model.Template{LocalAbspath: dirA}, &model.Template{LocalAbspath: dirB})
	if err != nil {
		t.Fatal(err)
	}
	if !same {
		t.Error("expected identical trees to be reported as same")
	}

	if err := os.WriteFile(filepath.Join(dirB, "f.txt"), []byte("different"), 0o600); err != nil {
		t.Fatal(err)
	}
	same, err = sameTree(&model.Template{LocalAbspath: dirA}, &model.Template{LocalAbspath: dirB})
	if err != nil {
		t.Fatal(err)
	}
	if same {
		t.Error("expected differing trees to be reported as not same")
	}
}

func TestBaseName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"/a/b/c":  "c",
		"/a/b/c/": "",
		"noslash": "noslash",
	}
	for in, want := range cases {
		if got := baseName(in); got != want {
			t.Errorf("baseName(%q) = %q, want %q", in, got, want)
		}
	}
}

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

package answers

import (
	"testing"

	fscommon "github.com/abcxyz/gocopier/templates/common/fs"
)

func TestReadFile_Missing(t *testing.T) {
	t.Parallel()

	got, err := ReadFile(&fscommon.RealFS{}, t.TempDir(), ".copier-answers.yml")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected an empty map for a missing answers file, got %v", got)
	}
}

func TestWriteFile_ThenReadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	want := map[string]any{"_src_path": "example.com/org/repo", "_commit": "v1.0.0", "name": "Ada"}

	if err := WriteFile(&fscommon.RealFS{}, dir, ".copier-answers.yml", want); err != nil {
		t.Fatal(err)
	}

	got, err := ReadFile(&fscommon.RealFS{}, dir, ".copier-answers.yml")
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("key %q: got %v, want %v", k, got[k], v)
		}
	}
}

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

package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// GOCOPIER_TEST_NON_HERMETIC gates tests that need real network access (clone
// / ls-remote against github.com), mirroring the teacher's convention of
// skipping network-dependent tests by default.
const envName = "GOCOPIER_TEST_NON_HERMETIC"

func skipUnlessEnvEnabled(t *testing.T) {
	t.Helper()
	if os.Getenv(envName) == "" {
		t.Skipf("skipping test because env var %q isn't set", envName)
	}
}

func TestTags_NonHermetic(t *testing.T) {
	skipUnlessEnvEnabled(t)
	t.Parallel()

	ctx := context.Background()
	tags, err := Tags(ctx, "https://github.com/abcxyz/abc.git")
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) == 0 {
		t.Error("expected at least one tag")
	}
}

// newLocalRepo creates a throwaway git repo with one committed file, for
// tests that exercise local-only git plumbing (no network needed).
func newLocalRepo(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	dir := t.TempDir()
	if err := Init(ctx, dir); err != nil {
		t.Fatal(err)
	}
	if err := ConfigSet(ctx, dir, "user.email", "test@example.com"); err != nil {
		t.Fatal(err)
	}
	if err := ConfigSet(ctx, dir, "user.name", "Test"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "file.txt"), []byte("hello\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := AddAll(ctx, dir); err != nil {
		t.Fatal(err)
	}
	if err := Commit(ctx, dir, "initial", false); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestIsClean(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := newLocalRepo(t)

	clean, err := IsClean(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if !clean {
		t.Error("expected clean working tree right after commit")
	}

	if err := os.WriteFile(filepath.Join(dir, "file.txt"), []byte("changed\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	clean, err = IsClean(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if clean {
		t.Error("expected dirty working tree after edit")
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := newLocalRepo(t)

	commit, err := Describe(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if commit == "" {
		t.Error("expected a non-empty commit description")
	}
}

func TestIsRepo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := newLocalRepo(t)

	if !IsRepo(ctx, dir) {
		t.Error("expected newLocalRepo dir to be recognized as a repo")
	}
	if IsRepo(ctx, t.TempDir()) {
		t.Error("expected a fresh empty dir to not be recognized as a repo")
	}
}

func TestDiffTreeAndApply(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := newLocalRepo(t)

	// Modify the file without committing it and diff HEAD against the dirty
	// working tree.
	if err := os.WriteFile(filepath.Join(dir, "file.txt"), []byte("hello\nworld\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	diff, err := DiffTree(ctx, dir, "HEAD", DiffTreeOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if diff == "" {
		t.Fatal("expected a non-empty diff")
	}

	// Reset the file and re-apply the diff we just captured.
	if err := os.WriteFile(filepath.Join(dir, "file.txt"), []byte("hello\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	result, err := Apply(ctx, dir, diff, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.RejectedFiles) != 0 {
		t.Errorf("expected no rejected files, got %v", result.RejectedFiles)
	}

	got, err := os.ReadFile(filepath.Join(dir, "file.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello\nworld\n" {
		t.Errorf("got %q, want %q", got, "hello\nworld\n")
	}
}

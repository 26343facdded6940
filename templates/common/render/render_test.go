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
	"context"
	"testing"

	"github.com/benbjohnson/clock"

	fscommon "github.com/abcxyz/gocopier/templates/common/fs"
	"github.com/abcxyz/gocopier/templates/common/render/gotmpl"
	"github.com/abcxyz/gocopier/templates/model"
	"github.com/abcxyz/gocopier/testutil"
)

func newTemplate(srcRoot string) *model.Template {
	return &model.Template{
		LocalAbspath:    srcRoot,
		TemplatesSuffix: model.DefaultTemplatesSuffix,
	}
}

func TestRun_CreatesFiles(t *testing.T) {
	t.Parallel()

	srcRoot := t.TempDir()
	testutil.WriteAllDefaultMode(t, srcRoot, map[string]string{
		"README.md.tmpl":    "Hello, [[ .name ]]!",
		"static.txt":        "unchanged content",
		"[[ .name ]]/x.txt": "nested",
	})

	destRoot := t.TempDir()

	p := &Params{
		FS:       &fscommon.RealFS{},
		Template: newTemplate(srcRoot),
		Engine:   gotmpl.New(model.DefaultEnvOps()),
		Data:     map[string]any{"name": "Ada"},
		DestDir:  destRoot,
	}

	reports, err := Run(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) == 0 {
		t.Fatal("expected at least one file report")
	}

	got := testutil.LoadDirWithoutMode(t, destRoot)
	want := map[string]string{
		"README.md":  "Hello, Ada!",
		"static.txt": "unchanged content",
		"Ada/x.txt":  "nested",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("path %q: got %q, want %q", k, got[k], v)
		}
	}
}

func TestRun_EmptyPathComponentPruned(t *testing.T) {
	t.Parallel()

	srcRoot := t.TempDir()
	testutil.WriteAllDefaultMode(t, srcRoot, map[string]string{
		"[[ .skip ]]/kept.txt": "should not exist",
	})
	destRoot := t.TempDir()

	p := &Params{
		FS:       &fscommon.RealFS{},
		Template: newTemplate(srcRoot),
		Engine:   gotmpl.New(model.DefaultEnvOps()),
		Data:     map[string]any{"skip": ""},
		DestDir:  destRoot,
	}

	if _, err := Run(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	got := testutil.LoadDirWithoutMode(t, destRoot)
	if len(got) != 0 {
		t.Errorf("expected no files to be written, got %v", got)
	}
}

func TestRun_TemplatedSiblingSuppressesRaw(t *testing.T) {
	t.Parallel()

	srcRoot := t.TempDir()
	testutil.WriteAllDefaultMode(t, srcRoot, map[string]string{
		"config.yml":      "raw, should be suppressed",
		"config.yml.tmpl": "generated: [[ .value ]]",
	})
	destRoot := t.TempDir()

	p := &Params{
		FS:       &fscommon.RealFS{},
		Template: newTemplate(srcRoot),
		Engine:   gotmpl.New(model.DefaultEnvOps()),
		Data:     map[string]any{"value": "yes"},
		DestDir:  destRoot,
	}

	if _, err := Run(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	got := testutil.LoadDirWithoutMode(t, destRoot)
	if got["config.yml"] != "generated: yes" {
		t.Errorf("got %q, want the rendered templated-sibling contents", got["config.yml"])
	}
}

func TestRun_ExcludePattern(t *testing.T) {
	t.Parallel()

	srcRoot := t.TempDir()
	testutil.WriteAllDefaultMode(t, srcRoot, map[string]string{
		"keep.txt":       "keep",
		"secret/x.txt":   "drop",
		"secret/y.txt":   "drop",
	})
	destRoot := t.TempDir()

	tmpl := newTemplate(srcRoot)
	tmpl.ExcludePatterns = []string{"secret/**"}

	p := &Params{
		FS:       &fscommon.RealFS{},
		Template: tmpl,
		Engine:   gotmpl.New(model.DefaultEnvOps()),
		Data:     map[string]any{},
		DestDir:  destRoot,
	}

	if _, err := Run(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	got := testutil.LoadDirWithoutMode(t, destRoot)
	if _, ok := got["secret/x.txt"]; ok {
		t.Error("expected secret/x.txt to be excluded")
	}
	if got["keep.txt"] != "keep" {
		t.Errorf("got %q, want keep", got["keep.txt"])
	}
}

func TestRun_IdempotentSecondRun(t *testing.T) {
	t.Parallel()

	srcRoot := t.TempDir()
	testutil.WriteAllDefaultMode(t, srcRoot, map[string]string{
		"a.txt.tmpl": "v=[[ .v ]]",
	})
	destRoot := t.TempDir()

	p := &Params{
		FS:       &fscommon.RealFS{},
		Template: newTemplate(srcRoot),
		Engine:   gotmpl.New(model.DefaultEnvOps()),
		Data:     map[string]any{"v": "1"},
		DestDir:  destRoot,
	}

	reports1, err := Run(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	reports2, err := Run(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}

	if len(reports1) != len(reports2) {
		t.Fatalf("report count differs between runs: %d vs %d", len(reports1), len(reports2))
	}
	for _, r := range reports2 {
		if r.Action != ActionIdentical {
			t.Errorf("path %q: got action %q on second run, want %q", r.Path, r.Action, ActionIdentical)
		}
	}
}

func TestRun_PretendModeWritesNothing(t *testing.T) {
	t.Parallel()

	srcRoot := t.TempDir()
	testutil.WriteAllDefaultMode(t, srcRoot, map[string]string{
		"a.txt": "content",
	})
	destRoot := t.TempDir()

	p := &Params{
		FS:       &fscommon.RealFS{},
		Template: newTemplate(srcRoot),
		Engine:   gotmpl.New(model.DefaultEnvOps()),
		Data:     map[string]any{},
		DestDir:  destRoot,
		Pretend:  true,
	}

	if _, err := Run(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	if got := testutil.LoadDirWithoutMode(t, destRoot); len(got) != 0 {
		t.Errorf("pretend mode must not write any files, got %v", got)
	}
}

func TestRun_ForceOverwritesDifferentFile(t *testing.T) {
	t.Parallel()

	srcRoot := t.TempDir()
	testutil.WriteAllDefaultMode(t, srcRoot, map[string]string{
		"a.txt": "new content",
	})
	destRoot := t.TempDir()
	testutil.WriteAllDefaultMode(t, destRoot, map[string]string{
		"a.txt": "old content",
	})

	p := &Params{
		FS:       &fscommon.RealFS{},
		Template: newTemplate(srcRoot),
		Engine:   gotmpl.New(model.DefaultEnvOps()),
		Data:     map[string]any{},
		DestDir:  destRoot,
		Force:    true,
	}

	reports, err := Run(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if reports[0].Action != ActionForce {
		t.Errorf("got action %q, want %q", reports[0].Action, ActionForce)
	}

	got := testutil.LoadDirWithoutMode(t, destRoot)
	if got["a.txt"] != "new content" {
		t.Errorf("got %q, want new content", got["a.txt"])
	}
}

func TestRun_ForceBacksUpExistingFile(t *testing.T) {
	t.Parallel()

	srcRoot := t.TempDir()
	testutil.WriteAllDefaultMode(t, srcRoot, map[string]string{
		"a.txt": "new content",
	})
	destRoot := t.TempDir()
	testutil.WriteAllDefaultMode(t, destRoot, map[string]string{
		"a.txt": "old content",
	})
	backupDir := t.TempDir()

	p := &Params{
		FS:        &fscommon.RealFS{},
		Template:  newTemplate(srcRoot),
		Engine:    gotmpl.New(model.DefaultEnvOps()),
		Data:      map[string]any{},
		DestDir:   destRoot,
		Force:     true,
		BackupDir: backupDir,
		Clock:     clock.NewMock(),
	}

	if _, err := Run(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	backups := testutil.LoadDirWithoutMode(t, backupDir)
	if len(backups) != 1 {
		t.Fatalf("expected exactly one backup file, got %d: %v", len(backups), backups)
	}
	for _, contents := range backups {
		if contents != "old content" {
			t.Errorf("got backup contents %q, want %q", contents, "old content")
		}
	}
}

func TestRun_SkipIfExistsPattern(t *testing.T) {
	t.Parallel()

	srcRoot := t.TempDir()
	testutil.WriteAllDefaultMode(t, srcRoot, map[string]string{
		".env": "new content",
	})
	destRoot := t.TempDir()
	testutil.WriteAllDefaultMode(t, destRoot, map[string]string{
		".env": "user-edited content",
	})

	tmpl := newTemplate(srcRoot)
	tmpl.SkipIfExistsPatterns = []string{".env"}

	p := &Params{
		FS:       &fscommon.RealFS{},
		Template: tmpl,
		Engine:   gotmpl.New(model.DefaultEnvOps()),
		Data:     map[string]any{},
		DestDir:  destRoot,
		Force:    true, // force must not override an explicit skip_if_exists match
	}

	reports, err := Run(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if reports[0].Action != ActionSkip {
		t.Errorf("got action %q, want %q", reports[0].Action, ActionSkip)
	}

	got := testutil.LoadDirWithoutMode(t, destRoot)
	if got[".env"] != "user-edited content" {
		t.Errorf("skip_if_exists must preserve the existing file; got %q", got[".env"])
	}
}

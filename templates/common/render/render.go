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

// Package render implements the Render Pipeline (component E): it walks a
// template's copy root, renders directory and file paths and contents
// through the sandboxed template engine, applies exclude/skip/conflict
// policy, and writes to the destination, per §4.E.
package render

import (
	"bytes"
	"context"
	"fmt"
	iofs "io/fs"
	"path"
	"strings"

	"github.com/benbjohnson/clock"

	"github.com/abcxyz/pkg/logging"

	fscommon "github.com/abcxyz/gocopier/templates/common/fs"
	"github.com/abcxyz/gocopier/templates/common/render/gotmpl"
	"github.com/abcxyz/gocopier/templates/model"
)

// Action is the conflict-resolution outcome reported for one destination
// path (§4.E's conflict policy table).
type Action string

const (
	ActionCreate    Action = "create"
	ActionIdentical Action = "identical"
	ActionSkip      Action = "skip"
	ActionForce     Action = "force"
)

// FileReport records the outcome for one rendered destination path.
type FileReport struct {
	Path   string
	Action Action
}

// OverwritePrompter asks the user to confirm an overwrite of an existing,
// differing destination file (§4.E conflict resolution, default yes).
type OverwritePrompter interface {
	Confirm(ctx context.Context, msg string) (bool, error)
}

// Params groups Run's parameters, mirroring the teacher's Params-struct
// convention for functions with many options.
type Params struct {
	FS       fscommon.FS
	Template *model.Template
	Engine   *gotmpl.Engine

	// Data is the full RenderContext (§3): flattened answers plus
	// _copier_answers/_copier_conf/_folder_name.
	Data map[string]any

	DestDir string

	// CallerExclude/CallerSkipIfExists are the caller-supplied (CLI flag)
	// patterns, unioned with the template's own (§4.E).
	CallerExclude      []string
	CallerSkipIfExists []string

	Force   bool
	Pretend bool

	Prompter OverwritePrompter

	// BackupDir, if non-empty, receives a timestamped copy of each existing
	// file this run overwrites (ActionForce), so a user can recover a
	// pre-update version. Clock supplies the timestamp; it defaults to the
	// real clock when nil.
	BackupDir string
	Clock     clock.Clock
}

// Run executes the full render pipeline and returns a report of every
// destination path considered.
func Run(ctx context.Context, p *Params) ([]FileReport, error) {
	logger := logging.FromContext(ctx).With("logger", "render.Run")

	excludeMatcher, err := newPatternMatcher(append(append([]string{}, p.Template.ExcludePatterns...), p.CallerExclude...))
	if err != nil {
		return nil, fmt.Errorf("compiling exclude patterns: %w", err)
	}
	skipMatcher, err := newPatternMatcher(append(append([]string{}, p.Template.SkipIfExistsPatterns...), p.CallerSkipIfExists...))
	if err != nil {
		return nil, fmt.Errorf("compiling skip_if_exists patterns: %w", err)
	}

	copyRoot := p.Template.CopyRoot()
	suffix := p.Template.TemplatesSuffix
	if suffix == "" {
		suffix = model.DefaultTemplatesSuffix
	}

	var reports []FileReport

	walkErr := iofsWalkDirSorted(p.FS, copyRoot, func(srcPath string, d iofs.DirEntry) error {
		relSrc, err := relPath(copyRoot, srcPath)
		if err != nil {
			return err
		}
		if relSrc == "." {
			return nil // the copy root itself is never excluded (§4.E)
		}

		// Templated-sibling suppression: if X.tmpl exists alongside a
		// non-suffixed X, the suffixed sibling supersedes X.
		if !strings.HasSuffix(relSrc, suffix) {
			exists, err := fscommon.Exists(p.FS, srcPath+suffix)
			if err != nil {
				return err
			}
			if exists {
				logger.DebugContext(ctx, "suppressing path superseded by templated sibling", "path", relSrc)
				if d.IsDir() {
					return iofs.SkipDir
				}
				return nil
			}
		}

		renderedRel, suppressed, err := renderPath(p.Engine, relSrc, suffix, p.Data)
		if err != nil {
			return fmt.Errorf("rendering path %q: %w", relSrc, err)
		}
		if suppressed {
			logger.DebugContext(ctx, "suppressing path with an empty-rendered component", "path", relSrc)
			if d.IsDir() {
				return iofs.SkipDir
			}
			return nil
		}

		if excludeMatcher.Match(renderedRel) {
			if d.IsDir() {
				return iofs.SkipDir
			}
			return nil
		}

		destPath := path.Join(p.DestDir, renderedRel)

		if d.IsDir() {
			if p.Pretend {
				return nil
			}
			return p.FS.MkdirAll(destPath, fscommon.OwnerRWXPerms)
		}

		content, err := loadContent(p.FS, srcPath, suffix, p.Engine, p.Data)
		if err != nil {
			return fmt.Errorf("rendering content of %q: %w", relSrc, err)
		}

		action, err := resolveConflict(ctx, p, destPath, content, renderedRel, skipMatcher)
		if err != nil {
			return err
		}
		reports = append(reports, FileReport{Path: renderedRel, Action: action})

		if p.Pretend || action == ActionIdentical || action == ActionSkip {
			return nil
		}

		if action == ActionForce {
			if err := backupExisting(p, destPath, renderedRel); err != nil {
				return fmt.Errorf("backing up %q before overwrite: %w", renderedRel, err)
			}
		}

		if err := p.FS.MkdirAll(path.Dir(destPath), fscommon.OwnerRWXPerms); err != nil {
			return err
		}
		return p.FS.WriteFile(destPath, content, fscommon.OwnerRWPerms)
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return reports, nil
}

// backupExisting copies destPath's current contents into p.BackupDir before
// it's overwritten, named with a timestamp so repeated overwrites of the
// same path don't collide.
func backupExisting(p *Params, destPath, renderedRel string) error {
	if p.BackupDir == "" {
		return nil
	}
	existing, err := p.FS.ReadFile(destPath)
	if err != nil {
		return err
	}

	c := p.Clock
	if c == nil {
		c = clock.New()
	}
	backupPath := path.Join(p.BackupDir, fmt.Sprintf("%s.%d.bak", renderedRel, c.Now().UnixNano()))
	if err := p.FS.MkdirAll(path.Dir(backupPath), fscommon.OwnerRWXPerms); err != nil {
		return err
	}
	return p.FS.WriteFile(backupPath, existing, fscommon.OwnerRWPerms)
}

// resolveConflict implements §4.E's conflict policy table.
func resolveConflict(ctx context.Context, p *Params, destPath string, content []byte, renderedRel string, skipMatcher *patternMatcher) (Action, error) {
	exists, err := fscommon.Exists(p.FS, destPath)
	if err != nil {
		return "", err
	}
	if !exists {
		return ActionCreate, nil
	}

	existing, err := p.FS.ReadFile(destPath)
	if err != nil {
		return "", fmt.Errorf("reading existing destination file %q: %w", destPath, err)
	}
	if bytes.Equal(existing, content) {
		return ActionIdentical, nil
	}

	if skipMatcher.Match(renderedRel) {
		return ActionSkip, nil
	}
	if p.Force {
		return ActionForce, nil
	}
	if p.Prompter == nil {
		// No interactive prompter available: default yes (§4.E).
		return ActionForce, nil
	}

	ok, err := p.Prompter.Confirm(ctx, fmt.Sprintf("Overwrite %q?", destPath))
	if err != nil {
		return "", fmt.Errorf("prompting for overwrite of %q: %w", destPath, err)
	}
	if ok {
		return ActionForce, nil
	}
	return ActionSkip, nil
}

// renderPath renders each path component as a template string (§4.E steps
// 1-3). suppressed is true if any rendered component is empty.
func renderPath(e *gotmpl.Engine, relPath, suffix string, data map[string]any) (rendered string, suppressed bool, err error) {
	parts := strings.Split(relPath, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		r, err := e.RenderString(part, data)
		if err != nil {
			return "", false, err
		}
		if r == "" {
			return "", true, nil
		}
		out = append(out, r)
	}

	last := len(out) - 1
	out[last] = strings.TrimSuffix(out[last], suffix)

	return strings.Join(out, "/"), false, nil
}

// loadContent returns the bytes to write for srcPath: rendered through the
// template engine if it has the templates suffix, else copied verbatim
// (§4.E content rendering).
func loadContent(rfs fscommon.FS, srcPath, suffix string, e *gotmpl.Engine, data map[string]any) ([]byte, error) {
	raw, err := rfs.ReadFile(srcPath)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(srcPath, suffix) {
		return raw, nil
	}
	rendered, err := e.RenderString(string(raw), data)
	if err != nil {
		return nil, err
	}
	return []byte(rendered), nil
}

// relPath is a '/'-separated equivalent of filepath.Rel, since template
// paths are always compared and matched using forward slashes regardless
// of host OS.
func relPath(root, full string) (string, error) {
	rel := strings.TrimPrefix(full, root)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		return ".", nil
	}
	return rel, nil
}

// iofsWalkDirSorted walks root in deterministic lexicographic order (§5
// "two runs on the same inputs produce byte-identical destinations");
// fs.WalkDir already visits entries in sorted order per its package docs.
func iofsWalkDirSorted(rfs fscommon.FS, root string, fn func(p string, d iofs.DirEntry) error) error {
	return iofs.WalkDir(rfs, root, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		return fn(p, d)
	})
}

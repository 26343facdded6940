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

// Package update implements the Update Orchestrator (component G): the
// shadow-render/diff/apply algorithm of §4.G, which preserves a
// destination's post-scaffolding edits across a template version bump.
package update

import (
	"context"
	"fmt"

	"github.com/abcxyz/pkg/logging"

	"github.com/abcxyz/gocopier/templates/common/answers"
	"github.com/abcxyz/gocopier/templates/common/dirhash"
	fscommon "github.com/abcxyz/gocopier/templates/common/fs"
	"github.com/abcxyz/gocopier/templates/common/git"
	"github.com/abcxyz/gocopier/templates/common/pep440"
	"github.com/abcxyz/gocopier/templates/common/question"
	"github.com/abcxyz/gocopier/templates/common/render"
	"github.com/abcxyz/gocopier/templates/common/render/gotmpl"
	"github.com/abcxyz/gocopier/templates/common/rules"
	"github.com/abcxyz/gocopier/templates/common/task"
	"github.com/abcxyz/gocopier/templates/common/tempdir"
	"github.com/abcxyz/gocopier/templates/model"
	"github.com/abcxyz/gocopier/templates/model/config"
)

// ResultType is the outcome of Run.
type ResultType string

const (
	// AlreadyUpToDate means the old and new template trees are byte-identical;
	// no render, diff, or apply was performed.
	AlreadyUpToDate ResultType = "already_up_to_date"
	// Success means the full algorithm ran to completion.
	Success ResultType = "success"
)

// Result summarizes one update run.
type Result struct {
	Type            ResultType
	RejectedFiles   []string
	BeforeMigrations int
	AfterMigrations  int
}

// Params groups Run's parameters (§4.G).
type Params struct {
	OldTemplate *model.Template
	NewTemplate *model.Template
	Subproject  *model.Subproject

	FS      fscommon.FS
	Engine  *gotmpl.Engine
	Tracker *tempdir.DirTracker

	// WorkDir is the parent directory for scratch dirs (the shadow worker's
	// dir S); typically os.TempDir() in production, a t.TempDir() in tests.
	WorkDir string

	// LastAnswers is answers["_src_path"/"_commit" aside] as recorded in the
	// destination's answers file (§3 AnswersMap "last" layer).
	LastAnswers map[string]any

	SecretQuestions map[string]struct{}

	Interactive bool
	Prompter    question.Prompter

	// CallerExclude/CallerSkipIfExists add to the template's own patterns for
	// both the shadow render and the real render (§4.E).
	CallerExclude      []string
	CallerSkipIfExists []string

	Force bool
	Quiet bool

	// CleanupOnError recursively removes the destination if it did not exist
	// before this run and loading or resolving the new template's questions,
	// the re-render, or the apply fails (steps 7-9, §4.G Failure semantics);
	// a failing after-migration (step 10) does not trigger it.
	CleanupOnError     bool
	DestExistedBefore  bool
}

// Run drives the full algorithm.
func Run(ctx context.Context, p *Params) (result *Result, outErr error) {
	logger := logging.FromContext(ctx).With("logger", "update.Run")

	if err := p.Subproject.Validate(); err != nil {
		return nil, err
	}

	if err := checkDowngrade(p.OldTemplate, p.NewTemplate); err != nil {
		return nil, err
	}

	if same, err := sameTree(p.OldTemplate, p.NewTemplate); err != nil {
		return nil, err
	} else if same {
		logger.DebugContext(ctx, "old and new template trees are identical, skipping render/diff/apply")
		return &Result{Type: AlreadyUpToDate}, nil
	}

	// Step 1-2: shadow worker renders the old template + last answers into a
	// fresh scratch dir S.
	shadowDir, err := p.Tracker.MkdirTempTracked(p.WorkDir, tempdir.ShadowDirNamePart)
	if err != nil {
		return nil, fmt.Errorf("creating shadow scratch dir: %w", err)
	}

	shadowAnswers := answers.New()
	for k, v := range p.LastAnswers {
		shadowAnswers.Last[k] = v
	}
	p.Engine.SetRoot(p.OldTemplate.CopyRoot())
	if _, err := render.Run(ctx, &render.Params{
		FS:                 p.FS,
		Template:           p.OldTemplate,
		Engine:             p.Engine,
		Data:               renderContext(shadowAnswers, p.Subproject, p.OldTemplate),
		DestDir:            shadowDir,
		CallerExclude:      p.CallerExclude,
		CallerSkipIfExists: p.CallerSkipIfExists,
		Force:              true,
		Pretend:            false,
	}); err != nil {
		return nil, fmt.Errorf("shadow render of old template: %w", err)
	}

	// Step 3: two "dumb" commits so the diff tool has a stable head.
	if err := git.Init(ctx, shadowDir); err != nil {
		return nil, fmt.Errorf("initializing shadow repo: %w", err)
	}
	if err := git.ConfigSet(ctx, shadowDir, "user.email", "scratch@localhost"); err != nil {
		return nil, fmt.Errorf("configuring shadow repo: %w", err)
	}
	if err := git.ConfigSet(ctx, shadowDir, "user.name", "scratch"); err != nil {
		return nil, fmt.Errorf("configuring shadow repo: %w", err)
	}
	if err := git.AddAll(ctx, shadowDir); err != nil {
		return nil, fmt.Errorf("staging shadow repo: %w", err)
	}
	if err := git.Commit(ctx, shadowDir, "shadow: first commit", true); err != nil {
		return nil, fmt.Errorf("first shadow commit: %w", err)
	}
	if err := git.AddAll(ctx, shadowDir); err != nil {
		return nil, fmt.Errorf("staging shadow repo: %w", err)
	}
	if err := git.Commit(ctx, shadowDir, "shadow: second commit", false); err != nil {
		return nil, fmt.Errorf("second shadow commit: %w", err)
	}

	// Step 4: fetch the real destination's HEAD into the shadow repo.
	if err := git.RemoteAdd(ctx, shadowDir, "dest", p.Subproject.LocalAbspath); err != nil {
		return nil, fmt.Errorf("adding destination remote: %w", err)
	}
	if err := git.FetchDepth1(ctx, shadowDir, "dest", "HEAD"); err != nil {
		return nil, fmt.Errorf("fetching destination HEAD: %w", err)
	}

	// Step 5: unified diff between the shadow render and the real destination.
	interHunk := -1
	diffText, err := git.DiffTree(ctx, shadowDir, "HEAD...FETCH_HEAD", git.DiffTreeOpts{InterHunkContext: &interHunk})
	if err != nil {
		logger.DebugContext(ctx, "diff-tree with --inter-hunk-context=-1 failed, falling back to 0", "error", err)
		zero := 0
		diffText, err = git.DiffTree(ctx, shadowDir, "HEAD...FETCH_HEAD", git.DiffTreeOpts{InterHunkContext: &zero})
		if err != nil {
			return nil, fmt.Errorf("computing destination diff: %w", err)
		}
	}

	// Step 6: before-migrations.
	beforeCount, err := runMigrations(ctx, p, "before", taskStageBefore)
	if err != nil {
		return nil, fmt.Errorf("running before-migrations: %w", err)
	}

	// Steps 7-8: recompute the AnswersMap against the new template and
	// re-render into the real destination. newAnswers starts from the same
	// Last layer as shadowAnswers, so clone it rather than re-copying
	// p.LastAnswers a second time.
	newAnswers := shadowAnswers.Clone()

	loaded, err := config.Load(ctx, p.NewTemplate.LocalAbspath)
	if err != nil {
		cleanupOnError(ctx, p, &outErr)
		return nil, fmt.Errorf("loading new template config: %w", err)
	}
	p.Engine.SetRoot(p.NewTemplate.CopyRoot())
	if err := question.Resolve(ctx, &question.ResolveParams{
		Questions:       loaded.Questions,
		Answers:         newAnswers,
		Engine:          p.Engine,
		Interactive:     p.Interactive,
		Prompter:        p.Prompter,
		SecretQuestions: p.SecretQuestions,
		QuestionRules:   questionRules(loaded.Questions),
	}); err != nil {
		cleanupOnError(ctx, p, &outErr)
		return nil, fmt.Errorf("resolving new template questions: %w", err)
	}

	if _, err := render.Run(ctx, &render.Params{
		FS:                 p.FS,
		Template:           p.NewTemplate,
		Engine:             p.Engine,
		Data:               renderContext(newAnswers, p.Subproject, p.NewTemplate),
		DestDir:            p.Subproject.LocalAbspath,
		CallerExclude:      p.CallerExclude,
		CallerSkipIfExists: p.CallerSkipIfExists,
		Force:              true,
	}); err != nil {
		cleanupOnError(ctx, p, &outErr)
		return nil, fmt.Errorf("rendering new template into destination: %w", err)
	}

	// Step 9: apply the cached diff with --reject, excluding the answers file
	// and skip_if_exists patterns.
	excludes := append([]string{p.Subproject.AnswersRelPath}, p.NewTemplate.SkipIfExistsPatterns...)
	excludes = append(excludes, p.CallerSkipIfExists...)
	applyResult, err := git.Apply(ctx, p.Subproject.LocalAbspath, diffText, excludes)
	if err != nil {
		cleanupOnError(ctx, p, &outErr)
		return nil, fmt.Errorf("applying destination diff: %w", err)
	}
	if len(applyResult.RejectedFiles) > 0 {
		logger.WarnContext(ctx, "some hunks were rejected and saved to .rej sidecars", "paths", applyResult.RejectedFiles)
	}

	// Step 10: after-migrations.
	afterCount, err := runMigrations(ctx, p, "after", taskStageAfter)
	if err != nil {
		return nil, fmt.Errorf("running after-migrations: %w", err)
	}

	return &Result{
		Type:             Success,
		RejectedFiles:    applyResult.RejectedFiles,
		BeforeMigrations: beforeCount,
		AfterMigrations:  afterCount,
	}, nil
}

type taskStage string

const (
	taskStageBefore taskStage = "before"
	taskStageAfter  taskStage = "after"
)

// checkDowngrade implements §4.G's downgrade check: if both commits parse as
// versions and old > new, refuse.
func checkDowngrade(oldT, newT *model.Template) error {
	oldV, err1 := pep440.Parse(oldT.Commit)
	newV, err2 := pep440.Parse(newT.Commit)
	if err1 != nil || err2 != nil {
		return nil // not version-taggable; downgrade check doesn't apply
	}
	if oldV.GreaterThan(newV) {
		return model.NewUserMessageError("refusing to downgrade template from %s to %s", oldT.Commit, newT.Commit)
	}
	return nil
}

// sameTree reports whether the old and new template copy roots are
// byte-identical, the no-op fast path.
func sameTree(oldT, newT *model.Template) (bool, error) {
	oldHash, err := dirhash.HashTree(oldT.CopyRoot())
	if err != nil {
		return false, fmt.Errorf("hashing old template tree: %w", err)
	}
	newHash, err := dirhash.HashTree(newT.CopyRoot())
	if err != nil {
		return false, fmt.Errorf("hashing new template tree: %w", err)
	}
	return oldHash == newHash, nil
}

// runMigrations runs every migration in newT.Migrations whose Applicability
// range (old < v <= new, §3) contains the update, for the given stage.
func runMigrations(ctx context.Context, p *Params, stageName string, stage taskStage) (int, error) {
	oldV, err1 := pep440.Parse(p.OldTemplate.Commit)
	newV, err2 := pep440.Parse(p.NewTemplate.Commit)
	if err1 != nil || err2 != nil {
		return 0, nil // migrations are version-gated; skip silently if unversioned
	}

	count := 0
	for _, m := range p.NewTemplate.Migrations {
		mv, err := pep440.Parse(m.Version)
		if err != nil {
			continue
		}
		if !pep440.InRange(oldV, mv, newV) {
			continue
		}
		tasks := m.Before
		if stage == taskStageAfter {
			tasks = m.After
		}
		if len(tasks) == 0 {
			continue
		}
		if err := task.Run(ctx, &task.Params{
			Tasks:          tasks,
			Engine:         p.Engine,
			Data:           map[string]any{},
			WorkingDir:     p.Subproject.LocalAbspath,
			Stage:          stageName,
			FromVersion:    p.OldTemplate.Commit,
			ToVersion:      p.NewTemplate.Commit,
			VersionCurrent: m.Version,
			Quiet:          p.Quiet,
		}); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func cleanupOnError(ctx context.Context, p *Params, outErr *error) {
	if !p.CleanupOnError || p.DestExistedBefore {
		return
	}
	logger := logging.FromContext(ctx).With("logger", "update.cleanupOnError")
	logger.WarnContext(ctx, "removing destination created by this run after failure", "path", p.Subproject.LocalAbspath)
	if err := p.FS.RemoveAll(p.Subproject.LocalAbspath); err != nil {
		*outErr = fmt.Errorf("%w (additionally failed to clean up destination: %v)", *outErr, err)
	}
}

// renderContext builds the full RenderContext (§3): the combined answers
// plus the engine's reserved keys.
func renderContext(am *answers.Map, sp *model.Subproject, t *model.Template) map[string]any {
	combined := am.Combined()
	out := make(map[string]any, len(combined)+3)
	for k, v := range combined {
		out[k] = v
	}
	out["_copier_answers"] = am.Persistable(t.Commit, t.SourceURL, nil)
	out["_copier_conf"] = map[string]any{
		"src_path": t.SourceURL,
		"commit":   t.Commit,
	}
	out["_folder_name"] = baseName(sp.LocalAbspath)
	return out
}

func baseName(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}

// questionRules builds the per-question CEL rule map question.Resolve
// expects, from the new template's declared questions.
func questionRules(qs []model.Question) map[string][]rules.Rule {
	out := make(map[string][]rules.Rule, len(qs))
	for _, q := range qs {
		if len(q.Rules) > 0 {
			out[q.Name] = q.Rules
		}
	}
	return out
}

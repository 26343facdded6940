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

// Package resolve glues together the Template Locator and Config Loader
// (components A and B): given a TemplateRef it produces a fully populated
// *model.Template, with every _-prefixed copier.yml setting folded in. Every
// caller (the copy, update, and auto commands) needs exactly this
// combination, so it lives here once rather than being repeated per command.
package resolve

import (
	"context"
	"fmt"

	"github.com/abcxyz/gocopier/templates/common/tempdir"
	"github.com/abcxyz/gocopier/templates/common/templatesource"
	"github.com/abcxyz/gocopier/templates/model"
	"github.com/abcxyz/gocopier/templates/model/config"
)

// Template resolves ref to a working copy and loads its config file,
// returning a *model.Template with every Settings-derived field populated.
func Template(ctx context.Context, ref model.TemplateRef, workDir string, tracker *tempdir.DirTracker) (*model.Template, error) {
	tmpl, err := templatesource.Resolve(ctx, ref, workDir, tracker)
	if err != nil {
		return nil, fmt.Errorf("resolving template source: %w", err)
	}

	loaded, err := config.Load(ctx, tmpl.LocalAbspath)
	if err != nil {
		return nil, fmt.Errorf("loading template config: %w", err)
	}

	applySettings(tmpl, &loaded.Settings)
	tmpl.QuestionsData = loaded.Questions

	return tmpl, nil
}

// applySettings folds a config.Settings (the merged, flattened copier.yml)
// into tmpl, per §4.B/§4.C's split between "what the template declares" and
// "what the Template Locator already knows" (subdirectory, suffix).
func applySettings(tmpl *model.Template, s *config.Settings) {
	if tmpl.Subdirectory == "" {
		tmpl.Subdirectory = s.Subdirectory
	}
	if s.TemplatesSuffix != "" {
		tmpl.TemplatesSuffix = s.TemplatesSuffix
	}
	tmpl.ExcludePatterns = append(model.DefaultExcludePatterns(), s.Exclude...)
	tmpl.SkipIfExistsPatterns = s.SkipIfExists
	tmpl.Tasks = s.Tasks
	tmpl.Migrations = s.Migrations
	tmpl.EnvOps = s.EnvOps
	tmpl.SecretQuestions = s.SecretQuestions
	tmpl.MinEngineVersion = s.MinCopierVersion

	tmpl.AnswersRelPath = s.AnswersFile
	if tmpl.AnswersRelPath == "" {
		tmpl.AnswersRelPath = model.DefaultAnswersRelPath
	}
}

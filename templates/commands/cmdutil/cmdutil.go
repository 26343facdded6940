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

// Package cmdutil holds small pieces shared by the copy, update, and auto
// commands: the overwrite-prompt adapter and the --data flag conversion,
// so neither is duplicated three times.
package cmdutil

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abcxyz/gocopier/templates/common/answers"
	fscommon "github.com/abcxyz/gocopier/templates/common/fs"
	"github.com/abcxyz/gocopier/templates/common/question"
	"github.com/abcxyz/gocopier/templates/common/rules"
	"github.com/abcxyz/gocopier/templates/model"
)

// ConfirmPrompter adapts a question.Prompter (the abstract "ask the user a
// line of text" contract every command type already satisfies) into the
// render package's yes/no OverwritePrompter.
type ConfirmPrompter struct {
	P question.Prompter
}

// Confirm implements render.OverwritePrompter.
func (c *ConfirmPrompter) Confirm(ctx context.Context, msg string) (bool, error) {
	raw, err := c.P.Prompt(ctx, msg+" [Y/n] ")
	if err != nil {
		return false, fmt.Errorf("prompting for confirmation: %w", err)
	}
	raw = strings.ToLower(strings.TrimSpace(raw))
	return raw == "" || raw == "y" || raw == "yes", nil
}

// DataToInit converts the --data KEY=VALUE flag map into the AnswersMap's
// Init layer: raw strings, taken as already correctly typed (the same
// assumption the engine's renderValue makes for any non-string default).
func DataToInit(data map[string]string) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

// LoadDataFile reads a --data-file: a YAML or JSON document (JSON parses as
// a YAML subset) whose top-level keys become Init-layer answers. A --data-file
// is layered before individual --data flags, which take precedence over it.
func LoadDataFile(f fscommon.FS, path string) (map[string]any, error) {
	raw, err := f.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading --data-file %q: %w", path, err)
	}
	var out map[string]any
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parsing --data-file %q: %w", path, err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// RenderContext builds the RenderContext (§3) the render pipeline and task
// runner see: the combined answers plus the engine's reserved _copier_*
// keys, for a destination not yet tracked as a model.Subproject.
func RenderContext(am *answers.Map, destAbs string, t *model.Template) map[string]any {
	combined := am.Combined()
	out := make(map[string]any, len(combined)+3)
	for k, v := range combined {
		out[k] = v
	}
	out["_copier_answers"] = am.Persistable(t.Commit, t.SourceURL, t.SecretQuestions)
	out["_copier_conf"] = map[string]any{
		"src_path": t.SourceURL,
		"commit":   t.Commit,
	}
	out["_folder_name"] = baseName(destAbs)
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

// QuestionRules builds the per-question CEL rule map a question.ResolveParams
// expects, from a template's declared questions (§4.B's supplemental "rules"
// extension).
func QuestionRules(qs []model.Question) map[string][]rules.Rule {
	out := make(map[string][]rules.Rule, len(qs))
	for _, q := range qs {
		if len(q.Rules) > 0 {
			out[q.Name] = q.Rules
		}
	}
	return out
}

// SplitRecordedAnswers separates a loaded answers file into its reserved
// "_src_path"/"_commit" keys and the plain answer keys suitable for an
// AnswersMap's Last layer (§3, §4.G step 1).
func SplitRecordedAnswers(raw map[string]any) (srcPath, commit string, last map[string]any) {
	last = make(map[string]any, len(raw))
	for k, v := range raw {
		switch k {
		case "_src_path":
			srcPath, _ = v.(string)
		case "_commit":
			commit, _ = v.(string)
		default:
			if len(k) > 0 && k[0] == '_' {
				continue
			}
			last[k] = v
		}
	}
	return srcPath, commit, last
}

// ExitCode maps an engine error to the process exit code documented in §6:
// 0 success, 1 a user/validation error, 2 a config error, or a task's own
// propagated exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var userErr *model.UserMessageError
	if errors.As(err, &userErr) {
		return 1
	}

	var configErr *model.ConfigFileError
	if errors.As(err, &configErr) {
		return 2
	}
	var versionErr *model.UnsupportedVersionError
	if errors.As(err, &versionErr) {
		return 2
	}

	var taskErr *model.TaskFailureError
	if errors.As(err, &taskErr) {
		if taskErr.ExitCode != 0 {
			return taskErr.ExitCode
		}
		return 1
	}

	return 1
}

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

// Package model holds the core data types shared by every component of the
// engine: the template reference and its resolved form, questions, tasks,
// migrations, and the destination-side subproject. These are plain value
// types; the behavior that produces and consumes them lives in the
// sibling packages (config, answers, question, render, task, update).
package model

import (
	"fmt"

	"github.com/abcxyz/gocopier/templates/common/rules"
)

// VCSKind identifies the version control system managing a Template or
// Subproject's working copy, per §3 and the VCS port in §6.
type VCSKind string

const (
	VCSNone VCSKind = ""
	VCSGit  VCSKind = "git"
)

// Default settings, per §3.
const (
	DefaultTemplatesSuffix = ".tmpl"
	DefaultAnswersRelPath  = ".copier-answers.yml"
)

// DefaultExcludePatterns is the baseline exclude set every Template starts
// with, before the template's own `_exclude` and any caller-supplied
// patterns are appended (§3 Template.exclude_patterns).
func DefaultExcludePatterns() []string {
	return []string{
		"copier.yml",
		"copier.yaml",
		".git",
		".git/*",
		"~*",
		"*.py[co]",
		"__pycache__",
		"__pycache__/*",
		".DS_Store",
	}
}

// TemplateRef identifies a template to resolve: a local directory or a VCS
// URL with an optional ref, per §3. Immutable once constructed.
type TemplateRef struct {
	URL            string
	Ref            string
	UsePrereleases bool
}

// EnvOps are the template engine's delimiter and whitespace settings
// (§3 Template.envops, §9 "template-engine delimiter collision"). The
// zero value is meaningless; use DefaultEnvOps.
type EnvOps struct {
	BlockStart          string
	BlockEnd            string
	VariableStart       string
	VariableEnd         string
	CommentStart        string
	CommentEnd          string
	KeepTrailingNewline bool
	TrimBlocks          bool
	LstripBlocks        bool
}

// DefaultEnvOps returns the engine's default delimiters: "[[ ]]" for
// variables rather than the more common "{{ }}", chosen (per §9) to avoid
// colliding with the native brace syntax of many rendered target languages.
func DefaultEnvOps() EnvOps {
	return EnvOps{
		BlockStart:    "[%",
		BlockEnd:      "%]",
		VariableStart: "[[",
		VariableEnd:   "]]",
		CommentStart:  "[#",
		CommentEnd:    "#]",
		TrimBlocks:    true,
		LstripBlocks:  true,
	}
}

// Question is one declared entry in a template's questions_data (§3, §4.D).
// Type, Default, Help, Placeholder and Choices may themselves be template
// strings (except Choices entries, which are rendered element-wise) and are
// rendered against the in-progress AnswersMap before use.
type Question struct {
	Name        string
	Type        string // rendered against current context; defaults to "yaml"
	Default     any    // raw, pre-render form (may be a template string or a literal)
	Help        string
	Placeholder string
	Choices     any // []any, or a mapping; nil if unset
	Secret      bool
	Rules       []rules.Rule // supplemental CEL validation rules, if any
}

// QuestionType enumerates the recognized §3 question types.
type QuestionType string

const (
	QuestionBool  QuestionType = "bool"
	QuestionInt   QuestionType = "int"
	QuestionFloat QuestionType = "float"
	QuestionStr   QuestionType = "str"
	QuestionJSON  QuestionType = "json"
	QuestionYAML  QuestionType = "yaml"
)

// Task is one entry of Template.tasks or a Migration's before/after list
// (§3, §4.F). Exactly one of Command or Argv is set after decoding.
type Task struct {
	Command  string   // shell form; rendered then passed to the system shell
	Argv     []string // argv form; each element rendered, then exec'd directly
	ExtraEnv map[string]string
}

// Migration is a version-tagged bundle of tasks run before/after an update
// when the update range crosses Version (§3, §4.G step 6/10).
type Migration struct {
	Version string // PEP-440-ish version string
	Before  []Task
	After   []Task
}

// Template is the resolved, on-disk view of a TemplateRef (§3). LocalAbspath
// must be an absolute directory; AnswersRelPath must be relative.
type Template struct {
	LocalAbspath         string
	Commit               string // "" if not VCS-tracked
	VCS                  VCSKind
	SourceURL            string // the TemplateRef.URL this was resolved from
	Subdirectory         string
	TemplatesSuffix      string
	ExcludePatterns      []string
	SkipIfExistsPatterns []string
	Tasks                []Task
	Migrations           []Migration
	EnvOps               EnvOps
	QuestionsData        []Question
	SecretQuestions      map[string]struct{}
	AnswersRelPath       string
	MinEngineVersion     string
}

// CopyRoot returns the directory the Render Pipeline walks: LocalAbspath
// joined with Subdirectory (the "copy root" of the GLOSSARY).
func (t *Template) CopyRoot() string {
	if t.Subdirectory == "" {
		return t.LocalAbspath
	}
	return t.LocalAbspath + "/" + t.Subdirectory
}

// Subproject is a destination directory generated (or to be generated) by
// the engine, carrying an answers file (§3).
type Subproject struct {
	LocalAbspath         string
	AnswersRelPath       string
	LastAnswers          map[string]any
	VCS                  VCSKind
	TemplateRefFromAnswers *TemplateRef
}

// Validate reports whether s is in a usable state for an update: a git
// working copy with a known source template and commit (§4.G Preconditions).
func (s *Subproject) Validate() error {
	if s.VCS != VCSGit {
		return fmt.Errorf("destination %q is not a git working copy; update requires git", s.LocalAbspath)
	}
	if s.TemplateRefFromAnswers == nil || s.TemplateRefFromAnswers.URL == "" {
		return fmt.Errorf("destination %q has no recorded _src_path in its answers file", s.LocalAbspath)
	}
	if s.TemplateRefFromAnswers.Ref == "" {
		return fmt.Errorf("destination %q has no recorded _commit in its answers file", s.LocalAbspath)
	}
	return nil
}

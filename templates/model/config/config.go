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

// Package config implements the Config Loader (component B): it reads a
// template's copier.yml/copier.yaml, expands "!include" glob tags, flattens
// and merges the resulting documents, and splits the merged mapping into
// engine settings and questions per §4.B.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/abcxyz/pkg/logging"
	"gopkg.in/yaml.v3"

	"github.com/abcxyz/gocopier/internal/version"
	"github.com/abcxyz/gocopier/templates/common/graph"
	"github.com/abcxyz/gocopier/templates/common/pep440"
	"github.com/abcxyz/gocopier/templates/common/rules"
	"github.com/abcxyz/gocopier/templates/model"
)

// configFileNames are the two accepted config file basenames; at most one
// may be present at the template root (§4.B, §6).
var configFileNames = []string{"copier.yml", "copier.yaml"}

// Loaded is the split result of §4.B's filter_config: engine settings plus
// the ordered list of questions.
type Loaded struct {
	Settings  Settings
	Questions []model.Question
}

// Settings holds the recognized underscore-prefixed top-level keys, stripped
// of their leading underscore (§4.B, §6); unrecognized ones are ignored.
type Settings struct {
	MinCopierVersion string
	EnvOps           model.EnvOps
	Exclude          []string
	SkipIfExists     []string
	Subdirectory     string
	Tasks            []model.Task
	TemplatesSuffix  string
	Migrations       []model.Migration
	AnswersFile      string
	SecretQuestions  map[string]struct{}
}

// Load finds the template's config file under templateRoot, expands
// "!include" tags, merges the result, and splits it into Settings and
// Questions. It also enforces the minimum-engine-version gate (§4.B).
func Load(ctx context.Context, templateRoot string) (*Loaded, error) {
	logger := logging.FromContext(ctx).With("logger", "config.Load")

	configPath, err := findConfigFile(templateRoot)
	if err != nil {
		return nil, err
	}
	logger.DebugContext(ctx, "found config file", "path", configPath)

	l := &loader{includeGraph: map[string][]string{}}
	merged, err := l.loadMergedFile(configPath, map[string]bool{})
	if err != nil {
		return nil, err
	}

	if _, err := graph.TopoSortGeneric(l.includeGraph); err != nil {
		return nil, &model.ConfigFileError{Reason: "include_cycle", Paths: []string{configPath}, Err: err}
	}

	loaded, err := filterConfig(merged)
	if err != nil {
		return nil, err
	}

	if err := checkMinVersion(loaded.Settings.MinCopierVersion, version.EngineVersion()); err != nil {
		return nil, err
	}

	return loaded, nil
}

// findConfigFile locates the single copier.yml or copier.yaml at
// templateRoot, per §4.B's "more than one copier.{yml,yaml}" fatal error.
func findConfigFile(templateRoot string) (string, error) {
	var found []string
	for _, name := range configFileNames {
		p := filepath.Join(templateRoot, name)
		if _, err := os.Stat(p); err == nil {
			found = append(found, p)
		}
	}
	switch len(found) {
	case 0:
		return "", &model.ConfigFileError{Reason: "missing_config_file", Paths: []string{templateRoot}}
	case 1:
		return found[0], nil
	default:
		return "", &model.ConfigFileError{Reason: "multiple_config_files", Paths: found}
	}
}

// loader tracks the !include graph discovered while resolving a config
// file tree, so cycles can be reported via templates/common/graph.
type loader struct {
	includeGraph map[string][]string
}

// loadMergedFile reads the YAML document(s) in path, expands any "!include"
// tags found among them (recursively), and returns the single merged
// mapping (later keys/documents win), per §4.B's flatten-then-merge rule.
//
// ancestors is the set of file paths currently being expanded, used to
// avoid infinite recursion on a cycle; the cycle itself is detected
// authoritatively afterward via the recorded includeGraph.
func (l *loader) loadMergedFile(path string, ancestors map[string]bool) (*orderedMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var docs []yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	for {
		var doc yaml.Node
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &model.ConfigFileError{Reason: "invalid_yaml", Paths: []string{path}, Err: err}
		}
		docs = append(docs, doc)
	}

	if ancestors == nil {
		ancestors = map[string]bool{}
	}
	selfAncestors := map[string]bool{}
	for k, v := range ancestors {
		selfAncestors[k] = v
	}
	selfAncestors[path] = true

	merged := newOrderedMap()
	for _, doc := range docs {
		maps, err := l.resolveNode(&doc, filepath.Dir(path), path, selfAncestors)
		if err != nil {
			return nil, err
		}
		for _, m := range maps {
			merged.merge(m)
		}
	}
	return merged, nil
}

// resolveNode resolves a single parsed YAML node (a document's root node,
// or a node nested one level for a top-level sequence) into zero or more
// mappings, expanding "!include" tags as it goes. Each mapping preserves the
// key order it appeared in the YAML document (§4.D: questions resolve in
// declared order).
func (l *loader) resolveNode(n *yaml.Node, baseDir, selfPath string, ancestors map[string]bool) ([]*orderedMap, error) {
	// yaml.Node from Decoder.Decode is a DocumentNode wrapping the real root.
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return nil, nil
		}
		return l.resolveNode(n.Content[0], baseDir, selfPath, ancestors)
	}

	if n.Tag == "!include" {
		return l.expandInclude(n, baseDir, selfPath, ancestors)
	}

	switch n.Kind {
	case yaml.MappingNode:
		m, err := decodeOrderedMapping(n, selfPath)
		if err != nil {
			return nil, err
		}
		return []*orderedMap{m}, nil
	case yaml.SequenceNode:
		var out []*orderedMap
		for _, c := range n.Content {
			sub, err := l.resolveNode(c, baseDir, selfPath, ancestors)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil
	default:
		return nil, &model.ConfigFileError{
			Reason: "invalid_yaml", Paths: []string{selfPath},
			Err: fmt.Errorf("top-level document must be a mapping, a sequence, or !include, got %v", n.Tag),
		}
	}
}

// decodeOrderedMapping decodes a MappingNode's keys in document order
// instead of dumping it into a plain map (which Go randomizes on range).
func decodeOrderedMapping(n *yaml.Node, selfPath string) (*orderedMap, error) {
	m := newOrderedMap()
	for i := 0; i+1 < len(n.Content); i += 2 {
		var key string
		if err := n.Content[i].Decode(&key); err != nil {
			return nil, &model.ConfigFileError{Reason: "invalid_yaml", Paths: []string{selfPath}, Err: err}
		}
		var val any
		if err := n.Content[i+1].Decode(&val); err != nil {
			return nil, &model.ConfigFileError{Reason: "invalid_yaml", Paths: []string{selfPath}, Err: err}
		}
		m.set(key, val)
	}
	return m, nil
}

// expandInclude handles a node tagged "!include <glob>": it globs siblings
// of selfPath (sorted order), records an edge in the include graph for
// cycle detection, and recursively merges each matched file.
func (l *loader) expandInclude(n *yaml.Node, baseDir, selfPath string, ancestors map[string]bool) ([]*orderedMap, error) {
	var globPattern string
	if err := n.Decode(&globPattern); err != nil {
		return nil, fmt.Errorf("!include value must be a glob string: %w", err)
	}

	matches, err := filepath.Glob(filepath.Join(baseDir, globPattern))
	if err != nil {
		return nil, fmt.Errorf("!include glob %q: %w", globPattern, err)
	}
	sort.Strings(matches)

	var out []*orderedMap
	for _, m := range matches {
		l.includeGraph[selfPath] = append(l.includeGraph[selfPath], m)

		if ancestors[m] {
			// Cycle; don't recurse further. TopoSortGeneric over the full
			// includeGraph will authoritatively report this after Load
			// finishes discovering all edges.
			continue
		}

		merged, err := l.loadMergedFile(m, ancestors)
		if err != nil {
			return nil, err
		}
		out = append(out, merged)
	}
	return out, nil
}

// filterConfig implements §4.B's split rules over the fully merged config
// mapping, visiting keys in declared document order (§4.D).
func filterConfig(merged *orderedMap) (*Loaded, error) {
	settings := Settings{
		EnvOps:          model.DefaultEnvOps(),
		TemplatesSuffix: model.DefaultTemplatesSuffix,
		AnswersFile:     model.DefaultAnswersRelPath,
		SecretQuestions: map[string]struct{}{},
	}
	var questions []model.Question

	for _, k := range merged.keys {
		v := merged.values[k]

		if k == "_secret_questions" {
			names, err := toStringSlice(v)
			if err != nil {
				return nil, fmt.Errorf("_secret_questions: %w", err)
			}
			for _, name := range names {
				settings.SecretQuestions[name] = struct{}{}
			}
			continue
		}

		if strings.HasPrefix(k, "_") {
			if err := applySetting(&settings, strings.TrimPrefix(k, "_"), v); err != nil {
				return nil, err
			}
			continue
		}

		q, err := toQuestion(k, v)
		if err != nil {
			return nil, err
		}
		if q.Secret {
			settings.SecretQuestions[q.Name] = struct{}{}
		}
		questions = append(questions, q)
	}

	return &Loaded{Settings: settings, Questions: questions}, nil
}

func applySetting(s *Settings, name string, v any) error {
	switch name {
	case "min_copier_version":
		s.MinCopierVersion, _ = v.(string)
	case "subdirectory":
		s.Subdirectory, _ = v.(string)
	case "templates_suffix":
		s.TemplatesSuffix, _ = v.(string)
	case "answers_file":
		s.AnswersFile, _ = v.(string)
	case "exclude":
		ss, err := toStringSlice(v)
		if err != nil {
			return fmt.Errorf("_exclude: %w", err)
		}
		s.Exclude = ss
	case "skip_if_exists":
		ss, err := toStringSlice(v)
		if err != nil {
			return fmt.Errorf("_skip_if_exists: %w", err)
		}
		s.SkipIfExists = ss
	case "envops":
		if err := decodeInto(v, &s.EnvOps); err != nil {
			return fmt.Errorf("_envops: %w", err)
		}
	case "tasks":
		tasks, err := toTasks(v)
		if err != nil {
			return fmt.Errorf("_tasks: %w", err)
		}
		s.Tasks = tasks
	case "migrations":
		migrations, err := toMigrations(v)
		if err != nil {
			return fmt.Errorf("_migrations: %w", err)
		}
		s.Migrations = migrations
	default:
		// Unknown engine setting: ignored, matching the source's tolerance
		// of forward-compatible settings it doesn't yet recognize.
	}
	return nil
}

// toQuestion promotes a bare scalar/list/map value to {default: v} (§4.B)
// and decodes the mapping form into a model.Question.
func toQuestion(name string, v any) (model.Question, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return model.Question{Name: name, Type: string(model.QuestionYAML), Default: v}, nil
	}

	q := model.Question{Name: name, Type: string(model.QuestionYAML)}
	if t, ok := m["type"].(string); ok && t != "" {
		q.Type = t
	}
	if d, ok := m["default"]; ok {
		q.Default = d
	}
	if h, ok := m["help"].(string); ok {
		q.Help = h
	}
	if p, ok := m["placeholder"].(string); ok {
		q.Placeholder = p
	}
	if c, ok := m["choices"]; ok {
		q.Choices = c
	}
	if s, ok := m["secret"].(bool); ok {
		q.Secret = s
	}
	if r, ok := m["rules"]; ok {
		rs, err := toRules(r)
		if err != nil {
			return model.Question{}, fmt.Errorf("question %q: %w", name, err)
		}
		q.Rules = rs
	}
	return q, nil
}

// toRules parses a question's "rules" key: a list, each entry either a bare
// CEL expression string or a {expression, message} mapping (§4.B, a
// supplemental cross-field validation pass beyond type-casting).
func toRules(v any) ([]rules.Rule, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("rules: expected a list, got %T", v)
	}
	out := make([]rules.Rule, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case string:
			out = append(out, rules.Rule{Expr: t})
		case map[string]any:
			r := rules.Rule{}
			r.Expr, _ = t["expression"].(string)
			r.Message, _ = t["message"].(string)
			if r.Expr == "" {
				return nil, fmt.Errorf("rules: mapping entry missing \"expression\"")
			}
			out = append(out, r)
		default:
			return nil, fmt.Errorf("rules: expected a string or mapping entry, got %T", item)
		}
	}
	return out, nil
}

func toTasks(v any) ([]model.Task, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list")
	}
	out := make([]model.Task, 0, len(items))
	for _, item := range items {
		t, err := toTask(item)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func toTask(v any) (model.Task, error) {
	switch val := v.(type) {
	case string:
		return model.Task{Command: val}, nil
	case map[string]any:
		t := model.Task{}
		switch cmd := val["task"].(type) {
		case string:
			t.Command = cmd
		case []any:
			argv, err := toStringSlice(cmd)
			if err != nil {
				return model.Task{}, err
			}
			t.Argv = argv
		}
		if env, ok := val["extra_env"].(map[string]any); ok {
			t.ExtraEnv = map[string]string{}
			for k, ev := range env {
				t.ExtraEnv[k] = fmt.Sprintf("%v", ev)
			}
		}
		return t, nil
	default:
		return model.Task{}, fmt.Errorf("task entries must be a string or mapping, got %T", v)
	}
}

func toMigrations(v any) ([]model.Migration, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list")
	}
	out := make([]model.Migration, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("migration entries must be mappings")
		}
		mig := model.Migration{}
		if ver, ok := m["version"].(string); ok {
			mig.Version = ver
		}
		if before, ok := m["before"]; ok {
			tasks, err := toTasks(before)
			if err != nil {
				return nil, fmt.Errorf("migration %s before: %w", mig.Version, err)
			}
			mig.Before = tasks
		}
		if after, ok := m["after"]; ok {
			tasks, err := toTasks(after)
			if err != nil {
				return nil, fmt.Errorf("migration %s after: %w", mig.Version, err)
			}
			mig.After = tasks
		}
		out = append(out, mig)
	}
	return out, nil
}

func toStringSlice(v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		if s, ok := v.(string); ok {
			return []string{s}, nil
		}
		return nil, fmt.Errorf("expected a list of strings, got %T", v)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string list entry, got %T", item)
		}
		out = append(out, s)
	}
	return out, nil
}

// decodeInto round-trips v (already-decoded-to-any YAML data) through the
// YAML marshaler into dst, avoiding a second file read just to populate a
// strongly typed struct like model.EnvOps.
func decodeInto(v any, dst any) error {
	b, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, dst)
}

// checkMinVersion enforces §4.B's version gate: skipped entirely for a
// sentinel ("0.0.0", i.e. an editable/dev build per version.EngineVersion).
// current is injected (rather than read globally) so callers, including
// tests, can exercise the gate against an arbitrary engine version.
func checkMinVersion(required, current string) error {
	if required == "" {
		return nil
	}
	if current == version.EngineVersionSentinel {
		return nil
	}

	currentVer, err := pep440.Parse(current)
	if err != nil {
		return fmt.Errorf("internal error: engine version %q isn't a valid version: %w", current, err)
	}
	requiredVer, err := pep440.Parse(required)
	if err != nil {
		return fmt.Errorf("_min_copier_version %q isn't a valid version: %w", required, err)
	}

	if currentVer.LessThan(requiredVer) {
		return &model.UnsupportedVersionError{Required: required, Current: current}
	}
	return nil
}

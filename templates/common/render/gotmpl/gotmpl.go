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

// Package gotmpl is the sandboxed template engine required by §4.E and §9:
// every template string in a question, a path, or a file's contents is
// rendered through it. It is built on text/template, which is sandboxed by
// construction — an executing template can only reach the data and
// functions explicitly passed to it, never host runtime internals.
//
// text/template recognizes a single delimiter pair for every action
// (variables, conditionals, loops, comments alike), unlike Jinja's three
// separate pairs (variable/block/comment). Template.envops's
// VariableStart/VariableEnd is used as that one delimiter pair; BlockStart/
// BlockEnd/CommentStart/CommentEnd are accepted for config compatibility
// but are not separately meaningful to this engine.
package gotmpl

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	sprig "github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"

	"github.com/abcxyz/gocopier/templates/model"
)

// Engine renders template strings against a data map using one fixed set
// of delimiters and a fixed function registry (§9 "Sandbox + filter
// registry").
type Engine struct {
	envops  model.EnvOps
	funcMap template.FuncMap

	// root is the directory "include" resolves a sibling file against, as
	// passed to SetRoot. Unset until SetRoot is called; "include" errors if
	// invoked before that.
	root string
}

// New constructs an Engine using sprig's general-purpose helpers plus the
// required to_nice_yaml filter (§4.E).
func New(envops model.EnvOps) *Engine {
	e := &Engine{envops: envops}
	funcs := sprig.TxtFuncMap()
	funcs["to_nice_yaml"] = toNiceYAML
	funcs["include"] = e.include
	e.funcMap = funcs
	return e
}

// SetRoot binds the engine's "include" loader to templateRoot, so a
// template's include references resolve within that directory. Every caller
// passes the template's copy root (local_abspath joined with subdirectory),
// so when a subdirectory is set, files outside it cannot be included. Call
// it before rendering, and again whenever the engine switches to another
// template.
func (e *Engine) SetRoot(templateRoot string) {
	e.root = templateRoot
}

// include loads relPath relative to the engine's root and renders it
// against data, for use as `{{ include "partials/header.tmpl" . }}` inside
// a template. text/template's own {{template}}/{{define}} actions require
// every named template to be parsed up front, which doesn't fit a template
// tree whose files aren't known until the Render Pipeline walks it; a
// function that loads-then-renders on demand covers the same need.
func (e *Engine) include(relPath string, data map[string]any) (string, error) {
	if e.root == "" {
		return "", fmt.Errorf("include %q: engine has no root bound (SetRoot was never called)", relPath)
	}
	raw, err := os.ReadFile(filepath.Join(e.root, relPath))
	if err != nil {
		return "", fmt.Errorf("include %q: %w", relPath, err)
	}
	return e.RenderString(string(raw), data)
}

// RenderString renders tmplStr against data. An empty tmplStr renders to
// the empty string without invoking the template engine.
func (e *Engine) RenderString(tmplStr string, data map[string]any) (string, error) {
	if tmplStr == "" {
		return "", nil
	}

	t := template.New("gocopier").
		Delims(e.envops.VariableStart, e.envops.VariableEnd).
		Funcs(e.funcMap).
		Option("missingkey=zero")

	parsed, err := t.Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("parsing template %q: %w", tmplStr, err)
	}

	var buf bytes.Buffer
	if err := parsed.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template %q: %w", tmplStr, err)
	}
	return buf.String(), nil
}

// toNiceYAML serializes v as block-style YAML, for use as "| to_nice_yaml"
// inside a rendered template (§4.E).
func toNiceYAML(v any) (string, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("to_nice_yaml: %w", err)
	}
	return string(b), nil
}

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

// Package question implements the Question Resolver (component D): for
// each declared question, it computes the rendered default, prompts
// interactively when appropriate, casts the answer to the declared type,
// and deposits it into the AnswersMap, per §4.D.
package question

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"regexp"
	"strconv"

	"github.com/abcxyz/pkg/logging"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/abcxyz/gocopier/templates/common/answers"
	"github.com/abcxyz/gocopier/templates/common/render/gotmpl"
	"github.com/abcxyz/gocopier/templates/common/rules"
	"github.com/abcxyz/gocopier/templates/model"
)

// Prompter prints a message to the user and returns their response. This is
// the same abstract contract abc's CLI layer implements for its command
// types; the engine depends only on this interface, never a concrete
// terminal library.
type Prompter interface {
	Prompt(ctx context.Context, msg string, args ...any) (string, error)
	Stdin() io.Reader
}

// PrefillPrompter is an optional extension a Prompter may implement to
// preload an editable default into the user's input line, used for the
// yaml-typed placeholder behavior of §4.D.
type PrefillPrompter interface {
	Prompter
	PromptWithDefault(ctx context.Context, msg, defaultText string) (string, error)
}

// ResolveParams groups Resolve's parameters (there are many), mirroring the
// teacher's ResolveParams grouping pattern.
type ResolveParams struct {
	Questions []model.Question
	Answers   *answers.Map
	Engine    *gotmpl.Engine

	// Interactive enables prompting; when false every question falls back
	// to Init then Last then its rendered default, never blocking on I/O.
	Interactive bool

	Prompter Prompter

	// SkipPromptTTYCheck bypasses the "is stdin a terminal" check, for
	// tests that provide a non-TTY stdin.
	SkipPromptTTYCheck bool

	// QuestionRules maps a question name to its supplemental CEL rules
	// (SPEC_FULL.md DOMAIN STACK; not part of spec.md's §4.D proper).
	QuestionRules map[string][]rules.Rule

	// SecretQuestions is the set of question names declared secret (§3,
	// §4.C); used here only to enforce supplemented feature 5 (a secret
	// question's value must not be used as another question's choices
	// source).
	SecretQuestions map[string]struct{}
}

var typeParsers = map[string]func(string) (any, error){
	string(model.QuestionBool): func(s string) (any, error) {
		return strconv.ParseBool(s)
	},
	string(model.QuestionInt): func(s string) (any, error) {
		return strconv.ParseInt(s, 10, 64)
	},
	string(model.QuestionFloat): func(s string) (any, error) {
		return strconv.ParseFloat(s, 64)
	},
	string(model.QuestionStr): func(s string) (any, error) {
		return s, nil
	},
	string(model.QuestionJSON): func(s string) (any, error) {
		var out any
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
		return out, nil
	},
	string(model.QuestionYAML): func(s string) (any, error) {
		var out any
		if err := yaml.Unmarshal([]byte(s), &out); err != nil {
			return nil, fmt.Errorf("invalid yaml: %w", err)
		}
		return out, nil
	},
}

// Resolve resolves every question in declared order, mutating rp.Answers
// in place (§4.D).
func Resolve(ctx context.Context, rp *ResolveParams) error {
	if rp.Interactive && !rp.SkipPromptTTYCheck {
		if rp.Prompter == nil || rp.Prompter.Stdin() != os.Stdin || !isatty.IsTerminal(os.Stdin.Fd()) {
			return model.NewUserMessageError("interactive prompting was requested, but standard input is not a terminal")
		}
	}

	for _, q := range rp.Questions {
		if err := resolveOne(ctx, rp, q); err != nil {
			return fmt.Errorf("question %q: %w", q.Name, err)
		}
	}
	return nil
}

func resolveOne(ctx context.Context, rp *ResolveParams, q model.Question) error {
	data := rp.Answers.Combined()

	qType := q.Type
	if qType == "" {
		qType = string(model.QuestionYAML)
	}
	renderedType, err := renderAny(rp.Engine, qType, data)
	if err != nil {
		return fmt.Errorf("rendering type: %w", err)
	}
	typeName, _ := renderedType.(string)
	parser, ok := typeParsers[typeName]
	if !ok {
		return &model.InvalidTypeError{Question: q.Name, Type: typeName}
	}

	if err := validateChoicesDontUseSecrets(q, rp.SecretQuestions); err != nil {
		return err
	}

	renderedDefault, err := renderValue(rp.Engine, q.Default, data, parser)
	if err != nil {
		return fmt.Errorf("rendering default: %w", err)
	}
	rp.Answers.Default[q.Name] = renderedDefault

	var answer any
	forced := false
	if v, ok := rp.Answers.Init[q.Name]; ok {
		answer = v
		forced = true
	} else if v, ok := rp.Answers.Last[q.Name]; ok {
		answer = v
	} else {
		answer = renderedDefault
	}

	if rp.Interactive && !forced {
		renderedHelp, err := renderAny(rp.Engine, q.Help, data)
		if err != nil {
			return fmt.Errorf("rendering help: %w", err)
		}
		renderedPlaceholder, err := renderAny(rp.Engine, q.Placeholder, data)
		if err != nil {
			return fmt.Errorf("rendering placeholder: %w", err)
		}
		if _, err := renderChoices(rp.Engine, q.Choices, data); err != nil {
			return fmt.Errorf("rendering choices: %w", err)
		}

		answer, err = prompt(ctx, rp, q, typeName, parser, renderedHelp.(string), renderedPlaceholder, renderedDefault)
		if err != nil {
			return err
		}
	}

	if err := rules.Validate(ctx, mergeScope(data, q.Name, answer), rp.QuestionRules[q.Name]); err != nil {
		return err
	}

	if !rawEqual(answer, q.Default) {
		rp.Answers.SetUser(q.Name, answer)
	}
	return nil
}

// prompt implements §4.D step e: prompt with the rendered help and
// placeholder and parse the input via the type's parser. The yaml-type
// placeholder preload logic of §4.D is applied here too. Choices are not
// shown in the prompt and the answer is not checked against them;
// resolveOne renders them only to report template errors.
func prompt(ctx context.Context, rp *ResolveParams, q model.Question, typeName string, parser func(string) (any, error), help string, placeholder any, renderedDefault any) (any, error) {
	msg := q.Name
	if help != "" {
		msg = fmt.Sprintf("%s (%s)", q.Name, help)
	}

	prefill := ""
	if typeName == string(model.QuestionYAML) {
		if ph, ok := placeholder.(string); ok && ph != "" {
			if defStr, ok := renderedDefault.(string); ok {
				combined := ph + defStr
				parsed, err := parser(combined)
				if err == nil && reflect.DeepEqual(parsed, renderedDefault) {
					prefill = combined
				} else {
					logging.FromContext(ctx).WarnContext(ctx, "discarding placeholder: prefixed to the default it changes the parsed value",
						"question", q.Name)
				}
			}
		}
	}

	var raw string
	var err error
	if pp, ok := rp.Prompter.(PrefillPrompter); ok && prefill != "" {
		raw, err = pp.PromptWithDefault(ctx, msg, prefill)
	} else {
		raw, err = rp.Prompter.Prompt(ctx, msg)
	}
	if err != nil {
		return nil, fmt.Errorf("prompting for %q: %w", q.Name, err)
	}
	if raw == "" {
		return renderedDefault, nil
	}

	parsed, err := parser(raw)
	if err != nil {
		return nil, model.NewUserMessageError("invalid value for %q: %v", q.Name, err)
	}
	return parsed, nil
}

// renderValue renders v (if it's a string) then casts it with parser; a
// non-string v is assumed already correctly typed and is passed through.
func renderValue(e *gotmpl.Engine, v any, data map[string]any, parser func(string) (any, error)) (any, error) {
	s, ok := v.(string)
	if !ok {
		if v == nil {
			return nil, nil
		}
		return v, nil
	}
	rendered, err := e.RenderString(s, data)
	if err != nil {
		return nil, err
	}
	return parser(rendered)
}

// renderAny renders v if it is a string template; otherwise returns it
// unchanged.
func renderAny(e *gotmpl.Engine, v any, data map[string]any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	return e.RenderString(s, data)
}

// renderChoices renders each choices entry element-wise: a (value, label)
// pair renders both; a mapping renders both key and value (§4.D).
func renderChoices(e *gotmpl.Engine, raw any, data map[string]any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			if pair, ok := item.([]any); ok && len(pair) == 2 {
				rv, err := renderAny(e, pair[0], data)
				if err != nil {
					return nil, err
				}
				rl, err := renderAny(e, pair[1], data)
				if err != nil {
					return nil, err
				}
				out[i] = []any{rv, rl}
				continue
			}
			rv, err := renderAny(e, item, data)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	case map[string]any:
		out := map[string]any{}
		for k, val := range v {
			rk, err := e.RenderString(k, data)
			if err != nil {
				return nil, err
			}
			rv, err := renderAny(e, val, data)
			if err != nil {
				return nil, err
			}
			out[rk] = rv
		}
		return out, nil
	default:
		return renderAny(e, raw, data)
	}
}

// rawEqual implements the Open Question 1 decision: an answer is recorded
// in the user layer only when it differs from the question's *raw*
// (unrendered) default field, not the rendered default.
func rawEqual(answer, rawDefault any) bool {
	return reflect.DeepEqual(answer, rawDefault)
}

// validateChoicesDontUseSecrets forbids a secret question's value from
// being used as another question's choices source (supplemented feature 5
// in SPEC_FULL.md, a corollary of secret non-persistence). Choices is
// rendered as a template string, so this is a best-effort word-boundary
// scan of the raw (pre-render) template text for a reference to a secret
// question's name.
func validateChoicesDontUseSecrets(q model.Question, secretQuestions map[string]struct{}) error {
	raw, ok := q.Choices.(string)
	if !ok {
		return nil
	}
	for name := range secretQuestions {
		if name == q.Name {
			continue
		}
		if regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`).MatchString(raw) {
			return model.NewUserMessageError("question %q's choices must not reference secret question %q", q.Name, name)
		}
	}
	return nil
}

func mergeScope(data map[string]any, name string, answer any) map[string]any {
	out := make(map[string]any, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	out[name] = answer
	return out
}

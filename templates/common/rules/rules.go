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

// Package rules evaluates the supplemental per-question "rules" extension:
// CEL boolean expressions checked against the resolved answer scope, for
// cross-field validation beyond what a question's declared type can catch
// on its own (e.g. "size(name) < 64", "project_id != base_name"). This is
// not part of the question type/cast machinery in §4.D; it is an opt-in
// validation pass a template may declare per question.
package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/abcxyz/pkg/logging"
)

// Rule is one CEL expression attached to a question, with an optional
// human-readable failure message.
type Rule struct {
	Expr    string
	Message string
}

// Validate runs every rule against scope (the flattened AnswersMap plus the
// value currently being validated) and returns a combined error describing
// every violated rule, or nil if all rules passed.
func Validate(ctx context.Context, scope map[string]any, rs []Rule) error {
	var failed []string
	for _, r := range rs {
		ok, err := evalBool(ctx, scope, r.Expr)
		if err == nil && ok {
			continue
		}
		msg := r.Message
		if msg == "" {
			msg = r.Expr
		}
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s (CEL error: %v)", msg, err))
		} else {
			failed = append(failed, msg)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("validation failed:\n%s", joinLines(failed))
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += "  - " + l
	}
	return out
}

// evalBool compiles and evaluates expr against scope, requiring a boolean
// result.
func evalBool(ctx context.Context, scope map[string]any, expr string) (bool, error) {
	startedAt := time.Now()

	opts := make([]cel.EnvOption, 0, len(scope))
	for name := range scope {
		opts = append(opts, cel.Variable(name, cel.DynType))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return false, fmt.Errorf("configuring CEL environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if err := issues.Err(); err != nil {
		return false, fmt.Errorf("compiling CEL expression %q: %w", expr, err)
	}

	prog, err := env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("constructing CEL program for %q: %w", expr, err)
	}

	out, _, err := prog.Eval(scope)
	if err != nil {
		return false, fmt.Errorf("evaluating CEL expression %q: %w", expr, err)
	}

	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("CEL expression %q must evaluate to a bool, got %T", expr, asGoValue(out))
	}

	latency := time.Since(startedAt)
	logger := logging.FromContext(ctx).With("logger", "rules.evalBool")
	logger.DebugContext(ctx, "cel evaluation time", "expr", expr, "duration_human", latency.String())

	return bool(b), nil
}

func asGoValue(v ref.Val) any {
	return v.Value()
}

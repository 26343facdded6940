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

// Package task implements the Task Runner (component F): it executes a
// template's declared tasks (and a migration's before/after tasks) in
// order, rendering each command against the render context first, per
// §4.F.
package task

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/fatih/color"

	"github.com/abcxyz/gocopier/templates/common/render/gotmpl"
	"github.com/abcxyz/gocopier/templates/model"
)

// DefaultTimeout bounds a single task's execution when the caller's context
// carries no deadline of its own, matching the teacher's run package default.
const DefaultTimeout = 5 * time.Minute

// Params groups Run's parameters.
type Params struct {
	Tasks []model.Task

	// Engine/Data render each task's Command or Argv elements against the
	// current answers before execution (§4.F).
	Engine *gotmpl.Engine
	Data   map[string]any

	WorkingDir string

	// Stage is reported to the task via the STAGE env var: "task" for a
	// template's ordinary tasks, or "before"/"after" for a migration's.
	Stage string

	// FromVersion/ToVersion populate VERSION_FROM/VERSION_TO for migration
	// tasks; left empty for ordinary render-time tasks.
	FromVersion string
	ToVersion   string

	// VersionCurrent populates VERSION_CURRENT for a migration task: the
	// version of the migration itself, as distinct from the update's overall
	// FromVersion/ToVersion span. Left empty for ordinary render-time tasks.
	VersionCurrent string

	Stdout io.Writer
	Stderr io.Writer

	// Quiet suppresses the "> Running task i of N" progress line.
	Quiet bool
}

// Run executes every task in order, stopping at the first failure (§4.F
// "fails fast").
func Run(ctx context.Context, p *Params) error {
	for i, t := range p.Tasks {
		if !p.Quiet {
			label := color.New(color.FgCyan).SprintFunc()
			fmt.Fprintf(errWriter(p.Stderr), "%s\n", label(fmt.Sprintf("> Running task %d of %d", i+1, len(p.Tasks))))
		}
		if err := runOne(ctx, p, t); err != nil {
			return fmt.Errorf("task %d of %d: %w", i+1, len(p.Tasks), err)
		}
	}
	return nil
}

func runOne(ctx context.Context, p *Params, t model.Task) error {
	argv, err := renderArgv(p.Engine, t, p.Data)
	if err != nil {
		return fmt.Errorf("rendering task: %w", err)
	}
	if len(argv) == 0 {
		return errors.New("task has neither command nor argv")
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	var cmd *exec.Cmd
	if t.Command != "" {
		cmd = exec.CommandContext(ctx, "sh", "-c", argv[0]) //nolint:gosec // executing the rendered command is the whole point
	} else {
		cmd = exec.CommandContext(ctx, argv[0], argv[1:]...) //nolint:gosec
	}
	cmd.Dir = p.WorkingDir
	cmd.Env = taskEnv(p, t)

	stdoutBuf := &bytes.Buffer{}
	stderrBuf := &bytes.Buffer{}
	cmd.Stdout = multiWriter(p.Stdout, stdoutBuf)
	cmd.Stderr = multiWriter(p.Stderr, stderrBuf)

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return &model.TaskFailureError{
			Command:  describeTask(t),
			ExitCode: exitCode,
			Err:      fmt.Errorf("%w\nstdout: %s\nstderr: %s", err, stdoutBuf.String(), stderrBuf.String()),
		}
	}
	return nil
}

// renderArgv renders the task's Command (as one shell string) or each Argv
// element independently, per §4.F.
func renderArgv(e *gotmpl.Engine, t model.Task, data map[string]any) ([]string, error) {
	if t.Command != "" {
		rendered, err := e.RenderString(t.Command, data)
		if err != nil {
			return nil, err
		}
		return []string{rendered}, nil
	}
	out := make([]string, len(t.Argv))
	for i, a := range t.Argv {
		rendered, err := e.RenderString(a, data)
		if err != nil {
			return nil, err
		}
		out[i] = rendered
	}
	return out, nil
}

// taskEnv builds the task's environment: the parent process's environment,
// plus STAGE/VERSION_FROM/VERSION_TO/VERSION_CURRENT, plus the task's own
// ExtraEnv (§3, §4.F, §6).
func taskEnv(p *Params, t model.Task) []string {
	env := os.Environ()
	env = append(env, "STAGE="+p.Stage)
	if p.FromVersion != "" {
		env = append(env, "VERSION_FROM="+p.FromVersion)
	}
	if p.ToVersion != "" {
		env = append(env, "VERSION_TO="+p.ToVersion)
	}
	if p.VersionCurrent != "" {
		env = append(env, "VERSION_CURRENT="+p.VersionCurrent)
	}
	for k, v := range t.ExtraEnv {
		env = append(env, k+"="+v)
	}
	return env
}

func describeTask(t model.Task) string {
	if t.Command != "" {
		return t.Command
	}
	return fmt.Sprintf("%v", t.Argv)
}

func errWriter(w io.Writer) io.Writer {
	if w == nil {
		return os.Stderr
	}
	return w
}

func multiWriter(primary io.Writer, buf *bytes.Buffer) io.Writer {
	if primary == nil {
		return buf
	}
	return io.MultiWriter(primary, buf)
}

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

package task

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/abcxyz/gocopier/templates/common/render/gotmpl"
	"github.com/abcxyz/gocopier/templates/model"
)

func TestRun_CommandForm(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var stdout bytes.Buffer
	p := &Params{
		Tasks:      []model.Task{{Command: "echo [[ .msg ]]"}},
		Engine:     gotmpl.New(model.DefaultEnvOps()),
		Data:       map[string]any{"msg": "hello"},
		WorkingDir: dir,
		Stage:      "render",
		Stdout:     &stdout,
		Quiet:      true,
	}

	if err := Run(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
}

func TestRun_ArgvForm(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var stdout bytes.Buffer
	p := &Params{
		Tasks:      []model.Task{{Argv: []string{"echo", "[[ .msg ]]"}}},
		Engine:     gotmpl.New(model.DefaultEnvOps()),
		Data:       map[string]any{"msg": "world"},
		WorkingDir: dir,
		Stage:      "render",
		Stdout:     &stdout,
		Quiet:      true,
	}

	if err := Run(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "world" {
		t.Errorf("got %q, want %q", got, "world")
	}
}

func TestRun_FailsFast(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := &Params{
		Tasks: []model.Task{
			{Command: "exit 3"},
			{Command: "echo should-not-run"},
		},
		Engine:     gotmpl.New(model.DefaultEnvOps()),
		Data:       map[string]any{},
		WorkingDir: dir,
		Stage:      "render",
		Quiet:      true,
	}

	err := Run(context.Background(), p)
	if err == nil {
		t.Fatal("expected an error from the failing first task")
	}
}

func TestRun_EnvVars(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var stdout bytes.Buffer
	p := &Params{
		Tasks:          []model.Task{{Command: "echo $STAGE-$VERSION_FROM-$VERSION_TO-$VERSION_CURRENT"}},
		Engine:         gotmpl.New(model.DefaultEnvOps()),
		Data:           map[string]any{},
		WorkingDir:     dir,
		Stage:          "before",
		FromVersion:    "1.0.0",
		ToVersion:      "2.0.0",
		VersionCurrent: "1.5.0",
		Stdout:         &stdout,
		Quiet:          true,
	}

	if err := Run(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "before-1.0.0-2.0.0-1.5.0" {
		t.Errorf("got %q, want %q", got, "before-1.0.0-2.0.0-1.5.0")
	}
}

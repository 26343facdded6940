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

package question

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/abcxyz/gocopier/templates/common/answers"
	"github.com/abcxyz/gocopier/templates/common/render/gotmpl"
	"github.com/abcxyz/gocopier/templates/model"
)

// fakePrompter returns canned responses in order; it never touches a real
// terminal, so tests always set Interactive with SkipPromptTTYCheck.
type fakePrompter struct {
	responses []string
	i         int
}

func (f *fakePrompter) Prompt(ctx context.Context, msg string, args ...any) (string, error) {
	if f.i >= len(f.responses) {
		return "", nil
	}
	r := f.responses[f.i]
	f.i++
	return r, nil
}

func (f *fakePrompter) Stdin() io.Reader { return strings.NewReader("") }

func TestResolve_NonInteractive_UsesDefault(t *testing.T) {
	t.Parallel()

	am := answers.New()
	rp := &ResolveParams{
		Questions: []model.Question{
			{Name: "name", Type: "str", Default: "world"},
		},
		Answers: am,
		Engine:  gotmpl.New(model.DefaultEnvOps()),
	}

	if err := Resolve(context.Background(), rp); err != nil {
		t.Fatal(err)
	}

	got, ok := am.Get("name")
	if !ok || got != "world" {
		t.Errorf("got %v, %v, want world, true", got, ok)
	}
	if _, ok := am.User["name"]; ok {
		t.Errorf("expected no user-layer entry since answer equals the raw default")
	}
}

func TestResolve_Interactive_RecordsUserAnswer(t *testing.T) {
	t.Parallel()

	am := answers.New()
	rp := &ResolveParams{
		Questions: []model.Question{
			{Name: "name", Type: "str", Default: "world"},
		},
		Answers:            am,
		Engine:             gotmpl.New(model.DefaultEnvOps()),
		Interactive:        true,
		SkipPromptTTYCheck: true,
		Prompter:           &fakePrompter{responses: []string{"Ada"}},
	}

	if err := Resolve(context.Background(), rp); err != nil {
		t.Fatal(err)
	}

	if got, ok := am.Get("name"); !ok || got != "Ada" {
		t.Errorf("got %v, %v, want Ada, true", got, ok)
	}
	if am.User["name"] != "Ada" {
		t.Errorf("expected user layer to record the prompted answer")
	}
}

func TestResolve_InitLayerSkipsPrompt(t *testing.T) {
	t.Parallel()

	am := answers.New()
	am.Init["name"] = "Forced"
	rp := &ResolveParams{
		Questions: []model.Question{
			{Name: "name", Type: "str", Default: "world"},
		},
		Answers:            am,
		Engine:             gotmpl.New(model.DefaultEnvOps()),
		Interactive:        true,
		SkipPromptTTYCheck: true,
		Prompter:           &fakePrompter{responses: []string{"should-not-be-used"}},
	}

	if err := Resolve(context.Background(), rp); err != nil {
		t.Fatal(err)
	}
	if got, _ := am.Get("name"); got != "Forced" {
		t.Errorf("got %v, want Forced (init layer must not prompt)", got)
	}
}

func TestResolve_InvalidType(t *testing.T) {
	t.Parallel()

	am := answers.New()
	rp := &ResolveParams{
		Questions: []model.Question{{Name: "x", Type: "notatype", Default: "1"}},
		Answers:   am,
		Engine:    gotmpl.New(model.DefaultEnvOps()),
	}

	err := Resolve(context.Background(), rp)
	if err == nil {
		t.Fatal("expected an error for an unrecognized type")
	}
}

func TestResolve_SecretNotPersisted(t *testing.T) {
	t.Parallel()

	am := answers.New()
	rp := &ResolveParams{
		Questions: []model.Question{
			{Name: "token", Type: "str", Default: "x", Secret: true},
		},
		Answers:            am,
		Engine:             gotmpl.New(model.DefaultEnvOps()),
		Interactive:        true,
		SkipPromptTTYCheck: true,
		Prompter:           &fakePrompter{responses: []string{"shh"}},
	}

	if err := Resolve(context.Background(), rp); err != nil {
		t.Fatal(err)
	}

	persisted := am.Persistable("", "", map[string]struct{}{"token": {}})
	if _, ok := persisted["token"]; ok {
		t.Error("secret question must never appear in the persisted answers")
	}
}

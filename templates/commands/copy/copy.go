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

// Package copy implements the "copy" subcommand: a fresh render of a
// template into a (usually new) destination directory.
package copy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/abcxyz/pkg/cli"
	"github.com/abcxyz/pkg/logging"

	"github.com/abcxyz/gocopier/templates/common/answers"
	fscommon "github.com/abcxyz/gocopier/templates/common/fs"
	"github.com/abcxyz/gocopier/templates/common/question"
	"github.com/abcxyz/gocopier/templates/common/render"
	"github.com/abcxyz/gocopier/templates/common/render/gotmpl"
	"github.com/abcxyz/gocopier/templates/common/resolve"
	"github.com/abcxyz/gocopier/templates/common/task"
	"github.com/abcxyz/gocopier/templates/common/tempdir"
	"github.com/abcxyz/gocopier/templates/commands/cmdutil"
	"github.com/abcxyz/gocopier/templates/model"
)

// Command implements cli.Command for a fresh template render.
type Command struct {
	cli.BaseCommand
	flags Flags
}

// Desc implements cli.Command.
func (c *Command) Desc() string {
	return "render a template into a new or existing directory"
}

// Help implements cli.Command.
func (c *Command) Help() string {
	return `
Usage: {{ COMMAND }} [options] <source> [dest]

The {{ COMMAND }} command renders the given template into dest (default:
the current directory), prompting for or accepting --data answers to the
template's declared questions, and writes an answers file recording the
choices made so a later "update" can reapply them against a newer template
version.

The "<source>" may be a local directory or a git URL of the form
"host/org/repo[/subdir]"; the git ref to use is given by --vcs-ref.`
}

// Flags implements cli.Command.
func (c *Command) Flags() *cli.FlagSet {
	set := c.NewFlagSet()
	c.flags.Register(set)
	return set
}

// Run implements cli.Command.
func (c *Command) Run(ctx context.Context, args []string) error {
	if err := c.Flags().Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	ctx = logging.WithLogger(ctx, logging.NewFromEnv("GOCOPIER_"))

	fs := &fscommon.RealFS{}
	tracker := tempdir.NewDirTracker(fs, c.flags.NoCleanup)
	var outErr error
	defer tracker.DeferRemoveAll(ctx, &outErr)

	destAbs, err := filepath.Abs(c.flags.Dest)
	if err != nil {
		outErr = fmt.Errorf("resolving destination path: %w", err)
		return outErr
	}
	destExistedBefore, err := fscommon.Exists(fs, destAbs)
	if err != nil {
		outErr = fmt.Errorf("checking whether destination already exists: %w", err)
		return outErr
	}
	cleanupOnError := func() {
		if c.flags.NoCleanup || destExistedBefore {
			return
		}
		if rmErr := fs.RemoveAll(destAbs); rmErr != nil {
			outErr = fmt.Errorf("%w (additionally failed to clean up destination: %v)", outErr, rmErr)
		}
	}

	tmpl, err := resolve.Template(ctx, model.TemplateRef{
		URL:            c.flags.Source,
		Ref:            c.flags.VCSRef,
		UsePrereleases: c.flags.Prereleases,
	}, os.TempDir(), tracker)
	if err != nil {
		outErr = err
		return outErr
	}
	if c.flags.AnswersFile != "" {
		tmpl.AnswersRelPath = c.flags.AnswersFile
	}

	engine := gotmpl.New(tmpl.EnvOps)
	engine.SetRoot(tmpl.CopyRoot())

	am := answers.New()
	if c.flags.DataFile != "" {
		fileData, err := cmdutil.LoadDataFile(fs, c.flags.DataFile)
		if err != nil {
			outErr = err
			return outErr
		}
		am.Init = fileData
	}
	for k, v := range cmdutil.DataToInit(c.flags.Data) {
		am.Init[k] = v
	}

	if err := question.Resolve(ctx, &question.ResolveParams{
		Questions:       tmpl.QuestionsData,
		Answers:         am,
		Engine:          engine,
		Interactive:     c.flags.Prompt,
		Prompter:        c,
		SecretQuestions: tmpl.SecretQuestions,
		QuestionRules:   cmdutil.QuestionRules(tmpl.QuestionsData),
	}); err != nil {
		outErr = err
		return outErr
	}

	reports, err := render.Run(ctx, &render.Params{
		FS:                 fs,
		Template:           tmpl,
		Engine:             engine,
		Data:               cmdutil.RenderContext(am, destAbs, tmpl),
		DestDir:            destAbs,
		CallerExclude:      c.flags.Exclude,
		CallerSkipIfExists: c.flags.Skip,
		Force:              c.flags.Force,
		Pretend:            c.flags.Pretend,
		Prompter:           &cmdutil.ConfirmPrompter{P: c},
	})
	if err != nil {
		outErr = err
		cleanupOnError()
		return outErr
	}

	if !c.flags.Pretend {
		persistable := am.Persistable(tmpl.Commit, tmpl.SourceURL, tmpl.SecretQuestions)
		if err := answers.WriteFile(fs, destAbs, tmpl.AnswersRelPath, persistable); err != nil {
			outErr = fmt.Errorf("writing answers file: %w", err)
			cleanupOnError()
			return outErr
		}

		if err := task.Run(ctx, &task.Params{
			Tasks:      tmpl.Tasks,
			Engine:     engine,
			Data:       cmdutil.RenderContext(am, destAbs, tmpl),
			WorkingDir: destAbs,
			Stage:      "task",
			Stdout:     c.Stdout(),
			Stderr:     c.Stdout(),
			Quiet:      c.flags.Quiet,
		}); err != nil {
			outErr = err
			cleanupOnError()
			return outErr
		}
	}

	if !c.flags.Quiet {
		for _, r := range reports {
			fmt.Fprintf(c.Stdout(), "%s\t%s\n", r.Action, r.Path)
		}
	}

	return nil
}

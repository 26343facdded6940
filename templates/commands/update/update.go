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

// Package update implements the "update" subcommand: reapply a newer
// template version onto an existing destination via the shadow
// render/diff/apply algorithm, preserving the destination's own edits.
package update

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/abcxyz/pkg/cli"
	"github.com/abcxyz/pkg/logging"

	"github.com/abcxyz/gocopier/templates/commands/cmdutil"
	"github.com/abcxyz/gocopier/templates/common/answers"
	fscommon "github.com/abcxyz/gocopier/templates/common/fs"
	"github.com/abcxyz/gocopier/templates/common/git"
	"github.com/abcxyz/gocopier/templates/common/render/gotmpl"
	"github.com/abcxyz/gocopier/templates/common/resolve"
	"github.com/abcxyz/gocopier/templates/common/tempdir"
	"github.com/abcxyz/gocopier/templates/common/update"
	"github.com/abcxyz/gocopier/templates/model"
)

// Command implements cli.Command for reapplying a newer template version.
type Command struct {
	cli.BaseCommand
	flags Flags
}

// Desc implements cli.Command.
func (c *Command) Desc() string {
	return "update an existing directory to a newer template version"
}

// Help implements cli.Command.
func (c *Command) Help() string {
	return `
Usage: {{ COMMAND }} [options] [dest]

The {{ COMMAND }} command re-resolves the template recorded in dest's
answers file at --vcs-ref (default: latest), then reapplies it on top of
dest using a shadow render/diff/apply so dest's own edits survive the
bump. dest must be a git working copy with a "_src_path" recorded from a
previous "copy" or "update".`
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

	answersRelPath := model.DefaultAnswersRelPath
	raw, err := answers.ReadFile(fs, destAbs, answersRelPath)
	if err != nil {
		outErr = fmt.Errorf("reading destination's answers file: %w", err)
		return outErr
	}
	srcPath, commit, lastAnswers := cmdutil.SplitRecordedAnswers(raw)

	vcs := model.VCSNone
	if git.IsRepo(ctx, destAbs) {
		vcs = model.VCSGit
	}

	sp := &model.Subproject{
		LocalAbspath:   destAbs,
		AnswersRelPath: answersRelPath,
		LastAnswers:    lastAnswers,
		VCS:            vcs,
	}
	if srcPath != "" {
		sp.TemplateRefFromAnswers = &model.TemplateRef{URL: srcPath, Ref: commit}
	}
	if err := sp.Validate(); err != nil {
		outErr = err
		return outErr
	}

	oldTmpl, err := resolve.Template(ctx, model.TemplateRef{
		URL: srcPath,
		Ref: commit,
	}, os.TempDir(), tracker)
	if err != nil {
		outErr = fmt.Errorf("resolving the destination's current template version: %w", err)
		return outErr
	}

	newTmpl, err := resolve.Template(ctx, model.TemplateRef{
		URL:            srcPath,
		Ref:            c.flags.VCSRef,
		UsePrereleases: c.flags.Prereleases,
	}, os.TempDir(), tracker)
	if err != nil {
		outErr = fmt.Errorf("resolving the new template version: %w", err)
		return outErr
	}

	engine := gotmpl.New(newTmpl.EnvOps)

	if c.flags.DataFile != "" {
		fileData, err := cmdutil.LoadDataFile(fs, c.flags.DataFile)
		if err != nil {
			outErr = err
			return outErr
		}
		for k, v := range fileData {
			lastAnswers[k] = v
		}
	}
	for k, v := range cmdutil.DataToInit(c.flags.Data) {
		lastAnswers[k] = v
	}

	result, err := update.Run(ctx, &update.Params{
		OldTemplate:        oldTmpl,
		NewTemplate:        newTmpl,
		Subproject:         sp,
		FS:                 fs,
		Engine:             engine,
		Tracker:            tracker,
		WorkDir:            os.TempDir(),
		LastAnswers:        lastAnswers,
		SecretQuestions:    newTmpl.SecretQuestions,
		Interactive:        c.flags.Prompt,
		Prompter:           c,
		CallerExclude:      c.flags.Exclude,
		CallerSkipIfExists: c.flags.Skip,
		Force:              c.flags.Force,
		Quiet:              c.flags.Quiet,
		CleanupOnError:     !c.flags.NoCleanup,
		DestExistedBefore:  destExistedBefore,
	})
	if err != nil {
		outErr = err
		return outErr
	}

	if !c.flags.Quiet {
		switch result.Type {
		case update.AlreadyUpToDate:
			fmt.Fprintln(c.Stdout(), "already up to date")
		case update.Success:
			fmt.Fprintf(c.Stdout(), "updated to %s\n", newTmpl.Commit)
			if result.BeforeMigrations > 0 || result.AfterMigrations > 0 {
				fmt.Fprintf(c.Stdout(), "ran %d before-migration(s), %d after-migration(s)\n",
					result.BeforeMigrations, result.AfterMigrations)
			}
			for _, f := range result.RejectedFiles {
				fmt.Fprintf(c.Stdout(), "rejected hunk(s) saved to %s.rej\n", f)
			}
		}
	}

	return nil
}

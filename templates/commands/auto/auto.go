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

// Package auto implements the "auto" subcommand: it picks copy or update
// for you, by checking whether dest's answers file already records a
// "_src_path" (§6).
package auto

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/abcxyz/pkg/cli"
	"github.com/abcxyz/pkg/logging"

	"github.com/abcxyz/gocopier/templates/commands/cmdutil"
	"github.com/abcxyz/gocopier/templates/commands/copy"
	"github.com/abcxyz/gocopier/templates/commands/update"
	"github.com/abcxyz/gocopier/templates/common/answers"
	fscommon "github.com/abcxyz/gocopier/templates/common/fs"
	"github.com/abcxyz/gocopier/templates/model"
)

// Command implements cli.Command for the copy-or-update dispatcher.
type Command struct {
	cli.BaseCommand
	flags Flags
}

// Desc implements cli.Command.
func (c *Command) Desc() string {
	return "render or update, whichever dest's answers file calls for"
}

// Help implements cli.Command.
func (c *Command) Help() string {
	return `
Usage: {{ COMMAND }} [options] [source] <dest>

The {{ COMMAND }} command inspects dest's answers file: if it already
records a "_src_path" from a previous copy or update, {{ COMMAND }}
behaves like "update" (the given source, if any, is ignored); otherwise
it behaves like "copy", and source is required.`
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

	destAbs, err := filepath.Abs(c.flags.Dest)
	if err != nil {
		return fmt.Errorf("resolving destination path: %w", err)
	}

	fs := &fscommon.RealFS{}
	raw, err := answers.ReadFile(fs, destAbs, model.DefaultAnswersRelPath)
	if err != nil {
		return fmt.Errorf("reading destination's answers file: %w", err)
	}
	srcPath, _, _ := cmdutil.SplitRecordedAnswers(raw)

	if srcPath != "" {
		updateCmd := &update.Command{}
		updateCmd.SetStdout(c.Stdout())
		updateCmd.SetStdin(c.Stdin())
		return updateCmd.Run(ctx, c.updateArgs())
	}

	if c.flags.Source == "" {
		return fmt.Errorf("missing <source> argument: %q has no recorded _src_path, so a template source is required", c.flags.Dest)
	}
	copyCmd := &copy.Command{}
	copyCmd.SetStdout(c.Stdout())
	copyCmd.SetStdin(c.Stdin())
	return copyCmd.Run(ctx, c.copyArgs())
}

// copyArgs rebuilds the argument list a "copy" invocation would have been
// given, from the flags auto already parsed.
func (c *Command) copyArgs() []string {
	args := commonArgs(&c.flags)
	if c.flags.AnswersFile != "" {
		args = append(args, "--answers-file", c.flags.AnswersFile)
	}
	if c.flags.Pretend {
		args = append(args, "--pretend")
	}
	args = append(args, c.flags.Source, c.flags.Dest)
	return args
}

// updateArgs rebuilds the argument list an "update" invocation would have
// been given. source is never forwarded: update re-resolves it from dest's
// own answers file.
func (c *Command) updateArgs() []string {
	args := commonArgs(&c.flags)
	args = append(args, c.flags.Dest)
	return args
}

// commonArgs builds the flag portion shared by copy and update (everything
// but the positional args and copy's answers-file/pretend).
func commonArgs(f *Flags) []string {
	var args []string
	args = append(args, "--vcs-ref", f.VCSRef)
	if f.Prereleases {
		args = append(args, "--prereleases")
	}
	for k, v := range f.Data {
		args = append(args, "--data", k+"="+v)
	}
	if f.DataFile != "" {
		args = append(args, "--data-file", f.DataFile)
	}
	for _, e := range f.Exclude {
		args = append(args, "--exclude", e)
	}
	for _, s := range f.Skip {
		args = append(args, "--skip", s)
	}
	if f.Force {
		args = append(args, "--force")
	}
	if f.Quiet {
		args = append(args, "--quiet")
	}
	if f.Prompt {
		args = append(args, "--prompt")
	}
	if f.NoCleanup {
		args = append(args, "--no-cleanup")
	}
	return args
}

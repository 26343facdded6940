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

package update

import (
	"strings"

	"github.com/abcxyz/pkg/cli"
)

// Flags describes where to update and how (§6 CLI surface).
type Flags struct {
	// Dest is the existing destination to update in place. Defaults to ".".
	Dest string

	VCSRef      string
	Prereleases bool

	Data     map[string]string
	DataFile string

	Exclude []string
	Skip    []string

	Force  bool
	Quiet  bool
	Prompt bool

	// NoCleanup disables both the scratch-dir removal done via DirTracker and
	// the destination cleanup-on-error rule; useful for debugging a failed run.
	NoCleanup bool
}

func (f *Flags) Register(set *cli.FlagSet) {
	s := set.NewSection("UPDATE OPTIONS")

	s.StringVar(&cli.StringVar{
		Name:    "vcs-ref",
		Example: "v1.2.3",
		Default: "latest",
		Target:  &f.VCSRef,
		Usage:   "The git ref (tag, branch, or commit) of the template to update to.",
	})

	s.BoolVar(&cli.BoolVar{
		Name:    "prereleases",
		Target:  &f.Prereleases,
		Default: false,
		Usage:   "Allow prerelease tags to be considered when --vcs-ref=latest.",
	})

	s.StringMapVar(&cli.StringMapVar{
		Name:    "data",
		Example: "name=myapp",
		Target:  &f.Data,
		Usage:   "The key=val pairs of answers to new template questions; may be repeated.",
	})

	s.StringVar(&cli.StringVar{
		Name:    "data-file",
		Example: "answers.yml",
		Target:  &f.DataFile,
		Usage:   "A YAML or JSON file of answers, layered in before --data (which takes precedence).",
	})

	s.StringSliceVar(&cli.StringSliceVar{
		Name:    "exclude",
		Example: "*.bak",
		Target:  &f.Exclude,
		Usage:   "An additional gitignore-style pattern of paths to skip entirely; may be repeated.",
	})

	s.StringSliceVar(&cli.StringSliceVar{
		Name:    "skip",
		Example: ".env",
		Target:  &f.Skip,
		Usage:   "An additional gitignore-style pattern of paths to leave untouched if they already exist; may be repeated.",
	})

	s.BoolVar(&cli.BoolVar{
		Name:    "force",
		Target:  &f.Force,
		Default: false,
		Usage:   "Has no effect on update: the new template is always rendered over existing files without prompting, and hunks that don't reapply are saved to .rej files.",
	})

	s.BoolVar(&cli.BoolVar{
		Name:    "quiet",
		Target:  &f.Quiet,
		Default: false,
		Usage:   "Suppress the per-task progress output.",
	})

	s.BoolVar(&cli.BoolVar{
		Name:    "prompt",
		Target:  &f.Prompt,
		Default: false,
		Usage:   "Prompt for any new question not answered by --data or carried over from the last run.",
	})

	s.BoolVar(&cli.BoolVar{
		Name:    "no-cleanup",
		Target:  &f.NoCleanup,
		Default: false,
		Usage:   "Don't remove the shadow working tree, or a destination this run created, after a failure.",
	})

	set.AfterParse(func(existingErr error) error {
		f.Dest = strings.TrimSpace(set.Arg(0))
		if f.Dest == "" {
			f.Dest = "."
		}
		return nil
	})
}

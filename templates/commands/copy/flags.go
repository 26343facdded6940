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

package copy

import (
	"fmt"
	"strings"

	"github.com/abcxyz/pkg/cli"
)

// Flags describes what template to copy, where, and how (§6 CLI surface).
type Flags struct {
	// Source is the location of the template to render: a local path or a
	// "host/org/repo[/subdir]" git URL (the ref comes from VCSRef).
	Source string

	// Dest is the directory the rendered template is written into. It's OK
	// for it to already exist or not.
	Dest string

	VCSRef      string
	Prereleases bool

	Data     map[string]string
	DataFile string

	Exclude []string
	Skip    []string

	AnswersFile string

	Force   bool
	Pretend bool
	Quiet   bool
	Prompt  bool

	// NoCleanup disables both the scratch-dir removal done via DirTracker and
	// the destination cleanup-on-error rule (§4.G/§7, generalized to copy);
	// useful for debugging a failed or interrupted run.
	NoCleanup bool
}

func (f *Flags) Register(set *cli.FlagSet) {
	s := set.NewSection("COPY OPTIONS")

	s.StringVar(&cli.StringVar{
		Name:    "vcs-ref",
		Example: "v1.2.3",
		Default: "latest",
		Target:  &f.VCSRef,
		Usage:   "The git ref (tag, branch, or commit) of the template to use.",
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
		Usage:   "The key=val pairs of answers to template questions; may be repeated.",
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

	s.StringVar(&cli.StringVar{
		Name:    "answers-file",
		Default: "",
		Target:  &f.AnswersFile,
		Usage:   "Override the path (relative to dest) the answers file is written to; defaults to the template's own _answers_file setting.",
	})

	s.BoolVar(&cli.BoolVar{
		Name:    "force",
		Target:  &f.Force,
		Default: false,
		Usage:   "Overwrite existing destination files that differ from the rendered output, without prompting.",
	})

	s.BoolVar(&cli.BoolVar{
		Name:    "pretend",
		Target:  &f.Pretend,
		Default: false,
		Usage:   "Run the full pipeline but write nothing to disk; report what would happen.",
	})

	s.BoolVar(&cli.BoolVar{
		Name:    "quiet",
		Target:  &f.Quiet,
		Default: false,
		Usage:   "Suppress the per-task progress output.",
	})

	s.BoolVar(&cli.BoolVar{
		Name:   "prompt",
		Target: &f.Prompt,

		// Defaults to false for the same reason abc's render command gives:
		// an unexpected interactive prompt is more surprising than a clear
		// "missing answer" failure when this command is run from a script.
		Default: false,
		Usage:   "Prompt for any question not answered by --data.",
	})

	s.BoolVar(&cli.BoolVar{
		Name:    "no-cleanup",
		Target:  &f.NoCleanup,
		Default: false,
		Usage:   "Don't remove scratch directories or a partially-written destination after a failure; useful for debugging a template.",
	})

	set.AfterParse(func(existingErr error) error {
		f.Source = strings.TrimSpace(set.Arg(0))
		if f.Source == "" {
			return fmt.Errorf("missing <source> argument")
		}
		f.Dest = strings.TrimSpace(set.Arg(1))
		if f.Dest == "" {
			f.Dest = "."
		}
		return nil
	})
}

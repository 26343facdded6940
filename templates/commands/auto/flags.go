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

package auto

import (
	"fmt"
	"strings"

	"github.com/abcxyz/pkg/cli"
)

// Flags is the union of copy.Flags and update.Flags (§6): auto picks one of
// the two pipelines at Run time, so it must accept whichever set of flags
// that pipeline will need.
type Flags struct {
	// Source is only required when dest has no recorded "_src_path" (the
	// copy path). Two positional args means {source, dest}; one means
	// {dest} alone, with Source left empty for the update path to fill in
	// from dest's own answers file.
	Source string
	Dest   string

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

	NoCleanup bool
}

func (f *Flags) Register(set *cli.FlagSet) {
	s := set.NewSection("OPTIONS")

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
		Usage:   "Override the path (relative to dest) the answers file is written to; ignored once an update is chosen (update uses the default answers file path).",
	})

	s.BoolVar(&cli.BoolVar{
		Name:    "force",
		Target:  &f.Force,
		Default: false,
		Usage:   "Overwrite conflicting destination files without prompting.",
	})

	s.BoolVar(&cli.BoolVar{
		Name:    "pretend",
		Target:  &f.Pretend,
		Default: false,
		Usage:   "Run the full pipeline but write nothing to disk; report what would happen. Ignored for update.",
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
		Usage:   "Prompt for any question not answered by --data.",
	})

	s.BoolVar(&cli.BoolVar{
		Name:    "no-cleanup",
		Target:  &f.NoCleanup,
		Default: false,
		Usage:   "Don't remove scratch directories or a partially-written destination after a failure.",
	})

	set.AfterParse(func(existingErr error) error {
		a, b := strings.TrimSpace(set.Arg(0)), strings.TrimSpace(set.Arg(1))
		switch {
		case a == "":
			return fmt.Errorf("missing <dest> argument")
		case b == "":
			f.Dest = a
		default:
			f.Source = a
			f.Dest = b
		}
		return nil
	})
}

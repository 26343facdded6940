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
	"testing"

	"github.com/abcxyz/pkg/testutil"
	"github.com/google/go-cmp/cmp"
)

func TestFlags_Parse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		args    []string
		want    Flags
		wantErr string
	}{
		{
			name: "all_flags_present",
			args: []string{
				"--vcs-ref", "v1.2.3",
				"--prereleases",
				"--data", "name=myapp",
				"--data-file", "answers-in.yml",
				"--exclude", "*.bak",
				"--skip", ".env",
				"--answers-file", "answers.yml",
				"--force",
				"--pretend",
				"--quiet",
				"--prompt",
				"--no-cleanup",
				"github.com/myorg/mytemplate",
				"my_dir",
			},
			want: Flags{
				Source:      "github.com/myorg/mytemplate",
				Dest:        "my_dir",
				VCSRef:      "v1.2.3",
				Prereleases: true,
				Data:        map[string]string{"name": "myapp"},
				DataFile:    "answers-in.yml",
				Exclude:     []string{"*.bak"},
				Skip:        []string{".env"},
				AnswersFile: "answers.yml",
				Force:       true,
				Pretend:     true,
				Quiet:       true,
				Prompt:      true,
				NoCleanup:   true,
			},
		},
		{
			name: "minimal_flags_present",
			args: []string{"github.com/myorg/mytemplate"},
			want: Flags{
				Source: "github.com/myorg/mytemplate",
				Dest:   ".",
				VCSRef: "latest",
				Data:   map[string]string{},
			},
		},
		{
			name:    "required_source_is_missing",
			args:    []string{},
			wantErr: "missing <source> argument",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var cmd Command
			err := cmd.Flags().Parse(tc.args)
			if err != nil || tc.wantErr != "" {
				if diff := testutil.DiffErrString(err, tc.wantErr); diff != "" {
					t.Fatal(diff)
				}
				return
			}
			if diff := cmp.Diff(cmd.flags, tc.want); diff != "" {
				t.Errorf("got %#v, want %#v, diff (-got, +want): %v", cmd.flags, tc.want, diff)
			}
		})
	}
}

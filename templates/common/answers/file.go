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

package answers

import (
	"path"

	"gopkg.in/yaml.v3"

	fscommon "github.com/abcxyz/gocopier/templates/common/fs"
)

// ReadFile loads destDir/relPath as the "last" layer's raw source (§3): the
// subset of a prior run's answers, plus the internal "_src_path"/"_commit"
// keys used to resolve the template that produced this destination. A
// missing file is not an error; it just means there's no prior run.
func ReadFile(f fscommon.FS, destDir, relPath string) (map[string]any, error) {
	p := path.Join(destDir, relPath)
	exists, err := fscommon.Exists(f, p)
	if err != nil {
		return nil, err
	}
	if !exists {
		return map[string]any{}, nil
	}

	raw, err := f.ReadFile(p)
	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, err //nolint:wrapcheck
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// WriteFile persists vals (normally the output of Map.Persistable) to
// destDir/relPath, overwriting any prior content (§4.C last step).
func WriteFile(f fscommon.FS, destDir, relPath string, vals map[string]any) error {
	body, err := Marshal(vals)
	if err != nil {
		return err
	}
	return f.WriteFile(path.Join(destDir, relPath), body, fscommon.OwnerRWPerms)
}

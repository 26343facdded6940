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

// Package tempdir names and tracks the temp directories created throughout a
// copy or update run, so they can be cleaned up (or deliberately kept, for
// debugging) at the end.
package tempdir

const (
	// TemplateDirNamePart names the temp dir holding the downloaded/resolved
	// template working copy (§3 Template.local_abspath when cloned).
	TemplateDirNamePart = "template-copy-"

	// OldTemplateDirNamePart names the temp dir holding the old template's
	// working copy during an update (§4.G step 2).
	OldTemplateDirNamePart = "old-template-copy-"

	// ShadowDirNamePart names the scratch directory "S" from §4.G step 1: the
	// shadow worker's render target for the old template + old answers.
	ShadowDirNamePart = "shadow-"

	// BackupDirNamePart names the directory where pre-existing destination
	// files are backed up before being overwritten by a conflicting render.
	BackupDirNamePart = "backup-"
)

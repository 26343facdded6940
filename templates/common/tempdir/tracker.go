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

package tempdir

import (
	"context"
	"errors"

	"github.com/abcxyz/pkg/logging"

	"github.com/abcxyz/gocopier/templates/common/fs"
)

// DirTracker tracks temp directories created during a run so they can be
// removed (or deliberately kept, for debugging) when the run ends. Per §5,
// every scratch directory used by the update algorithm is engine-owned and
// removed on scope exit, including error paths.
type DirTracker struct {
	fs           fs.FS
	tempDirs     []string
	keepTempDirs bool
}

// NewDirTracker constructs a DirTracker. keepTempDirs corresponds to
// --no-cleanup: when true, DeferRemoveAll becomes a no-op (useful for
// debugging a failed run).
func NewDirTracker(f fs.FS, keepTempDirs bool) *DirTracker {
	return &DirTracker{fs: f, keepTempDirs: keepTempDirs}
}

// Track adds dir to the list of directories to remove later.
func (t *DirTracker) Track(dir string) {
	if dir == "" {
		return
	}
	t.tempDirs = append(t.tempDirs, dir)
}

// MkdirTempTracked creates a new temp directory under base named with the
// given pattern, and tracks it for later cleanup.
func (t *DirTracker) MkdirTempTracked(base, pattern string) (string, error) {
	dir, err := t.fs.MkdirTemp(base, pattern)
	if err != nil {
		return "", err //nolint:wrapcheck
	}
	t.Track(dir)
	return dir, nil
}

// DeferRemoveAll should be called in a defer to clean up every tracked temp
// dir, e.g.:
//
//	defer tracker.DeferRemoveAll(ctx, &outErr)
func (t *DirTracker) DeferRemoveAll(ctx context.Context, outErr *error) {
	logger := logging.FromContext(ctx).With("logger", "tempdir.DirTracker")

	if t.keepTempDirs {
		logger.WarnContext(ctx, "keeping temporary directories due to --no-cleanup", "paths", t.tempDirs)
		return
	}

	logger.DebugContext(ctx, "removing temporary directories", "paths", t.tempDirs)
	for _, p := range t.tempDirs {
		*outErr = errors.Join(*outErr, t.fs.RemoveAll(p))
	}
}

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

package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"

	"github.com/abcxyz/pkg/logging"
)

// SymlinkForbiddenError is returned by CopyRecursive when a symlink is
// encountered in the source tree.
type SymlinkForbiddenError struct {
	// Path is relative to the copy's source root.
	Path string
}

func (e *SymlinkForbiddenError) Error() string {
	return fmt.Sprintf("a symlink was found at %q, but symlinks are forbidden here", e.Path)
}

// CopyVisitor is called for each file and directory encountered by
// CopyRecursive, giving the caller the chance to skip entries.
type CopyVisitor func(relPath string, de iofs.DirEntry) (skip bool, err error)

// CopyParams groups the parameters to CopyRecursive.
type CopyParams struct {
	FS      FS
	SrcRoot string
	DstRoot string

	// DryRun skips writes but still performs the checks that would cause a
	// real run to fail.
	DryRun bool

	// Visitor, if non-nil, is called for each entry to decide whether to skip
	// it.
	Visitor CopyVisitor
}

// CopyRecursive recursively copies a directory to another directory in
// lexicographic directory-entry order (so repeated runs over unchanged inputs
// are deterministic, per §5 Ordering).
func CopyRecursive(ctx context.Context, p *CopyParams) error {
	logger := logging.FromContext(ctx).With("logger", "CopyRecursive")

	return iofs.WalkDir(p.FS, p.SrcRoot, func(path string, de iofs.DirEntry, err error) error { //nolint:wrapcheck
		if err != nil {
			return err
		}

		logger.DebugContext(ctx, "visiting directory entry", "path", path)

		relToSrc, err := filepath.Rel(p.SrcRoot, path)
		if err != nil {
			return fmt.Errorf("filepath.Rel(%s,%s): %w", p.SrcRoot, path, err)
		}
		dst := filepath.Join(p.DstRoot, relToSrc)

		if de.Type()&iofs.ModeSymlink != 0 {
			return &SymlinkForbiddenError{Path: relToSrc}
		}

		if p.Visitor != nil {
			skip, err := p.Visitor(relToSrc, de)
			if err != nil {
				return err
			}
			if skip {
				if de.IsDir() {
					return iofs.SkipDir
				}
				return nil
			}
		}

		if de.IsDir() {
			// Directories are created lazily, as needed by the files within them.
			return nil
		}

		if err := mkdirAllChecked(p.FS, filepath.Dir(dst), p.DryRun); err != nil {
			return err
		}

		if err := CopyFile(p.FS, path, dst, p.DryRun); err != nil {
			return err
		}
		return nil
	})
}

// CopyFile copies the contents and permission bits of src to dst.
func CopyFile(rfs FS, src, dst string, dryRun bool) (outErr error) {
	srcInfo, err := rfs.Stat(src)
	if err != nil {
		return fmt.Errorf("Stat(%s): %w", src, err)
	}
	mode := srcInfo.Mode().Perm()

	readFile, err := rfs.Open(src)
	if err != nil {
		return fmt.Errorf("Open(%s): %w", src, err)
	}
	defer func() { outErr = errors.Join(outErr, readFile.Close()) }()

	var writer io.Writer = io.Discard
	if !dryRun {
		if err := rfs.MkdirAll(filepath.Dir(dst), OwnerRWXPerms); err != nil {
			return fmt.Errorf("MkdirAll(%s): %w", filepath.Dir(dst), err)
		}
		writeFile, err := rfs.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
		if err != nil {
			return fmt.Errorf("OpenFile(%s): %w", dst, err)
		}
		defer func() { outErr = errors.Join(outErr, writeFile.Close()) }()
		writer = writeFile
	}

	if _, err := io.Copy(writer, readFile); err != nil {
		return fmt.Errorf("Copy(%s -> %s): %w", src, dst, err)
	}
	return nil
}

// mkdirAllChecked creates path (and parents) unless it already exists as a
// directory, in which case it's a no-op; it errors if path exists as a
// non-directory.
func mkdirAllChecked(rfs FS, path string, dryRun bool) error {
	info, err := rfs.Stat(path)
	if err != nil {
		if !IsNotExist(err) {
			return fmt.Errorf("Stat(%s): %w", path, err)
		}
		if dryRun {
			return nil
		}
		if err := rfs.MkdirAll(path, OwnerRWXPerms); err != nil {
			return fmt.Errorf("MkdirAll(%s): %w", path, err)
		}
		return nil
	}
	if !info.IsDir() {
		return fmt.Errorf("cannot overwrite a file with a directory of the same name, %q", path)
	}
	return nil
}

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

// Package fs abstracts the filesystem operations used throughout the render
// and update engine, so that they can be faked in tests.
package fs

import (
	"errors"
	"io/fs"
	"os"
)

const (
	// OwnerRWXPerms are permission bits rwx------ .
	OwnerRWXPerms = 0o700
	// OwnerRWPerms are permission bits rw------- .
	OwnerRWPerms = 0o600
)

// FS abstracts filesystem operations.
//
// We can't use os.DirFS or fs.StatFS because they lack some methods we need,
// so we define our own interface, mirroring exactly the methods of "os" that
// we use.
type FS interface {
	fs.StatFS

	MkdirAll(string, os.FileMode) error
	MkdirTemp(string, string) (string, error)
	OpenFile(string, int, os.FileMode) (*os.File, error)
	ReadFile(string) ([]byte, error)
	Remove(string) error
	RemoveAll(string) error
	Rename(string, string) error
	WriteFile(string, []byte, os.FileMode) error
}

// RealFS is the non-test implementation of FS, backed by the "os" package.
type RealFS struct{}

func (r *RealFS) MkdirAll(name string, perm os.FileMode) error {
	return os.MkdirAll(name, perm) //nolint:wrapcheck
}

func (r *RealFS) MkdirTemp(dir, pattern string) (string, error) {
	return os.MkdirTemp(dir, pattern) //nolint:wrapcheck
}

func (r *RealFS) Open(name string) (fs.File, error) {
	return os.Open(name) //nolint:wrapcheck
}

func (r *RealFS) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm) //nolint:wrapcheck
}

func (r *RealFS) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name) //nolint:wrapcheck
}

func (r *RealFS) Remove(name string) error {
	return os.Remove(name) //nolint:wrapcheck
}

func (r *RealFS) RemoveAll(name string) error {
	return os.RemoveAll(name) //nolint:wrapcheck
}

func (r *RealFS) Rename(from, to string) error {
	return os.Rename(from, to) //nolint:wrapcheck
}

func (r *RealFS) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name) //nolint:wrapcheck
}

func (r *RealFS) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm) //nolint:wrapcheck
}

// ErrorFS wraps an FS and can be configured to inject errors for testing.
type ErrorFS struct {
	FS

	MkdirAllErr  error
	OpenErr      error
	OpenFileErr  error
	ReadFileErr  error
	RemoveErr    error
	RemoveAllErr error
	RenameErr    error
	StatErr      error
	WriteFileErr error
}

func (e *ErrorFS) MkdirAll(name string, mode fs.FileMode) error {
	if e.MkdirAllErr != nil {
		return e.MkdirAllErr
	}
	return e.FS.MkdirAll(name, mode) //nolint:wrapcheck
}

func (e *ErrorFS) Open(name string) (fs.File, error) {
	if e.OpenErr != nil {
		return nil, e.OpenErr
	}
	return e.FS.Open(name) //nolint:wrapcheck
}

func (e *ErrorFS) OpenFile(name string, flag int, mode os.FileMode) (*os.File, error) {
	if e.OpenFileErr != nil {
		return nil, e.OpenFileErr
	}
	return e.FS.OpenFile(name, flag, mode) //nolint:wrapcheck
}

func (e *ErrorFS) ReadFile(name string) ([]byte, error) {
	if e.ReadFileErr != nil {
		return nil, e.ReadFileErr
	}
	return e.FS.ReadFile(name) //nolint:wrapcheck
}

func (e *ErrorFS) Remove(name string) error {
	if e.RemoveErr != nil {
		return e.RemoveErr
	}
	return e.FS.Remove(name) //nolint:wrapcheck
}

func (e *ErrorFS) RemoveAll(name string) error {
	if e.RemoveAllErr != nil {
		return e.RemoveAllErr
	}
	return e.FS.RemoveAll(name) //nolint:wrapcheck
}

func (e *ErrorFS) Rename(from, to string) error {
	if e.RenameErr != nil {
		return e.RenameErr
	}
	return e.FS.Rename(from, to) //nolint:wrapcheck
}

func (e *ErrorFS) Stat(name string) (fs.FileInfo, error) {
	if e.StatErr != nil {
		return nil, e.StatErr
	}
	return e.FS.Stat(name) //nolint:wrapcheck
}

func (e *ErrorFS) WriteFile(name string, data []byte, perm os.FileMode) error {
	if e.WriteFileErr != nil {
		return e.WriteFileErr
	}
	return e.FS.WriteFile(name, data, perm) //nolint:wrapcheck
}

// IsNotExist returns true if the given error (as returned by Stat) means "the
// path doesn't exist."
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist)
}

// Exists returns whether the given path exists (file or directory).
func Exists(f FS, path string) (bool, error) {
	_, err := f.Stat(path)
	if err != nil {
		if IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

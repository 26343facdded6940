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

package model

import "fmt"

// UserMessageError is shown to the user verbatim and exits non-zero without
// a stack trace: invalid choice, dirty working tree, missing template on
// update, downgrade attempt, or a template-authored expression error (§7).
type UserMessageError struct {
	Msg string
}

func (e *UserMessageError) Error() string { return e.Msg }

// NewUserMessageError constructs a UserMessageError with a formatted message.
func NewUserMessageError(format string, args ...any) *UserMessageError {
	return &UserMessageError{Msg: fmt.Sprintf(format, args...)}
}

// ConfigFileError reports a problem with a template's config document,
// naming the offending path(s) (§7).
type ConfigFileError struct {
	Reason string // "invalid_yaml", "multiple_config_files", "missing_config_file" or "include_cycle"
	Paths  []string
	Err    error
}

func (e *ConfigFileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v (%v)", e.Reason, e.Paths, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Paths)
}

func (e *ConfigFileError) Unwrap() error { return e.Err }

// UnsupportedVersionError is returned when the template's
// _min_copier_version gate fails (§4.B, §7).
type UnsupportedVersionError struct {
	Required string
	Current  string
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("template requires engine version >= %s, but this engine is %s", e.Required, e.Current)
}

// InvalidTypeError is returned when a question declares a type outside the
// recognized set (§3, §7).
type InvalidTypeError struct {
	Question string
	Type     string
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("question %q declares unrecognized type %q", e.Question, e.Type)
}

// TaskFailureError wraps a non-zero task exit, propagated with the
// underlying exit status (§4.F, §7).
type TaskFailureError struct {
	Command  string
	ExitCode int
	Err      error
}

func (e *TaskFailureError) Error() string {
	return fmt.Sprintf("task %q failed with exit code %d: %v", e.Command, e.ExitCode, e.Err)
}

func (e *TaskFailureError) Unwrap() error { return e.Err }

// PathNotRelativeError is returned when a template path that must be
// relative is instead absolute (§7).
type PathNotRelativeError struct {
	Path string
}

func (e *PathNotRelativeError) Error() string {
	return fmt.Sprintf("path %q must be relative, not absolute", e.Path)
}

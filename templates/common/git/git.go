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

// Package git implements the §6 VCS port by shelling out to the git CLI
// already installed on the system. This is the only place in the engine that
// invokes git directly; other packages, such as templates/common/update and
// templates/common/templatesource, call the functions exported here.
package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Clone shallow-clones the given branch or tag of remote into outDir.
//
// "remote" may be any format accepted by git, such as
// https://github.com/myorg/myrepo.git or git@github.com:myorg/myrepo.git .
func Clone(ctx context.Context, remote, branchOrTag, outDir string) error {
	if err := run(ctx, "", "clone", "--depth", "1", "--branch", branchOrTag, remote, outDir); err != nil {
		return err
	}

	// Make sure there are no symlinks; they're a security and portability
	// hazard for a template tree that will later be walked and rendered.
	return filepath.WalkDir(outDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == filepath.Join(outDir, ".git") {
			return fs.SkipDir
		}
		fi, err := os.Lstat(path)
		if err != nil {
			return fmt.Errorf("Lstat(): %w", err)
		}
		if fi.Mode()&os.ModeSymlink == 0 {
			return nil
		}
		rel, err := filepath.Rel(outDir, path)
		if err != nil {
			return fmt.Errorf("Rel(): %w", err)
		}
		return fmt.Errorf("a symlink was found in %q at %q; templates containing symlinks are not allowed", remote, rel)
	})
}

// Tags lists the tags in the given remote repo.
func Tags(ctx context.Context, remote string) ([]string, error) {
	stdout, _, err := runCaptured(ctx, "", "ls-remote", "--tags", remote)
	if err != nil {
		return nil, err
	}

	var tags []string
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		prefixedTag := fields[len(fields)-1]
		if strings.HasSuffix(prefixedTag, "^{}") {
			// Skip the duplicate dereferenced tag entries git prints for
			// annotated tags.
			continue
		}
		tags = append(tags, strings.TrimPrefix(prefixedTag, "refs/tags/"))
	}
	return tags, nil
}

// Describe runs "git describe --tags --always" in repoDir and returns the
// result: the commit identifier memoized onto Template.commit (§3).
func Describe(ctx context.Context, repoDir string) (string, error) {
	stdout, _, err := runCaptured(ctx, repoDir, "describe", "--tags", "--always")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(stdout), nil
}

// IsRepo reports whether dir is (inside) a git working tree.
func IsRepo(ctx context.Context, dir string) bool {
	_, _, err := runCaptured(ctx, dir, "rev-parse", "--is-inside-work-tree")
	return err == nil
}

// IsClean reports whether the working tree at dir has no uncommitted changes,
// tracked or untracked.
func IsClean(ctx context.Context, dir string) (bool, error) {
	stdout, _, err := runCaptured(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(stdout) == "", nil
}

// Init initializes a new git repo at dir.
func Init(ctx context.Context, dir string) error {
	return run(ctx, dir, "init", "--quiet")
}

// ConfigSet sets a local git config key/value in dir.
func ConfigSet(ctx context.Context, dir, key, value string) error {
	return run(ctx, dir, "config", key, value)
}

// AddAll stages every file in dir.
func AddAll(ctx context.Context, dir string) error {
	return run(ctx, dir, "add", "--all")
}

// Commit creates a commit in dir. The commit is always made with
// --allow-empty and --no-verify (hooks don't run). If allowEmptyAndFailable
// is true, a failure of the commit is tolerated and swallowed, per §4.G
// step 3's "first 'dumb' commit tolerates pre-commit-hook rewrites."
func Commit(ctx context.Context, dir, msg string, allowEmptyAndFailable bool) error {
	args := []string{"commit", "--quiet", "--allow-empty", "--no-verify", "-m", msg}
	err := run(ctx, dir, args...)
	if err != nil && allowEmptyAndFailable {
		return nil
	}
	return err
}

// RemoteAdd adds (or replaces) a remote named name pointing at url in dir.
func RemoteAdd(ctx context.Context, dir, name, url string) error {
	_ = run(ctx, dir, "remote", "remove", name) // ignore error: remote may not exist yet
	return run(ctx, dir, "remote", "add", name, url)
}

// FetchDepth1 fetches refspec from remote with depth 1.
func FetchDepth1(ctx context.Context, dir, remote, refspec string) error {
	return run(ctx, dir, "fetch", "--quiet", "--depth", "1", remote, refspec)
}

// DiffTreeOpts controls DiffTree's invocation.
type DiffTreeOpts struct {
	// InterHunkContext, if non-nil, is passed as --inter-hunk-context=N.
	InterHunkContext *int
}

// DiffTree computes a unified diff between two refs (e.g. "HEAD...FETCH_HEAD")
// in dir, per §4.G step 5.
func DiffTree(ctx context.Context, dir, diffRange string, opts DiffTreeOpts) (string, error) {
	args := []string{"diff", "--no-color", "--binary"}
	if opts.InterHunkContext != nil {
		args = append(args, fmt.Sprintf("--inter-hunk-context=%d", *opts.InterHunkContext))
	}
	args = append(args, diffRange)
	stdout, _, err := runCaptured(ctx, dir, args...)
	if err != nil {
		return "", err
	}
	return stdout, nil
}

// ApplyResult summarizes the outcome of Apply.
type ApplyResult struct {
	// RejectedFiles lists the relative paths for which at least one hunk was
	// rejected and saved to a ".rej" sidecar, per §4.G step 9.
	RejectedFiles []string
}

// Apply applies diffText in dir using "git apply --reject", excluding any
// path matching one of the exclude globs (passed through via --exclude).
// Per-hunk rejection is recovered locally: this never returns an error solely
// because some hunks didn't apply.
func Apply(ctx context.Context, dir, diffText string, excludes []string) (*ApplyResult, error) {
	args := []string{"apply", "--reject", "--whitespace=nowarn"}
	for _, ex := range excludes {
		args = append(args, "--exclude="+ex)
	}

	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...) //nolint:gosec
	cmd.Stdin = strings.NewReader(diffText)
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	runErr := cmd.Run()

	rejected, walkErr := findRejectFiles(dir)
	if walkErr != nil {
		return nil, walkErr
	}

	if runErr != nil && len(rejected) == 0 {
		// A real failure, not just some rejected hunks.
		return nil, fmt.Errorf("git apply failed: %w\nstdout: %s\nstderr: %s", runErr, stdout.String(), stderr.String())
	}

	return &ApplyResult{RejectedFiles: rejected}, nil
}

func findRejectFiles(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".rej") {
			rel, relErr := filepath.Rel(dir, path)
			if relErr != nil {
				return relErr
			}
			out = append(out, strings.TrimSuffix(rel, ".rej"))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking for .rej files: %w", err)
	}
	return out, nil
}

func run(ctx context.Context, dir string, args ...string) error {
	_, _, err := runCaptured(ctx, dir, args...)
	return err
}

func runCaptured(ctx context.Context, dir string, args ...string) (stdout, stderr string, _ error) {
	fullArgs := args
	if dir != "" {
		fullArgs = append([]string{"-C", dir}, args...)
	}
	cmd := exec.CommandContext(ctx, "git", fullArgs...) //nolint:gosec // exec'ing git with controlled args is the whole point
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout, cmd.Stderr = &outBuf, &errBuf
	if err := cmd.Run(); err != nil {
		return outBuf.String(), errBuf.String(), fmt.Errorf("git exec of %v failed: %w\nstdout: %s\nstderr: %s", fullArgs, err, outBuf.String(), errBuf.String())
	}
	return outBuf.String(), errBuf.String(), nil
}

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

// Package templatesource implements the Template Locator (component A): it
// resolves a TemplateRef (a local path or a "host/org/repo[/subdir]" git URL
// plus a separate Ref), resolves the "latest" ref against the remote's tags
// using PEP-440-ish ordering, and produces a local working copy with its resolved commit, per
// §3 and §4.A.
package templatesource

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/abcxyz/gocopier/templates/common/git"
	"github.com/abcxyz/gocopier/templates/common/pep440"
	"github.com/abcxyz/gocopier/templates/common/tempdir"
	"github.com/abcxyz/gocopier/templates/model"
)

// LatestRef is the special TemplateRef.Ref value meaning "resolve to the
// newest non-prerelease tag" (§3).
const LatestRef = "latest"

// gitRefRe recognizes a bare VCS URL: "host/org/repo[/subdir]". Per §3,
// TemplateRef.ref is a separate field from url (not embedded in it); this
// regex only decides local-vs-git, it never extracts a ref.
var gitRefRe = regexp.MustCompile(
	`^` +
		`(?P<host>[a-zA-Z0-9_.-]+\.[a-zA-Z]{2,})` + // a dotted hostname, e.g. github.com
		`/` +
		`(?P<org>[a-zA-Z0-9_-]+)` +
		`/` +
		`(?P<repo>[a-zA-Z0-9_-]+)` +
		`(/(?P<subdir>.*))?` + // optional subdir
		`$`)

// Resolve locates the template identified by ref and produces a *model.Template
// with a local, readable working copy. workDir is where remote templates are
// cloned to (tracked so the caller can clean it up); a local-directory ref is
// used in place, untouched.
func Resolve(ctx context.Context, ref model.TemplateRef, workDir string, tracker *tempdir.DirTracker) (*model.Template, error) {
	if m := gitRefRe.FindStringSubmatch(ref.URL); m != nil {
		return resolveGit(ctx, ref, m, workDir, tracker)
	}
	return resolveLocal(ref)
}

func resolveLocal(ref model.TemplateRef) (*model.Template, error) {
	abs, err := absPath(ref.URL)
	if err != nil {
		return nil, fmt.Errorf("resolving local template path %q: %w", ref.URL, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, model.NewUserMessageError("template source %q doesn't exist or isn't readable: %v", ref.URL, err)
	}
	if !info.IsDir() {
		return nil, model.NewUserMessageError("template source %q is not a directory", ref.URL)
	}
	return &model.Template{
		LocalAbspath: abs,
		VCS:          model.VCSNone,
		SourceURL:    ref.URL,
	}, nil
}

func resolveGit(ctx context.Context, ref model.TemplateRef, m []string, workDir string, tracker *tempdir.DirTracker) (*model.Template, error) {
	names := gitRefRe.SubexpNames()
	fields := map[string]string{}
	for i, v := range m {
		if i == 0 {
			continue
		}
		fields[names[i]] = v
	}

	remote := fmt.Sprintf("https://%s/%s/%s.git", fields["host"], fields["org"], fields["repo"])

	refSpec := ref.Ref
	if refSpec == "" || refSpec == LatestRef {
		resolved, err := resolveLatestTag(ctx, remote, ref.UsePrereleases)
		if err != nil {
			return nil, err
		}
		refSpec = resolved
	}

	dest, err := tracker.MkdirTempTracked(workDir, tempdir.TemplateDirNamePart)
	if err != nil {
		return nil, fmt.Errorf("creating template working copy dir: %w", err)
	}
	if err := git.Clone(ctx, remote, refSpec, dest); err != nil {
		return nil, fmt.Errorf("cloning template %q: %w", remote, err)
	}
	commit, err := git.Describe(ctx, dest)
	if err != nil {
		return nil, fmt.Errorf("describing cloned template commit: %w", err)
	}

	return &model.Template{
		LocalAbspath: dest,
		Commit:       commit,
		VCS:          model.VCSGit,
		SourceURL:    ref.URL,
		Subdirectory: fields["subdir"],
	}, nil
}

// resolveLatestTag picks the newest tag by PEP-440-ish ordering, excluding
// prereleases unless allowPrereleases is set (§3 TemplateRef.use_prereleases).
func resolveLatestTag(ctx context.Context, remote string, allowPrereleases bool) (string, error) {
	tags, err := git.Tags(ctx, remote)
	if err != nil {
		return "", fmt.Errorf("listing tags of %q: %w", remote, err)
	}

	var versions []*pep440.Version
	for _, tag := range tags {
		v, err := pep440.Parse(tag)
		if err != nil {
			continue // non-version tags are ignored for "latest" resolution
		}
		if v.IsPrerelease() && !allowPrereleases {
			continue
		}
		versions = append(versions, v)
	}
	if len(versions) == 0 {
		return "", model.NewUserMessageError("template %q has no tags usable as \"latest\"", remote)
	}
	return pep440.Max(versions).String(), nil
}

func absPath(p string) (string, error) {
	if strings.HasPrefix(p, "/") {
		return p, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return cwd + "/" + p, nil
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/AleutianAI/zsls/services/zs/resolver"
	"github.com/AleutianAI/zsls/services/zs/syntax"
)

var _ resolver.DocumentSource = (*Workspace)(nil)

// SearchRoots returns the directories tried for an include written in
// callerFile, in order.
func (w *Workspace) SearchRoots(callerFile string) []string {
	cfg := w.Config()
	var roots []string
	if callerFile != "" {
		roots = append(roots, filepath.Dir(cleanPath(callerFile)))
	}
	if cfg.ProjectRoot != "" {
		roots = append(roots, cfg.ProjectRoot)
	}
	if cfg.SystemRoot != "" {
		roots = append(roots, cfg.SystemRoot)
	}
	for _, dir := range cfg.IncludeDirs {
		if !filepath.IsAbs(dir) && cfg.ProjectRoot != "" {
			dir = filepath.Join(cfg.ProjectRoot, dir)
		}
		roots = append(roots, cleanPath(dir))
	}
	return roots
}

// ResolvePath maps an include target to an absolute path.
//
// Description:
//
//	An absolute include is used as is. Otherwise the target is joined to
//	each search root in turn: the caller's directory, ProjectRoot,
//	SystemRoot, then IncludeDirs. The first candidate that is cached or
//	exists in storage wins.
//
// Outputs:
//
//	string - The absolute path.
//	error  - ErrImportNotFound when no root holds the file.
func (w *Workspace) ResolvePath(callerFile, include string) (string, error) {
	if include == "" {
		return "", ErrEmptyPath
	}
	ctx := context.Background()

	var candidates []string
	if filepath.IsAbs(include) {
		candidates = []string{filepath.Clean(include)}
	} else {
		for _, root := range w.SearchRoots(callerFile) {
			candidates = append(candidates, filepath.Join(root, include))
		}
	}

	for _, c := range candidates {
		if w.cached(c) {
			return c, nil
		}
		if ok, err := w.fs.Exists(ctx, c); err == nil && ok {
			return c, nil
		}
	}
	return "", fmt.Errorf("%q from %s: %w", include, callerFile, ErrImportNotFound)
}

// Imports returns the resolved include paths of the document at path, in
// source order. Unresolvable includes are logged and skipped.
func (w *Workspace) Imports(ctx context.Context, path string) ([]string, error) {
	tree, err := w.Tree(ctx, path)
	if err != nil {
		return nil, err
	}
	return w.importsOf(cleanPath(path), tree), nil
}

func (w *Workspace) importsOf(path string, tree *syntax.Tree) []string {
	var out []string
	for _, inc := range resolver.Includes(tree) {
		target, err := w.ResolvePath(path, inc)
		if err != nil {
			w.logger.Warn("unresolved include",
				slog.String("file", path),
				slog.String("include", inc))
			continue
		}
		out = append(out, target)
	}
	return out
}

// SystemPath returns the absolute path of the system entry file, or ""
// when no SystemRoot is configured.
func (w *Workspace) SystemPath() string {
	cfg := w.Config()
	if cfg.SystemRoot == "" {
		return ""
	}
	return filepath.Join(cfg.SystemRoot, cfg.SystemEntry)
}

// ForEachImport visits entry and every file it transitively includes.
//
// Description:
//
//	The walk is depth first in include order, starting with entry itself.
//	After the entry's graph, the system entry file and its includes are
//	visited. Each file is visited at most once, so include cycles end.
//	Files that cannot be read are logged and skipped.
//
// Inputs:
//
//	ctx   - Checked between files.
//	entry - The starting file.
//	fn    - Called per file; returning true stops the walk.
//
// Outputs:
//
//	error - ctx.Err() when cancelled; nil otherwise.
//
// Thread Safety:
//
//	Safe for concurrent use.
func (w *Workspace) ForEachImport(ctx context.Context, entry string, fn func(path string, tree *syntax.Tree) bool) error {
	visited := make(map[string]bool)

	var walk func(path string) (bool, error)
	walk = func(path string) (bool, error) {
		if visited[path] {
			return false, nil
		}
		visited[path] = true
		if err := ctx.Err(); err != nil {
			return true, err
		}

		tree, err := w.Tree(ctx, path)
		if err != nil {
			w.logger.Warn("import skipped",
				slog.String("file", path),
				slog.String("error", err.Error()))
			return false, nil
		}
		if fn(path, tree) {
			return true, nil
		}
		for _, next := range w.importsOf(path, tree) {
			if stop, err := walk(next); stop || err != nil {
				return stop, err
			}
		}
		return false, nil
	}

	roots := []string{cleanPath(entry)}
	if sys := w.SystemPath(); sys != "" {
		roots = append(roots, sys)
	}
	for _, root := range roots {
		if stop, err := walk(root); stop || err != nil {
			return err
		}
	}
	return nil
}

// Preload loads the include graph of entry into the cache.
func (w *Workspace) Preload(ctx context.Context, entry string) (int, error) {
	n := 0
	err := w.ForEachImport(ctx, entry, func(string, *syntax.Tree) bool {
		n++
		return false
	})
	return n, err
}

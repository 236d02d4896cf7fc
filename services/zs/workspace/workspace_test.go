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
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/zsls/services/zs/resolver"
	"github.com/AleutianAI/zsls/services/zs/syntax"
)

func writeFile(t *testing.T, path, text string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
}

// project lays out a project and a system root:
//
//	proj/main.zs     includes lib.zs and <util.zs>
//	proj/lib.zs      includes main.zs (a cycle)
//	proj/inc/util.zs
//	sys/system.zi
func project(t *testing.T) (Config, string) {
	t.Helper()
	dir := t.TempDir()
	proj := filepath.Join(dir, "proj")
	sys := filepath.Join(dir, "sys")
	writeFile(t, filepath.Join(proj, "main.zs"), "#include \"lib.zs\"\n#include <util.zs>\nint m;\n")
	writeFile(t, filepath.Join(proj, "lib.zs"), "#include \"main.zs\"\nclass Lib {}\n")
	writeFile(t, filepath.Join(proj, "inc", "util.zs"), "void util();\n")
	writeFile(t, filepath.Join(sys, "system.zi"), "void print(str s);\n")
	return Config{ProjectRoot: proj, SystemRoot: sys, IncludeDirs: []string{"inc"}}, proj
}

func TestGet_LoadsAndCaches(t *testing.T) {
	cfg, proj := project(t)
	ws := New(cfg)
	ctx := context.Background()

	path := filepath.Join(proj, "lib.zs")
	doc, err := ws.Get(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Path)
	assert.False(t, doc.Open)
	assert.Equal(t, syntax.KindProgram, doc.Tree.Root().Kind())

	again, err := ws.Get(ctx, path)
	require.NoError(t, err)
	assert.Same(t, doc, again)
	assert.Equal(t, []string{path}, ws.Paths())
}

func TestGet_Errors(t *testing.T) {
	cfg, proj := project(t)
	ctx := context.Background()

	_, err := New(cfg).Get(ctx, filepath.Join(proj, "nope.zs"))
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	_, err = New(cfg).Get(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyPath)

	_, err = New(cfg, WithMaxFileSize(4)).Get(ctx, filepath.Join(proj, "lib.zs"))
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestGet_ConcurrentLoadsShareResult(t *testing.T) {
	cfg, proj := project(t)
	ws := New(cfg)
	path := filepath.Join(proj, "main.zs")

	var wg sync.WaitGroup
	docs := make([]*Document, 8)
	for i := range docs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc, err := ws.Get(context.Background(), path)
			if err == nil {
				docs[i] = doc
			}
		}(i)
	}
	wg.Wait()
	for _, d := range docs {
		require.NotNil(t, d)
		assert.Same(t, docs[0], d)
	}
}

func TestSet_NormalizesAndKeepsEditorState(t *testing.T) {
	ws := New(Config{})
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "a.zs")

	_, err := ws.Open(ctx, path, "int a;\n", 3)
	require.NoError(t, err)

	doc, err := ws.Set(ctx, path, "#if 1\nint a;\n#else\nint b;\n#endif\n")
	require.NoError(t, err)
	assert.True(t, doc.Open)
	assert.Equal(t, 3, doc.Version)
	assert.Equal(t, "//#if 1\n//int a;\n//#else\nint b;\n//#endif\n", doc.Text)
	assert.Equal(t, []string{"b"}, resolver.ExportsOf(doc.Tree).Names())
}

func TestOpenClose(t *testing.T) {
	cfg, proj := project(t)
	ws := New(cfg)
	ctx := context.Background()
	path := filepath.Join(proj, "lib.zs")

	_, err := ws.Open(ctx, path, "class Edited {}\n", 1)
	require.NoError(t, err)
	assert.True(t, ws.IsOpen(path))
	assert.False(t, ws.Invalidate(path), "open buffers are not evicted")

	doc, err := ws.Get(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Edited"}, resolver.ExportsOf(doc.Tree).Names())

	ws.Close(path)
	assert.False(t, ws.IsOpen(path))
	doc, err = ws.Get(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Lib"}, resolver.ExportsOf(doc.Tree).Names())

	assert.True(t, ws.Invalidate(path))
	assert.Empty(t, ws.Paths())
}

func TestResolvePath_SearchOrder(t *testing.T) {
	cfg, proj := project(t)
	ws := New(cfg)
	caller := filepath.Join(proj, "main.zs")

	got, err := ws.ResolvePath(caller, "lib.zs")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(proj, "lib.zs"), got)

	got, err = ws.ResolvePath(caller, "system.zi")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.SystemRoot, "system.zi"), got)

	got, err = ws.ResolvePath(caller, "util.zs")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(proj, "inc", "util.zs"), got)

	_, err = ws.ResolvePath(caller, "missing.zs")
	assert.ErrorIs(t, err, ErrImportNotFound)
}

func TestResolvePath_OpenBufferCounts(t *testing.T) {
	ws := New(Config{})
	dir := t.TempDir()
	_, err := ws.Open(context.Background(), filepath.Join(dir, "unsaved.zs"), "int a;", 1)
	require.NoError(t, err)

	got, err := ws.ResolvePath(filepath.Join(dir, "main.zs"), "unsaved.zs")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "unsaved.zs"), got)
}

func TestForEachImport_OrderAndCycles(t *testing.T) {
	cfg, proj := project(t)
	ws := New(cfg)

	var visited []string
	err := ws.ForEachImport(context.Background(), filepath.Join(proj, "main.zs"), func(p string, _ *syntax.Tree) bool {
		visited = append(visited, p)
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(proj, "main.zs"),
		filepath.Join(proj, "lib.zs"),
		filepath.Join(proj, "inc", "util.zs"),
		filepath.Join(cfg.SystemRoot, "system.zi"),
	}, visited)
}

func TestForEachImport_StopsEarly(t *testing.T) {
	cfg, proj := project(t)
	ws := New(cfg)

	n := 0
	err := ws.ForEachImport(context.Background(), filepath.Join(proj, "main.zs"), func(string, *syntax.Tree) bool {
		n++
		return n == 2
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestForEachImport_Canceled(t *testing.T) {
	cfg, proj := project(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(cfg).ForEachImport(ctx, filepath.Join(proj, "main.zs"), func(string, *syntax.Tree) bool { return false })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImportsAndPreload(t *testing.T) {
	cfg, proj := project(t)
	ws := New(cfg)
	ctx := context.Background()

	imports, err := ws.Imports(ctx, filepath.Join(proj, "main.zs"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(proj, "lib.zs"), filepath.Join(proj, "inc", "util.zs")}, imports)

	n, err := ws.Preload(ctx, filepath.Join(proj, "main.zs"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Len(t, ws.Paths(), 4)

	ws.Reset()
	assert.Empty(t, ws.Paths())
}

func TestWorkspace_ServesResolver(t *testing.T) {
	cfg, proj := project(t)
	ws := New(cfg)
	ctx := context.Background()
	path := filepath.Join(proj, "main.zs")

	doc, err := ws.Open(ctx, path, "#include \"lib.zs\"\nLib l;\nprint(\"x\");\n", 1)
	require.NoError(t, err)
	r := resolver.New(ws)

	lib := r.Resolve(ctx, doc.Tree.NodeAt(syntax.Point{Row: 1, Column: 1}), path)
	require.NotNil(t, lib)
	assert.Equal(t, filepath.Join(proj, "lib.zs"), lib.FilePath)
	assert.Equal(t, "class Lib {}", lib.Node.Text())

	sys := r.Resolve(ctx, doc.Tree.NodeAt(syntax.Point{Row: 2, Column: 1}), path)
	require.NotNil(t, sys)
	assert.Equal(t, filepath.Join(cfg.SystemRoot, "system.zi"), sys.FilePath)
}

func TestWatcher_EvictsChangedFiles(t *testing.T) {
	cfg, proj := project(t)
	ws := New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lib := filepath.Join(proj, "lib.zs")
	_, err := ws.Get(ctx, lib)
	require.NoError(t, err)

	w, err := NewWatcher(ws, proj, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))
	defer w.Stop()
	assert.ErrorIs(t, w.Start(ctx), ErrWatcherStarted)

	writeFile(t, lib, "class Changed {}\n")

	select {
	case batch := <-w.Changes():
		require.NotEmpty(t, batch)
		assert.Equal(t, lib, batch[0].Path)
		assert.True(t, batch[0].Evicted)
	case <-time.After(5 * time.Second):
		t.Fatal("no change batch")
	}

	doc, err := ws.Get(ctx, lib)
	require.NoError(t, err)
	assert.Equal(t, []string{"Changed"}, resolver.ExportsOf(doc.Tree).Names())
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	assert.True(t, isSource("/a/b.zs"))
	assert.True(t, isSource("/a/system.zi"))
	assert.False(t, isSource("/a/readme.md"))

	w := &Watcher{skipDirs: []string{"vendor"}}
	assert.True(t, w.skipDir(".git"))
	assert.True(t, w.skipDir("vendor"))
	assert.False(t, w.skipDir("src"))
}

func TestDedupe(t *testing.T) {
	got := dedupe([]FileChange{
		{Path: "a", Op: FileOpCreate},
		{Path: "b", Op: FileOpWrite},
		{Path: "a", Op: FileOpRemove},
	})
	assert.Equal(t, []FileChange{{Path: "a", Op: FileOpRemove}, {Path: "b", Op: FileOpWrite}}, got)
	assert.Equal(t, "rename", FileOpRename.String())
}

func TestNewParser(t *testing.T) {
	for _, name := range []string{"", ParserZS, ParserTreeSitterJava} {
		p, err := NewParser(name)
		require.NoError(t, err, name)
		assert.NotNil(t, p)
	}
	_, err := NewParser("antlr")
	assert.ErrorIs(t, err, ErrUnknownParser)
}

func TestWorkspace_TreeSitterJavaBackendServesResolver(t *testing.T) {
	p, err := NewParser(ParserTreeSitterJava)
	require.NoError(t, err)
	ws := New(Config{}, WithParser(p))
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "main.zs")

	doc, err := ws.Open(ctx, path, "class Shape { int area; }\nShape s;\nint n = s.area;\n", 1)
	require.NoError(t, err)
	assert.Equal(t, syntax.KindProgram, doc.Tree.Root().Kind())
	assert.False(t, doc.Tree.Root().HasError())

	r := resolver.New(ws)
	typ := r.Resolve(ctx, doc.Tree.NodeAt(syntax.Point{Row: 1, Column: 0}), path)
	require.NotNil(t, typ)
	assert.Equal(t, "class Shape { int area; }", typ.Node.Text())

	field := r.Resolve(ctx, doc.Tree.NodeAt(syntax.Point{Row: 2, Column: 10}), path)
	require.NotNil(t, field)
	assert.Equal(t, "int area;", field.Node.Text())
	assert.Equal(t, resolver.KindFieldDeclaration, field.Kind)
}

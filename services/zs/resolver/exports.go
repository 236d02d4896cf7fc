// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/AleutianAI/zsls/services/zs/syntax"
)

var exportKinds = []syntax.Kind{
	syntax.KindClassDeclaration,
	syntax.KindFunctionDeclaration,
	syntax.KindEnumDeclaration,
	syntax.KindInterfaceDeclaration,
	syntax.KindLocalVariableDeclaration,
	syntax.KindLocalTypeDeclaration,
	syntax.KindMethodSignatureDeclaration,
}

// Nested inside one of these, a declaration is not file scope.
var exportBarriers = []syntax.Kind{
	syntax.KindClassDeclaration,
	syntax.KindFunctionDeclaration,
	syntax.KindEnumDeclaration,
}

// Export is one externally visible name.
type Export struct {
	Name string
	Node syntax.Node
}

// Exports is the ordered file-scope name table of one file.
type Exports struct {
	entries []Export
	index   map[string]int
}

// ExportsOf collects the file-scope declarations of tree.
//
// Description:
//
//	Classes, functions, enums, interfaces, variables, type aliases and
//	signatures not nested in a class, function or enum are exported. A
//	variable statement exports every declarator. When a name repeats,
//	its first position is kept and the later node replaces the earlier
//	one. Declarations whose name failed to parse are skipped; the rest of
//	the file still exports.
//
// Thread Safety:
//
//	The returned table is immutable.
func ExportsOf(tree *syntax.Tree) *Exports {
	e := &Exports{index: make(map[string]int)}
	if tree == nil {
		return e
	}
	for _, decl := range tree.Root().DescendantsOfType(exportKinds...) {
		if !decl.Closest(exportBarriers...).IsNull() {
			continue
		}
		for _, ident := range exportIdentifiers(decl) {
			e.add(ident.Text(), decl)
		}
	}
	return e
}

func exportIdentifiers(decl syntax.Node) []syntax.Node {
	switch decl.Kind() {
	case syntax.KindLocalVariableDeclaration, syntax.KindLocalTypeDeclaration:
		return namesOf(decl.ChildrenForFieldName("declarator"))
	default:
		return namesOf([]syntax.Node{decl})
	}
}

func (e *Exports) add(name string, node syntax.Node) {
	if name == "" {
		return
	}
	if i, ok := e.index[name]; ok {
		e.entries[i].Node = node
		return
	}
	e.index[name] = len(e.entries)
	e.entries = append(e.entries, Export{Name: name, Node: node})
}

// Lookup returns the declaration exported under name.
func (e *Exports) Lookup(name string) (syntax.Node, bool) {
	i, ok := e.index[name]
	if !ok {
		return syntax.Node{}, false
	}
	return e.entries[i].Node, true
}

// All returns the exports in declaration order.
func (e *Exports) All() []Export {
	out := make([]Export, len(e.entries))
	copy(out, e.entries)
	return out
}

// Names returns the exported names in declaration order.
func (e *Exports) Names() []string {
	out := make([]string, len(e.entries))
	for i, entry := range e.entries {
		out[i] = entry.Name
	}
	return out
}

// Len returns the number of exports.
func (e *Exports) Len() int {
	return len(e.entries)
}

// IncludeTarget returns the path named by an include directive's path
// node with its quotes or angle brackets removed.
//
// node may be the preproc_include itself, its string_literal or
// system_lib_string path, or the string_fragment inside the literal.
func IncludeTarget(node syntax.Node) string {
	if node.Kind() == syntax.KindPreprocInclude {
		node = node.ChildForFieldName("path")
	}
	text := node.Text()
	switch node.Kind() {
	case syntax.KindStringLiteral:
		text = strings.TrimSuffix(strings.TrimPrefix(text, `"`), `"`)
	case syntax.KindSystemLibString:
		text = strings.TrimSuffix(strings.TrimPrefix(text, "<"), ">")
	}
	return strings.TrimSpace(text)
}

// Includes returns the include targets of tree in source order.
func Includes(tree *syntax.Tree) []string {
	if tree == nil {
		return nil
	}
	var out []string
	for _, inc := range tree.Root().DescendantsOfType(syntax.KindPreprocInclude) {
		if target := IncludeTarget(inc); target != "" {
			out = append(out, target)
		}
	}
	return out
}

// Exports returns the export table of the document at path.
func (r *Resolver) Exports(ctx context.Context, path string) (*Exports, error) {
	if r.docs == nil {
		return nil, ErrNoDocumentSource
	}
	tree, err := r.docs.Tree(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("exports of %s: %w", path, err)
	}
	return ExportsOf(tree), nil
}

// IncludeExports resolves an include target relative to callerFile and
// returns the included file's path and export table.
func (r *Resolver) IncludeExports(ctx context.Context, include, callerFile string) (string, *Exports, error) {
	if r.docs == nil {
		return "", nil, ErrNoDocumentSource
	}
	path, err := r.docs.ResolvePath(callerFile, include)
	if err != nil {
		return "", nil, fmt.Errorf("include %q: %w", include, err)
	}
	exports, err := r.Exports(ctx, path)
	if err != nil {
		return "", nil, err
	}
	return path, exports, nil
}

// VisibleExports returns the names visible to filePath through its include
// graph, in the order a lookup would try them.
//
// Description:
//
//	Walks the same graph as ResolveForIdentifier. A name exported by more
//	than one file is listed once, for the first file the walk reaches, so
//	every entry is the declaration a plain lookup of that name would bind.
//
// Outputs:
//
//	[]Export - The visible exports.
//	error    - ErrNoDocumentSource, or a walk error such as cancellation.
func (r *Resolver) VisibleExports(ctx context.Context, filePath string) ([]Export, error) {
	if r.docs == nil {
		return nil, ErrNoDocumentSource
	}
	seen := make(map[string]bool)
	var out []Export
	err := r.docs.ForEachImport(ctx, filePath, func(_ string, tree *syntax.Tree) bool {
		for _, e := range ExportsOf(tree).All() {
			if !seen[e.Name] {
				seen[e.Name] = true
				out = append(out, e)
			}
		}
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("visible exports of %s: %w", filePath, err)
	}
	return out, nil
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package syntax

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// FromSitter copies a tree-sitter tree into an arena Tree.
//
// Description:
//
//	Node types known to the ZS vocabulary map onto their Kind; any other
//	named type becomes KindUnknown and keeps its type string, anonymous
//	nodes become KindToken. Field names are taken from the tree cursor, so
//	ChildForFieldName behaves the same as on the native parser's trees.
//
// Inputs:
//
//	tree   - A parsed tree-sitter tree. Must not be nil.
//	source - The bytes the tree was parsed from.
//
// Outputs:
//
//	*Tree - The converted tree.
//
// Thread Safety:
//
//	Safe to call concurrently with distinct tree arguments.
func FromSitter(tree *sitter.Tree, source []byte) *Tree {
	b := NewBuilder(source)
	root := tree.RootNode()
	cursor := sitter.NewTreeCursor(root)
	id := convertCursor(b, cursor)
	return b.Finish(id)
}

func convertCursor(b *Builder, cursor *sitter.TreeCursor) NodeID {
	n := cursor.CurrentNode()
	start, end := int(n.StartByte()), int(n.EndByte())

	var children []Child
	if cursor.GoToFirstChild() {
		for {
			field := cursor.CurrentFieldName()
			children = append(children, Child{ID: convertCursor(b, cursor), Field: field})
			if !cursor.GoToNextSibling() {
				break
			}
		}
		cursor.GoToParent()
	}

	typ := n.Type()
	kind, known := ParseKind(typ)
	if !n.IsNamed() {
		kind, known = KindToken, false
	}
	if !known && kind != KindToken {
		kind = KindUnknown
	}

	var id NodeID
	if len(children) == 0 {
		id = b.Leaf(kind, typ, n.IsNamed(), start, end)
	} else {
		id = b.Node(kind, start, children)
		b.SetSymbol(id, typ)
		b.SetSpan(id, start, end)
		if !n.IsNamed() {
			b.Unnamed(id)
		}
	}
	if n.IsMissing() {
		b.SetMissing(id)
	}
	return id
}

// SitterParser parses source with a tree-sitter grammar and converts the
// result into an arena Tree.
type SitterParser struct {
	language *sitter.Language
}

// NewSitterParser creates a parser for the given grammar.
func NewSitterParser(language *sitter.Language) *SitterParser {
	return &SitterParser{language: language}
}

// Parse parses content and converts the tree. filePath only labels
// errors.
func (p *SitterParser) Parse(ctx context.Context, content []byte, filePath string) (*Tree, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	parser := sitter.NewParser()
	parser.SetLanguage(p.language)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParseFailed, filePath, err)
	}
	defer tree.Close()
	return FromSitter(tree, content), nil
}

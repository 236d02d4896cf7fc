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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSample builds the tree for "int a;\nb = a;" by hand:
//
//	program
//	  local_variable_declaration
//	    integral_type "int"
//	    variable_declarator (declarator)
//	      identifier "a" (name)
//	    ";"
//	  expression_statement
//	    assignment_expression
//	      identifier "b" (left)
//	      "="
//	      identifier "a" (right)
//	    ";"
func buildSample(t *testing.T) *Tree {
	t.Helper()
	src := []byte("int a;\nb = a;")
	b := NewBuilder(src)

	intType := b.Leaf(KindIntegralType, "", true, 0, 3)
	a := b.Leaf(KindIdentifier, "", true, 4, 5)
	decl := b.Node(KindVariableDeclarator, 4, []Child{{ID: a, Field: "name"}})
	semi := b.Leaf(KindToken, ";", false, 5, 6)
	local := b.Node(KindLocalVariableDeclaration, 0, []Child{
		{ID: intType, Field: "type"}, {ID: decl, Field: "declarator"}, {ID: semi},
	})

	left := b.Leaf(KindIdentifier, "", true, 7, 8)
	eq := b.Leaf(KindToken, "=", false, 9, 10)
	right := b.Leaf(KindIdentifier, "", true, 11, 12)
	assign := b.Node(KindAssignmentExpression, 7, []Child{
		{ID: left, Field: "left"}, {ID: eq, Field: "operator"}, {ID: right, Field: "right"},
	})
	semi2 := b.Leaf(KindToken, ";", false, 12, 13)
	stmt := b.Node(KindExpressionStatement, 7, []Child{{ID: assign}, {ID: semi2}})

	root := b.Node(KindProgram, 0, []Child{{ID: local}, {ID: stmt}})
	b.SetSpan(root, 0, len(src))
	tree := b.Finish(root)
	require.NotNil(t, tree)
	return tree
}

func TestKind_RoundTrip(t *testing.T) {
	for k := KindError; k < kindCount; k++ {
		name := k.String()
		got, ok := ParseKind(name)
		assert.True(t, ok, "kind %d (%s) not parseable", k, name)
		assert.Equal(t, k, got)
	}

	_, ok := ParseKind("source_file")
	assert.False(t, ok)
}

func TestKind_IsDeclaration(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindClassDeclaration, true},
		{KindFormalParameter, true},
		{KindLocalTypeDeclaration, true},
		{KindMethodInterface, false},
		{KindGetDeclaration, false},
		{KindBlock, false},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.IsDeclaration())
		})
	}
}

func TestTree_Structure(t *testing.T) {
	tree := buildSample(t)
	root := tree.Root()

	assert.Equal(t, KindProgram, root.Kind())
	assert.Equal(t, "program", root.Type())
	assert.True(t, root.Parent().IsNull())
	require.Len(t, root.Children(), 2)

	local := root.FirstChild()
	assert.Equal(t, "int a;", local.Text())
	assert.Len(t, local.Children(), 3)
	assert.Len(t, local.NamedChildren(), 2)
	assert.Equal(t, ";", local.LastChild().Type())
	assert.False(t, local.LastChild().IsNamed())

	name := local.ChildForFieldName("declarator").ChildForFieldName("name")
	assert.Equal(t, "a", name.Text())
	assert.Equal(t, "name", name.FieldName())
	assert.Equal(t, local, name.Parent().Parent())

	stmt := root.LastChild()
	assert.Equal(t, Point{Row: 1, Column: 0}, stmt.StartPoint())
	assert.Equal(t, Point{Row: 1, Column: 6}, stmt.EndPoint())
	assert.Equal(t, local, stmt.PrevSibling())
	assert.True(t, local.NextSibling() == stmt)
}

func TestNode_NullIsSafe(t *testing.T) {
	var n Node
	assert.True(t, n.IsNull())
	assert.Equal(t, "", n.Text())
	assert.Equal(t, KindUnknown, n.Kind())
	assert.True(t, n.ChildForFieldName("name").LastChild().Parent().IsNull())
	assert.Nil(t, n.Children())
	assert.Nil(t, n.DescendantsOfType(KindIdentifier))
	assert.True(t, n.Closest(KindProgram).IsNull())
}

func TestNode_Closest(t *testing.T) {
	tree := buildSample(t)
	name := tree.Root().FirstChild().ChildForFieldName("declarator").FirstChild()

	assert.Equal(t, KindLocalVariableDeclaration, name.Closest(KindLocalVariableDeclaration, KindProgram).Kind())
	assert.Equal(t, KindProgram, name.Closest(KindProgram).Kind())
	assert.True(t, tree.Root().Closest(KindProgram).IsNull(), "closest never matches the node itself")
}

func TestNode_DescendantsOfType(t *testing.T) {
	tree := buildSample(t)

	ids := tree.Root().DescendantsOfType(KindIdentifier)
	require.Len(t, ids, 3)
	assert.Equal(t, []string{"a", "b", "a"}, []string{ids[0].Text(), ids[1].Text(), ids[2].Text()})

	self := tree.Root().DescendantsOfType(KindProgram)
	assert.Len(t, self, 1)
}

func TestNode_DescendantForPosition(t *testing.T) {
	tree := buildSample(t)

	tests := []struct {
		name string
		at   Point
		kind Kind
		text string
	}{
		{"type keyword", Point{0, 1}, KindIntegralType, "int"},
		{"declared name", Point{0, 4}, KindIdentifier, "a"},
		{"whitespace falls to parent", Point{0, 3}, KindLocalVariableDeclaration, "int a;"},
		{"second row", Point{1, 4}, KindIdentifier, "a"},
		{"operator token", Point{1, 2}, KindToken, "="},
		{"past end", Point{5, 0}, KindProgram, "int a;\nb = a;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tree.NodeAt(tt.at)
			assert.Equal(t, tt.kind, got.Kind())
			assert.Equal(t, tt.text, got.Text())
		})
	}
}

func TestNode_HasError(t *testing.T) {
	src := []byte("x")
	b := NewBuilder(src)
	id := b.Leaf(KindIdentifier, "", true, 0, 1)
	semi := b.Missing(KindToken, ";", false, 1)
	stmt := b.Node(KindExpressionStatement, 0, []Child{{ID: id}, {ID: semi}})
	root := b.Node(KindProgram, 0, []Child{{ID: stmt}})
	tree := b.Finish(root)

	assert.True(t, tree.Root().HasError())
	assert.True(t, tree.Root().FirstChild().LastChild().IsMissing())
	assert.False(t, tree.Root().FirstChild().FirstChild().HasError())
}

func TestTree_Offsets(t *testing.T) {
	tree := buildSample(t)
	assert.Equal(t, Point{Row: 1, Column: 2}, tree.PointAt(9))
	assert.Equal(t, 9, tree.OffsetAt(Point{Row: 1, Column: 2}))
	assert.Equal(t, len(tree.Source()), tree.OffsetAt(Point{Row: 9, Column: 0}))
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package parser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/zsls/services/zs/syntax"
)

func mustParse(t *testing.T, src string) *syntax.Tree {
	t.Helper()
	tree, err := New().Parse(context.Background(), []byte(src), "test.zs")
	require.NoError(t, err)
	require.NotNil(t, tree)
	return tree
}

func first(t *testing.T, tree *syntax.Tree, kind syntax.Kind) syntax.Node {
	t.Helper()
	nodes := tree.Root().DescendantsOfType(kind)
	require.NotEmpty(t, nodes, "no %s in tree", kind)
	return nodes[0]
}

func TestParse_ProgramSpansInput(t *testing.T) {
	src := "\nint x = 1;\n"
	tree := mustParse(t, src)
	root := tree.Root()

	assert.Equal(t, syntax.KindProgram, root.Kind())
	assert.Equal(t, 0, root.StartByte())
	assert.Equal(t, len(src), root.EndByte())
	assert.False(t, root.HasError())
}

func TestParse_ClassMembers(t *testing.T) {
	src := `
class X : Base implements Y {
  ptr Y yyyy;
  int y, xxxx;
  public void foo(int x, YYY y) {}
}
`
	tree := mustParse(t, src)
	require.False(t, tree.Root().HasError())

	class := first(t, tree, syntax.KindClassDeclaration)
	assert.Equal(t, "X", class.ChildForFieldName("name").Text())
	assert.Equal(t, "Base", class.ChildForFieldName("superclass").LastChild().Text())
	assert.Equal(t, "Y", class.ChildForFieldName("interfaces").LastChild().Text())

	fields := tree.Root().DescendantsOfType(syntax.KindFieldDeclaration)
	require.Len(t, fields, 2)
	assert.Equal(t, "ptr Y yyyy;", fields[0].Text())
	assert.Equal(t, "int y, xxxx;", fields[1].Text())
	assert.Len(t, fields[1].ChildrenForFieldName("declarator"), 2)

	method := first(t, tree, syntax.KindMethodDeclaration)
	assert.Equal(t, "public void foo(int x, YYY y) {}", method.Text())
	assert.Equal(t, "void", method.ChildForFieldName("type").Text())

	var params []string
	for _, p := range method.ChildForFieldName("parameters").DescendantsOfType(syntax.KindFormalParameter) {
		params = append(params, p.Text())
	}
	assert.Equal(t, []string{"int x", "YYY y"}, params)
}

func TestParse_TopLevelCallables(t *testing.T) {
	tree := mustParse(t, "void xxxx();\nstr x(str a) {\n  return a;\n}\n")

	sig := first(t, tree, syntax.KindMethodSignatureDeclaration)
	assert.Equal(t, "void xxxx();", sig.Text())

	fn := first(t, tree, syntax.KindFunctionDeclaration)
	assert.Equal(t, "x", fn.ChildForFieldName("name").Text())
	assert.Equal(t, syntax.KindBlock, fn.ChildForFieldName("body").Kind())
	assert.NotEmpty(t, fn.DescendantsOfType(syntax.KindReturnStatement))
}

func TestParse_InterfaceMembers(t *testing.T) {
	src := `
interface ZZZZ : FFFF {
  bool zzzz; zzzz = bool;
  void run(int n);
}
`
	tree := mustParse(t, src)
	require.False(t, tree.Root().HasError())

	iface := first(t, tree, syntax.KindInterfaceDeclaration)
	assert.Equal(t, "FFFF", iface.ChildForFieldName("parent_interface").Text())
	assert.Equal(t, "bool zzzz;", first(t, tree, syntax.KindGetDeclaration).Text())
	assert.Equal(t, "zzzz = bool;", first(t, tree, syntax.KindSetDeclaration).Text())
	assert.Equal(t, "void run(int n);", first(t, tree, syntax.KindMethodInterface).Text())
}

func TestParse_GenericInterface(t *testing.T) {
	tree := mustParse(t, "native interface Array<Component P> {\n  void zzzz();\n}\ntype XXX = Array<DDD>;\n")
	require.False(t, tree.Root().HasError())

	param := first(t, tree, syntax.KindTypeParameter)
	assert.Equal(t, "Component", param.ChildForFieldName("constraint").Text())
	assert.Equal(t, "P", param.ChildForFieldName("name").Text())

	alias := first(t, tree, syntax.KindLocalTypeDeclaration)
	decl := alias.ChildForFieldName("declarator")
	assert.Equal(t, syntax.KindTypedVariableDeclarator, decl.Kind())
	assert.Equal(t, "XXX", decl.ChildForFieldName("name").Text())
	generic := decl.ChildForFieldName("value")
	assert.Equal(t, syntax.KindGenericType, generic.Kind())
	assert.Equal(t, "Array", generic.FirstChild().Text())
}

func TestParse_NestedGenericSplitsShift(t *testing.T) {
	tree := mustParse(t, "Array<Array<int>> a;\n")
	require.False(t, tree.Root().HasError())

	generics := tree.Root().DescendantsOfType(syntax.KindGenericType)
	require.Len(t, generics, 2)
	assert.Equal(t, "Array<Array<int>>", generics[0].Text())
	assert.Equal(t, "Array<int>", generics[1].Text())
}

func TestParse_Enum(t *testing.T) {
	tree := mustParse(t, "enum EEE {\nAAA,\nBBB = 2,\n}\n")
	require.False(t, tree.Root().HasError())

	enumerators := tree.Root().DescendantsOfType(syntax.KindEnumerator)
	require.Len(t, enumerators, 2)
	assert.Equal(t, "AAA", enumerators[0].Text())
	assert.Equal(t, "2", enumerators[1].ChildForFieldName("value").Text())
}

func TestParse_NewExpressionChainedCall(t *testing.T) {
	src := "class XXXX {\n    public void xxxx(int x) {}\n}\nXXXX yyyy = XXXX{}.xxxx(1);\n"
	tree := mustParse(t, src)
	require.False(t, tree.Root().HasError())

	node := tree.NodeAt(syntax.Point{Row: 3, Column: 22})
	assert.Equal(t, "xxxx", node.Text())
	assert.Equal(t, syntax.KindMethodInvocation, node.Parent().Kind())
	assert.Equal(t, syntax.KindNewExpression, node.Parent().Parent().Kind())
	assert.Equal(t, "XXXX", node.Parent().Parent().ChildForFieldName("name").Text())
}

func TestParse_MemberAccessAndCalls(t *testing.T) {
	tree := mustParse(t, "void d() {\n  yyyy.zzzz();\n  yyyy.zzzz = true;\n  yyyy(1, 2);\n}\n")
	require.False(t, tree.Root().HasError())

	calls := tree.Root().DescendantsOfType(syntax.KindMethodInvocation)
	require.Len(t, calls, 2)
	assert.Equal(t, "yyyy", calls[0].ChildForFieldName("object").Text())
	assert.Equal(t, "zzzz", calls[0].ChildForFieldName("name").Text())
	assert.True(t, calls[1].ChildForFieldName("object").IsNull())
	assert.Len(t, calls[1].ChildForFieldName("arguments").NamedChildren(), 2)

	access := first(t, tree, syntax.KindFieldAccess)
	assert.Equal(t, "zzzz", access.ChildForFieldName("field").Text())
	assert.Equal(t, syntax.KindAssignmentExpression, access.Parent().Kind())
}

func TestParse_Precedence(t *testing.T) {
	tree := mustParse(t, "x = 1 + 2 * 3;\n")

	assign := first(t, tree, syntax.KindAssignmentExpression)
	right := assign.ChildForFieldName("right")
	require.Equal(t, syntax.KindBinaryExpression, right.Kind())
	assert.Equal(t, "+", right.ChildForFieldName("operator").Type())
	assert.Equal(t, "2 * 3", right.ChildForFieldName("right").Text())
}

func TestParse_ForLoop(t *testing.T) {
	src := "void z() {\n  for (int i = 0; i < 10; i++) {\n    i++\n  }\n}\n"
	tree := mustParse(t, src)

	loop := first(t, tree, syntax.KindForStatement)
	inits := loop.ChildrenForFieldName("init")
	require.Len(t, inits, 1)
	assert.Equal(t, syntax.KindLocalVariableDeclaration, inits[0].Kind())
	assert.Equal(t, "i < 10", loop.ChildForFieldName("condition").Text())
	assert.Equal(t, syntax.KindBlock, loop.ChildForFieldName("body").Kind())

	// "i++" inside the body lacks its semicolon.
	assert.True(t, tree.Root().HasError())
	var missing []syntax.Node
	tree.Root().Walk(func(n syntax.Node) bool {
		if n.IsMissing() {
			missing = append(missing, n)
		}
		return true
	})
	require.Len(t, missing, 1)
	assert.Equal(t, ";", missing[0].Type())
	assert.Equal(t, syntax.Point{Row: 2, Column: 7}, missing[0].StartPoint())
}

func TestParse_Preprocessor(t *testing.T) {
	src := "#include \"123.zs\"\n#include <system.zi>\n#define X 1\n#undef X\n#pragma once\n"
	tree := mustParse(t, src)
	require.False(t, tree.Root().HasError())

	includes := tree.Root().DescendantsOfType(syntax.KindPreprocInclude)
	require.Len(t, includes, 2)
	assert.Equal(t, "123.zs", includes[0].DescendantsOfType(syntax.KindStringFragment)[0].Text())
	assert.Equal(t, syntax.KindSystemLibString, includes[1].ChildForFieldName("path").Kind())
	assert.Equal(t, "<system.zi>", includes[1].ChildForFieldName("path").Text())

	def := first(t, tree, syntax.KindPreprocDef)
	assert.Equal(t, "X", def.ChildForFieldName("name").Text())
	assert.Equal(t, "1", def.ChildForFieldName("value").Text())

	call := first(t, tree, syntax.KindPreprocCall)
	assert.Equal(t, "#pragma", call.ChildForFieldName("directive").Text())
	assert.Equal(t, "once", call.ChildForFieldName("argument").Text())
}

func TestParse_CommentsAreKept(t *testing.T) {
	tree := mustParse(t, "// leading\nint a; /* trailing */\n")
	assert.Len(t, tree.Root().DescendantsOfType(syntax.KindLineComment), 1)
	assert.Len(t, tree.Root().DescendantsOfType(syntax.KindBlockComment), 1)
	assert.Equal(t, "int a;", first(t, tree, syntax.KindLocalVariableDeclaration).Text())
}

func TestParse_RecoversFromGarbage(t *testing.T) {
	src := "class X {\n  @@ ;\n  int a;\n}\n"
	tree := mustParse(t, src)

	assert.True(t, tree.Root().HasError())
	assert.NotEmpty(t, tree.Root().DescendantsOfType(syntax.KindError))
	assert.Equal(t, "int a;", first(t, tree, syntax.KindFieldDeclaration).Text())
}

func TestParse_Refusals(t *testing.T) {
	t.Run("too large", func(t *testing.T) {
		p := New(WithMaxInputSize(4))
		_, err := p.Parse(context.Background(), []byte("int a;"), "big.zs")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInputTooLarge))

		var perr *ParseError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, "big.zs", perr.FilePath)
	})

	t.Run("invalid utf8", func(t *testing.T) {
		_, err := New().Parse(context.Background(), []byte("int a;\nint \xff;"), "bad.zs")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidUTF8))

		var perr *ParseError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, 2, perr.Line)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := New().Parse(ctx, []byte("int a;"), "c.zs")
		assert.True(t, errors.Is(err, ErrContextCanceled))
	})
}

func TestParse_NeverPanicsOnTruncatedInput(t *testing.T) {
	src := "class X {\n  public void foo(int aaaa) {\n    int z = aaaa.b(1, new Y{}).c[2];\n  }\n}\n"
	for i := 0; i <= len(src); i++ {
		tree := mustParse(t, src[:i])
		assert.Equal(t, i, tree.Root().EndByte())
	}
}

func TestLex_Tokens(t *testing.T) {
	toks := lex([]byte("#include <a.zi>\nx >>= 0x1F + 1.5e3; 'c' \"s\""))
	var kinds []tokenKind
	var texts []string
	for _, tk := range toks {
		kinds = append(kinds, tk.kind)
		texts = append(texts, tk.text)
	}
	assert.Equal(t, []tokenKind{
		tokDirective, tokSystemPath, tokIdent, tokPunct, tokHex, tokPunct, tokFloat,
		tokPunct, tokChar, tokString, tokEOF,
	}, kinds)
	assert.Equal(t, "<a.zi>", texts[1])
	assert.Equal(t, ">>=", texts[3])
	assert.Equal(t, 1, toks[2].line)
	assert.True(t, strings.HasPrefix(texts[9], `"`))
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package providers

import (
	"cmp"
	"slices"
	"strings"

	"github.com/AleutianAI/zsls/services/zs/protocol"
	"github.com/AleutianAI/zsls/services/zs/syntax"
)

// =============================================================================
// LEGEND
// =============================================================================

// Token type indices into TokenTypes.
const (
	TokenNamespace = iota
	TokenType
	TokenClass
	TokenEnum
	TokenInterface
	TokenTypeParameter
	TokenParameter
	TokenVariable
	TokenProperty
	TokenEnumMember
	TokenFunction
	TokenMethod
	TokenMacro
	TokenKeyword
	TokenModifier
	TokenComment
	TokenString
	TokenNumber
	TokenOperator
)

// Token modifier bits, in TokenModifiers order.
const (
	ModDeclaration uint32 = 1 << iota
	ModReadonly
	ModStatic
	ModDefaultLibrary
)

// TokenTypes is the semantic token type legend.
var TokenTypes = []string{
	"namespace", "type", "class", "enum", "interface", "typeParameter",
	"parameter", "variable", "property", "enumMember",
	"function", "method", "macro",
	"keyword", "modifier", "comment", "string", "number", "operator",
}

// TokenModifiers is the semantic token modifier legend.
var TokenModifiers = []string{"declaration", "readonly", "static", "defaultLibrary"}

// Legend returns the legend advertised in the server capabilities.
func Legend() protocol.SemanticTokensLegend {
	return protocol.SemanticTokensLegend{
		TokenTypes:     slices.Clone(TokenTypes),
		TokenModifiers: slices.Clone(TokenModifiers),
	}
}

var keywords = map[string]bool{
	"class": true, "interface": true, "enum": true, "extends": true,
	"implements": true, "if": true, "else": true, "for": true, "while": true,
	"do": true, "return": true, "break": true, "continue": true,
	"switch": true, "case": true, "default": true, "new": true, "type": true,
}

var operators = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true,
	"+": true, "-": true, "*": true, "/": true, "%": true,
	"==": true, "!=": true, "<=": true, ">=": true,
	"&&": true, "||": true, "!": true, "~": true, "&": true, "|": true, "^": true,
	"<<": true, ">>": true, "++": true, "--": true, "?": true,
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

type semanticToken struct {
	start, end int
	typ        int
	mods       uint32
}

// SemanticTokens classifies the tokens of tree and returns the LSP
// relative encoding: five integers per token (line delta, start delta,
// length, type, modifiers).
//
// Description:
//
//	Classification is syntactic: a name is typed by its parent node and
//	field, so "name" of a class_declaration is a class declaration and the
//	field of a field_access is a property. Comments spanning several lines
//	are split into one token per line. Angle brackets are left
//	unclassified because they also delimit type arguments.
func SemanticTokens(tree *syntax.Tree) []uint32 {
	if tree == nil {
		return []uint32{}
	}
	var toks []semanticToken
	emit := func(n syntax.Node, typ int, mods uint32) {
		toks = append(toks, semanticToken{start: n.StartByte(), end: n.EndByte(), typ: typ, mods: mods})
	}

	tree.Root().Walk(func(n syntax.Node) bool {
		if n.IsMissing() || n.StartByte() == n.EndByte() {
			return false
		}
		switch n.Kind() {
		case syntax.KindLineComment, syntax.KindBlockComment:
			emit(n, TokenComment, 0)
			return false
		case syntax.KindStringLiteral, syntax.KindSystemLibString, syntax.KindCharacterLiteral:
			emit(n, TokenString, 0)
			return false
		case syntax.KindDecimalIntegerLiteral, syntax.KindHexIntegerLiteral, syntax.KindDecimalFloatingPointLiteral:
			emit(n, TokenNumber, 0)
		case syntax.KindTrue, syntax.KindFalse, syntax.KindNullLiteral, syntax.KindThis:
			emit(n, TokenKeyword, 0)
		case syntax.KindVoidType, syntax.KindIntegralType, syntax.KindFloatingPointType,
			syntax.KindFixType, syntax.KindStrType, syntax.KindBooleanType:
			emit(n, TokenType, ModDefaultLibrary)
		case syntax.KindPreprocDirective:
			emit(n, TokenMacro, 0)
		case syntax.KindPreprocArg:
			return false
		case syntax.KindIdentifier, syntax.KindTypeIdentifier:
			typ, mods := classifyName(n)
			emit(n, typ, mods)
		case syntax.KindToken:
			sym := n.Type()
			switch {
			case n.Parent().Kind() == syntax.KindModifiers:
				emit(n, TokenModifier, 0)
			case keywords[sym] || strings.HasPrefix(sym, "#"):
				emit(n, TokenKeyword, 0)
			case operators[sym]:
				emit(n, TokenOperator, 0)
			}
		}
		return true
	})

	slices.SortStableFunc(toks, func(a, b semanticToken) int { return cmp.Compare(a.start, b.start) })
	return encode(tree, toks)
}

// classifyName types an identifier by its role in the parent.
func classifyName(n syntax.Node) (int, uint32) {
	parent := n.Parent()
	if n.FieldName() == "name" {
		switch parent.Kind() {
		case syntax.KindClassDeclaration:
			return TokenClass, ModDeclaration
		case syntax.KindInterfaceDeclaration:
			return TokenInterface, ModDeclaration
		case syntax.KindEnumDeclaration:
			return TokenEnum, ModDeclaration
		case syntax.KindEnumerator:
			return TokenEnumMember, ModDeclaration | ModReadonly
		case syntax.KindFunctionDeclaration, syntax.KindMethodSignatureDeclaration:
			return TokenFunction, ModDeclaration | modifierBits(parent)
		case syntax.KindMethodDeclaration, syntax.KindMethodInterface:
			return TokenMethod, ModDeclaration | modifierBits(parent)
		case syntax.KindGetDeclaration, syntax.KindSetDeclaration:
			return TokenProperty, ModDeclaration
		case syntax.KindFormalParameter:
			return TokenParameter, ModDeclaration
		case syntax.KindVariableDeclarator:
			owner := parent.Parent()
			if owner.Kind() == syntax.KindFieldDeclaration {
				return TokenProperty, ModDeclaration | modifierBits(owner)
			}
			return TokenVariable, ModDeclaration | modifierBits(owner)
		case syntax.KindTypedVariableDeclarator:
			return TokenType, ModDeclaration
		case syntax.KindTypeParameter:
			return TokenTypeParameter, ModDeclaration
		case syntax.KindMethodInvocation:
			if parent.ChildForFieldName("object").IsNull() && parent.FieldName() != "invocation" {
				return TokenFunction, 0
			}
			return TokenMethod, 0
		case syntax.KindNewExpression:
			return TokenClass, 0
		case syntax.KindPreprocDef:
			return TokenMacro, ModDeclaration
		case syntax.KindPreprocUndef:
			return TokenMacro, 0
		}
	}
	switch {
	case parent.Kind() == syntax.KindFieldAccess && n.FieldName() == "field":
		return TokenProperty, 0
	case n.Kind() == syntax.KindTypeIdentifier:
		return TokenType, 0
	default:
		return TokenVariable, 0
	}
}

func modifierBits(decl syntax.Node) uint32 {
	var bits uint32
	for _, m := range decl.ChildForFieldName("modifiers").Children() {
		switch m.Type() {
		case "static":
			bits |= ModStatic
		case "const", "final":
			bits |= ModReadonly
		}
	}
	return bits
}

// encode splits multi-line tokens and applies the relative encoding.
func encode(tree *syntax.Tree, toks []semanticToken) []uint32 {
	src := tree.Source()
	data := make([]uint32, 0, len(toks)*5)
	prevLine, prevChar := 0, 0
	for _, t := range toks {
		for start := t.start; start < t.end; {
			end := start
			for end < t.end && src[end] != '\n' {
				end++
			}
			segEnd := end
			if segEnd > start && src[segEnd-1] == '\r' {
				segEnd--
			}
			if segEnd > start {
				p := tree.PointAt(start)
				delta := p.Column
				if p.Row == prevLine {
					delta = p.Column - prevChar
				}
				data = append(data,
					uint32(p.Row-prevLine), uint32(delta), uint32(segEnd-start),
					uint32(t.typ), t.mods)
				prevLine, prevChar = p.Row, p.Column
			}
			start = end + 1
		}
	}
	return data
}

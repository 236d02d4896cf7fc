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

import "github.com/AleutianAI/zsls/services/zs/syntax"

var modifierWords = map[string]bool{
	"public": true, "private": true, "protected": true, "static": true,
	"native": true, "abstract": true, "final": true, "const": true,
	"override": true, "virtual": true, "ptr": true, "ref": true,
	"extern": true, "inline": true,
}

var primitiveTypes = map[string]syntax.Kind{
	"void":    syntax.KindVoidType,
	"int":     syntax.KindIntegralType,
	"uint":    syntax.KindIntegralType,
	"int8":    syntax.KindIntegralType,
	"uint8":   syntax.KindIntegralType,
	"int16":   syntax.KindIntegralType,
	"uint16":  syntax.KindIntegralType,
	"int32":   syntax.KindIntegralType,
	"uint32":  syntax.KindIntegralType,
	"int64":   syntax.KindIntegralType,
	"uint64":  syntax.KindIntegralType,
	"long":    syntax.KindIntegralType,
	"short":   syntax.KindIntegralType,
	"byte":    syntax.KindIntegralType,
	"char":    syntax.KindIntegralType,
	"float":   syntax.KindFloatingPointType,
	"double":  syntax.KindFloatingPointType,
	"fix":     syntax.KindFixType,
	"str":     syntax.KindStrType,
	"string":  syntax.KindStrType,
	"bool":    syntax.KindBooleanType,
	"boolean": syntax.KindBooleanType,
}

var reservedWords = map[string]bool{
	"class": true, "interface": true, "enum": true, "extends": true,
	"implements": true, "if": true, "else": true, "for": true, "while": true,
	"do": true, "return": true, "break": true, "continue": true,
	"switch": true, "case": true, "default": true, "new": true,
	"this": true, "null": true, "true": true, "false": true,
}

// isName reports whether t can be used as an identifier.
func isName(t token) bool {
	if t.kind != tokIdent {
		return false
	}
	_, primitive := primitiveTypes[t.text]
	return !primitive && !reservedWords[t.text] && !modifierWords[t.text]
}

func isModifier(t token) bool {
	return t.kind == tokIdent && modifierWords[t.text]
}

func isPrimitive(t token) bool {
	if t.kind != tokIdent {
		return false
	}
	_, ok := primitiveTypes[t.text]
	return ok
}

// =============================================================================
// LOOKAHEAD
// =============================================================================

// skipModifiers returns the index of the first non-modifier token at or
// after i.
func (s *state) skipModifiers(i int) int {
	for isModifier(s.tok(i)) {
		i++
	}
	return i
}

// scanType returns the index just past a type starting at i.
func (s *state) scanType(i int) (int, bool) {
	t := s.tok(i)
	if !isPrimitive(t) && !isName(t) {
		return i, false
	}
	i++
	if tokenIs(s.tok(i), "<") {
		depth := 0
		for {
			t := s.tok(i)
			switch {
			case tokenIs(t, "<"):
				depth++
			case tokenIs(t, ">"):
				depth--
			case tokenIs(t, ">>"):
				depth -= 2
			case tokenIs(t, ","), tokenIs(t, "["), tokenIs(t, "]"), isName(t), isPrimitive(t):
			default:
				return i, false
			}
			i++
			if depth <= 0 {
				if depth < 0 {
					return i, false
				}
				break
			}
		}
	}
	for tokenIs(s.tok(i), "[") && tokenIs(s.tok(i+1), "]") {
		i += 2
	}
	return i, true
}

// typedName reports whether a "Type name" pair starts at i and returns the
// index of the name token.
func (s *state) typedName(i int) (int, bool) {
	j, ok := s.scanType(i)
	if !ok || !isName(s.tok(j)) {
		return i, false
	}
	return j, true
}

// isLocalType reports whether "type Name =" starts at i.
func (s *state) isLocalType(i int) bool {
	return tokenIs(s.tok(i), "type") && isName(s.tok(i+1)) && tokenIs(s.tok(i+2), "=")
}

// =============================================================================
// TOP LEVEL
// =============================================================================

func (s *state) parseItem() {
	t := s.cur()
	switch {
	case t.kind == tokDirective:
		s.parsePreproc()
		return
	case tokenIs(t, ";"):
		s.token()
		return
	}

	i := s.skipModifiers(s.pos)
	switch {
	case tokenIs(s.tok(i), "class"):
		s.parseClass()
	case tokenIs(s.tok(i), "interface"):
		s.parseInterface()
	case tokenIs(s.tok(i), "enum"):
		s.parseEnum()
	case s.isLocalType(i):
		s.parseLocalType()
	default:
		if j, ok := s.typedName(i); ok && tokenIs(s.tok(j+1), "(") {
			s.parseCallable(syntax.KindFunctionDeclaration)
			return
		}
		s.parseStatement()
	}
}

func (s *state) parseModifiers() {
	if !isModifier(s.cur()) {
		return
	}
	s.field("modifiers")
	s.open(syntax.KindModifiers)
	for isModifier(s.cur()) {
		s.token()
	}
	s.close()
}

// =============================================================================
// CLASSES, INTERFACES, ENUMS
// =============================================================================

func (s *state) parseClass() {
	s.open(syntax.KindClassDeclaration)
	s.parseModifiers()
	s.expect("class")
	s.field("name")
	s.identifier(syntax.KindIdentifier)
	if s.at("<") {
		s.field("type_parameters")
		s.parseTypeParameters()
	}
	if s.atAny("extends", ":") {
		s.field("superclass")
		s.open(syntax.KindSuperclass)
		s.token()
		s.parseType()
		s.close()
	}
	if s.at("implements") {
		s.field("interfaces")
		s.open(syntax.KindSuperInterfaces)
		s.token()
		s.parseType()
		for s.at(",") {
			s.token()
			s.parseType()
		}
		s.close()
	}
	s.field("body")
	s.parseClassBody()
	s.close()
}

func (s *state) parseClassBody() {
	s.open(syntax.KindClassBody)
	s.expect("{")
	for !s.eof() && !s.at("}") {
		s.parseClassMember()
	}
	s.expect("}")
	s.close()
}

func (s *state) parseClassMember() {
	t := s.cur()
	switch {
	case t.kind == tokDirective:
		s.parsePreproc()
		return
	case tokenIs(t, ";"):
		s.token()
		return
	}

	i := s.skipModifiers(s.pos)
	switch {
	case tokenIs(s.tok(i), "class"):
		s.parseClass()
	case tokenIs(s.tok(i), "interface"):
		s.parseInterface()
	case tokenIs(s.tok(i), "enum"):
		s.parseEnum()
	case isName(s.tok(i)) && tokenIs(s.tok(i+1), "="):
		s.parseSetter()
	default:
		j, ok := s.typedName(i)
		switch {
		case ok && tokenIs(s.tok(j+1), "("):
			s.parseCallable(syntax.KindMethodDeclaration)
		case ok:
			s.parseVariables(syntax.KindFieldDeclaration)
		default:
			s.recover(";", "}")
		}
	}
}

func (s *state) parseInterface() {
	s.open(syntax.KindInterfaceDeclaration)
	s.parseModifiers()
	s.expect("interface")
	s.field("name")
	s.identifier(syntax.KindIdentifier)
	if s.at("<") {
		s.field("type_parameters")
		s.parseTypeParameters()
	}
	if s.atAny(":", "extends") {
		s.token()
		s.field("parent_interface")
		s.parseType()
		for s.at(",") {
			s.token()
			s.field("parent_interface")
			s.parseType()
		}
	}
	s.field("body")
	s.open(syntax.KindInterfaceBody)
	s.expect("{")
	for !s.eof() && !s.at("}") {
		s.parseInterfaceMember()
	}
	s.expect("}")
	s.close()
	s.close()
}

func (s *state) parseInterfaceMember() {
	t := s.cur()
	switch {
	case t.kind == tokDirective:
		s.parsePreproc()
		return
	case tokenIs(t, ";"):
		s.token()
		return
	}

	i := s.skipModifiers(s.pos)
	if isName(s.tok(i)) && tokenIs(s.tok(i+1), "=") {
		s.parseSetter()
		return
	}
	j, ok := s.typedName(i)
	switch {
	case ok && tokenIs(s.tok(j+1), "("):
		s.parseCallable(syntax.KindMethodInterface)
	case ok:
		s.open(syntax.KindGetDeclaration)
		s.parseModifiers()
		s.field("type")
		s.parseType()
		s.field("name")
		s.identifier(syntax.KindIdentifier)
		s.expectSemicolon()
		s.close()
	default:
		s.recover(";", "}")
	}
}

// parseSetter parses "name = Type;".
func (s *state) parseSetter() {
	s.open(syntax.KindSetDeclaration)
	s.parseModifiers()
	s.field("name")
	s.identifier(syntax.KindIdentifier)
	s.expect("=")
	s.field("type")
	s.parseType()
	s.expectSemicolon()
	s.close()
}

func (s *state) parseEnum() {
	s.open(syntax.KindEnumDeclaration)
	s.parseModifiers()
	s.expect("enum")
	s.field("name")
	s.identifier(syntax.KindIdentifier)
	s.field("body")
	s.open(syntax.KindEnumeratorList)
	s.expect("{")
	for !s.eof() && !s.at("}") {
		switch {
		case s.cur().kind == tokDirective:
			s.parsePreproc()
			continue
		case isName(s.cur()):
			s.open(syntax.KindEnumerator)
			s.field("name")
			s.identifier(syntax.KindIdentifier)
			if s.at("=") {
				s.token()
				s.field("value")
				s.parseExpression()
			}
			s.close()
		default:
			s.recover(",", "}")
		}
		if !s.at(",") {
			break
		}
		s.token()
	}
	s.expect("}")
	s.close()
	s.close()
}

// =============================================================================
// CALLABLES AND VARIABLES
// =============================================================================

// parseCallable parses "Type name(params)" followed by a body or ";".
// kind is the kind used when a body is present; top-level declarations
// without a body become method_signature_declaration.
func (s *state) parseCallable(kind syntax.Kind) {
	s.open(kind)
	s.parseModifiers()
	s.field("type")
	s.parseType()
	s.field("name")
	s.identifier(syntax.KindIdentifier)
	s.field("parameters")
	s.parseFormalParameters()

	switch {
	case kind == syntax.KindMethodInterface:
		s.expectSemicolon()
	case s.at("{"):
		s.field("body")
		s.parseBlock()
	default:
		if kind == syntax.KindFunctionDeclaration {
			s.retag(syntax.KindMethodSignatureDeclaration)
		}
		s.expectSemicolon()
	}
	s.close()
}

func (s *state) parseFormalParameters() {
	s.open(syntax.KindFormalParameters)
	s.expect("(")
	for !s.eof() && !s.at(")") {
		i := s.skipModifiers(s.pos)
		if _, ok := s.scanType(i); !ok {
			s.recover(",", ")", "{", ";")
		} else {
			s.open(syntax.KindFormalParameter)
			s.parseModifiers()
			s.field("type")
			s.parseType()
			if isName(s.cur()) {
				s.field("name")
				s.identifier(syntax.KindIdentifier)
			}
			s.close()
		}
		if !s.at(",") {
			break
		}
		s.token()
	}
	s.expect(")")
	s.close()
}

// parseVariables parses "Type a = x, b;" as kind with variable_declarator
// children.
func (s *state) parseVariables(kind syntax.Kind) {
	s.open(kind)
	s.parseModifiers()
	s.field("type")
	s.parseType()
	for {
		s.field("declarator")
		s.open(syntax.KindVariableDeclarator)
		s.field("name")
		s.identifier(syntax.KindIdentifier)
		if s.at("=") {
			s.token()
			s.field("value")
			s.parseExpression()
		}
		s.close()
		if !s.at(",") {
			break
		}
		s.token()
	}
	s.expectSemicolon()
	s.close()
}

// parseLocalType parses "type Name = Type;".
func (s *state) parseLocalType() {
	s.open(syntax.KindLocalTypeDeclaration)
	s.parseModifiers()
	s.token()
	s.field("declarator")
	s.open(syntax.KindTypedVariableDeclarator)
	s.field("name")
	s.identifier(syntax.KindTypeIdentifier)
	s.expect("=")
	s.field("value")
	s.parseType()
	s.close()
	s.expectSemicolon()
	s.close()
}

// =============================================================================
// TYPES
// =============================================================================

// parseType parses a type, honoring any field set by the caller.
func (s *state) parseType() {
	t := s.cur()
	switch {
	case isPrimitive(t):
		s.leaf(primitiveTypes[t.text], true)
	case isName(t):
		if tokenIs(s.peek(1), "<") {
			s.open(syntax.KindGenericType)
			s.leaf(syntax.KindTypeIdentifier, true)
			s.parseTypeArguments()
			s.close()
		} else {
			s.leaf(syntax.KindTypeIdentifier, true)
		}
	default:
		s.missing(syntax.KindTypeIdentifier, "", true)
		return
	}
	if s.at("[") && tokenIs(s.peek(1), "]") {
		s.wrap(syntax.KindArrayType, "element")
		s.field("dimensions")
		s.open(syntax.KindDimensions)
		for s.at("[") && tokenIs(s.peek(1), "]") {
			s.token()
			s.token()
		}
		s.close()
		s.close()
	}
}

func (s *state) parseTypeArguments() {
	s.open(syntax.KindTypeArguments)
	s.expect("<")
	for !s.eof() && !s.atAny(">", ">>") {
		s.parseType()
		if !s.at(",") {
			break
		}
		s.token()
	}
	s.expectCloseAngle()
	s.close()
}

func (s *state) parseTypeParameters() {
	s.open(syntax.KindTypeParameters)
	s.expect("<")
	for !s.eof() && !s.atAny(">", ">>") {
		s.open(syntax.KindTypeParameter)
		if j, ok := s.scanType(s.pos); ok && isName(s.tok(j)) {
			s.field("constraint")
			s.parseType()
		}
		s.field("name")
		s.identifier(syntax.KindTypeIdentifier)
		s.close()
		if !s.at(",") {
			break
		}
		s.token()
	}
	s.expectCloseAngle()
	s.close()
}

// expectCloseAngle consumes ">" and splits a ">>" token in two.
func (s *state) expectCloseAngle() {
	if s.at(">>") {
		t := s.cur()
		s.flushExtras()
		id := s.b.Leaf(syntax.KindToken, ">", false, t.start, t.start+1)
		s.appendChild(id, "")
		s.toks[s.pos] = token{kind: tokPunct, text: ">", start: t.start + 1, end: t.end, line: t.line}
		return
	}
	s.expect(">")
}

// =============================================================================
// PREPROCESSOR
// =============================================================================

func (s *state) parsePreproc() {
	d := s.cur()
	switch d.text {
	case "#include":
		s.open(syntax.KindPreprocInclude)
		s.token()
		if s.cur().line == d.line {
			switch s.cur().kind {
			case tokString:
				s.field("path")
				s.stringLiteral()
			case tokSystemPath:
				s.field("path")
				s.leaf(syntax.KindSystemLibString, true)
			}
		}
		s.restOfLine(d.line, "")
		s.close()
	case "#define":
		s.open(syntax.KindPreprocDef)
		s.token()
		if s.cur().line == d.line {
			s.field("name")
			s.identifier(syntax.KindIdentifier)
		}
		s.restOfLine(d.line, "value")
		s.close()
	case "#undef":
		s.open(syntax.KindPreprocUndef)
		s.token()
		if s.cur().line == d.line {
			s.field("name")
			s.identifier(syntax.KindIdentifier)
		}
		s.restOfLine(d.line, "")
		s.close()
	default:
		s.open(syntax.KindPreprocCall)
		s.field("directive")
		s.leaf(syntax.KindPreprocDirective, true)
		s.restOfLine(d.line, "argument")
		s.close()
	}
}

// restOfLine folds the remaining tokens on line into one preproc_arg leaf.
func (s *state) restOfLine(line int, field string) {
	if s.eof() || s.cur().line != line {
		return
	}
	s.flushExtras()
	start := s.cur().start
	end := start
	for !s.eof() && s.cur().line == line {
		end = s.cur().end
		s.pos++
	}
	s.flushed = s.pos
	id := s.b.Leaf(syntax.KindPreprocArg, "", true, start, end)
	s.appendChild(id, field)
}

// stringLiteral splits a string token into quote, fragment and quote nodes.
func (s *state) stringLiteral() {
	s.flushExtras()
	t := s.cur()
	var children []syntax.Child
	children = append(children, syntax.Child{ID: s.b.Leaf(syntax.KindToken, `"`, false, t.start, t.start+1)})
	if t.end-t.start > 2 {
		children = append(children, syntax.Child{ID: s.b.Leaf(syntax.KindStringFragment, "", true, t.start+1, t.end-1)})
	}
	children = append(children, syntax.Child{ID: s.b.Leaf(syntax.KindToken, `"`, false, t.end-1, t.end)})
	id := s.b.Node(syntax.KindStringLiteral, t.start, children)
	s.appendChild(id, s.takeField())
	s.pos++
}

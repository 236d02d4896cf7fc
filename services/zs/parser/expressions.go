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

var assignmentOperators = []string{"=", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<=", ">>="}

var binaryPrecedence = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6, "!=": 6,
	"<": 7, ">": 7, "<=": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

func (s *state) canStartExpression() bool {
	t := s.cur()
	switch t.kind {
	case tokInt, tokHex, tokFloat, tokString, tokChar:
		return true
	case tokIdent:
		return isName(t) || t.text == "new" || t.text == "this" || t.text == "null" ||
			t.text == "true" || t.text == "false"
	case tokPunct:
		return s.atAny("(", "{", "!", "-", "+", "~", "++", "--")
	}
	return false
}

// parseExpression parses an expression, honoring any field set by the
// caller.
func (s *state) parseExpression() {
	s.parseAssignment()
}

func (s *state) parseAssignment() {
	s.parseTernary()
	if s.atAny(assignmentOperators...) {
		s.wrap(syntax.KindAssignmentExpression, "left")
		s.field("operator")
		s.token()
		s.field("right")
		s.parseAssignment()
		s.close()
	}
}

func (s *state) parseTernary() {
	s.parseBinary(1)
	if s.at("?") {
		s.wrap(syntax.KindTernaryExpression, "condition")
		s.token()
		s.field("consequence")
		s.parseExpression()
		s.expect(":")
		s.field("alternative")
		s.parseTernary()
		s.close()
	}
}

func (s *state) parseBinary(minPrec int) {
	s.parseUnary()
	for {
		t := s.cur()
		if t.kind != tokPunct {
			return
		}
		prec, ok := binaryPrecedence[t.text]
		if !ok || prec < minPrec {
			return
		}
		s.wrap(syntax.KindBinaryExpression, "left")
		s.field("operator")
		s.token()
		s.field("right")
		s.parseBinary(prec + 1)
		s.close()
	}
}

func (s *state) parseUnary() {
	switch {
	case s.atAny("!", "-", "+", "~"):
		s.open(syntax.KindUnaryExpression)
		s.field("operator")
		s.token()
		s.field("operand")
		s.parseUnary()
		s.close()
	case s.atAny("++", "--"):
		s.open(syntax.KindUpdateExpression)
		s.token()
		s.parseUnary()
		s.close()
	default:
		s.parsePostfix()
	}
}

func (s *state) parsePostfix() {
	s.parsePrimary()
	for {
		switch {
		case s.at(".") && isName(s.peek(1)) && tokenIs(s.peek(2), "("):
			s.wrap(syntax.KindMethodInvocation, "object")
			s.token()
			s.field("name")
			s.identifier(syntax.KindIdentifier)
			s.field("arguments")
			s.parseArguments()
			s.close()
		case s.at("."):
			s.wrap(syntax.KindFieldAccess, "object")
			s.token()
			s.field("field")
			s.identifier(syntax.KindIdentifier)
			s.close()
		case s.at("["):
			s.wrap(syntax.KindArrayAccess, "array")
			s.token()
			s.field("index")
			s.parseExpression()
			s.expect("]")
			s.close()
		case s.atAny("++", "--"):
			s.wrap(syntax.KindUpdateExpression, "")
			s.token()
			s.close()
		default:
			return
		}
	}
}

func (s *state) parsePrimary() {
	t := s.cur()
	switch t.kind {
	case tokInt:
		s.leaf(syntax.KindDecimalIntegerLiteral, true)
		return
	case tokHex:
		s.leaf(syntax.KindHexIntegerLiteral, true)
		return
	case tokFloat:
		s.leaf(syntax.KindDecimalFloatingPointLiteral, true)
		return
	case tokString:
		s.stringLiteral()
		return
	case tokChar:
		s.leaf(syntax.KindCharacterLiteral, true)
		return
	}

	switch {
	case isName(t):
		switch {
		case tokenIs(s.peek(1), "("):
			s.open(syntax.KindMethodInvocation)
			s.field("name")
			s.identifier(syntax.KindIdentifier)
			s.field("arguments")
			s.parseArguments()
			s.close()
		case tokenIs(s.peek(1), "{"):
			s.open(syntax.KindNewExpression)
			s.field("name")
			s.identifier(syntax.KindIdentifier)
			s.parseInitializer()
			s.parseChainedCall()
			s.close()
		default:
			s.leaf(syntax.KindIdentifier, true)
		}
	case tokenIs(t, "new"):
		s.open(syntax.KindNewExpression)
		s.token()
		s.field("name")
		s.identifier(syntax.KindIdentifier)
		switch {
		case s.at("("):
			s.field("arguments")
			s.parseArguments()
		case s.at("{"):
			s.parseInitializer()
		}
		s.parseChainedCall()
		s.close()
	case tokenIs(t, "this"):
		s.leaf(syntax.KindThis, true)
	case tokenIs(t, "null"):
		s.leaf(syntax.KindNullLiteral, true)
	case tokenIs(t, "true"):
		s.leaf(syntax.KindTrue, true)
	case tokenIs(t, "false"):
		s.leaf(syntax.KindFalse, true)
	case tokenIs(t, "("):
		s.parseParenthesized()
	case tokenIs(t, "{"):
		s.open(syntax.KindArrayInitializer)
		s.token()
		s.parseExpressionList("}")
		s.expect("}")
		s.close()
	default:
		s.missing(syntax.KindIdentifier, "", true)
	}
}

// parseChainedCall attaches ".m(args)" directly after a construction to
// the new_expression as an object-less method_invocation.
func (s *state) parseChainedCall() {
	if !(s.at(".") && isName(s.peek(1)) && tokenIs(s.peek(2), "(")) {
		return
	}
	s.token()
	s.field("invocation")
	s.open(syntax.KindMethodInvocation)
	s.field("name")
	s.identifier(syntax.KindIdentifier)
	s.field("arguments")
	s.parseArguments()
	s.close()
}

func (s *state) parseInitializer() {
	s.expect("{")
	s.parseExpressionList("}")
	s.expect("}")
}

func (s *state) parseArguments() {
	s.open(syntax.KindArgumentList)
	s.expect("(")
	s.parseExpressionList(")")
	s.expect(")")
	s.close()
}

// parseExpressionList parses comma-separated expressions up to closer,
// allowing a trailing comma.
func (s *state) parseExpressionList(closer string) {
	for !s.eof() && !s.at(closer) {
		if !s.canStartExpression() {
			s.recover(",", closer, ";")
		} else {
			s.parseExpression()
		}
		if !s.at(",") {
			return
		}
		s.token()
	}
}

func (s *state) parseParenthesized() {
	s.open(syntax.KindParenthesizedExpression)
	s.expect("(")
	s.parseExpression()
	s.expect(")")
	s.close()
}

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

func (s *state) parseBlock() {
	s.open(syntax.KindBlock)
	s.expect("{")
	for !s.eof() && !s.at("}") {
		s.parseStatement()
	}
	s.expect("}")
	s.close()
}

func (s *state) parseStatement() {
	t := s.cur()
	switch {
	case t.kind == tokDirective:
		s.parsePreproc()
	case tokenIs(t, "{"):
		s.parseBlock()
	case tokenIs(t, ";"):
		s.token()
	case tokenIs(t, "if"):
		s.parseIf()
	case tokenIs(t, "while"):
		s.open(syntax.KindWhileStatement)
		s.token()
		s.field("condition")
		s.parseParenthesized()
		s.field("body")
		s.parseStatement()
		s.close()
	case tokenIs(t, "do"):
		s.open(syntax.KindDoStatement)
		s.token()
		s.field("body")
		s.parseStatement()
		s.expect("while")
		s.field("condition")
		s.parseParenthesized()
		s.expectSemicolon()
		s.close()
	case tokenIs(t, "for"):
		s.parseFor()
	case tokenIs(t, "switch"):
		s.parseSwitch()
	case tokenIs(t, "return"):
		s.open(syntax.KindReturnStatement)
		s.token()
		if !s.atAny(";", "}") && !s.eof() {
			s.parseExpression()
		}
		s.expectSemicolon()
		s.close()
	case tokenIs(t, "break"):
		s.simpleStatement(syntax.KindBreakStatement)
	case tokenIs(t, "continue"):
		s.simpleStatement(syntax.KindContinueStatement)
	default:
		s.parseDeclarationOrExpression()
	}
}

func (s *state) simpleStatement(kind syntax.Kind) {
	s.open(kind)
	s.token()
	s.expectSemicolon()
	s.close()
}

func (s *state) parseDeclarationOrExpression() {
	i := s.skipModifiers(s.pos)
	if s.isLocalType(i) {
		s.parseLocalType()
		return
	}
	if _, ok := s.typedName(i); ok {
		s.parseVariables(syntax.KindLocalVariableDeclaration)
		return
	}
	if !s.canStartExpression() {
		s.recover(";", "}")
		return
	}
	s.open(syntax.KindExpressionStatement)
	s.parseExpression()
	s.expectSemicolon()
	s.close()
}

func (s *state) parseIf() {
	s.open(syntax.KindIfStatement)
	s.token()
	s.field("condition")
	s.parseParenthesized()
	s.field("consequence")
	s.parseStatement()
	if s.at("else") {
		s.token()
		s.field("alternative")
		s.parseStatement()
	}
	s.close()
}

// parseFor parses a classic three-clause for loop. Every init clause is
// stored under the "init" field.
func (s *state) parseFor() {
	s.open(syntax.KindForStatement)
	s.token()
	s.expect("(")

	switch {
	case s.at(";"):
		s.token()
	default:
		i := s.skipModifiers(s.pos)
		if _, ok := s.typedName(i); ok {
			s.field("init")
			s.parseVariables(syntax.KindLocalVariableDeclaration)
		} else {
			s.field("init")
			s.parseExpression()
			for s.at(",") {
				s.token()
				s.field("init")
				s.parseExpression()
			}
			s.expectSemicolon()
		}
	}

	if !s.at(";") {
		s.field("condition")
		s.parseExpression()
	}
	s.expectSemicolon()

	if !s.at(")") {
		s.field("update")
		s.parseExpression()
		for s.at(",") {
			s.token()
			s.field("update")
			s.parseExpression()
		}
	}
	s.expect(")")
	s.field("body")
	s.parseStatement()
	s.close()
}

func (s *state) parseSwitch() {
	s.open(syntax.KindSwitchStatement)
	s.token()
	s.field("condition")
	s.parseParenthesized()
	s.field("body")
	s.open(syntax.KindSwitchBlock)
	s.expect("{")
	for !s.eof() && !s.at("}") {
		switch {
		case s.at("case"):
			s.open(syntax.KindSwitchLabel)
			s.token()
			s.parseExpression()
			s.expect(":")
			s.close()
		case s.at("default"):
			s.open(syntax.KindSwitchLabel)
			s.token()
			s.expect(":")
			s.close()
		default:
			s.parseStatement()
		}
	}
	s.expect("}")
	s.close()
	s.close()
}

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
	"bytes"

	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokHex
	tokFloat
	tokString
	tokChar
	tokSystemPath
	tokDirective
	tokLineComment
	tokBlockComment
	tokPunct
	tokIllegal
)

// token is one lexeme. Comments are not returned in the main stream; they
// ride along as leading trivia of the following token.
type token struct {
	kind    tokenKind
	text    string
	start   int
	end     int
	line    int
	leading []token
}

// parsly token codes.
const (
	whitespaceCode = iota
	lineCommentCode
	blockCommentCode
	directiveCode
	stringCode
	charCode
	systemPathCode
	numberCode
	identCode
	punctCode
	anyCode
)

var (
	whitespaceMatcher   = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	lineCommentMatcher  = parsly.NewToken(lineCommentCode, "LineComment", &lineCommentMatch{})
	blockCommentMatcher = parsly.NewToken(blockCommentCode, "BlockComment", matcher.NewSeqBlock("/*", "*/"))
	directiveMatcher    = parsly.NewToken(directiveCode, "Directive", &directiveMatch{})
	stringMatcher       = parsly.NewToken(stringCode, "String", matcher.NewBlock('"', '"', '\\'))
	charMatcher         = parsly.NewToken(charCode, "Char", matcher.NewBlock('\'', '\'', '\\'))
	systemPathMatcher   = parsly.NewToken(systemPathCode, "SystemPath", matcher.NewBlock('<', '>', '\\'))
	numberMatcher       = parsly.NewToken(numberCode, "Number", &numberMatch{})
	identMatcher        = parsly.NewToken(identCode, "Identifier", &identMatch{})
	punctMatcher        = parsly.NewToken(punctCode, "Punct", &punctMatch{})
	anyMatcher          = parsly.NewToken(anyCode, "Any", &anyMatch{})
)

type anyMatch struct{}

func (a *anyMatch) Match(cursor *parsly.Cursor) int {
	if cursor.Pos < cursor.InputSize {
		return 1
	}
	return 0
}

type lineCommentMatch struct{}

func (m *lineCommentMatch) Match(cursor *parsly.Cursor) int {
	in, pos := cursor.Input, cursor.Pos
	if pos+1 >= cursor.InputSize || in[pos] != '/' || in[pos+1] != '/' {
		return 0
	}
	end := bytes.IndexByte(in[pos:], '\n')
	if end < 0 {
		return cursor.InputSize - pos
	}
	if end > 0 && in[pos+end-1] == '\r' {
		end--
	}
	return end
}

type directiveMatch struct{}

func (m *directiveMatch) Match(cursor *parsly.Cursor) int {
	in, pos := cursor.Input, cursor.Pos
	if in[pos] != '#' {
		return 0
	}
	i := pos + 1
	for i < cursor.InputSize && isIdentPart(in[i]) {
		i++
	}
	if i == pos+1 {
		return 0
	}
	return i - pos
}

type identMatch struct{}

func (m *identMatch) Match(cursor *parsly.Cursor) int {
	in, pos := cursor.Input, cursor.Pos
	if !isIdentStart(in[pos]) {
		return 0
	}
	i := pos + 1
	for i < cursor.InputSize && isIdentPart(in[i]) {
		i++
	}
	return i - pos
}

type numberMatch struct{}

func (m *numberMatch) Match(cursor *parsly.Cursor) int {
	in, pos, size := cursor.Input, cursor.Pos, cursor.InputSize
	if !isDigit(in[pos]) {
		return 0
	}
	i := pos
	if in[i] == '0' && i+1 < size && (in[i+1] == 'x' || in[i+1] == 'X') {
		i += 2
		for i < size && isHexDigit(in[i]) {
			i++
		}
		return i - pos
	}
	for i < size && isDigit(in[i]) {
		i++
	}
	if i+1 < size && in[i] == '.' && isDigit(in[i+1]) {
		i++
		for i < size && isDigit(in[i]) {
			i++
		}
	}
	if i < size && (in[i] == 'e' || in[i] == 'E') {
		j := i + 1
		if j < size && (in[j] == '+' || in[j] == '-') {
			j++
		}
		if j < size && isDigit(in[j]) {
			i = j
			for i < size && isDigit(in[i]) {
				i++
			}
		}
	}
	for i < size && (in[i] == 'f' || in[i] == 'F' || in[i] == 'l' || in[i] == 'L' || in[i] == 'u' || in[i] == 'U') {
		i++
	}
	return i - pos
}

// operators are ordered longest first so the first hit is the longest.
var operators = []string{
	">>=", "<<=", "...",
	"==", "!=", "<=", ">=", "&&", "||", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<", ">>", "->", "::",
	"{", "}", "(", ")", "[", "]", ";", ",", ".", "=", "<", ">",
	"+", "-", "*", "/", "%", "!", "~", "?", ":", "&", "|", "^", "@",
}

type punctMatch struct{}

func (m *punctMatch) Match(cursor *parsly.Cursor) int {
	rest := cursor.Input[cursor.Pos:]
	for _, op := range operators {
		if bytes.HasPrefix(rest, []byte(op)) {
			return len(op)
		}
	}
	return 0
}

func isIdentStart(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b == '_'
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || isDigit(b)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isHexDigit(b byte) bool {
	return isDigit(b) || b >= 'a' && b <= 'f' || b >= 'A' && b <= 'F'
}

// lex splits src into significant tokens. The final token is always tokEOF
// and carries any trailing comments.
func lex(src []byte) []token {
	cursor := parsly.NewCursor("", src, 0)
	var (
		toks         []token
		pending      []token
		line         int
		afterInclude bool
	)
	for cursor.Pos < cursor.InputSize {
		start := cursor.Pos
		var matched *parsly.TokenMatch
		if afterInclude && src[start] == '<' {
			matched = cursor.MatchAny(systemPathMatcher, punctMatcher)
		} else {
			matched = cursor.MatchAny(whitespaceMatcher, lineCommentMatcher, blockCommentMatcher,
				directiveMatcher, stringMatcher, charMatcher, numberMatcher, identMatcher,
				punctMatcher, anyMatcher)
		}
		code := matched.Code
		if cursor.Pos <= start {
			// No matcher advanced the cursor; consume one byte as illegal.
			cursor.Pos = start + 1
			code = anyCode
		}
		text := src[start:cursor.Pos]
		tok := token{text: string(text), start: start, end: cursor.Pos, line: line}
		line += bytes.Count(text, []byte{'\n'})

		switch code {
		case whitespaceCode:
			continue
		case lineCommentCode:
			tok.kind = tokLineComment
			pending = append(pending, tok)
			continue
		case blockCommentCode:
			tok.kind = tokBlockComment
			pending = append(pending, tok)
			continue
		case directiveCode:
			tok.kind = tokDirective
		case stringCode:
			tok.kind = tokString
		case charCode:
			tok.kind = tokChar
		case systemPathCode:
			tok.kind = tokSystemPath
		case numberCode:
			tok.kind = classifyNumber(tok.text)
		case identCode:
			tok.kind = tokIdent
		case punctCode:
			tok.kind = tokPunct
		default:
			tok.kind = tokIllegal
		}
		afterInclude = tok.kind == tokDirective && tok.text == "#include"
		tok.leading = pending
		pending = nil
		toks = append(toks, tok)
	}
	toks = append(toks, token{kind: tokEOF, start: len(src), end: len(src), line: line, leading: pending})
	return toks
}

func classifyNumber(text string) tokenKind {
	if len(text) > 1 && text[0] == '0' && (text[1] == 'x' || text[1] == 'X') {
		return tokHex
	}
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', 'e', 'E', 'f', 'F':
			return tokFloat
		}
	}
	return tokInt
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package parser turns ZS source text into a syntax.Tree.
//
// The parser is hand-written recursive descent over a token slice produced
// by a parsly-based lexer. It emits the node vocabulary of the tree-sitter
// ZS grammar so that trees from either source are interchangeable.
package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/AleutianAI/zsls/services/zs/syntax"
)

// DefaultMaxInputSize is the default content size limit (10 MiB).
const DefaultMaxInputSize = 10 * 1024 * 1024

// WarnInputSize is the size above which a warning is logged.
const WarnInputSize = 1024 * 1024

// Option configures a Parser.
type Option func(*Parser)

// WithMaxInputSize sets the maximum accepted content size in bytes.
func WithMaxInputSize(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxInputSize = n
		}
	}
}

// Parser parses ZS source.
//
// Description:
//
//	Parser is stateless between calls; every Parse call builds its own
//	token stream and tree builder, so one Parser may serve many goroutines.
//
// Thread Safety:
//
//	Safe for concurrent use.
type Parser struct {
	maxInputSize int
}

// New creates a Parser with the given options.
func New(opts ...Option) *Parser {
	p := &Parser{maxInputSize: DefaultMaxInputSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses content into a syntax tree.
//
// Description:
//
//	Syntax errors never fail the parse: unparseable regions become ERROR
//	nodes and missing tokens become zero-width MISSING nodes, so the tree
//	always covers the whole input.
//
// Inputs:
//
//	ctx      - Context for cancellation. Checked before and after parsing.
//	content  - Source bytes. Must be valid UTF-8.
//	filePath - Used for error messages and span attributes only.
//
// Outputs:
//
//	*syntax.Tree - The tree rooted at a program node.
//	error        - A *ParseError wrapping ErrInputTooLarge, ErrInvalidUTF8 or
//	               ErrContextCanceled when the input is refused.
//
// Thread Safety:
//
//	Safe for concurrent use.
func (p *Parser) Parse(ctx context.Context, content []byte, filePath string) (*syntax.Tree, error) {
	start := time.Now()
	ctx, span := startParseSpan(ctx, filePath, len(content))
	defer span.End()

	if err := ctx.Err(); err != nil {
		recordParseMetrics(ctx, time.Since(start), 0, "refused")
		return nil, &ParseError{FilePath: filePath, Message: "canceled before start", Cause: fmt.Errorf("%w: %w", ErrContextCanceled, err)}
	}
	if len(content) > p.maxInputSize {
		recordParseMetrics(ctx, time.Since(start), 0, "refused")
		return nil, &ParseError{
			FilePath: filePath,
			Message:  fmt.Sprintf("size %d exceeds limit %d", len(content), p.maxInputSize),
			Cause:    ErrInputTooLarge,
		}
	}
	if len(content) > WarnInputSize {
		slog.Warn("parsing large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}
	if !utf8.Valid(content) {
		recordParseMetrics(ctx, time.Since(start), 0, "refused")
		line, col := firstInvalidUTF8(content)
		return nil, &ParseError{FilePath: filePath, Line: line, Column: col, Message: "invalid UTF-8", Cause: ErrInvalidUTF8}
	}

	st := newState(content)
	tree := st.parseProgram()

	if err := ctx.Err(); err != nil {
		recordParseMetrics(ctx, time.Since(start), 0, "refused")
		return nil, &ParseError{FilePath: filePath, Message: "canceled after parse", Cause: fmt.Errorf("%w: %w", ErrContextCanceled, err)}
	}

	status := "ok"
	if st.errors > 0 {
		status = "syntax_error"
		slog.Debug("zs syntax errors",
			slog.String("file", filePath),
			slog.Int("count", st.errors))
	}
	recordParseMetrics(ctx, time.Since(start), tree.Len(), status)
	return tree, nil
}

func firstInvalidUTF8(content []byte) (line, col int) {
	line = 1
	for i := 0; i < len(content); {
		r, size := utf8.DecodeRune(content[i:])
		if r == utf8.RuneError && size <= 1 {
			return line, col
		}
		if content[i] == '\n' {
			line++
			col = 0
		} else {
			col += size
		}
		i += size
	}
	return line, col
}

// =============================================================================
// PARSE STATE
// =============================================================================

// frame is an interior node under construction.
type frame struct {
	kind     syntax.Kind
	field    string
	at       int
	children []syntax.Child
}

// state holds one parse. Nodes are built with an open/close frame stack:
// leaves are appended to the innermost open frame, and closing a frame
// turns it into an arena node appended to its parent.
type state struct {
	src       []byte
	toks      []token
	pos       int
	flushed   int
	b         *syntax.Builder
	frames    []*frame
	nextField string
	errors    int
}

func newState(src []byte) *state {
	return &state{src: src, toks: lex(src), b: syntax.NewBuilder(src)}
}

func (s *state) parseProgram() *syntax.Tree {
	s.frames = []*frame{{kind: syntax.KindProgram}}
	for !s.eof() {
		s.parseItem()
	}
	s.flushExtras()
	root := s.frames[0]
	id := s.b.Node(syntax.KindProgram, 0, root.children)
	s.b.SetSpan(id, 0, len(s.src))
	return s.b.Finish(id)
}

// =============================================================================
// TOKEN ACCESS
// =============================================================================

func (s *state) cur() token {
	return s.toks[s.pos]
}

func (s *state) peek(n int) token {
	i := s.pos + n
	if i >= len(s.toks) {
		return s.toks[len(s.toks)-1]
	}
	return s.toks[i]
}

func (s *state) tok(i int) token {
	if i >= len(s.toks) {
		return s.toks[len(s.toks)-1]
	}
	return s.toks[i]
}

func (s *state) eof() bool {
	return s.cur().kind == tokEOF
}

// at reports whether the current token is the punctuation or word text.
func (s *state) at(text string) bool {
	return tokenIs(s.cur(), text)
}

func (s *state) atAny(texts ...string) bool {
	for _, t := range texts {
		if s.at(t) {
			return true
		}
	}
	return false
}

func tokenIs(t token, text string) bool {
	return (t.kind == tokPunct || t.kind == tokIdent) && t.text == text
}

// =============================================================================
// TREE BUILDING
// =============================================================================

func (s *state) top() *frame {
	return s.frames[len(s.frames)-1]
}

// field names the next node appended to the current frame.
func (s *state) field(name string) {
	s.nextField = name
}

func (s *state) takeField() string {
	f := s.nextField
	s.nextField = ""
	return f
}

// flushExtras attaches comments preceding the current token to the
// innermost open frame.
func (s *state) flushExtras() {
	if s.flushed > s.pos {
		return
	}
	for _, c := range s.cur().leading {
		kind := syntax.KindLineComment
		if c.kind == tokBlockComment {
			kind = syntax.KindBlockComment
		}
		id := s.b.Leaf(kind, "", true, c.start, c.end)
		s.top().children = append(s.top().children, syntax.Child{ID: id})
	}
	s.flushed = s.pos + 1
}

func (s *state) appendChild(id syntax.NodeID, field string) {
	s.top().children = append(s.top().children, syntax.Child{ID: id, Field: field})
}

func (s *state) open(kind syntax.Kind) {
	s.flushExtras()
	s.frames = append(s.frames, &frame{kind: kind, field: s.takeField(), at: s.cur().start})
}

// retag changes the kind of the innermost open frame.
func (s *state) retag(kind syntax.Kind) {
	s.top().kind = kind
}

func (s *state) close() syntax.NodeID {
	f := s.top()
	s.frames = s.frames[:len(s.frames)-1]
	id := s.b.Node(f.kind, f.at, f.children)
	s.appendChild(id, f.field)
	return id
}

// wrap moves the last child of the current frame into a new open frame of
// kind, under innerField. The new frame inherits the moved child's field.
func (s *state) wrap(kind syntax.Kind, innerField string) {
	t := s.top()
	last := t.children[len(t.children)-1]
	t.children = t.children[:len(t.children)-1]
	s.frames = append(s.frames, &frame{
		kind:     kind,
		field:    last.Field,
		children: []syntax.Child{{ID: last.ID, Field: innerField}},
	})
}

// leaf consumes the current token as a node of kind.
func (s *state) leaf(kind syntax.Kind, named bool) syntax.NodeID {
	s.flushExtras()
	t := s.cur()
	symbol := ""
	if kind == syntax.KindToken {
		symbol = t.text
	}
	id := s.b.Leaf(kind, symbol, named, t.start, t.end)
	s.appendChild(id, s.takeField())
	s.pos++
	return id
}

// token consumes the current token as an anonymous node.
func (s *state) token() {
	s.leaf(syntax.KindToken, false)
}

// missing inserts a zero-width node after the previous token.
func (s *state) missing(kind syntax.Kind, symbol string, named bool) {
	at := s.cur().start
	if s.pos > 0 {
		at = s.toks[s.pos-1].end
	}
	id := s.b.Missing(kind, symbol, named, at)
	s.appendChild(id, s.takeField())
	s.errors++
}

// expect consumes text or records it as missing.
func (s *state) expect(text string) bool {
	if s.at(text) {
		s.token()
		return true
	}
	s.missing(syntax.KindToken, text, false)
	return false
}

func (s *state) expectSemicolon() {
	s.expect(";")
}

// identifier consumes a name as kind, or inserts a MISSING one.
func (s *state) identifier(kind syntax.Kind) {
	if isName(s.cur()) {
		s.leaf(kind, true)
		return
	}
	s.missing(kind, "", true)
}

// recover wraps tokens in an ERROR node until one of stops. At least one
// token is always consumed. A stop of ";" is consumed inside the node.
func (s *state) recover(stops ...string) {
	if s.eof() {
		return
	}
	s.errors++
	s.open(syntax.KindError)
	s.recoverToken()
	for !s.eof() && !s.atAny(stops...) {
		s.recoverToken()
	}
	if s.at(";") && contains(stops, ";") {
		s.token()
	}
	s.close()
}

func (s *state) recoverToken() {
	if isName(s.cur()) {
		s.leaf(syntax.KindIdentifier, true)
		return
	}
	s.token()
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package providers turns resolver results into editor features: hover,
// go-to-declaration, completion, diagnostics, semantic tokens and the
// document outline.
//
// Every transport (LSP, HTTP, MCP, CLI) calls these functions, so the
// rendering is identical everywhere.
package providers

import (
	"context"
	"log/slog"
	"time"

	"github.com/AleutianAI/zsls/services/zs/protocol"
	"github.com/AleutianAI/zsls/services/zs/resolver"
	"github.com/AleutianAI/zsls/services/zs/syntax"
	"github.com/AleutianAI/zsls/services/zs/workspace"
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service answers position-based queries against parsed documents.
//
// Thread Safety:
//
//	Safe for concurrent use. Documents are immutable snapshots.
type Service struct {
	res    *resolver.Resolver
	logger *slog.Logger
}

// New creates a Service over res.
func New(res *resolver.Resolver, opts ...Option) *Service {
	s := &Service{res: res, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolver returns the underlying resolver.
func (s *Service) Resolver() *resolver.Resolver {
	return s.res
}

// =============================================================================
// RESOLVE
// =============================================================================

// Result is the transport-neutral form of a resolution.
type Result struct {
	Resolved      bool            `json:"resolved"`
	Kind          string          `json:"kind"`
	FilePath      string          `json:"filePath,omitempty"`
	Declaration   string          `json:"declaration,omitempty"`
	Identifier    string          `json:"identifier,omitempty"`
	Range         *protocol.Range `json:"range,omitempty"`
	Inheritance   []string        `json:"inheritance,omitempty"`
	InheritedFrom string          `json:"inheritedFrom,omitempty"`
}

// Resolve resolves the node at pos and flattens the result.
//
// Description:
//
//	Range is the declaring name in FilePath, the same span Declaration
//	jumps to. An unresolved position yields Resolved false and Kind
//	"unresolved".
//
// Example:
//
//	r := svc.Resolve(ctx, doc, protocol.Position{Line: 3, Character: 4})
//	if r.Resolved {
//	    fmt.Println(r.Kind, r.FilePath, r.Range.Start.Line)
//	}
func (s *Service) Resolve(ctx context.Context, doc *workspace.Document, pos protocol.Position) *Result {
	start := time.Now()
	ctx, span := startProviderSpan(ctx, "Resolve", doc.Path, pos)
	defer span.End()

	d := s.declarationAt(ctx, doc, pos)
	recordProvider(ctx, "resolve", time.Since(start), d != nil)
	if d == nil {
		return &Result{Kind: resolver.KindUnresolved.String()}
	}

	rng := toRange(declaringName(d))
	out := &Result{
		Resolved:    true,
		Kind:        d.Kind.String(),
		FilePath:    d.FilePath,
		Declaration: d.Node.Text(),
		Identifier:  d.Name(),
		Range:       &rng,
	}
	for _, anc := range d.Inheritance {
		out.Inheritance = append(out.Inheritance, anc.Name())
	}
	if d.InheritedFrom != nil {
		out.InheritedFrom = d.InheritedFrom.Name()
	}
	return out
}

func (s *Service) declarationAt(ctx context.Context, doc *workspace.Document, pos protocol.Position) *resolver.Declaration {
	if doc == nil || doc.Tree == nil {
		return nil
	}
	node := doc.Tree.NodeAt(toPoint(pos))
	return s.res.Resolve(ctx, node, doc.Path)
}

// declaringName returns the name node inside d.Node that introduces the
// resolved name. Member and cross-file matches record the reference or
// export node as Identifier, so the name is looked up again by text.
func declaringName(d *resolver.Declaration) syntax.Node {
	if d.Kind == resolver.KindInclude {
		return d.Node
	}
	for _, ident := range nameNodes(d.Node) {
		if ident.Text() == d.Name() {
			return ident
		}
	}
	if d.Identifier.Tree() == d.Node.Tree() {
		return d.Identifier
	}
	return d.Node
}

// nameNodes is DeclarationIdentifier without the warning for kinds that
// declare nothing.
func nameNodes(n syntax.Node) []syntax.Node {
	if n.Kind().IsDeclaration() || n.Is(syntax.KindGetDeclaration, syntax.KindSetDeclaration, syntax.KindMethodInterface) {
		return resolver.DeclarationIdentifier(n)
	}
	return nil
}

// =============================================================================
// POSITIONS
// =============================================================================

func toPoint(p protocol.Position) syntax.Point {
	return syntax.Point{Row: p.Line, Column: p.Character}
}

func toPosition(p syntax.Point) protocol.Position {
	return protocol.Position{Line: p.Row, Character: p.Column}
}

func toRange(n syntax.Node) protocol.Range {
	return protocol.Range{Start: toPosition(n.StartPoint()), End: toPosition(n.EndPoint())}
}

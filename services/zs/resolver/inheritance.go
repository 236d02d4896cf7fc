// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resolver

import (
	"context"
	"log/slog"

	"github.com/AleutianAI/zsls/services/zs/syntax"
)

// MemberMatch is the result of an inheritance-aware member lookup.
type MemberMatch struct {
	// Member is the declaring field, accessor or method node.
	Member syntax.Node

	// InheritedFrom is the type declaring Member. It is the starting type
	// itself when the member is not inherited.
	InheritedFrom *Declaration

	// Inheritance is the ancestor chain of the starting type.
	Inheritance []*Declaration
}

// InheritanceChain returns the ancestors of a class or interface
// declaration, most derived first, excluding decl itself.
//
// Description:
//
//	Only one edge is followed per type. A class follows the last type in
//	its superclass clause, or failing that the last type in its implements
//	clause. An interface follows its last parent interface. A generic edge
//	such as "extends Array<T>" follows the base type. Each hop resolves in
//	the file that owns the declaring type, so chains may cross includes.
//
//	A cycle ends the chain at the first repeated declaration.
//
// Inputs:
//
//	ctx  - Passed to the document source for lazy loads.
//	decl - A resolved class or interface. Anything else yields nil.
//
// Outputs:
//
//	[]*Declaration - The chain; empty when decl has no parent.
//
// Example:
//
//	interface C {} interface B : C {} class A implements B {}
//	InheritanceChain(A) == [B, C]
func (r *Resolver) InheritanceChain(ctx context.Context, decl *Declaration) []*Declaration {
	if decl == nil {
		return nil
	}
	visited := map[syntax.Node]bool{decl.Node: true}
	var chain []*Declaration
	for cur := decl; ; {
		edge := inheritanceEdge(cur.Node)
		if edge.IsNull() {
			return chain
		}
		next := r.ResolveForIdentifier(ctx, edge, cur.FilePath)
		if next == nil {
			r.logger.Warn("inheritance: unresolved parent",
				slog.String("type", cur.Name()),
				slog.String("parent", edge.Text()))
			return chain
		}
		if !next.Node.Is(syntax.KindClassDeclaration, syntax.KindInterfaceDeclaration) {
			r.logger.Warn("inheritance: parent is not a type",
				slog.String("parent", edge.Text()),
				slog.String("kind", next.Node.Type()))
			return chain
		}
		if visited[next.Node] {
			r.logger.Warn("inheritance: cycle",
				slog.String("type", cur.Name()),
				slog.String("parent", edge.Text()))
			return chain
		}
		visited[next.Node] = true
		chain = append(chain, next)
		cur = next
	}
}

// inheritanceEdge returns the single type reference followed from decl.
func inheritanceEdge(decl syntax.Node) syntax.Node {
	switch decl.Kind() {
	case syntax.KindClassDeclaration:
		if sc := decl.ChildForFieldName("superclass"); !sc.IsNull() {
			return typeReference(sc.LastChild())
		}
		if ifs := decl.ChildForFieldName("interfaces"); !ifs.IsNull() {
			return typeReference(ifs.LastChild())
		}
	case syntax.KindInterfaceDeclaration:
		parents := decl.ChildrenForFieldName("parent_interface")
		if len(parents) > 0 {
			return typeReference(parents[len(parents)-1])
		}
	}
	return syntax.Node{}
}

// typeReference reduces a type node to the identifier naming it.
func typeReference(n syntax.Node) syntax.Node {
	switch n.Kind() {
	case syntax.KindTypeIdentifier:
		if n.IsMissing() {
			return syntax.Node{}
		}
		return n
	case syntax.KindGenericType:
		return typeReference(n.FirstChild())
	default:
		return syntax.Node{}
	}
}

// InheritedMember finds the member called name on decl or its ancestors.
//
// Description:
//
//	Scans decl first, then InheritanceChain(decl) most derived first. The
//	first type declaring a matching member wins. When kinds is non-empty,
//	only members of those kinds are considered.
//
// Outputs:
//
//	*MemberMatch - The match, or nil when no type declares the member.
func (r *Resolver) InheritedMember(ctx context.Context, decl *Declaration, name string, kinds ...syntax.Kind) *MemberMatch {
	if decl == nil || name == "" {
		return nil
	}
	chain := r.InheritanceChain(ctx, decl)
	for _, owner := range append([]*Declaration{decl}, chain...) {
		if m := findMember(owner.Node, name, kinds); !m.IsNull() {
			return &MemberMatch{Member: m, InheritedFrom: owner, Inheritance: chain}
		}
	}
	return nil
}

func findMember(typeDecl syntax.Node, name string, kinds []syntax.Kind) syntax.Node {
	for _, m := range Members(typeDecl) {
		if len(kinds) > 0 && !m.Kind().In(kinds...) {
			continue
		}
		for _, ident := range DeclarationIdentifier(m) {
			if ident.Text() == name {
				return m
			}
		}
	}
	return syntax.Node{}
}

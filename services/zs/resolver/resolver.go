// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resolver binds ZS names to their declarations.
//
// There is no symbol table: every query walks the syntax tree on demand,
// derives the scope chain of the reference, and falls back to the exports
// of included files. Results are never cached.
package resolver

import (
	"context"
	"log/slog"
	"time"

	"github.com/AleutianAI/zsls/services/zs/syntax"
)

// DefaultMaxAliasHops bounds how many type aliases are followed when
// resolving the type of a value.
const DefaultMaxAliasHops = 8

// DocumentSource supplies parsed documents and the include graph.
//
// workspace.Workspace implements it.
type DocumentSource interface {
	// Tree returns the parsed, normalized tree of the file at path.
	Tree(ctx context.Context, path string) (*syntax.Tree, error)

	// ResolvePath maps an include target written in callerFile to an
	// absolute path.
	ResolvePath(callerFile, include string) (string, error)

	// ForEachImport visits entry, then its include graph depth first, then
	// the system entry file. fn returning true stops the walk.
	ForEachImport(ctx context.Context, entry string, fn func(path string, tree *syntax.Tree) bool) error
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger for non-fatal resolution anomalies.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMaxAliasHops sets how many type aliases are followed.
func WithMaxAliasHops(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxAliasHops = n
		}
	}
}

// Resolver answers "what declares this name" for ZS syntax trees.
//
// Thread Safety:
//
//	Safe for concurrent use if the DocumentSource is. The resolver itself
//	holds no mutable state.
type Resolver struct {
	docs         DocumentSource
	logger       *slog.Logger
	maxAliasHops int
}

// New creates a Resolver over docs. docs may be nil, in which case
// lookups never leave the queried tree.
func New(docs DocumentSource, opts ...Option) *Resolver {
	r := &Resolver{
		docs:         docs,
		logger:       slog.Default(),
		maxAliasHops: DefaultMaxAliasHops,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// =============================================================================
// PLAIN LOOKUP
// =============================================================================

// ResolveForIdentifier finds the declaration of the name spelled by node.
//
// Description:
//
//	Scans Context(node) innermost first and, within each scope, in source
//	order. The first declaration introducing the name wins, so inner
//	declarations shadow outer ones. Without a local match the include
//	graph of filePath is walked and the first file exporting the name
//	wins; such results carry no scopes.
//
// Inputs:
//
//	ctx      - Passed to the document source.
//	node     - Any node; its text is the name looked up.
//	filePath - The file owning node's tree.
//
// Outputs:
//
//	*Declaration - Tagged KindIdentifier, or nil when unresolved.
func (r *Resolver) ResolveForIdentifier(ctx context.Context, node syntax.Node, filePath string) *Declaration {
	name := node.Text()
	if node.IsNull() || name == "" {
		return nil
	}

	scopes := Context(node)
	for i := range scopes {
		for _, decl := range scopes[i].Declarations {
			for _, ident := range DeclarationIdentifier(decl) {
				if ident.Text() == name {
					return &Declaration{
						Node:       decl,
						Identifier: ident,
						FilePath:   filePath,
						Kind:       KindIdentifier,
						Scopes:     scopes,
						Scope:      &scopes[i],
					}
				}
			}
		}
	}
	return r.resolveExport(ctx, name, filePath)
}

func (r *Resolver) resolveExport(ctx context.Context, name, filePath string) *Declaration {
	if r.docs == nil {
		return nil
	}
	var found *Declaration
	err := r.docs.ForEachImport(ctx, filePath, func(path string, tree *syntax.Tree) bool {
		node, ok := ExportsOf(tree).Lookup(name)
		if !ok {
			return false
		}
		ident := node
		for _, id := range exportIdentifiers(node) {
			if id.Text() == name {
				ident = id
				break
			}
		}
		found = &Declaration{Node: node, Identifier: ident, FilePath: path, Kind: KindIdentifier}
		return true
	})
	if err != nil {
		r.logger.Warn("export lookup: import walk failed",
			slog.String("file", filePath),
			slog.String("name", name),
			slog.String("error", err.Error()))
	}
	return found
}

// =============================================================================
// DISPATCH
// =============================================================================

// Resolve resolves node according to its syntactic role.
//
// Description:
//
//	Identifiers are classified by their parent: the name of a
//	construction, the member of a field access, the callee of an
//	invocation, or a plain reference. Type identifiers resolve by name,
//	and the path of an include directive declares itself. Names inside
//	#define and #undef are not references and never resolve.
//
// Inputs:
//
//	ctx      - Used for tracing and document loads.
//	node     - Usually the node at the cursor.
//	filePath - The file owning node's tree.
//
// Outputs:
//
//	*Declaration - The resolution, or nil when unresolved.
//
// Thread Safety:
//
//	Safe for concurrent use.
func (r *Resolver) Resolve(ctx context.Context, node syntax.Node, filePath string) *Declaration {
	start := time.Now()
	ctx, span := startResolveSpan(ctx, node, filePath)
	defer span.End()

	d := r.resolve(ctx, node, filePath)
	recordResolveMetrics(ctx, time.Since(start), d)
	return d
}

func (r *Resolver) resolve(ctx context.Context, node syntax.Node, filePath string) *Declaration {
	if node.IsNull() {
		return nil
	}
	if !node.Closest(syntax.KindPreprocDef, syntax.KindPreprocUndef).IsNull() {
		return nil
	}

	switch node.Kind() {
	case syntax.KindIdentifier:
		return r.resolveIdentifier(ctx, node, filePath)
	case syntax.KindTypeIdentifier:
		d := r.ResolveForIdentifier(ctx, node, filePath)
		if d == nil {
			return nil
		}
		return d.withKind(KindTypeIdentifier, node)
	case syntax.KindStringFragment, syntax.KindSystemLibString:
		if node.Closest(syntax.KindPreprocInclude).IsNull() {
			r.logger.Warn("resolve: string outside include",
				slog.String("file", filePath),
				slog.String("text", node.Text()))
			return nil
		}
		return &Declaration{Node: node, Identifier: node, FilePath: filePath, Kind: KindInclude}
	default:
		r.logger.Warn("resolve: unsupported node",
			slog.String("file", filePath),
			slog.String("kind", node.Type()))
		return nil
	}
}

func (r *Resolver) resolveIdentifier(ctx context.Context, node syntax.Node, filePath string) *Declaration {
	parent := node.Parent()
	switch {
	case parent.Kind() == syntax.KindNewExpression && node.FieldName() == "name":
		d := r.ResolveForIdentifier(ctx, node, filePath)
		if d == nil {
			return nil
		}
		return d.withKind(KindNewExpression, node)
	case parent.Kind() == syntax.KindFieldAccess && node.FieldName() == "field":
		return r.resolveFieldAccess(ctx, node, parent, filePath)
	case parent.Kind() == syntax.KindMethodInvocation && node.FieldName() == "name":
		return r.resolveInvocation(ctx, node, parent, filePath)
	}
	return r.resolvePlain(ctx, node, filePath)
}

func (r *Resolver) resolvePlain(ctx context.Context, node syntax.Node, filePath string) *Declaration {
	d := r.ResolveForIdentifier(ctx, node, filePath)
	if d == nil {
		return nil
	}
	switch d.Node.Kind() {
	case syntax.KindLocalVariableDeclaration:
		return d.withKind(KindLocalVariableDeclaration, syntax.Node{})
	case syntax.KindMethodSignatureDeclaration:
		return d.withKind(KindMethodSignatureDeclaration, syntax.Node{})
	case syntax.KindFunctionDeclaration:
		return d.withKind(KindFunctionDeclaration, syntax.Node{})
	case syntax.KindInterfaceDeclaration:
		return d.withKind(KindInterfaceDeclaration, syntax.Node{})
	case syntax.KindLocalTypeDeclaration:
		return d.withKind(KindLocalTypeDeclaration, node)
	default:
		return d
	}
}

// =============================================================================
// MEMBER ACCESS
// =============================================================================

func (r *Resolver) resolveFieldAccess(ctx context.Context, node, access syntax.Node, filePath string) *Declaration {
	object := access.ChildForFieldName("object")
	obj := r.objectDeclaration(ctx, object, filePath)
	if obj == nil {
		r.logger.Warn("resolve: no declaration for object",
			slog.String("file", filePath),
			slog.String("object", object.Text()))
		return nil
	}

	if obj.Node.Kind() == syntax.KindEnumDeclaration {
		if d := enumerator(obj, node); d != nil {
			return d
		}
		r.logger.Warn("resolve: no enumerator",
			slog.String("enum", obj.Name()),
			slog.String("name", node.Text()))
		return nil
	}

	types := r.receiverTypes(ctx, obj)
	// An enum-typed value exposes the enumerators of its type.
	for _, typ := range types {
		if typ.Node.Kind() != syntax.KindEnumDeclaration {
			continue
		}
		if d := enumerator(typ, node); d != nil {
			return d
		}
	}

	m := r.lookupMember(ctx, types, node.Text(), propertyKinds, memberKinds)
	if m == nil {
		r.logger.Warn("resolve: no property",
			slog.String("file", filePath),
			slog.String("object", object.Text()),
			slog.String("name", node.Text()))
		return nil
	}
	return &Declaration{
		Node:          m.Member,
		Identifier:    node,
		FilePath:      m.InheritedFrom.FilePath,
		Kind:          KindFieldDeclaration,
		Scopes:        obj.Scopes,
		Scope:         obj.Scope,
		Inheritance:   m.Inheritance,
		InheritedFrom: m.InheritedFrom,
	}
}

// enumerator finds the enumerator of enum named like ident.
func enumerator(enum *Declaration, ident syntax.Node) *Declaration {
	for _, e := range enum.Node.ChildForFieldName("body").NamedChildren() {
		if e.Kind() == syntax.KindEnumerator && e.ChildForFieldName("name").Text() == ident.Text() {
			return &Declaration{
				Node:       e,
				Identifier: ident,
				FilePath:   enum.FilePath,
				Kind:       KindEnumerator,
				Scopes:     enum.Scopes,
				Scope:      enum.Scope,
			}
		}
	}
	return nil
}

func (r *Resolver) resolveInvocation(ctx context.Context, node, call syntax.Node, filePath string) *Declaration {
	object := call.ChildForFieldName("object")
	switch {
	case !object.IsNull():
		obj := r.objectDeclaration(ctx, object, filePath)
		if obj == nil {
			r.logger.Warn("resolve: no declaration for object",
				slog.String("file", filePath),
				slog.String("object", object.Text()))
			return nil
		}
		if m := r.lookupMember(ctx, r.receiverTypes(ctx, obj), node.Text(), methodKinds); m != nil {
			return memberDeclaration(m, node, KindMethodInvocation)
		}
		// A free function taking the receiver first, called with method
		// syntax.
		d := r.ResolveForIdentifier(ctx, node, filePath)
		if d == nil {
			return nil
		}
		return d.withKind(KindAddedMethodInvocation, node)

	case call.FieldName() == "invocation" && call.Parent().Kind() == syntax.KindNewExpression:
		class := r.ResolveForIdentifier(ctx, call.Parent().ChildForFieldName("name"), filePath)
		if class == nil {
			return nil
		}
		m := r.InheritedMember(ctx, class, node.Text(), memberKinds...)
		if m == nil {
			r.logger.Warn("resolve: no method on constructed type",
				slog.String("type", class.Name()),
				slog.String("name", node.Text()))
			return nil
		}
		return memberDeclaration(m, node, KindMethodInvocation)

	default:
		d := r.ResolveForIdentifier(ctx, node, filePath)
		if d == nil {
			return nil
		}
		if d.Node.Kind() == syntax.KindMethodSignatureDeclaration {
			return d.withKind(KindFunctionInvocation, node)
		}
		return d.withKind(KindMethodInvocation, node)
	}
}

func memberDeclaration(m *MemberMatch, ident syntax.Node, kind ResolutionKind) *Declaration {
	return &Declaration{
		Node:          m.Member,
		Identifier:    ident,
		FilePath:      m.InheritedFrom.FilePath,
		Kind:          kind,
		Scopes:        m.InheritedFrom.Scopes,
		Scope:         m.InheritedFrom.Scope,
		Inheritance:   m.Inheritance,
		InheritedFrom: m.InheritedFrom,
	}
}

// objectDeclaration resolves the receiver expression of a member access.
func (r *Resolver) objectDeclaration(ctx context.Context, object syntax.Node, filePath string) *Declaration {
	switch object.Kind() {
	case syntax.KindIdentifier:
		return r.resolve(ctx, object, filePath)
	case syntax.KindFieldAccess:
		return r.resolve(ctx, object.ChildForFieldName("field"), filePath)
	case syntax.KindMethodInvocation:
		return r.resolve(ctx, object.ChildForFieldName("name"), filePath)
	case syntax.KindParenthesizedExpression:
		inner := object.NamedChildren()
		if len(inner) == 0 {
			return nil
		}
		return r.objectDeclaration(ctx, inner[0], filePath)
	case syntax.KindNewExpression:
		d := r.ResolveForIdentifier(ctx, object.ChildForFieldName("name"), filePath)
		if d == nil {
			return nil
		}
		return d.withKind(KindNewExpression, syntax.Node{})
	case syntax.KindThis:
		class := object.Closest(syntax.KindClassDeclaration)
		name := class.ChildForFieldName("name")
		if name.IsNull() {
			return nil
		}
		return &Declaration{Node: class, Identifier: name, FilePath: filePath, Kind: KindIdentifier}
	default:
		r.logger.Warn("resolve: unsupported member receiver",
			slog.String("file", filePath),
			slog.String("kind", object.Type()))
		return nil
	}
}

// ReceiverTypes resolves the receiver expression of a member access to
// the type declarations whose members it exposes, in lookup order.
//
// Description:
//
//	An enum receiver yields the enum itself. A class or interface name
//	yields itself. A value yields the candidates of its declared type,
//	following aliases and generic arguments the same way Resolve does.
//
// Outputs:
//
//	[]*Declaration - The candidates, or nil when the receiver is
//	                 unresolved or has no member-bearing type.
func (r *Resolver) ReceiverTypes(ctx context.Context, object syntax.Node, filePath string) []*Declaration {
	obj := r.objectDeclaration(ctx, object, filePath)
	if obj == nil {
		return nil
	}
	if obj.Node.Kind() == syntax.KindEnumDeclaration {
		return []*Declaration{obj}
	}
	return r.receiverTypes(ctx, obj)
}

// receiverTypes returns the type declarations whose members a receiver
// exposes, in lookup order.
//
// A type name used as a receiver (static access, this, or a construction)
// exposes its own members. A value exposes the members of its declared
// type.
func (r *Resolver) receiverTypes(ctx context.Context, obj *Declaration) []*Declaration {
	switch obj.Node.Kind() {
	case syntax.KindClassDeclaration, syntax.KindInterfaceDeclaration:
		return []*Declaration{obj}
	}
	typ := DeclarationType(obj.Node)
	if typ.IsNull() {
		return nil
	}
	return r.typeCandidates(ctx, typ, obj.FilePath, r.maxAliasHops)
}

// typeCandidates resolves a type node to class or interface declarations.
//
// Description:
//
//	Aliases ("type A = B;") are followed, at most hops times. A generic
//	type yields its base type first and then its first type argument;
//	further arguments are not consulted.
func (r *Resolver) typeCandidates(ctx context.Context, typ syntax.Node, filePath string, hops int) []*Declaration {
	if hops <= 0 {
		r.logger.Warn("resolve: type alias chain too deep",
			slog.String("file", filePath),
			slog.String("type", typ.Text()))
		return nil
	}

	switch typ.Kind() {
	case syntax.KindGenericType:
		var args []syntax.Node
		for _, child := range typ.NamedChildren() {
			if child.Kind() == syntax.KindTypeArguments {
				args = child.NamedChildren()
			}
		}
		if len(args) > 1 {
			r.logger.Warn("resolve: only the first type argument is used",
				slog.String("file", filePath),
				slog.String("type", typ.Text()),
				slog.Int("arguments", len(args)))
		}
		out := r.typeCandidates(ctx, typ.FirstChild(), filePath, hops-1)
		if len(args) > 0 {
			out = append(out, r.typeCandidates(ctx, args[0], filePath, hops-1)...)
		}
		return out

	case syntax.KindTypeIdentifier:
		d := r.ResolveForIdentifier(ctx, typ, filePath)
		if d == nil {
			return nil
		}
		switch d.Node.Kind() {
		case syntax.KindLocalTypeDeclaration:
			return r.typeCandidates(ctx, DeclarationType(d.Node), d.FilePath, hops-1)
		case syntax.KindClassDeclaration, syntax.KindInterfaceDeclaration, syntax.KindEnumDeclaration:
			return []*Declaration{d}
		default:
			return nil
		}

	case syntax.KindArrayType:
		// Arrays have no members of their own to look up.
		return nil

	default:
		// Primitive types and anything unparsed.
		return nil
	}
}

// lookupMember searches each candidate type in order. Within a type, the
// kind sets are tried in order, so properties can win over methods.
func (r *Resolver) lookupMember(ctx context.Context, candidates []*Declaration, name string, kindSets ...[]syntax.Kind) *MemberMatch {
	for _, cand := range candidates {
		for _, kinds := range kindSets {
			if m := r.InheritedMember(ctx, cand, name, kinds...); m != nil {
				return m
			}
		}
	}
	return nil
}

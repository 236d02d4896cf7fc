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
	"log/slog"

	"github.com/AleutianAI/zsls/services/zs/syntax"
)

// =============================================================================
// STRUCTURAL ACCESSORS
// =============================================================================

// DeclarationIdentifier returns the name nodes a declaration introduces.
//
// Description:
//
//	Most declarations introduce one name through their "name" field.
//	Variable declarations introduce one name per declarator, so
//	"int a, b;" yields [a, b]. Missing names are omitted.
//
// Outputs:
//
//	[]syntax.Node - Name nodes, or nil for kinds that declare nothing.
func DeclarationIdentifier(node syntax.Node) []syntax.Node {
	switch node.Kind() {
	case syntax.KindClassDeclaration,
		syntax.KindEnumDeclaration,
		syntax.KindEnumerator,
		syntax.KindFunctionDeclaration,
		syntax.KindMethodDeclaration,
		syntax.KindFormalParameter,
		syntax.KindInterfaceDeclaration,
		syntax.KindGetDeclaration,
		syntax.KindSetDeclaration,
		syntax.KindMethodSignatureDeclaration,
		syntax.KindMethodInterface,
		syntax.KindNewExpression:
		return namesOf([]syntax.Node{node})
	case syntax.KindFieldDeclaration,
		syntax.KindLocalVariableDeclaration,
		syntax.KindLocalTypeDeclaration:
		return namesOf(node.ChildrenForFieldName("declarator"))
	default:
		slog.Warn("declaration identifier: unsupported node",
			slog.String("kind", node.Type()))
		return nil
	}
}

func namesOf(nodes []syntax.Node) []syntax.Node {
	var out []syntax.Node
	for _, n := range nodes {
		name := n.ChildForFieldName("name")
		if name.IsNull() || name.IsMissing() {
			continue
		}
		out = append(out, name)
	}
	return out
}

// DeclarationType returns the declared type of a declaration.
//
// Class, interface and enum declarations report their own name: a type
// name is its own type reference. A type alias reports its target type.
func DeclarationType(node syntax.Node) syntax.Node {
	switch node.Kind() {
	case syntax.KindFieldDeclaration,
		syntax.KindMethodDeclaration,
		syntax.KindFormalParameter,
		syntax.KindLocalVariableDeclaration,
		syntax.KindFunctionDeclaration,
		syntax.KindMethodInterface,
		syntax.KindGetDeclaration,
		syntax.KindSetDeclaration,
		syntax.KindMethodSignatureDeclaration:
		return node.ChildForFieldName("type")
	case syntax.KindClassDeclaration,
		syntax.KindInterfaceDeclaration,
		syntax.KindEnumDeclaration:
		return node.ChildForFieldName("name")
	case syntax.KindLocalTypeDeclaration:
		return node.ChildForFieldName("declarator").ChildForFieldName("value")
	default:
		slog.Warn("declaration type: unsupported node",
			slog.String("kind", node.Type()))
		return syntax.Node{}
	}
}

// DeclarationName returns the name of a type declaration.
func DeclarationName(node syntax.Node) syntax.Node {
	switch node.Kind() {
	case syntax.KindClassDeclaration,
		syntax.KindInterfaceDeclaration,
		syntax.KindEnumDeclaration:
		return node.ChildForFieldName("name")
	default:
		slog.Warn("declaration name: unsupported node",
			slog.String("kind", node.Type()))
		return syntax.Node{}
	}
}

// Params returns the formal parameters of a callable declaration, or nil
// when node is not callable.
func Params(node syntax.Node) []syntax.Node {
	switch node.Kind() {
	case syntax.KindMethodDeclaration,
		syntax.KindFunctionDeclaration,
		syntax.KindMethodInterface,
		syntax.KindMethodSignatureDeclaration:
		return node.ChildForFieldName("parameters").DescendantsOfType(syntax.KindFormalParameter)
	default:
		slog.Warn("params: not a callable",
			slog.String("kind", node.Type()))
		return nil
	}
}

// memberKinds are the declarations that make up a type's member list.
var memberKinds = []syntax.Kind{
	syntax.KindFieldDeclaration,
	syntax.KindGetDeclaration,
	syntax.KindSetDeclaration,
	syntax.KindMethodDeclaration,
	syntax.KindMethodInterface,
	syntax.KindMethodSignatureDeclaration,
}

// propertyKinds are the members that can follow a "." without a call.
var propertyKinds = []syntax.Kind{
	syntax.KindFieldDeclaration,
	syntax.KindGetDeclaration,
	syntax.KindSetDeclaration,
}

// methodKinds are the members that can be invoked.
var methodKinds = []syntax.Kind{
	syntax.KindMethodDeclaration,
	syntax.KindMethodInterface,
	syntax.KindMethodSignatureDeclaration,
}

// Members returns the member declarations directly inside a class or
// interface body. Nested types are not members.
func Members(node syntax.Node) []syntax.Node {
	switch node.Kind() {
	case syntax.KindClassDeclaration, syntax.KindInterfaceDeclaration:
	default:
		return nil
	}
	var out []syntax.Node
	for _, child := range node.ChildForFieldName("body").NamedChildren() {
		if child.Kind().In(memberKinds...) {
			out = append(out, child)
		}
	}
	return out
}

// MemberIdentifiers flattens Members to their name nodes.
func MemberIdentifiers(node syntax.Node) []syntax.Node {
	var out []syntax.Node
	for _, m := range Members(node) {
		out = append(out, DeclarationIdentifier(m)...)
	}
	return out
}

var membershipKinds = []syntax.Kind{
	syntax.KindFieldDeclaration,
	syntax.KindClassDeclaration,
	syntax.KindFunctionDeclaration,
	syntax.KindMethodDeclaration,
	syntax.KindEnumDeclaration,
	syntax.KindFormalParameters,
}

// Membership returns the enclosing owners of node, innermost first.
//
// Description:
//
//	Fields, methods and parameter lists are transparent: the walk records
//	them and continues outward. It stops at the first class, function or
//	enum declaration, inclusive. A node owned by nothing yields nil.
//
// Example:
//
//	class X { void foo(int a) {} }
//	Membership(a) == [formal_parameters, method_declaration, class_declaration]
func Membership(node syntax.Node) []syntax.Node {
	var path []syntax.Node
	for cur := node; ; {
		owner := cur.Closest(membershipKinds...)
		if owner.IsNull() {
			if len(path) == 0 {
				return nil
			}
			return path
		}
		path = append(path, owner)
		switch owner.Kind() {
		case syntax.KindFieldDeclaration, syntax.KindMethodDeclaration, syntax.KindFormalParameters:
			cur = owner
		default:
			return path
		}
	}
}

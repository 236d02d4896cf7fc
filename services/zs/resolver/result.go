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
	"github.com/AleutianAI/zsls/services/zs/syntax"
)

// ResolutionKind classifies how a reference was resolved.
//
// Presentation code switches on it to decide how to render a result.
type ResolutionKind int

const (
	KindUnresolved ResolutionKind = iota
	KindNewExpression
	KindFieldDeclaration
	KindEnumerator
	KindMethodInvocation
	KindAddedMethodInvocation
	KindFunctionInvocation
	KindLocalVariableDeclaration
	KindLocalTypeDeclaration
	KindInterfaceDeclaration
	KindFunctionDeclaration
	KindMethodSignatureDeclaration
	KindIdentifier
	KindTypeIdentifier
	KindInclude
)

var resolutionKindNames = [...]string{
	KindUnresolved:                 "unresolved",
	KindNewExpression:              "new_expression",
	KindFieldDeclaration:           "field_declaration",
	KindEnumerator:                 "enumerator",
	KindMethodInvocation:           "method_invocation",
	KindAddedMethodInvocation:      "added_method_invocation",
	KindFunctionInvocation:         "function_invocation",
	KindLocalVariableDeclaration:   "local_variable_declaration",
	KindLocalTypeDeclaration:       "local_type_declaration",
	KindInterfaceDeclaration:       "interface_declaration",
	KindFunctionDeclaration:        "function_declaration",
	KindMethodSignatureDeclaration: "method_signature_declaration",
	KindIdentifier:                 "identifier",
	KindTypeIdentifier:             "type_identifier",
	KindInclude:                    "include",
}

// String returns the wire name of the kind.
func (k ResolutionKind) String() string {
	if k < 0 || int(k) >= len(resolutionKindNames) {
		return "unresolved"
	}
	return resolutionKindNames[k]
}

// MarshalText encodes the kind by name so JSON carries "method_invocation"
// rather than a number.
func (k ResolutionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Scope is one level of the lexical scope chain.
//
// Synthetic scopes have no block of their own in the tree: a callable's
// parameter list, and a for statement's init clauses. For the latter, Node
// is the for_statement.
type Scope struct {
	Kind         syntax.Kind
	Node         syntax.Node
	Synthetic    bool
	Declarations []syntax.Node
}

// Declaration is a resolved reference. A nil *Declaration means the
// reference is unresolved; consumers treat that as "no information".
//
// Invariant: Node and Identifier are both non-null.
type Declaration struct {
	// Node introduces the name.
	Node syntax.Node

	// Identifier is the matched name node. Cross-file matches use the
	// exported name; member lookups use the reference node.
	Identifier syntax.Node

	// FilePath owns Node. It differs from the query file when resolution
	// crossed an include.
	FilePath string

	Kind ResolutionKind

	// Scopes is the chain searched, innermost first. Empty for matches
	// found through exports.
	Scopes []Scope

	// Scope is the element of Scopes holding the match.
	Scope *Scope

	// Inheritance is the ancestor chain walked for a member lookup,
	// excluding the type the lookup started from.
	Inheritance []*Declaration

	// InheritedFrom is the chain element (possibly the starting type) that
	// declares the member.
	InheritedFrom *Declaration
}

// Name returns the identifier text.
func (d *Declaration) Name() string {
	if d == nil {
		return ""
	}
	return d.Identifier.Text()
}

// withKind returns a shallow copy of d tagged with kind and identifier.
func (d *Declaration) withKind(kind ResolutionKind, ident syntax.Node) *Declaration {
	out := *d
	out.Kind = kind
	if !ident.IsNull() {
		out.Identifier = ident
	}
	return &out
}

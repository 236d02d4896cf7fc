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

// scopeKinds are the nodes that open a lexical scope.
var scopeKinds = []syntax.Kind{
	syntax.KindProgram,
	syntax.KindBlock,
	syntax.KindClassBody,
	syntax.KindEnumeratorList,
}

var callableKinds = []syntax.Kind{
	syntax.KindMethodDeclaration,
	syntax.KindFunctionDeclaration,
	syntax.KindMethodSignatureDeclaration,
}

// ContextPath returns the scopes enclosing node, innermost first.
//
// Description:
//
//	Walks ancestors starting at node's parent. Each program, block,
//	class_body and enumerator_list is a scope. Passing through a child of
//	a callable injects the callable's parameter list as a synthetic scope
//	directly outside its body, and passing through a child of a for
//	statement injects the loop's init clauses as a synthetic block.
//
//	Every returned scope has Declarations populated, possibly empty.
//
// Inputs:
//
//	node - Any node. A null node yields nil.
//
// Outputs:
//
//	[]Scope - Innermost first; the program scope is last.
//
// Thread Safety:
//
//	Safe for concurrent use; trees are immutable.
func ContextPath(node syntax.Node) []Scope {
	var path []Scope
	for p := node.Parent(); !p.IsNull(); p = p.Parent() {
		if p.Kind().In(scopeKinds...) {
			path = append(path, Scope{
				Kind:         p.Kind(),
				Node:         p,
				Declarations: declarationsOf(p.NamedChildren()),
			})
		}

		owner := p.Parent()
		switch {
		case owner.Kind().In(callableKinds...):
			if params := owner.ChildForFieldName("parameters"); !params.IsNull() {
				path = append(path, Scope{
					Kind:         syntax.KindFormalParameters,
					Node:         params,
					Synthetic:    true,
					Declarations: declarationsOf(params.NamedChildren()),
				})
			}
		case owner.Kind() == syntax.KindForStatement:
			path = append(path, Scope{
				Kind:         syntax.KindBlock,
				Node:         owner,
				Synthetic:    true,
				Declarations: declarationsOf(owner.ChildrenForFieldName("init")),
			})
		}
	}
	return path
}

// Context returns the scopes of ContextPath that declare something.
//
// The order is the shadowing order: the first scope declaring a name wins.
func Context(node syntax.Node) []Scope {
	path := ContextPath(node)
	out := path[:0]
	for _, s := range path {
		if len(s.Declarations) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func declarationsOf(nodes []syntax.Node) []syntax.Node {
	var out []syntax.Node
	for _, n := range nodes {
		if n.Kind().IsDeclaration() {
			out = append(out, n)
		}
	}
	return out
}

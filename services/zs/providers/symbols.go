// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package providers

import (
	"github.com/AleutianAI/zsls/services/zs/protocol"
	"github.com/AleutianAI/zsls/services/zs/resolver"
	"github.com/AleutianAI/zsls/services/zs/syntax"
)

// Symbols returns the document outline of tree.
//
// Description:
//
//	Top-level classes, interfaces, enums, functions, signatures and
//	variables become root symbols. Classes and interfaces list their
//	members and nested types; enums list their enumerators. A variable
//	statement contributes one symbol per declarator.
func Symbols(tree *syntax.Tree) []protocol.DocumentSymbol {
	out := []protocol.DocumentSymbol{}
	if tree == nil {
		return out
	}
	for _, n := range tree.Root().NamedChildren() {
		out = append(out, symbolsOf(n)...)
	}
	return out
}

func symbolsOf(n syntax.Node) []protocol.DocumentSymbol {
	switch n.Kind() {
	case syntax.KindClassDeclaration, syntax.KindInterfaceDeclaration:
		kind := protocol.SymbolKindClass
		if n.Kind() == syntax.KindInterfaceDeclaration {
			kind = protocol.SymbolKindInterface
		}
		sym, ok := symbol(n, n.ChildForFieldName("name"), kind, "")
		if !ok {
			return nil
		}
		for _, child := range n.ChildForFieldName("body").NamedChildren() {
			sym.Children = append(sym.Children, symbolsOf(child)...)
		}
		return []protocol.DocumentSymbol{sym}

	case syntax.KindEnumDeclaration:
		sym, ok := symbol(n, n.ChildForFieldName("name"), protocol.SymbolKindEnum, "")
		if !ok {
			return nil
		}
		for _, e := range n.ChildForFieldName("body").NamedChildren() {
			if e.Kind() != syntax.KindEnumerator {
				continue
			}
			if child, ok := symbol(e, e.ChildForFieldName("name"), protocol.SymbolKindEnumMember, ""); ok {
				sym.Children = append(sym.Children, child)
			}
		}
		return []protocol.DocumentSymbol{sym}

	case syntax.KindFunctionDeclaration, syntax.KindMethodSignatureDeclaration:
		return one(symbol(n, n.ChildForFieldName("name"), protocol.SymbolKindFunction, signature(n, "")))

	case syntax.KindMethodDeclaration, syntax.KindMethodInterface:
		return one(symbol(n, n.ChildForFieldName("name"), protocol.SymbolKindMethod, signature(n, "")))

	case syntax.KindGetDeclaration, syntax.KindSetDeclaration:
		return one(symbol(n, n.ChildForFieldName("name"), protocol.SymbolKindProperty, typeText(n)))

	case syntax.KindFieldDeclaration, syntax.KindLocalVariableDeclaration:
		kind := protocol.SymbolKindVariable
		if n.Kind() == syntax.KindFieldDeclaration {
			kind = protocol.SymbolKindField
		}
		var out []protocol.DocumentSymbol
		for _, name := range resolver.DeclarationIdentifier(n) {
			if sym, ok := symbol(n, name, kind, typeText(n)); ok {
				out = append(out, sym)
			}
		}
		return out

	default:
		return nil
	}
}

func symbol(n, name syntax.Node, kind protocol.SymbolKind, detail string) (protocol.DocumentSymbol, bool) {
	if name.IsNull() || name.IsMissing() {
		return protocol.DocumentSymbol{}, false
	}
	return protocol.DocumentSymbol{
		Name:           name.Text(),
		Detail:         detail,
		Kind:           kind,
		Range:          toRange(n),
		SelectionRange: toRange(name),
	}, true
}

func one(sym protocol.DocumentSymbol, ok bool) []protocol.DocumentSymbol {
	if !ok {
		return nil
	}
	return []protocol.DocumentSymbol{sym}
}

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
	"context"
	"log/slog"
	"time"

	"github.com/AleutianAI/zsls/services/zs/protocol"
	"github.com/AleutianAI/zsls/services/zs/resolver"
	"github.com/AleutianAI/zsls/services/zs/syntax"
	"github.com/AleutianAI/zsls/services/zs/workspace"
)

// Completion proposes names for the position pos.
//
// Description:
//
//	After "." (optionally followed by a partial name) the receiver is
//	resolved to its type and every member across the inheritance chain is
//	listed once, most derived first, as a Method or a Field. An enum
//	receiver lists its enumerators. Anywhere else the declarations of the
//	enclosing scopes are listed, innermost first, followed by the names
//	exported through the include graph. Filtering by the typed prefix is
//	left to the client.
//
// Outputs:
//
//	[]protocol.CompletionItem - The proposals; empty when nothing fits.
func (s *Service) Completion(ctx context.Context, doc *workspace.Document, pos protocol.Position) []protocol.CompletionItem {
	start := time.Now()
	ctx, span := startProviderSpan(ctx, "Completion", doc.Path, pos)
	defer span.End()

	var items []protocol.CompletionItem
	if doc.Tree != nil {
		offset := doc.Tree.OffsetAt(toPoint(pos))
		if dot, ok := memberDot(doc.Tree.Source(), offset); ok {
			items = s.memberCompletion(ctx, doc, dot)
		} else {
			items = s.scopeCompletion(ctx, doc, offset)
		}
	}
	recordProvider(ctx, "completion", time.Since(start), len(items) > 0)
	return items
}

// memberDot returns the offset of the "." that the cursor's partial name
// follows.
func memberDot(src []byte, offset int) (int, bool) {
	i := offset
	for i > 0 && isNameByte(src[i-1]) {
		i--
	}
	if i > 0 && src[i-1] == '.' {
		return i - 1, true
	}
	return 0, false
}

func isNameByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func (s *Service) memberCompletion(ctx context.Context, doc *workspace.Document, dot int) []protocol.CompletionItem {
	access := doc.Tree.NodeAt(doc.Tree.PointAt(dot)).Parent()
	var object syntax.Node
	switch access.Kind() {
	case syntax.KindFieldAccess, syntax.KindMethodInvocation:
		object = access.ChildForFieldName("object")
	case syntax.KindNewExpression:
		object = access
	}
	if object.IsNull() {
		s.logger.Debug("completion: no receiver before dot",
			slog.String("file", doc.Path),
			slog.Int("offset", dot))
		return nil
	}

	b := newItemSet()
	for _, typ := range s.res.ReceiverTypes(ctx, object, doc.Path) {
		if typ.Node.Kind() == syntax.KindEnumDeclaration {
			for _, e := range typ.Node.ChildForFieldName("body").NamedChildren() {
				if e.Kind() == syntax.KindEnumerator {
					b.add(e.ChildForFieldName("name").Text(), protocol.CompletionItemKindEnumMember, typ.Name())
				}
			}
			continue
		}
		owners := append([]*resolver.Declaration{typ}, s.res.InheritanceChain(ctx, typ)...)
		for _, owner := range owners {
			for _, m := range resolver.Members(owner.Node) {
				kind := protocol.CompletionItemKindField
				if m.Is(syntax.KindMethodDeclaration, syntax.KindMethodInterface, syntax.KindMethodSignatureDeclaration) {
					kind = protocol.CompletionItemKindMethod
				}
				for _, ident := range resolver.DeclarationIdentifier(m) {
					b.add(ident.Text(), kind, summary(m, ident.Text(), owner.Name()))
				}
			}
		}
	}
	return b.items
}

func (s *Service) scopeCompletion(ctx context.Context, doc *workspace.Document, offset int) []protocol.CompletionItem {
	node := doc.Tree.NodeAt(doc.Tree.PointAt(offset))
	// Context starts at the parent, so a cursor resting directly in a
	// scope needs one of that scope's children as the anchor.
	if node.Is(syntax.KindProgram, syntax.KindBlock, syntax.KindClassBody) && node.ChildCount() > 0 {
		node = node.Child(0)
	}

	b := newItemSet()
	for _, scope := range resolver.Context(node) {
		for _, decl := range scope.Declarations {
			for _, ident := range resolver.DeclarationIdentifier(decl) {
				b.add(ident.Text(), scopeItemKind(decl), summary(decl, ident.Text(), ""))
			}
		}
	}

	exports, err := s.res.VisibleExports(ctx, doc.Path)
	if err != nil {
		s.logger.Warn("completion: exports unavailable",
			slog.String("file", doc.Path),
			slog.String("error", err.Error()))
	}
	for _, e := range exports {
		b.add(e.Name, scopeItemKind(e.Node), summary(e.Node, e.Name, ""))
	}
	return b.items
}

func scopeItemKind(decl syntax.Node) protocol.CompletionItemKind {
	switch decl.Kind() {
	case syntax.KindClassDeclaration, syntax.KindLocalTypeDeclaration:
		return protocol.CompletionItemKindClass
	case syntax.KindInterfaceDeclaration:
		return protocol.CompletionItemKindInterface
	case syntax.KindEnumDeclaration:
		return protocol.CompletionItemKindEnum
	case syntax.KindEnumerator:
		return protocol.CompletionItemKindEnumMember
	case syntax.KindFunctionDeclaration, syntax.KindMethodSignatureDeclaration:
		return protocol.CompletionItemKindFunction
	case syntax.KindMethodDeclaration:
		return protocol.CompletionItemKindMethod
	case syntax.KindFieldDeclaration:
		return protocol.CompletionItemKindField
	default:
		return protocol.CompletionItemKindVariable
	}
}

// itemSet keeps the first item proposed for each label.
type itemSet struct {
	seen  map[string]bool
	items []protocol.CompletionItem
}

func newItemSet() *itemSet {
	return &itemSet{seen: make(map[string]bool), items: []protocol.CompletionItem{}}
}

func (b *itemSet) add(label string, kind protocol.CompletionItemKind, detail string) {
	if label == "" || b.seen[label] {
		return
	}
	b.seen[label] = true
	b.items = append(b.items, protocol.CompletionItem{Label: label, Kind: kind, Detail: detail})
}

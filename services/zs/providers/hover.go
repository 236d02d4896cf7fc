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
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/zsls/services/zs/protocol"
	"github.com/AleutianAI/zsls/services/zs/resolver"
	"github.com/AleutianAI/zsls/services/zs/syntax"
	"github.com/AleutianAI/zsls/services/zs/workspace"
)

// Hover renders the declaration of the name at pos as Markdown.
//
// Description:
//
//	The first block is a fenced zs code block summarizing the
//	declaration. Inherited members add an "inherited via" line naming the
//	ancestors walked up to the declaring type. An include path lists the
//	exports of the included file.
//
// Outputs:
//
//	*protocol.Hover - The hover, or nil when nothing resolves.
func (s *Service) Hover(ctx context.Context, doc *workspace.Document, pos protocol.Position) *protocol.Hover {
	start := time.Now()
	ctx, span := startProviderSpan(ctx, "Hover", doc.Path, pos)
	defer span.End()

	d := s.declarationAt(ctx, doc, pos)
	var text string
	if d != nil {
		text = s.describe(ctx, d, doc.Path)
	}
	recordProvider(ctx, "hover", time.Since(start), text != "")
	if text == "" {
		return nil
	}

	rng := toRange(doc.Tree.NodeAt(toPoint(pos)))
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: text},
		Range:    &rng,
	}
}

// Describe renders d the way Hover does. callerFile resolves include
// paths.
func (s *Service) Describe(ctx context.Context, d *resolver.Declaration, callerFile string) string {
	if d == nil {
		return ""
	}
	return s.describe(ctx, d, callerFile)
}

func (s *Service) describe(ctx context.Context, d *resolver.Declaration, callerFile string) string {
	switch d.Kind {
	case resolver.KindInclude:
		return s.describeInclude(ctx, d, callerFile)
	case resolver.KindAddedMethodInvocation:
		return codeBlock(addedMethodSignature(d.Node, d.Name()))
	case resolver.KindFieldDeclaration, resolver.KindMethodInvocation, resolver.KindFunctionInvocation:
		owner := ""
		if d.InheritedFrom != nil {
			owner = d.InheritedFrom.Name()
		}
		return codeBlock(summary(d.Node, d.Name(), owner)) + inheritancePath(d)
	default:
		return codeBlock(summary(d.Node, d.Name(), ""))
	}
}

func (s *Service) describeInclude(ctx context.Context, d *resolver.Declaration, callerFile string) string {
	target := resolver.IncludeTarget(d.Node)
	path, exports, err := s.res.IncludeExports(ctx, target, callerFile)
	if err != nil {
		s.logger.Debug("hover: include not readable",
			slog.String("include", target),
			slog.String("error", err.Error()))
		return codeBlock("#include " + strconv.Quote(target)) + "\n\nnot found"
	}
	lines := []string{"// " + path}
	for _, e := range exports.All() {
		lines = append(lines, summary(e.Node, e.Name, ""))
	}
	return codeBlock(lines...)
}

func codeBlock(lines ...string) string {
	return "```zs\n" + strings.Join(lines, "\n") + "\n```"
}

// inheritancePath names the ancestors walked to reach an inherited
// member, or returns "" when the member is declared on the starting type.
func inheritancePath(d *resolver.Declaration) string {
	if d.InheritedFrom == nil {
		return ""
	}
	var names []string
	for _, anc := range d.Inheritance {
		names = append(names, anc.Name())
		if anc == d.InheritedFrom {
			return "\n\ninherited via " + strings.Join(names, " > ")
		}
	}
	return ""
}

// =============================================================================
// SUMMARIES
// =============================================================================

// summary is the one-line form of a declaration. owner overrides the
// enclosing type used to qualify members.
func summary(node syntax.Node, name, owner string) string {
	switch node.Kind() {
	case syntax.KindLocalVariableDeclaration:
		return typeText(node) + " " + name
	case syntax.KindFieldDeclaration:
		return fmt.Sprintf("(field) %s%s %s", qualifier(node, owner), typeText(node), name)
	case syntax.KindGetDeclaration, syntax.KindSetDeclaration:
		return fmt.Sprintf("(property) %s%s %s", qualifier(node, owner), typeText(node), name)
	case syntax.KindFormalParameter:
		return "(parameter) " + typeText(node) + " " + name
	case syntax.KindEnumerator:
		return enumeratorSummary(node)
	case syntax.KindMethodDeclaration, syntax.KindMethodInterface:
		return "(method) " + signature(node, qualifier(node, owner))
	case syntax.KindFunctionDeclaration, syntax.KindMethodSignatureDeclaration:
		return "(function) " + signature(node, "")
	case syntax.KindClassDeclaration, syntax.KindInterfaceDeclaration, syntax.KindEnumDeclaration:
		return header(node)
	case syntax.KindLocalTypeDeclaration:
		return fmt.Sprintf("type %s = %s", name, typeText(node))
	default:
		return strings.Join(strings.Fields(node.Text()), " ")
	}
}

func typeText(node syntax.Node) string {
	return resolver.DeclarationType(node).Text()
}

// qualifier returns "Owner." for a member, using the closest enclosing
// class or interface when owner is empty.
func qualifier(node syntax.Node, owner string) string {
	if owner == "" {
		owner = node.Closest(syntax.KindClassDeclaration, syntax.KindInterfaceDeclaration).
			ChildForFieldName("name").Text()
	}
	if owner == "" {
		return ""
	}
	return owner + "."
}

// signature renders "T Q.name(params)".
func signature(node syntax.Node, qual string) string {
	var params []string
	for _, p := range resolver.Params(node) {
		params = append(params, strings.Join(strings.Fields(p.Text()), " "))
	}
	return fmt.Sprintf("%s %s%s(%s)", typeText(node), qual, node.ChildForFieldName("name").Text(),
		strings.Join(params, ", "))
}

// addedMethodSignature renders a free function called with method syntax
// as a method of its first parameter's type.
func addedMethodSignature(node syntax.Node, name string) string {
	if !node.Is(syntax.KindFunctionDeclaration, syntax.KindMethodSignatureDeclaration) {
		return summary(node, name, "")
	}
	params := resolver.Params(node)
	if len(params) == 0 {
		return "(method) " + signature(node, "")
	}
	var rest []string
	for _, p := range params[1:] {
		rest = append(rest, strings.Join(strings.Fields(p.Text()), " "))
	}
	return fmt.Sprintf("(method) %s %s.%s(%s)", typeText(node), typeText(params[0]),
		node.ChildForFieldName("name").Text(), strings.Join(rest, ", "))
}

// header returns the text of a type declaration before its body.
func header(node syntax.Node) string {
	text := node.Text()
	if body := node.ChildForFieldName("body"); !body.IsNull() {
		text = text[:body.StartByte()-node.StartByte()]
	}
	return strings.Join(strings.Fields(text), " ")
}

// enumeratorSummary renders "(enum member) E.A = n". Implicit values
// count up from the previous explicit integer; after a non-integer value
// they are unknown and omitted.
func enumeratorSummary(node syntax.Node) string {
	enum := node.Closest(syntax.KindEnumDeclaration)
	label := fmt.Sprintf("(enum member) %s.%s", enum.ChildForFieldName("name").Text(),
		node.ChildForFieldName("name").Text())

	value, known := int64(0), true
	for _, e := range enum.ChildForFieldName("body").NamedChildren() {
		if e.Kind() != syntax.KindEnumerator {
			continue
		}
		if v := e.ChildForFieldName("value"); !v.IsNull() {
			n, err := strconv.ParseInt(v.Text(), 0, 64)
			value, known = n, err == nil
		}
		if e == node {
			break
		}
		value++
	}
	if !known {
		return label
	}
	return fmt.Sprintf("%s = %d", label, value)
}

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

// ExportInfo is one file-scope name in transport form.
type ExportInfo struct {
	Name    string         `json:"name"`
	Kind    string         `json:"kind"`
	Range   protocol.Range `json:"range"`
	Summary string         `json:"summary"`
}

// Exports lists the file-scope names of tree in declaration order. Range
// is the declaring name.
func Exports(tree *syntax.Tree) []ExportInfo {
	out := []ExportInfo{}
	for _, e := range resolver.ExportsOf(tree).All() {
		name := e.Node
		for _, ident := range nameNodes(e.Node) {
			if ident.Text() == e.Name {
				name = ident
				break
			}
		}
		out = append(out, ExportInfo{
			Name:    e.Name,
			Kind:    e.Node.Type(),
			Range:   toRange(name),
			Summary: summary(e.Node, e.Name, ""),
		})
	}
	return out
}

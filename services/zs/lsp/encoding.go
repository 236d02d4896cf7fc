// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package lsp

import (
	"context"

	"github.com/AleutianAI/zsls/services/zs/protocol"
	"github.com/AleutianAI/zsls/services/zs/workspace"
)

// Positions cross the wire in the negotiated encoding. Everything below
// the lsp package counts byte columns, so utf-16 sessions convert here.

func (s *Server) convertsUTF16() bool {
	return s.encoding != protocol.PositionEncodingUTF8
}

func (s *Server) fromClient(doc *workspace.Document, pos protocol.Position) protocol.Position {
	if !s.convertsUTF16() {
		return pos
	}
	return protocol.SplitLines(doc.Text).FromUTF16(pos)
}

func (s *Server) hoverToClient(doc *workspace.Document, h *protocol.Hover) *protocol.Hover {
	if h == nil || h.Range == nil || !s.convertsUTF16() {
		return h
	}
	rng := protocol.SplitLines(doc.Text).RangeToUTF16(*h.Range)
	h.Range = &rng
	return h
}

// locationsToClient converts each location against its own document.
// Locations in documents that cannot be loaded pass through.
func (s *Server) locationsToClient(ctx context.Context, locs []protocol.Location) []protocol.Location {
	if !s.convertsUTF16() {
		return locs
	}
	lines := map[string]protocol.Lines{}
	for i, loc := range locs {
		l, ok := lines[loc.URI]
		if !ok {
			doc, err := s.ws.Get(ctx, protocol.URIToPath(loc.URI))
			if err != nil {
				continue
			}
			l = protocol.SplitLines(doc.Text)
			lines[loc.URI] = l
		}
		locs[i].Range = l.RangeToUTF16(loc.Range)
	}
	return locs
}

func (s *Server) diagnosticsToClient(doc *workspace.Document, diags []protocol.Diagnostic) []protocol.Diagnostic {
	if !s.convertsUTF16() {
		return diags
	}
	lines := protocol.SplitLines(doc.Text)
	for i := range diags {
		diags[i].Range = lines.RangeToUTF16(diags[i].Range)
	}
	return diags
}

func (s *Server) symbolsToClient(doc *workspace.Document, syms []protocol.DocumentSymbol) []protocol.DocumentSymbol {
	if !s.convertsUTF16() {
		return syms
	}
	return convertSymbols(protocol.SplitLines(doc.Text), syms)
}

func convertSymbols(lines protocol.Lines, syms []protocol.DocumentSymbol) []protocol.DocumentSymbol {
	for i := range syms {
		syms[i].Range = lines.RangeToUTF16(syms[i].Range)
		syms[i].SelectionRange = lines.RangeToUTF16(syms[i].SelectionRange)
		syms[i].Children = convertSymbols(lines, syms[i].Children)
	}
	return syms
}

func (s *Server) tokensToClient(doc *workspace.Document, data []uint32) []uint32 {
	if !s.convertsUTF16() {
		return data
	}
	return protocol.SplitLines(doc.Text).SemanticTokensToUTF16(data)
}

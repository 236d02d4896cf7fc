// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/AleutianAI/zsls/services/zs/preprocess"
	"github.com/AleutianAI/zsls/services/zs/protocol"
	"github.com/AleutianAI/zsls/services/zs/providers"
	"github.com/AleutianAI/zsls/services/zs/workspace"
)

// Handler turns tool calls into provider queries.
type Handler struct {
	ws     *workspace.Workspace
	svc    *providers.Service
	logger *slog.Logger
}

// NewHandler creates a Handler. A nil logger uses slog.Default.
func NewHandler(ws *workspace.Workspace, svc *providers.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{ws: ws, svc: svc, logger: logger}
}

// Resolve handles zs_resolve.
func (h *Handler) Resolve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, pos, errResult := h.position(ctx, req)
	if errResult != nil {
		return errResult, nil
	}
	return jsonResult(h.svc.Resolve(ctx, doc, pos))
}

// Hover handles zs_hover. An unresolved position yields empty text.
func (h *Handler) Hover(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, pos, errResult := h.position(ctx, req)
	if errResult != nil {
		return errResult, nil
	}
	hover := h.svc.Hover(ctx, doc, pos)
	if hover == nil {
		return mcp.NewToolResultText(""), nil
	}
	return mcp.NewToolResultText(hover.Contents.Value), nil
}

// Exports handles zs_exports.
func (h *Handler) Exports(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, errResult := h.document(ctx, req)
	if errResult != nil {
		return errResult, nil
	}
	return jsonResult(map[string]interface{}{
		"path":    doc.Path,
		"exports": providers.Exports(doc.Tree),
	})
}

// Diagnostics handles zs_diagnostics.
func (h *Handler) Diagnostics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, errResult := h.document(ctx, req)
	if errResult != nil {
		return errResult, nil
	}
	return jsonResult(map[string]interface{}{
		"path":        doc.Path,
		"diagnostics": providers.Diagnostics(doc.Tree),
	})
}

// Preprocess handles zs_preprocess.
func (h *Handler) Preprocess(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text is required"), nil
	}
	return mcp.NewToolResultText(preprocess.Normalize(text)), nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) position(ctx context.Context, req mcp.CallToolRequest) (*workspace.Document, protocol.Position, *mcp.CallToolResult) {
	line, err := req.RequireInt("line")
	if err != nil || line < 0 {
		return nil, protocol.Position{}, mcp.NewToolResultError("line must be a non-negative number")
	}
	character, err := req.RequireInt("character")
	if err != nil || character < 0 {
		return nil, protocol.Position{}, mcp.NewToolResultError("character must be a non-negative number")
	}
	doc, errResult := h.document(ctx, req)
	return doc, protocol.Position{Line: line, Character: character}, errResult
}

// document loads the "path" argument, caching "text" for it first when
// the argument is present.
func (h *Handler) document(ctx context.Context, req mcp.CallToolRequest) (*workspace.Document, *mcp.CallToolResult) {
	path, err := req.RequireString("path")
	if err != nil || path == "" {
		return nil, mcp.NewToolResultError("path is required")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(h.ws.Config().ProjectRoot, path)
	}

	var doc *workspace.Document
	if text, ok := req.GetArguments()["text"].(string); ok {
		doc, err = h.ws.Set(ctx, path, text)
	} else {
		doc, err = h.ws.Get(ctx, path)
	}
	if err != nil {
		h.logger.Warn("mcp: document unavailable",
			slog.String("tool", req.Params.Name),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, mcp.NewToolResultError(fmt.Sprintf("load %s: %v", path, err))
	}
	return doc, nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

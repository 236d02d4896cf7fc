// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package mcp exposes zsls resolution to MCP clients as tools served
// over stdio.
package mcp

import (
	"context"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Tool names.
const (
	ToolResolve     = "zs_resolve"
	ToolHover       = "zs_hover"
	ToolExports     = "zs_exports"
	ToolDiagnostics = "zs_diagnostics"
	ToolPreprocess  = "zs_preprocess"
)

// New builds the MCP server with every zsls tool registered.
func New(h *Handler, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"zsls",
		version,
		server.WithToolCapabilities(false),
	)

	s.AddTool(positionTool(ToolResolve,
		"Resolve the ZS name at a position to its declaration. Returns JSON with kind, filePath, declaration text, range and inheritance path."),
		h.Resolve)
	s.AddTool(positionTool(ToolHover,
		"Render the hover text (markdown) for the ZS name at a position."),
		h.Hover)
	s.AddTool(mcp.NewTool(ToolExports,
		mcp.WithDescription("List the file-scope declarations a ZS file exports to its includers."),
		pathArg(),
	), h.Exports)
	s.AddTool(mcp.NewTool(ToolDiagnostics,
		mcp.WithDescription("List syntax errors and missing tokens in a ZS file."),
		pathArg(),
		textArg(),
	), h.Diagnostics)
	s.AddTool(mcp.NewTool(ToolPreprocess,
		mcp.WithDescription("Comment out #if/#else/#endif branches the way zsls does before parsing."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Raw ZS source text"),
		),
	), h.Preprocess)

	return s
}

func positionTool(name, description string) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription(description),
		pathArg(),
		mcp.WithNumber("line",
			mcp.Required(),
			mcp.Description("Zero-based line"),
		),
		mcp.WithNumber("character",
			mcp.Required(),
			mcp.Description("Zero-based byte column"),
		),
		textArg(),
	)
}

func pathArg() mcp.ToolOption {
	return mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Absolute path of a .zs/.zi file, or a path relative to the project root"),
	)
}

func textArg() mcp.ToolOption {
	return mcp.WithString("text",
		mcp.Description("Unsaved content to use instead of the file on disk"),
	)
}

// Serve runs s over r and w until ctx is cancelled or input ends.
func Serve(ctx context.Context, s *server.MCPServer, r io.Reader, w io.Writer) error {
	return server.NewStdioServer(s).Listen(ctx, r, w)
}

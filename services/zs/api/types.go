// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"github.com/AleutianAI/zsls/services/zs/protocol"
	"github.com/AleutianAI/zsls/services/zs/providers"
)

// PositionRequest addresses a position in a file.
//
// Text, when present, replaces the file's content in the shared cache
// before the query runs, the way an unsaved editor buffer would.
type PositionRequest struct {
	// Path is absolute, or relative to the project root.
	Path      string  `json:"path" binding:"required,zspath"`
	Text      *string `json:"text,omitempty"`
	Line      *int    `json:"line" binding:"required,gte=0"`
	Character *int    `json:"character" binding:"required,gte=0"`
}

// FileRequest addresses a whole file.
type FileRequest struct {
	Path string  `json:"path" binding:"required,zspath"`
	Text *string `json:"text,omitempty"`
}

// PreprocessRequest carries raw ZS text.
type PreprocessRequest struct {
	Text *string `json:"text" binding:"required"`
}

// HoverResponse is the rendered hover, or empty contents when nothing
// resolves.
type HoverResponse struct {
	Contents string          `json:"contents"`
	Range    *protocol.Range `json:"range,omitempty"`
}

// ExportsResponse lists the file-scope names of one file.
type ExportsResponse struct {
	Path    string                 `json:"path"`
	Exports []providers.ExportInfo `json:"exports"`
}

// DiagnosticsResponse lists the syntax problems of one file.
type DiagnosticsResponse struct {
	Path        string                `json:"path"`
	Diagnostics []protocol.Diagnostic `json:"diagnostics"`
}

// PreprocessResponse is the normalized text.
type PreprocessResponse struct {
	Text string `json:"text"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status    string `json:"status"`
	Documents int    `json:"documents"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is a stable machine-readable code.
	Code string `json:"code,omitempty"`
}

// Error codes.
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeDocumentNotFound = "DOCUMENT_NOT_FOUND"
	CodeInvalidDocument  = "INVALID_DOCUMENT"
	CodeInternal         = "INTERNAL_ERROR"
)

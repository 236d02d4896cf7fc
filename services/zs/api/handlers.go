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
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/zsls/services/zs/parser"
	"github.com/AleutianAI/zsls/services/zs/preprocess"
	"github.com/AleutianAI/zsls/services/zs/protocol"
	"github.com/AleutianAI/zsls/services/zs/providers"
	"github.com/AleutianAI/zsls/services/zs/workspace"
)

// Handlers serves the /v1/zs endpoints.
//
// Thread Safety:
//
//	Safe for concurrent use; state lives in the shared workspace.
type Handlers struct {
	ws     *workspace.Workspace
	svc    *providers.Service
	logger *slog.Logger
}

// NewHandlers creates the handlers. A nil logger uses slog.Default.
func NewHandlers(ws *workspace.Workspace, svc *providers.Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{ws: ws, svc: svc, logger: logger}
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

func (h *Handlers) requestLogger(c *gin.Context, handler string) *slog.Logger {
	return h.logger.With("request_id", getOrCreateRequestID(c), "handler", handler)
}

// HandleResolve handles POST /v1/zs/resolve.
//
// Response:
//
//	200 OK: providers.Result, with resolved false when nothing matches
//	400 Bad Request: invalid body or unparseable text
//	404 Not Found: no such file
func (h *Handlers) HandleResolve(c *gin.Context) {
	logger := h.requestLogger(c, "HandleResolve")

	var req PositionRequest
	if !h.bind(c, logger, &req) {
		return
	}
	doc, ok := h.document(c, logger, req.Path, req.Text)
	if !ok {
		return
	}
	result := h.svc.Resolve(c.Request.Context(), doc, position(req))
	logger.Debug("Resolved position",
		"path", doc.Path,
		"resolved", result.Resolved,
		"kind", result.Kind)
	c.JSON(http.StatusOK, result)
}

// HandleHover handles POST /v1/zs/hover.
func (h *Handlers) HandleHover(c *gin.Context) {
	logger := h.requestLogger(c, "HandleHover")

	var req PositionRequest
	if !h.bind(c, logger, &req) {
		return
	}
	doc, ok := h.document(c, logger, req.Path, req.Text)
	if !ok {
		return
	}
	var resp HoverResponse
	if hover := h.svc.Hover(c.Request.Context(), doc, position(req)); hover != nil {
		resp = HoverResponse{Contents: hover.Contents.Value, Range: hover.Range}
	}
	c.JSON(http.StatusOK, resp)
}

// HandleExports handles POST /v1/zs/exports.
func (h *Handlers) HandleExports(c *gin.Context) {
	logger := h.requestLogger(c, "HandleExports")

	var req FileRequest
	if !h.bind(c, logger, &req) {
		return
	}
	doc, ok := h.document(c, logger, req.Path, req.Text)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ExportsResponse{Path: doc.Path, Exports: providers.Exports(doc.Tree)})
}

// HandleDiagnostics handles POST /v1/zs/diagnostics.
func (h *Handlers) HandleDiagnostics(c *gin.Context) {
	logger := h.requestLogger(c, "HandleDiagnostics")

	var req FileRequest
	if !h.bind(c, logger, &req) {
		return
	}
	doc, ok := h.document(c, logger, req.Path, req.Text)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, DiagnosticsResponse{Path: doc.Path, Diagnostics: providers.Diagnostics(doc.Tree)})
}

// HandlePreprocess handles POST /v1/zs/preprocess.
func (h *Handlers) HandlePreprocess(c *gin.Context) {
	logger := h.requestLogger(c, "HandlePreprocess")

	var req PreprocessRequest
	if !h.bind(c, logger, &req) {
		return
	}
	c.JSON(http.StatusOK, PreprocessResponse{Text: preprocess.Normalize(*req.Text)})
}

// HandleHealth handles GET /v1/zs/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	getOrCreateRequestID(c)
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Documents: len(h.ws.Paths())})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handlers) bind(c *gin.Context, logger *slog.Logger, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request: " + err.Error(),
			Code:  CodeInvalidRequest,
		})
		return false
	}
	return true
}

// document loads path, or caches text for it first when given.
func (h *Handlers) document(c *gin.Context, logger *slog.Logger, path string, text *string) (*workspace.Document, bool) {
	path = h.absPath(path)
	ctx := c.Request.Context()

	var (
		doc *workspace.Document
		err error
	)
	if text != nil {
		doc, err = h.ws.Set(ctx, path, *text)
	} else {
		doc, err = h.ws.Get(ctx, path)
	}
	if err == nil {
		return doc, true
	}

	status, code := classify(err)
	if status == http.StatusInternalServerError {
		logger.Error("Document load failed", "path", path, "error", err)
	} else {
		logger.Warn("Document rejected", "path", path, "error", err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
	return nil, false
}

func (h *Handlers) absPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(h.ws.Config().ProjectRoot, path)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, workspace.ErrDocumentNotFound):
		return http.StatusNotFound, CodeDocumentNotFound
	case errors.Is(err, workspace.ErrFileTooLarge),
		errors.Is(err, parser.ErrInputTooLarge),
		errors.Is(err, parser.ErrInvalidUTF8):
		return http.StatusBadRequest, CodeInvalidDocument
	case errors.Is(err, context.Canceled):
		return http.StatusBadRequest, CodeInvalidRequest
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func position(req PositionRequest) protocol.Position {
	return protocol.Position{Line: *req.Line, Character: *req.Character}
}

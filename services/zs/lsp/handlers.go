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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/AleutianAI/zsls/services/zs/protocol"
	"github.com/AleutianAI/zsls/services/zs/providers"
	"github.com/AleutianAI/zsls/services/zs/workspace"
)

// =============================================================================
// LIFECYCLE
// =============================================================================

// Capabilities returns the capabilities advertised by initialize for the
// negotiated position encoding.
func Capabilities(encoding string) protocol.ServerCapabilities {
	legend := providers.Legend()
	return protocol.ServerCapabilities{
		PositionEncoding: encoding,
		TextDocumentSync: protocol.TextDocumentSyncOptions{
			OpenClose: true,
			Change:    protocol.TextDocumentSyncKindFull,
			Save:      &protocol.SaveOptions{IncludeText: true},
		},
		HoverProvider:          true,
		DefinitionProvider:     true,
		DeclarationProvider:    true,
		CompletionProvider:     &protocol.CompletionOptions{TriggerCharacters: []string{"."}},
		DocumentSymbolProvider: true,
		SemanticTokensProvider: &protocol.SemanticTokensOptions{Legend: legend, Full: true},
	}
}

// initialize applies the client's roots to the workspace.
//
// Description:
//
//	The client root becomes ProjectRoot only when none is configured.
//	initializationOptions systemRoot and includeDirs always win over the
//	configuration.
func (s *Server) initialize(_ context.Context, raw json.RawMessage) (interface{}, *protocol.ResponseError) {
	var params protocol.InitializeParams
	if rerr := decode(raw, &params); rerr != nil {
		return nil, rerr
	}

	cfg := s.ws.Config()
	if cfg.ProjectRoot == "" {
		cfg.ProjectRoot = clientRoot(params)
	}
	if len(params.InitializationOptions) > 0 {
		var opts protocol.InitializationOptions
		if err := json.Unmarshal(params.InitializationOptions, &opts); err != nil {
			return nil, invalidParams(fmt.Errorf("initializationOptions: %w", err))
		}
		if opts.SystemRoot != "" {
			cfg.SystemRoot = opts.SystemRoot
		}
		if len(opts.IncludeDirs) > 0 {
			cfg.IncludeDirs = opts.IncludeDirs
		}
	}
	s.ws.SetConfig(cfg)
	var offered []string
	if params.Capabilities.General != nil {
		offered = params.Capabilities.General.PositionEncodings
	}
	s.encoding = protocol.NegotiateEncoding(offered)
	s.setState(StateRunning)

	cfg = s.ws.Config()
	s.logger.Info("lsp: initialized",
		slog.String("project_root", cfg.ProjectRoot),
		slog.String("system_root", cfg.SystemRoot),
		slog.Int("include_dirs", len(cfg.IncludeDirs)),
		slog.String("position_encoding", s.encoding))

	info := s.info
	return protocol.InitializeResult{Capabilities: Capabilities(s.encoding), ServerInfo: &info}, nil
}

// clientRoot picks rootUri, then rootPath, then the first workspace folder.
func clientRoot(params protocol.InitializeParams) string {
	switch {
	case params.RootURI != "":
		return protocol.URIToPath(params.RootURI)
	case params.RootPath != "":
		return params.RootPath
	case len(params.WorkspaceFolders) > 0:
		return protocol.URIToPath(params.WorkspaceFolders[0].URI)
	default:
		return ""
	}
}

func (s *Server) initialized(context.Context, json.RawMessage) error {
	s.logger.Debug("lsp: client ready")
	return nil
}

func (s *Server) shutdown(context.Context, json.RawMessage) (interface{}, *protocol.ResponseError) {
	s.setState(StateShutdown)
	s.logger.Info("lsp: shutdown requested")
	return nil, nil
}

// =============================================================================
// DOCUMENT SYNC
// =============================================================================

func (s *Server) didOpen(ctx context.Context, raw json.RawMessage) error {
	var params protocol.DidOpenTextDocumentParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return fmt.Errorf("didOpen params: %w", err)
	}
	item := params.TextDocument
	doc, err := s.ws.Open(ctx, protocol.URIToPath(item.URI), item.Text, item.Version)
	if err != nil {
		return fmt.Errorf("open %s: %w", item.URI, err)
	}
	recordOpenDocuments(ctx, 1)
	if err := s.publish(ctx, item.URI, doc); err != nil {
		return err
	}

	if filepath.Ext(doc.Path) == ".zs" {
		n, err := s.ws.Preload(ctx, doc.Path)
		if err != nil {
			s.logger.Warn("lsp: preload failed",
				slog.String("path", doc.Path),
				slog.String("error", err.Error()))
		} else {
			s.logger.Debug("lsp: preloaded includes",
				slog.String("path", doc.Path),
				slog.Int("documents", n))
		}
	}
	return nil
}

func (s *Server) didChange(ctx context.Context, raw json.RawMessage) error {
	var params protocol.DidChangeTextDocumentParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return fmt.Errorf("didChange params: %w", err)
	}
	if len(params.ContentChanges) == 0 {
		return nil
	}
	// Full sync: the last change holds the whole text.
	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	uri := params.TextDocument.URI
	doc, err := s.ws.Open(ctx, protocol.URIToPath(uri), text, params.TextDocument.Version)
	if err != nil {
		return fmt.Errorf("change %s: %w", uri, err)
	}
	return s.publish(ctx, uri, doc)
}

func (s *Server) didSave(ctx context.Context, raw json.RawMessage) error {
	var params protocol.DidSaveTextDocumentParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return fmt.Errorf("didSave params: %w", err)
	}
	if params.Text == nil {
		return nil
	}
	uri := params.TextDocument.URI
	doc, err := s.ws.Set(ctx, protocol.URIToPath(uri), *params.Text)
	if err != nil {
		return fmt.Errorf("save %s: %w", uri, err)
	}
	return s.publish(ctx, uri, doc)
}

func (s *Server) didClose(ctx context.Context, raw json.RawMessage) error {
	var params protocol.DidCloseTextDocumentParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return fmt.Errorf("didClose params: %w", err)
	}
	uri := params.TextDocument.URI
	s.ws.Close(protocol.URIToPath(uri))
	recordOpenDocuments(ctx, -1)
	// Clear the editor's problem list for the closed buffer.
	return s.conn.Notify("textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
}

func (s *Server) publish(_ context.Context, uri string, doc *workspace.Document) error {
	version := doc.Version
	diags := s.diagnosticsToClient(doc, providers.Diagnostics(doc.Tree))
	s.logger.Debug("lsp: publishing diagnostics",
		slog.String("uri", uri),
		slog.Int("count", len(diags)))
	return s.conn.Notify("textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         uri,
		Version:     &version,
		Diagnostics: diags,
	})
}

// =============================================================================
// FEATURES
// =============================================================================

// document returns the open buffer or the file on disk behind uri.
func (s *Server) document(ctx context.Context, uri string) (*workspace.Document, *protocol.ResponseError) {
	doc, err := s.ws.Get(ctx, protocol.URIToPath(uri))
	if err != nil {
		if errors.Is(err, workspace.ErrDocumentNotFound) || errors.Is(err, workspace.ErrEmptyPath) {
			return nil, invalidParams(fmt.Errorf("unknown document %s", uri))
		}
		return nil, requestError(protocol.CodeInternalError, err.Error())
	}
	return doc, nil
}

func (s *Server) position(ctx context.Context, raw json.RawMessage) (*workspace.Document, protocol.Position, *protocol.ResponseError) {
	var params protocol.TextDocumentPositionParams
	if rerr := decode(raw, &params); rerr != nil {
		return nil, protocol.Position{}, rerr
	}
	doc, rerr := s.document(ctx, params.TextDocument.URI)
	if rerr != nil {
		return nil, protocol.Position{}, rerr
	}
	return doc, s.fromClient(doc, params.Position), nil
}

func (s *Server) hover(ctx context.Context, raw json.RawMessage) (interface{}, *protocol.ResponseError) {
	doc, pos, rerr := s.position(ctx, raw)
	if rerr != nil {
		return nil, rerr
	}
	return s.hoverToClient(doc, s.svc.Hover(ctx, doc, pos)), nil
}

func (s *Server) declaration(ctx context.Context, raw json.RawMessage) (interface{}, *protocol.ResponseError) {
	doc, pos, rerr := s.position(ctx, raw)
	if rerr != nil {
		return nil, rerr
	}
	return s.locationsToClient(ctx, s.svc.Declaration(ctx, doc, pos)), nil
}

func (s *Server) completion(ctx context.Context, raw json.RawMessage) (interface{}, *protocol.ResponseError) {
	var params protocol.CompletionParams
	if rerr := decode(raw, &params); rerr != nil {
		return nil, rerr
	}
	doc, rerr := s.document(ctx, params.TextDocument.URI)
	if rerr != nil {
		return nil, rerr
	}
	return s.svc.Completion(ctx, doc, s.fromClient(doc, params.Position)), nil
}

func (s *Server) documentSymbol(ctx context.Context, raw json.RawMessage) (interface{}, *protocol.ResponseError) {
	var params protocol.DocumentSymbolParams
	if rerr := decode(raw, &params); rerr != nil {
		return nil, rerr
	}
	doc, rerr := s.document(ctx, params.TextDocument.URI)
	if rerr != nil {
		return nil, rerr
	}
	return s.symbolsToClient(doc, providers.Symbols(doc.Tree)), nil
}

func (s *Server) semanticTokens(ctx context.Context, raw json.RawMessage) (interface{}, *protocol.ResponseError) {
	var params protocol.SemanticTokensParams
	if rerr := decode(raw, &params); rerr != nil {
		return nil, rerr
	}
	doc, rerr := s.document(ctx, params.TextDocument.URI)
	if rerr != nil {
		return nil, rerr
	}
	return protocol.SemanticTokens{Data: s.tokensToClient(doc, providers.SemanticTokens(doc.Tree))}, nil
}

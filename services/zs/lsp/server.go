// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lsp is the zsls language server: JSON-RPC over stdio, backed by
// the shared workspace and the providers package.
package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/zsls/services/zs/protocol"
	"github.com/AleutianAI/zsls/services/zs/providers"
	"github.com/AleutianAI/zsls/services/zs/workspace"
)

// ServerState is the lifecycle state of a Server.
type ServerState int

const (
	// StateUninitialized is the state before initialize.
	StateUninitialized ServerState = iota

	// StateRunning accepts every request.
	StateRunning

	// StateShutdown follows shutdown; only exit is accepted.
	StateShutdown
)

// String returns the state name.
func (s ServerState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRunning:
		return "running"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

type (
	requestHandler      func(ctx context.Context, params json.RawMessage) (interface{}, *protocol.ResponseError)
	notificationHandler func(ctx context.Context, params json.RawMessage) error
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. In stdio mode it must not write to stdout.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxMessageSize bounds the body of one incoming message in bytes.
func WithMaxMessageSize(n int) Option {
	return func(s *Server) {
		s.maxMessage = n
	}
}

// WithServerInfo sets the name and version reported by initialize.
func WithServerInfo(name, version string) Option {
	return func(s *Server) {
		s.info = protocol.ServerInfo{Name: name, Version: version}
	}
}

// Server answers one LSP client.
//
// Description:
//
//	Messages are handled in arrival order on a single goroutine, so
//	document changes are always applied before the requests that follow
//	them. Diagnostics are pushed after didOpen and didChange.
//
// Thread Safety:
//
//	Serve may be called once. State is safe to call concurrently.
type Server struct {
	ws     *workspace.Workspace
	svc    *providers.Service
	logger *slog.Logger
	info   protocol.ServerInfo

	// encoding is the position encoding chosen by initialize.
	encoding string

	maxMessage int

	requests      map[string]requestHandler
	notifications map[string]notificationHandler

	conn *protocol.Conn

	mu      sync.Mutex
	state   ServerState
	serving bool
}

// NewServer creates a server over ws. svc must resolve against ws.
func NewServer(ws *workspace.Workspace, svc *providers.Service, opts ...Option) *Server {
	s := &Server{
		ws:     ws,
		svc:    svc,
		logger: slog.Default(),
		info:   protocol.ServerInfo{Name: "zsls"},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.requests = map[string]requestHandler{
		"shutdown":                         s.shutdown,
		"textDocument/hover":               s.hover,
		"textDocument/definition":          s.declaration,
		"textDocument/declaration":         s.declaration,
		"textDocument/completion":          s.completion,
		"textDocument/documentSymbol":      s.documentSymbol,
		"textDocument/semanticTokens/full": s.semanticTokens,
	}
	s.notifications = map[string]notificationHandler{
		"initialized":            s.initialized,
		"textDocument/didOpen":   s.didOpen,
		"textDocument/didChange": s.didChange,
		"textDocument/didClose":  s.didClose,
		"textDocument/didSave":   s.didSave,
	}
	return s
}

// State returns the lifecycle state.
func (s *Server) State() ServerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Server) setState(state ServerState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

type readResult struct {
	msg *protocol.Message
	err error
}

// Serve reads requests from r and writes responses to w until the client
// exits, r ends, or ctx is cancelled.
//
// Outputs:
//
//	error - nil after shutdown+exit or end of input;
//	        ErrExitWithoutShutdown when exit skipped shutdown; ctx.Err()
//	        on cancellation; a wrapped error for broken framing.
//
// Example:
//
//	srv := lsp.NewServer(ws, providers.New(resolver.New(ws)))
//	err := srv.Serve(ctx, os.Stdin, os.Stdout)
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	s.mu.Lock()
	if s.serving {
		s.mu.Unlock()
		return ErrServerRunning
	}
	s.serving = true
	s.conn = protocol.NewConn(r, w, protocol.WithMaxContentLength(s.maxMessage))
	s.mu.Unlock()

	done := make(chan struct{})
	defer close(done)
	msgs := make(chan readResult)
	go s.readLoop(msgs, done)

	s.logger.Info("lsp: serving")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rr := <-msgs:
			if rr.err != nil {
				if errors.Is(rr.err, io.EOF) {
					s.logger.Info("lsp: input closed")
					return nil
				}
				if errors.Is(rr.err, protocol.ErrMalformedBody) {
					s.logger.Warn("lsp: malformed message", slog.String("error", rr.err.Error()))
					if err := s.conn.ReplyError(nil, protocol.CodeParseError, "parse error"); err != nil {
						return fmt.Errorf("write response: %w", err)
					}
					continue
				}
				return fmt.Errorf("read message: %w", rr.err)
			}
			if exit, err := s.dispatch(ctx, rr.msg); exit {
				return err
			}
		}
	}
}

// readLoop feeds msgs until a read fails for good. A malformed body does
// not end the loop because the frame was consumed whole.
func (s *Server) readLoop(msgs chan<- readResult, done <-chan struct{}) {
	for {
		msg, err := s.conn.Read()
		select {
		case msgs <- readResult{msg: msg, err: err}:
		case <-done:
			return
		}
		if err != nil && !errors.Is(err, protocol.ErrMalformedBody) {
			return
		}
	}
}

// dispatch handles one message. exit reports that Serve must return err.
func (s *Server) dispatch(ctx context.Context, msg *protocol.Message) (exit bool, err error) {
	if msg.Method == "" {
		// A response; zsls sends no requests of its own.
		return false, nil
	}
	start := time.Now()
	ctx, span := startRequestSpan(ctx, msg.Method)
	defer span.End()

	if msg.Method == "exit" {
		recordRequest(ctx, msg.Method, "notification", time.Since(start))
		s.logger.Info("lsp: exit", slog.String("state", s.State().String()))
		if s.State() == StateShutdown {
			return true, nil
		}
		return true, ErrExitWithoutShutdown
	}

	if msg.IsNotification() {
		s.notify(ctx, msg)
		recordRequest(ctx, msg.Method, "notification", time.Since(start))
		return false, nil
	}

	result, rerr := s.call(ctx, msg)
	status := "ok"
	if rerr != nil {
		status = "error"
		span.SetStatus(codes.Error, rerr.Message)
		err = s.conn.ReplyError(msg.ID, rerr.Code, rerr.Message)
	} else {
		err = s.conn.Reply(msg.ID, result)
	}
	recordRequest(ctx, msg.Method, status, time.Since(start))
	if err != nil {
		return true, fmt.Errorf("write response: %w", err)
	}
	return false, nil
}

func (s *Server) call(ctx context.Context, msg *protocol.Message) (interface{}, *protocol.ResponseError) {
	state := s.State()
	switch {
	case msg.Method == "initialize":
		if state != StateUninitialized {
			return nil, requestError(protocol.CodeInvalidRequest, "server already initialized")
		}
		return s.initialize(ctx, msg.Params)
	case state == StateUninitialized:
		return nil, requestError(protocol.CodeServerNotInitialized, "server not initialized")
	case state == StateShutdown:
		return nil, requestError(protocol.CodeInvalidRequest, "server is shutting down")
	}

	h, ok := s.requests[msg.Method]
	if !ok {
		return nil, requestError(protocol.CodeMethodNotFound, "method not found: "+msg.Method)
	}
	return h(ctx, msg.Params)
}

func (s *Server) notify(ctx context.Context, msg *protocol.Message) {
	if s.State() != StateRunning {
		s.logger.Debug("lsp: notification dropped",
			slog.String("method", msg.Method),
			slog.String("state", s.State().String()))
		return
	}
	h, ok := s.notifications[msg.Method]
	if !ok {
		s.logger.Debug("lsp: notification ignored", slog.String("method", msg.Method))
		return
	}
	if err := h(ctx, msg.Params); err != nil {
		s.logger.Warn("lsp: notification failed",
			slog.String("method", msg.Method),
			slog.String("error", err.Error()))
	}
}

// decode unmarshals request params. Absent or null params are an error.
func decode(raw json.RawMessage, v interface{}) *protocol.ResponseError {
	if len(raw) == 0 || string(raw) == "null" {
		return invalidParams(errors.New("missing params"))
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return invalidParams(err)
	}
	return nil
}

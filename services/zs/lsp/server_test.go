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
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/zsls/services/zs/protocol"
	"github.com/AleutianAI/zsls/services/zs/providers"
	"github.com/AleutianAI/zsls/services/zs/resolver"
	"github.com/AleutianAI/zsls/services/zs/workspace"
)

// client drives a Server through in-memory pipes.
type client struct {
	t    *testing.T
	conn *protocol.Conn
	in   *io.PipeWriter
	ws   *workspace.Workspace
	done chan error
	dir  string
}

func start(t *testing.T) *client {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sys"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sys", "system.zi"), []byte("void print(str s);\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.zs"), []byte("class Lib { int size; }\n"), 0o644))

	ws := workspace.New(workspace.Config{})
	srv := NewServer(ws, providers.New(resolver.New(ws)), WithServerInfo("zsls", "test"))

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	c := &client{t: t, conn: protocol.NewConn(outR, inW), in: inW, ws: ws, done: make(chan error, 1), dir: dir}
	go func() {
		c.done <- srv.Serve(context.Background(), inR, outW)
		outW.Close()
	}()
	t.Cleanup(func() { inW.Close() })
	return c
}

func (c *client) send(msg map[string]interface{}) {
	c.t.Helper()
	msg["jsonrpc"] = "2.0"
	require.NoError(c.t, c.conn.Write(msg))
}

func (c *client) request(id int, method string, params interface{}) *protocol.Message {
	c.t.Helper()
	c.send(map[string]interface{}{"id": id, "method": method, "params": params})
	return c.read()
}

func (c *client) notify(method string, params interface{}) {
	c.t.Helper()
	c.send(map[string]interface{}{"method": method, "params": params})
}

func (c *client) read() *protocol.Message {
	c.t.Helper()
	msg, err := c.conn.Read()
	require.NoError(c.t, err)
	return msg
}

func (c *client) diagnostics() protocol.PublishDiagnosticsParams {
	c.t.Helper()
	msg := c.read()
	require.Equal(c.t, "textDocument/publishDiagnostics", msg.Method)
	var params protocol.PublishDiagnosticsParams
	require.NoError(c.t, json.Unmarshal(msg.Params, &params))
	return params
}

func (c *client) initialize() {
	c.t.Helper()
	resp := c.request(1, "initialize", map[string]interface{}{
		"processId":             nil,
		"rootUri":               protocol.PathToURI(c.dir),
		"initializationOptions": map[string]interface{}{"systemRoot": filepath.Join(c.dir, "sys")},
	})
	require.Nil(c.t, resp.Error)
	c.notify("initialized", map[string]interface{}{})
}

func (c *client) wait() error {
	c.t.Helper()
	select {
	case err := <-c.done:
		return err
	case <-time.After(5 * time.Second):
		c.t.Fatal("server did not exit")
		return nil
	}
}

func textDoc(uri string) map[string]interface{} {
	return map[string]interface{}{"uri": uri}
}

func at(uri string, line, character int) map[string]interface{} {
	return map[string]interface{}{
		"textDocument": textDoc(uri),
		"position":     map[string]interface{}{"line": line, "character": character},
	}
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestServer_RequiresInitialize(t *testing.T) {
	c := start(t)

	// Dropped: no publishDiagnostics may precede the next response.
	c.notify("textDocument/didOpen", map[string]interface{}{
		"textDocument": map[string]interface{}{"uri": "file:///x.zs", "languageId": "zs", "version": 1, "text": "int a"},
	})

	resp := c.request(7, "textDocument/hover", at("file:///x.zs", 0, 0))
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.CodeServerNotInitialized, resp.Error.Code)
	assert.JSONEq(t, "7", string(resp.ID))
}

func TestServer_Initialize(t *testing.T) {
	c := start(t)
	resp := c.request(1, "initialize", map[string]interface{}{
		"processId": 42,
		"rootUri":   protocol.PathToURI(c.dir),
		"initializationOptions": map[string]interface{}{
			"systemRoot":  filepath.Join(c.dir, "sys"),
			"includeDirs": []string{"inc"},
		},
	})
	require.Nil(t, resp.Error)

	var result protocol.InitializeResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	caps := result.Capabilities
	assert.True(t, caps.HoverProvider)
	assert.True(t, caps.DeclarationProvider)
	assert.Equal(t, protocol.TextDocumentSyncKindFull, caps.TextDocumentSync.Change)
	require.NotNil(t, caps.CompletionProvider)
	assert.Equal(t, []string{"."}, caps.CompletionProvider.TriggerCharacters)
	require.NotNil(t, caps.SemanticTokensProvider)
	assert.Equal(t, providers.TokenTypes, caps.SemanticTokensProvider.Legend.TokenTypes)
	require.NotNil(t, result.ServerInfo)
	assert.Equal(t, "zsls", result.ServerInfo.Name)

	cfg := c.ws.Config()
	assert.Equal(t, c.dir, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(c.dir, "sys"), cfg.SystemRoot)
	assert.Equal(t, []string{"inc"}, cfg.IncludeDirs)

	again := c.request(2, "initialize", map[string]interface{}{})
	require.NotNil(t, again.Error)
	assert.Equal(t, protocol.CodeInvalidRequest, again.Error.Code)
}

func TestServer_UnknownMethod(t *testing.T) {
	c := start(t)
	c.initialize()

	c.notify("$/setTrace", map[string]interface{}{"value": "off"})
	resp := c.request(2, "workspace/symbol", map[string]interface{}{"query": ""})
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.CodeMethodNotFound, resp.Error.Code)
	assert.JSONEq(t, "2", string(resp.ID))
}

func TestServer_InvalidParams(t *testing.T) {
	c := start(t)
	c.initialize()

	resp := c.request(2, "textDocument/hover", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.CodeInvalidParams, resp.Error.Code)

	resp = c.request(3, "textDocument/hover", at(protocol.PathToURI(filepath.Join(c.dir, "nope.zs")), 0, 0))
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.CodeInvalidParams, resp.Error.Code)
}

func TestServer_MalformedBodyGetsParseError(t *testing.T) {
	c := start(t)
	_, err := io.WriteString(c.in, "Content-Length: 5\r\n\r\nnope!")
	require.NoError(t, err)

	resp := c.read()
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.CodeParseError, resp.Error.Code)
	assert.Equal(t, "null", string(resp.ID))

	// The stream is still usable.
	c.initialize()
}

func TestServer_ShutdownThenExit(t *testing.T) {
	c := start(t)
	c.initialize()

	resp := c.request(2, "shutdown", nil)
	require.Nil(t, resp.Error)
	assert.Equal(t, "null", string(resp.Result))

	after := c.request(3, "textDocument/hover", at("file:///x.zs", 0, 0))
	require.NotNil(t, after.Error)
	assert.Equal(t, protocol.CodeInvalidRequest, after.Error.Code)

	c.notify("exit", nil)
	assert.NoError(t, c.wait())
}

func TestServer_ExitWithoutShutdown(t *testing.T) {
	c := start(t)
	c.initialize()
	c.notify("exit", nil)
	assert.ErrorIs(t, c.wait(), ErrExitWithoutShutdown)
}

func TestServer_EndOfInput(t *testing.T) {
	c := start(t)
	require.NoError(t, c.in.Close())
	assert.NoError(t, c.wait())
}

func TestServer_ServeTwice(t *testing.T) {
	ws := workspace.New(workspace.Config{})
	srv := NewServer(ws, providers.New(resolver.New(ws)))
	srv.serving = true
	assert.ErrorIs(t, srv.Serve(context.Background(), nil, io.Discard), ErrServerRunning)
	assert.Equal(t, "uninitialized", srv.State().String())
}

func TestServer_CancelledContext(t *testing.T) {
	ws := workspace.New(workspace.Config{})
	srv := NewServer(ws, providers.New(resolver.New(ws)))
	inR, inW := io.Pipe()
	defer inW.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, srv.Serve(ctx, inR, io.Discard), context.Canceled)
}

// =============================================================================
// DOCUMENTS & FEATURES
// =============================================================================

func TestServer_DocumentLifecycle(t *testing.T) {
	c := start(t)
	c.initialize()

	path := filepath.Join(c.dir, "main.zs")
	uri := protocol.PathToURI(path)

	c.notify("textDocument/didOpen", map[string]interface{}{
		"textDocument": map[string]interface{}{"uri": uri, "languageId": "zs", "version": 1, "text": "int a\n"},
	})
	diags := c.diagnostics()
	assert.Equal(t, uri, diags.URI)
	require.NotNil(t, diags.Version)
	assert.Equal(t, 1, *diags.Version)
	require.Len(t, diags.Diagnostics, 1)
	assert.Equal(t, `missing ";"`, diags.Diagnostics[0].Message)

	assert.True(t, c.ws.IsOpen(path))

	text := "#include \"lib.zs\"\nLib l;\nint n = l.size;\nprint(\"x\");\nl.\n"
	c.notify("textDocument/didChange", map[string]interface{}{
		"textDocument":   map[string]interface{}{"uri": uri, "version": 2},
		"contentChanges": []map[string]interface{}{{"text": text}},
	})
	diags = c.diagnostics()
	assert.Equal(t, 2, *diags.Version)

	resp := c.request(10, "textDocument/hover", at(uri, 2, 11))
	require.Nil(t, resp.Error)
	var hover protocol.Hover
	require.NoError(t, json.Unmarshal(resp.Result, &hover))
	assert.Equal(t, "```zs\n(field) Lib.int size\n```", hover.Contents.Value)
	// didOpen preloaded the system file.
	assert.Contains(t, c.ws.Paths(), filepath.Join(c.dir, "sys", "system.zi"))

	resp = c.request(11, "textDocument/definition", at(uri, 3, 1))
	require.Nil(t, resp.Error)
	var locs []protocol.Location
	require.NoError(t, json.Unmarshal(resp.Result, &locs))
	require.Len(t, locs, 1)
	assert.Equal(t, protocol.PathToURI(filepath.Join(c.dir, "sys", "system.zi")), locs[0].URI)

	resp = c.request(12, "textDocument/declaration", at(uri, 1, 0))
	require.Nil(t, resp.Error)
	require.NoError(t, json.Unmarshal(resp.Result, &locs))
	require.Len(t, locs, 1)
	assert.Equal(t, protocol.PathToURI(filepath.Join(c.dir, "lib.zs")), locs[0].URI)

	resp = c.request(13, "textDocument/completion", at(uri, 4, 2))
	require.Nil(t, resp.Error)
	var items []protocol.CompletionItem
	require.NoError(t, json.Unmarshal(resp.Result, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "size", items[0].Label)

	resp = c.request(14, "textDocument/documentSymbol", map[string]interface{}{"textDocument": textDoc(uri)})
	require.Nil(t, resp.Error)
	var syms []protocol.DocumentSymbol
	require.NoError(t, json.Unmarshal(resp.Result, &syms))
	require.Len(t, syms, 2)
	assert.Equal(t, "l", syms[0].Name)

	resp = c.request(15, "textDocument/semanticTokens/full", map[string]interface{}{"textDocument": textDoc(uri)})
	require.Nil(t, resp.Error)
	var tokens protocol.SemanticTokens
	require.NoError(t, json.Unmarshal(resp.Result, &tokens))
	assert.NotEmpty(t, tokens.Data)
	assert.Zero(t, len(tokens.Data)%5)

	resp = c.request(16, "textDocument/hover", at(uri, 2, 6))
	require.Nil(t, resp.Error)
	assert.Equal(t, "null", string(resp.Result))

	c.notify("textDocument/didClose", map[string]interface{}{"textDocument": textDoc(uri)})
	diags = c.diagnostics()
	assert.Empty(t, diags.Diagnostics)
	assert.Nil(t, diags.Version)
	assert.False(t, c.ws.IsOpen(path))
}

func TestServer_DidSaveWithText(t *testing.T) {
	c := start(t)
	c.initialize()

	uri := protocol.PathToURI(filepath.Join(c.dir, "main.zs"))
	c.notify("textDocument/didOpen", map[string]interface{}{
		"textDocument": map[string]interface{}{"uri": uri, "languageId": "zs", "version": 4, "text": "int a;\n"},
	})
	assert.Empty(t, c.diagnostics().Diagnostics)

	c.notify("textDocument/didSave", map[string]interface{}{"textDocument": textDoc(uri), "text": "int b\n"})
	diags := c.diagnostics()
	assert.Equal(t, 4, *diags.Version)
	assert.Len(t, diags.Diagnostics, 1)

	// Without text there is nothing to re-parse and nothing is published.
	c.notify("textDocument/didSave", map[string]interface{}{"textDocument": textDoc(uri)})
	resp := c.request(9, "shutdown", nil)
	assert.JSONEq(t, "9", string(resp.ID))
}

func TestClientRoot(t *testing.T) {
	assert.Equal(t, "/a", clientRoot(protocol.InitializeParams{RootURI: "file:///a", RootPath: "/b"}))
	assert.Equal(t, "/b", clientRoot(protocol.InitializeParams{RootPath: "/b"}))
	assert.Equal(t, "/c", clientRoot(protocol.InitializeParams{
		WorkspaceFolders: []protocol.WorkspaceFolder{{URI: "file:///c", Name: "c"}},
	}))
	assert.Empty(t, clientRoot(protocol.InitializeParams{}))
}

// =============================================================================
// POSITION ENCODING
// =============================================================================

// wideText puts a multi-byte comment before both a's. Byte columns past
// the comment exceed UTF-16 columns by 3.
const wideText = "/* é𝄞 */ int a; int b = a;\n"

func (c *client) initializeWith(capabilities map[string]interface{}) protocol.InitializeResult {
	c.t.Helper()
	resp := c.request(1, "initialize", map[string]interface{}{
		"processId":    nil,
		"rootUri":      protocol.PathToURI(c.dir),
		"capabilities": capabilities,
	})
	require.Nil(c.t, resp.Error)
	var result protocol.InitializeResult
	require.NoError(c.t, json.Unmarshal(resp.Result, &result))
	c.notify("initialized", map[string]interface{}{})
	return result
}

func (c *client) openWide() string {
	c.t.Helper()
	uri := protocol.PathToURI(filepath.Join(c.dir, "wide.zs"))
	c.notify("textDocument/didOpen", map[string]interface{}{
		"textDocument": map[string]interface{}{"uri": uri, "languageId": "zs", "version": 1, "text": wideText},
	})
	assert.Empty(c.t, c.diagnostics().Diagnostics)
	return uri
}

func (c *client) definition(id int, uri string, line, character int) []protocol.Location {
	c.t.Helper()
	resp := c.request(id, "textDocument/definition", at(uri, line, character))
	require.Nil(c.t, resp.Error)
	var locs []protocol.Location
	require.NoError(c.t, json.Unmarshal(resp.Result, &locs))
	return locs
}

func TestServer_PositionEncodingDefaultsToUTF16(t *testing.T) {
	c := start(t)
	result := c.initializeWith(map[string]interface{}{})
	assert.Equal(t, protocol.PositionEncodingUTF16, result.Capabilities.PositionEncoding)

	uri := c.openWide()
	locs := c.definition(2, uri, 0, 25)
	require.Len(t, locs, 1)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 0, Character: 14},
		End:   protocol.Position{Line: 0, Character: 15},
	}, locs[0].Range)

	resp := c.request(3, "textDocument/documentSymbol", map[string]interface{}{"textDocument": textDoc(uri)})
	require.Nil(t, resp.Error)
	var syms []protocol.DocumentSymbol
	require.NoError(t, json.Unmarshal(resp.Result, &syms))
	require.NotEmpty(t, syms)
	assert.Equal(t, "a", syms[0].Name)
	assert.Equal(t, 14, syms[0].SelectionRange.Start.Character)
}

func TestServer_PositionEncodingUTF8WhenOffered(t *testing.T) {
	c := start(t)
	result := c.initializeWith(map[string]interface{}{
		"general": map[string]interface{}{"positionEncodings": []string{"utf-8", "utf-16"}},
	})
	assert.Equal(t, protocol.PositionEncodingUTF8, result.Capabilities.PositionEncoding)

	uri := c.openWide()
	locs := c.definition(2, uri, 0, 28)
	require.Len(t, locs, 1)
	assert.Equal(t, 17, locs[0].Range.Start.Character)
	assert.Equal(t, 18, locs[0].Range.End.Character)
}

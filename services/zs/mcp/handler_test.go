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
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/zsls/services/zs/providers"
	"github.com/AleutianAI/zsls/services/zs/resolver"
	"github.com/AleutianAI/zsls/services/zs/workspace"
)

func newHandler(t *testing.T) (*Handler, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.zs"),
		[]byte("enum Color { Red, Green }\nColor c = Color.Green;\n"), 0o644))
	ws := workspace.New(workspace.Config{ProjectRoot: dir})
	return NewHandler(ws, providers.New(resolver.New(ws)), nil), dir
}

func call(name string, args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return tc.Text
}

func TestResolve(t *testing.T) {
	h, dir := newHandler(t)
	res, err := h.Resolve(context.Background(), call(ToolResolve, map[string]interface{}{
		"path": "main.zs", "line": 1, "character": 17,
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var got providers.Result
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &got))
	assert.True(t, got.Resolved)
	assert.Equal(t, "enumerator", got.Kind)
	assert.Equal(t, "Green", got.Identifier)
	assert.Equal(t, filepath.Join(dir, "main.zs"), got.FilePath)
}

func TestHover(t *testing.T) {
	h, _ := newHandler(t)
	ctx := context.Background()

	res, err := h.Hover(ctx, call(ToolHover, map[string]interface{}{
		"path": "main.zs", "line": 1, "character": 17,
	}))
	require.NoError(t, err)
	assert.Equal(t, "```zs\n(enum member) Color.Green = 1\n```", text(t, res))

	res, err = h.Hover(ctx, call(ToolHover, map[string]interface{}{
		"path": "main.zs", "text": "int x;\n", "line": 0, "character": 0,
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Empty(t, text(t, res))
}

func TestArgumentErrors(t *testing.T) {
	h, _ := newHandler(t)
	ctx := context.Background()

	tests := []struct {
		name string
		fn   func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args map[string]interface{}
	}{
		{"missing line", h.Resolve, map[string]interface{}{"path": "main.zs", "character": 0}},
		{"negative character", h.Hover, map[string]interface{}{"path": "main.zs", "line": 0, "character": -2}},
		{"missing path", h.Exports, map[string]interface{}{}},
		{"missing file", h.Diagnostics, map[string]interface{}{"path": "nope.zs"}},
		{"missing text", h.Preprocess, map[string]interface{}{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.fn(ctx, call("tool", tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
		})
	}
}

func TestExports(t *testing.T) {
	h, _ := newHandler(t)
	res, err := h.Exports(context.Background(), call(ToolExports, map[string]interface{}{"path": "main.zs"}))
	require.NoError(t, err)

	var got struct {
		Exports []providers.ExportInfo `json:"exports"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &got))
	require.Len(t, got.Exports, 2)
	assert.Equal(t, "Color", got.Exports[0].Name)
	assert.Equal(t, "c", got.Exports[1].Name)
}

func TestDiagnostics(t *testing.T) {
	h, _ := newHandler(t)
	res, err := h.Diagnostics(context.Background(), call(ToolDiagnostics, map[string]interface{}{
		"path": "scratch.zs", "text": "class A {\n",
	}))
	require.NoError(t, err)

	var got struct {
		Diagnostics []struct {
			Message string `json:"message"`
		} `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &got))
	require.Len(t, got.Diagnostics, 1)
	assert.Equal(t, `missing "}"`, got.Diagnostics[0].Message)
}

func TestPreprocess(t *testing.T) {
	h, _ := newHandler(t)
	res, err := h.Preprocess(context.Background(), call(ToolPreprocess, map[string]interface{}{
		"text": "#if X\nint a;\n#endif\n",
	}))
	require.NoError(t, err)
	assert.Equal(t, "//#if X\nint a;\n//#endif\n", text(t, res))
}

func TestNew_RegistersTools(t *testing.T) {
	h, _ := newHandler(t)
	s := New(h, "test")

	resp := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var got struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	var names []string
	for _, tool := range got.Result.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{ToolResolve, ToolHover, ToolExports, ToolDiagnostics, ToolPreprocess}, names)
}

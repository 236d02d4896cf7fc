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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/zsls/services/zs/providers"
	"github.com/AleutianAI/zsls/services/zs/resolver"
	"github.com/AleutianAI/zsls/services/zs/workspace"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	ws     *workspace.Workspace
	dir    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.zs"),
		[]byte("class Shape { int area; }\nShape s;\nint a = s.area;\n"), 0o644))

	ws := workspace.New(workspace.Config{ProjectRoot: dir})
	h := NewHandlers(ws, providers.New(resolver.New(ws)), nil)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})
	router, err := NewRouter(h, "zsls-test", metrics)
	require.NoError(t, err)
	return &testServer{router: router, ws: ws, dir: dir}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestRoutesRegistered(t *testing.T) {
	s := newTestServer(t)
	want := map[string]bool{
		"POST /v1/zs/resolve":     false,
		"POST /v1/zs/hover":       false,
		"POST /v1/zs/exports":     false,
		"POST /v1/zs/diagnostics": false,
		"POST /v1/zs/preprocess":  false,
		"GET /v1/zs/health":       false,
		"GET /metrics":            false,
	}
	for _, r := range s.router.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, found := range want {
		assert.True(t, found, route)
	}
}

func TestHandleResolve(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/v1/zs/resolve", map[string]interface{}{
		"path": "main.zs", "line": 2, "character": 10,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var got providers.Result
	decodeBody(t, w, &got)
	assert.True(t, got.Resolved)
	assert.Equal(t, "field_declaration", got.Kind)
	assert.Equal(t, filepath.Join(s.dir, "main.zs"), got.FilePath)
	assert.Equal(t, "area", got.Identifier)
	require.NotNil(t, got.Range)
	assert.Equal(t, 0, got.Range.Start.Line)
	assert.Equal(t, 18, got.Range.Start.Character)
}

func TestHandleResolve_TextOverride(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/v1/zs/resolve", map[string]interface{}{
		"path": filepath.Join(s.dir, "unsaved.zs"), "text": "int x;\nint y = x;\n", "line": 1, "character": 8,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var got providers.Result
	decodeBody(t, w, &got)
	assert.True(t, got.Resolved)
	assert.Equal(t, "int x;", got.Declaration)

	// The text is now cached for later requests.
	assert.Contains(t, s.ws.Paths(), filepath.Join(s.dir, "unsaved.zs"))
}

func TestHandleResolve_Unresolved(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/v1/zs/resolve", map[string]interface{}{
		"path": "main.zs", "text": "int a = zzz;\n", "line": 0, "character": 9,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var got providers.Result
	decodeBody(t, w, &got)
	assert.False(t, got.Resolved)
	assert.Equal(t, "unresolved", got.Kind)
}

func TestHandleResolve_BadRequests(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{"missing line", map[string]interface{}{"path": "main.zs", "character": 0}, http.StatusBadRequest, CodeInvalidRequest},
		{"negative character", map[string]interface{}{"path": "main.zs", "line": 0, "character": -1}, http.StatusBadRequest, CodeInvalidRequest},
		{"not a zs file", map[string]interface{}{"path": "main.go", "line": 0, "character": 0}, http.StatusBadRequest, CodeInvalidRequest},
		{"missing file", map[string]interface{}{"path": "nope.zs", "line": 0, "character": 0}, http.StatusNotFound, CodeDocumentNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/v1/zs/resolve", tt.body)
			assert.Equal(t, tt.status, w.Code)
			var resp ErrorResponse
			decodeBody(t, w, &resp)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestHandleHover(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/v1/zs/hover", map[string]interface{}{
		"path": "main.zs", "line": 1, "character": 0,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var got HoverResponse
	decodeBody(t, w, &got)
	assert.Equal(t, "```zs\nclass Shape\n```", got.Contents)
	require.NotNil(t, got.Range)

	w = s.do(t, http.MethodPost, "/v1/zs/hover", map[string]interface{}{
		"path": "main.zs", "line": 2, "character": 6,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"contents":""}`, w.Body.String())
}

func TestHandleExports(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/v1/zs/exports", map[string]interface{}{"path": "main.zs"})
	require.Equal(t, http.StatusOK, w.Code)

	var got ExportsResponse
	decodeBody(t, w, &got)
	var names []string
	for _, e := range got.Exports {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"Shape", "s", "a"}, names)
	assert.Equal(t, "class_declaration", got.Exports[0].Kind)
}

func TestHandleDiagnostics(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/v1/zs/diagnostics", map[string]interface{}{
		"path": "broken.zs", "text": "int a\n",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var got DiagnosticsResponse
	decodeBody(t, w, &got)
	require.Len(t, got.Diagnostics, 1)
	assert.Equal(t, `missing ";"`, got.Diagnostics[0].Message)

	w = s.do(t, http.MethodPost, "/v1/zs/diagnostics", map[string]interface{}{"path": "main.zs"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"path":"`+filepath.Join(s.dir, "main.zs")+`","diagnostics":[]}`, w.Body.String())
}

func TestHandlePreprocess(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/v1/zs/preprocess", map[string]interface{}{
		"text": "#ifdef A\nint a;\n#else\nint b;\n#endif\n",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var got PreprocessResponse
	decodeBody(t, w, &got)
	assert.Equal(t, "//#ifdef A\n//int a;\n//#else\nint b;\n//#endif\n", got.Text)

	w = s.do(t, http.MethodPost, "/v1/zs/preprocess", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleHealth_RequestID(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/v1/zs/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	var got HealthResponse
	decodeBody(t, w, &got)
	assert.Equal(t, "ok", got.Status)

	w = s.do(t, http.MethodGet, "/v1/zs/health", nil, "X-Request-ID", "abc-123")
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "# metrics\n", w.Body.String())
}

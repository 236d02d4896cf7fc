// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package api is the zsls HTTP API: JSON endpoints over the same
// providers the language server uses.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RegisterRoutes registers the /zs endpoints under rg.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	h - The handlers instance
//
// Endpoints:
//
//	POST /v1/zs/resolve     - Resolve the name at a position
//	POST /v1/zs/hover       - Render the hover at a position
//	POST /v1/zs/exports     - List a file's exports
//	POST /v1/zs/diagnostics - List a file's syntax problems
//	POST /v1/zs/preprocess  - Normalize preprocessor branches
//	GET  /v1/zs/health      - Liveness
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	zs := rg.Group("/zs")
	zs.POST("/resolve", h.HandleResolve)
	zs.POST("/hover", h.HandleHover)
	zs.POST("/exports", h.HandleExports)
	zs.POST("/diagnostics", h.HandleDiagnostics)
	zs.POST("/preprocess", h.HandlePreprocess)
	zs.GET("/health", h.HandleHealth)
}

// NewRouter builds the instrumented engine. metrics, when non-nil, is
// served at /metrics.
func NewRouter(h *Handlers, serviceName string, metrics http.Handler) (*gin.Engine, error) {
	if err := registerValidators(); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))

	RegisterRoutes(router.Group("/v1"), h)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}
	return router, nil
}

// ListenAndServe serves handler on addr until ctx is cancelled, then
// drains in-flight requests for up to five seconds.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("HTTP API shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

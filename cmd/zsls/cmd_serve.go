// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/zsls/services/zs/api"
	"github.com/AleutianAI/zsls/services/zs/config"
	"github.com/AleutianAI/zsls/services/zs/lsp"
	zsmcp "github.com/AleutianAI/zsls/services/zs/mcp"
	"github.com/AleutianAI/zsls/services/zs/telemetry"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var noWatch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the language server over stdio",
		Long: `Run the LSP server on stdin and stdout.

Unless --project-root, ZSLS_PROJECT_ROOT, or the config file names one,
the project root is taken from the client's initialize request.`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not watch the project for changes on disk")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		adjust := func(cfg *config.Config) {
			if noWatch {
				cfg.Watch.Enabled = false
			}
			if cfg.ProjectRoot == "." && !cmd.Flags().Changed("project-root") && os.Getenv(config.EnvProjectRoot) == "" {
				cfg.ProjectRoot = ""
			}
		}
		return flags.runWith(cmd, adjust, func(ctx context.Context, rt *runtime) error {
			stopWatch := rt.watch(ctx, rt.cfg.ProjectRoot)
			defer stopWatch()

			srv := lsp.NewServer(rt.ws, rt.svc,
				lsp.WithLogger(rt.logger),
				lsp.WithServerInfo("zsls", version),
				lsp.WithMaxMessageSize(lspMessageLimit(rt.cfg.MaxFileSize)),
			)
			rt.logger.Info("language server starting", slog.String("version", version))
			err := srv.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
			switch {
			case errors.Is(err, lsp.ErrExitWithoutShutdown):
				return &exitError{code: 1, msg: err.Error()}
			case errors.Is(err, context.Canceled):
				return nil
			}
			return err
		})
	}
	return cmd
}

func newHTTPCmd(flags *rootFlags) *cobra.Command {
	var addr string
	var debug bool
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve the resolver as a JSON API",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8088)")
	cmd.Flags().BoolVar(&debug, "debug", false, "gin debug mode")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		adjust := func(cfg *config.Config) {
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
		}
		return flags.runWith(cmd, adjust, func(ctx context.Context, rt *runtime) error {
			if debug {
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}

			stopWatch := rt.watch(ctx, rt.cfg.ProjectRoot)
			defer stopWatch()

			handlers := api.NewHandlers(rt.ws, rt.svc, rt.logger)
			router, err := api.NewRouter(handlers, "zsls", telemetry.MetricsHandler())
			if err != nil {
				return err
			}
			if n, err := rt.preloadSystem(ctx); err == nil {
				rt.logger.Info("system exports loaded", slog.Int("files", n))
			}
			return api.ListenAndServe(ctx, rt.cfg.HTTP.Addr, router, rt.logger)
		})
	}
	return cmd
}

func newMCPCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve resolver tools over the Model Context Protocol (stdio)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.runWith(cmd, nil, func(ctx context.Context, rt *runtime) error {
				s := zsmcp.New(zsmcp.NewHandler(rt.ws, rt.svc, rt.logger), version)
				err := zsmcp.Serve(ctx, s, cmd.InOrStdin(), cmd.OutOrStdout())
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
}

// preloadSystem parses system.zi so the first request does not pay for it.
func (r *runtime) preloadSystem(ctx context.Context) (int, error) {
	path := r.ws.SystemPath()
	if path == "" {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return r.ws.Preload(ctx, path)
}

// lspMessageLimit bounds one LSP frame: a didOpen of the largest accepted
// document, escaped, plus the envelope.
func lspMessageLimit(maxFileSize int64) int {
	return int(2*maxFileSize) + 1<<20
}

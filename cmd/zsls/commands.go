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
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/zsls/pkg/logging"
	"github.com/AleutianAI/zsls/pkg/ux"
	"github.com/AleutianAI/zsls/services/zs/config"
	"github.com/AleutianAI/zsls/services/zs/parser"
	"github.com/AleutianAI/zsls/services/zs/providers"
	"github.com/AleutianAI/zsls/services/zs/resolver"
	"github.com/AleutianAI/zsls/services/zs/telemetry"
	"github.com/AleutianAI/zsls/services/zs/workspace"
)

// --- Global Flags ---
type rootFlags struct {
	configPath  string
	logLevel    string
	projectRoot string
	systemRoot  string
	includeDirs []string
	output      string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "zsls",
		Short:         "Language server and resolver for the ZS scripting language",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "path to a zsls.yaml file")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&flags.projectRoot, "project-root", "", "project root for include search")
	pf.StringVar(&flags.systemRoot, "system-root", "", "directory holding system.zi")
	pf.StringSliceVarP(&flags.includeDirs, "include", "I", nil, "extra include directory (repeatable)")
	pf.StringVar(&flags.output, "output", "", "output style: rich or plain (default: detect)")

	serve := newServeCmd(flags)
	root.AddCommand(
		serve,
		newHTTPCmd(flags),
		newMCPCmd(flags),
		newResolveCmd(flags),
		newExportsCmd(flags),
		newPreprocessCmd(flags),
		newDiagnoseCmd(flags),
	)

	// A bare `zsls` is what editors launch.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())
	return root
}

// loadConfig reads the config file and applies flag overrides.
func (f *rootFlags) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if cmd.Flags().Changed("project-root") {
		cfg.ProjectRoot = f.projectRoot
	}
	if f.systemRoot != "" {
		cfg.SystemRoot = f.systemRoot
	}
	if len(f.includeDirs) > 0 {
		cfg.IncludeDirs = append(cfg.IncludeDirs, f.includeDirs...)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (f *rootFlags) printer(cmd *cobra.Command) *ux.Printer {
	if f.output != "" {
		return ux.NewPrinterMode(cmd.OutOrStdout(), ux.ParseMode(f.output))
	}
	return ux.NewPrinter(cmd.OutOrStdout())
}

// =============================================================================
// RUNTIME
// =============================================================================

// runtime is the wired server stack shared by every subcommand.
type runtime struct {
	cfg    config.Config
	log    *logging.Logger
	logger *slog.Logger
	ws     *workspace.Workspace
	res    *resolver.Resolver
	svc    *providers.Service

	shutdownTelemetry func(context.Context) error
}

// newRuntime builds logging, telemetry, and the resolver stack from cfg.
// Logs always go to stderr; stdout belongs to the command's output.
func newRuntime(ctx context.Context, cmd *cobra.Command, cfg config.Config) (*runtime, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Log.Dir,
		Service: cmd.Name(),
		JSON:    cfg.Log.JSON,
		Writer:  cmd.ErrOrStderr(),
	})
	if err != nil {
		log.Slog().Warn("file logging disabled", slog.String("error", err.Error()))
	}
	logger := log.Slog()
	slog.SetDefault(logger)

	parse, err := workspace.NewParser(cfg.Parser, parser.WithMaxInputSize(int(cfg.MaxFileSize)))
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	tcfg := telemetry.DefaultConfig()
	tcfg.ServiceVersion = version
	tcfg.TraceExporter = cfg.Telemetry.TraceExporter
	tcfg.MetricExporter = cfg.Telemetry.MetricExporter
	if cfg.Telemetry.Prometheus && tcfg.MetricExporter == "none" {
		tcfg.MetricExporter = "prometheus"
	}
	if cfg.Telemetry.OTLPEndpoint != "" {
		tcfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	}
	tcfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	tcfg.Writer = cmd.ErrOrStderr()
	shutdown, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		_ = log.Close()
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	ws := workspace.New(cfg.Workspace(),
		workspace.WithLogger(logger),
		workspace.WithMaxFileSize(cfg.MaxFileSize),
		workspace.WithParser(parse),
	)
	res := resolver.New(ws, resolver.WithLogger(logger))
	return &runtime{
		cfg:               cfg,
		log:               log,
		logger:            logger,
		ws:                ws,
		res:               res,
		svc:               providers.New(res, providers.WithLogger(logger)),
		shutdownTelemetry: shutdown,
	}, nil
}

// Close flushes telemetry and the log file.
func (r *runtime) Close() {
	if err := r.shutdownTelemetry(context.Background()); err != nil {
		r.logger.Warn("telemetry shutdown", slog.String("error", err.Error()))
	}
	_ = r.log.Close()
}

// watch evicts cached documents under root as they change on disk. It
// returns a stop function, which is a no-op when watching is off.
func (r *runtime) watch(ctx context.Context, root string) func() {
	if !r.cfg.Watch.Enabled || root == "" {
		return func() {}
	}
	w, err := workspace.NewWatcher(r.ws, root, workspace.WithDebounce(r.cfg.Watch.Debounce))
	if err != nil {
		r.logger.Warn("file watching disabled", slog.String("error", err.Error()))
		return func() {}
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		r.logger.Warn("file watching disabled", slog.String("error", err.Error()))
		return func() {}
	}
	go func() {
		for batch := range w.Changes() {
			r.logger.Debug("workspace changed", slog.Int("files", len(batch)))
		}
	}()
	return w.Stop
}

// document loads path, relative to the working directory.
func (r *runtime) document(ctx context.Context, path string) (*workspace.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return r.ws.Get(ctx, abs)
}

// runWith loads the config, builds the runtime, and runs fn with it.
func (f *rootFlags) runWith(cmd *cobra.Command, adjust func(*config.Config), fn func(ctx context.Context, rt *runtime) error) error {
	cfg, err := f.loadConfig(cmd)
	if err != nil {
		return err
	}
	if adjust != nil {
		adjust(&cfg)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := newRuntime(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt)
}

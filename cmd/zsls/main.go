// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command zsls is the ZS language server.
//
// Usage:
//
//	zsls serve                       # LSP over stdio (default)
//	zsls http --addr :8088           # JSON API
//	zsls mcp                         # MCP tools over stdio
//	zsls resolve main.zs 12 5        # one-based line and column
//	zsls exports lib.zs
//	zsls diagnose src/*.zs
//	zsls preprocess main.zs
//
// Configuration comes from --config (YAML), then ZSLS_* environment
// variables, then flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		var exit *exitError
		if !errors.As(err, &exit) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(exitCode(err))
	}
}

// exitError ends the process with a code and no further message; the
// command has already reported the problem.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	return e.msg
}

func exitCode(err error) int {
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	return 1
}

var (
	errUnresolved  = &exitError{code: 1, msg: "unresolved"}
	errDiagnostics = &exitError{code: 1, msg: "diagnostics reported errors"}
)

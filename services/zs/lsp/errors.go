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
	"errors"

	"github.com/AleutianAI/zsls/services/zs/protocol"
)

var (
	// ErrExitWithoutShutdown indicates the client sent exit before
	// shutdown. Editors expect exit status 1 in that case.
	ErrExitWithoutShutdown = errors.New("exit without shutdown")

	// ErrServerRunning indicates Serve was called twice.
	ErrServerRunning = errors.New("server already running")
)

// requestError builds a JSON-RPC error for a handler to return.
func requestError(code int, message string) *protocol.ResponseError {
	return &protocol.ResponseError{Code: code, Message: message}
}

func invalidParams(err error) *protocol.ResponseError {
	return requestError(protocol.CodeInvalidParams, "invalid params: "+err.Error())
}

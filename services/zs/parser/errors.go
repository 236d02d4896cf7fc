// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package parser

import (
	"errors"
	"fmt"
)

// Sentinel errors for input the parser refuses outright.
//
// Syntax errors are never reported through these; they become ERROR and
// MISSING nodes in the returned tree.
var (
	// ErrInputTooLarge indicates the content exceeds the configured limit.
	ErrInputTooLarge = errors.New("input too large")

	// ErrInvalidUTF8 indicates the content is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("content is not valid UTF-8")

	// ErrContextCanceled indicates parsing was canceled via context.
	ErrContextCanceled = errors.New("parse canceled")
)

// ParseError describes why a file could not be parsed at all.
type ParseError struct {
	// FilePath is the file being parsed. May be empty for in-memory text.
	FilePath string

	// Line is the 1-indexed line of the failure, or 0 when not tied to one.
	Line int

	// Column is the 0-indexed byte column of the failure.
	Column int

	// Message describes the failure.
	Message string

	// Cause is one of the sentinel errors above, or a context error.
	Cause error
}

// Error formats the error as "file:line:col: message".
func (e *ParseError) Error() string {
	path := e.FilePath
	if path == "" {
		path = "<input>"
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", path, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", path, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

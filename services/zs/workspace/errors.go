// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workspace

import "errors"

var (
	// ErrDocumentNotFound indicates no buffer or file exists at the path.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrImportNotFound indicates an include target matched no search root.
	ErrImportNotFound = errors.New("import not found")

	// ErrFileTooLarge indicates a file exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrEmptyPath indicates an empty document path.
	ErrEmptyPath = errors.New("empty path")

	// ErrWatcherStarted indicates Start was called twice.
	ErrWatcherStarted = errors.New("watcher already started")

	// ErrUnknownParser indicates a parser backend name NewParser does not
	// know.
	ErrUnknownParser = errors.New("unknown parser backend")
)

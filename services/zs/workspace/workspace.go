// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package workspace caches parsed ZS documents and walks their include
// graph.
//
// Documents come from two places: editor buffers (Open, Set) and storage,
// read lazily through afs. Every cached document holds normalized text and
// the tree parsed from it.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/viant/afs"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/zsls/services/zs/parser"
	"github.com/AleutianAI/zsls/services/zs/preprocess"
	"github.com/AleutianAI/zsls/services/zs/syntax"
)

// DefaultSystemEntry is the file whose exports are visible everywhere.
const DefaultSystemEntry = "system.zi"

// Config holds the include search roots.
type Config struct {
	// ProjectRoot is searched after the including file's directory.
	ProjectRoot string

	// SystemRoot holds the standard library and SystemEntry.
	SystemRoot string

	// IncludeDirs are searched last. Relative entries are taken relative
	// to ProjectRoot.
	IncludeDirs []string

	// SystemEntry is the file under SystemRoot appended to every import
	// walk. Defaults to DefaultSystemEntry.
	SystemEntry string
}

// Document is one cached ZS file.
type Document struct {
	// Path is absolute and clean.
	Path string

	// Raw is the text as read or as sent by the editor.
	Raw string

	// Text is Raw after preprocessor normalization. Tree spans index it.
	Text string

	Tree *syntax.Tree

	// Version is the editor version; zero for disk-backed documents.
	Version int

	// Open reports whether an editor buffer owns the document.
	Open bool

	LoadedAt time.Time
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithFileService sets the storage used for lazy loads.
func WithFileService(fs afs.Service) Option {
	return func(w *Workspace) {
		if fs != nil {
			w.fs = fs
		}
	}
}

// Parser turns normalized source into a syntax tree. *parser.Parser and
// *syntax.SitterParser implement it.
type Parser interface {
	Parse(ctx context.Context, content []byte, filePath string) (*syntax.Tree, error)
}

// WithParser sets the parser.
func WithParser(p Parser) Option {
	return func(w *Workspace) {
		if p != nil {
			w.parser = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workspace) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithMaxFileSize caps the size of files read from storage.
func WithMaxFileSize(n int64) Option {
	return func(w *Workspace) {
		if n > 0 {
			w.maxFileSize = n
		}
	}
}

// Workspace is the document cache shared by all transports.
//
// Thread Safety:
//
//	Safe for concurrent use. Concurrent loads of one path share a single
//	read and parse.
type Workspace struct {
	cfg         Config
	fs          afs.Service
	parser      Parser
	logger      *slog.Logger
	maxFileSize int64

	mu     sync.RWMutex
	docs   map[string]*Document
	flight singleflight.Group
}

// New creates a Workspace.
func New(cfg Config, opts ...Option) *Workspace {
	if cfg.SystemEntry == "" {
		cfg.SystemEntry = DefaultSystemEntry
	}
	w := &Workspace{
		cfg:         cfg,
		fs:          afs.New(),
		parser:      parser.New(),
		logger:      slog.Default(),
		maxFileSize: parser.DefaultMaxInputSize,
		docs:        make(map[string]*Document),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.cfg.ProjectRoot = cleanPath(w.cfg.ProjectRoot)
	w.cfg.SystemRoot = cleanPath(w.cfg.SystemRoot)
	return w
}

// Config returns the search configuration.
func (w *Workspace) Config() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	cfg := w.cfg
	cfg.IncludeDirs = append([]string(nil), cfg.IncludeDirs...)
	return cfg
}

// SetConfig replaces the search configuration. Cached documents are kept.
func (w *Workspace) SetConfig(cfg Config) {
	if cfg.SystemEntry == "" {
		cfg.SystemEntry = DefaultSystemEntry
	}
	cfg.ProjectRoot = cleanPath(cfg.ProjectRoot)
	cfg.SystemRoot = cleanPath(cfg.SystemRoot)
	w.mu.Lock()
	w.cfg = cfg
	w.mu.Unlock()
}

func cleanPath(p string) string {
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// Parse normalizes and parses text without caching it.
func (w *Workspace) Parse(ctx context.Context, path, text string) (*Document, error) {
	normalized := preprocess.Normalize(text)
	tree, err := w.parser.Parse(ctx, []byte(normalized), path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &Document{
		Path:     path,
		Raw:      text,
		Text:     normalized,
		Tree:     tree,
		LoadedAt: time.Now(),
	}, nil
}

// Get returns the document at path, reading it from storage on first use.
//
// Description:
//
//	Cached documents are returned as is. Otherwise the file is read
//	through afs, normalized and parsed; concurrent callers for the same
//	path wait on one load.
//
// Outputs:
//
//	*Document - The cached document. Callers must not mutate it.
//	error     - ErrDocumentNotFound, ErrFileTooLarge, or a wrapped parse
//	            or storage error.
func (w *Workspace) Get(ctx context.Context, path string) (*Document, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	path = cleanPath(path)

	w.mu.RLock()
	doc, ok := w.docs[path]
	w.mu.RUnlock()
	recordLookup(ctx, ok)
	if ok {
		return doc, nil
	}

	v, err, _ := w.flight.Do(path, func() (interface{}, error) {
		return w.load(ctx, path)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Document), nil
}

func (w *Workspace) load(ctx context.Context, path string) (*Document, error) {
	start := time.Now()
	ctx, span := startLoadSpan(ctx, path)
	defer span.End()

	doc, err := w.read(ctx, path)
	recordLoad(ctx, time.Since(start), err == nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	// An editor buffer opened during the read wins.
	if cur, ok := w.docs[path]; ok {
		return cur, nil
	}
	w.docs[path] = doc
	w.logger.Debug("document loaded",
		slog.String("path", path),
		slog.Int("bytes", len(doc.Raw)),
		slog.Duration("duration", time.Since(start)))
	return doc, nil
}

func (w *Workspace) read(ctx context.Context, path string) (*Document, error) {
	exists, err := w.fs.Exists(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w", path, ErrDocumentNotFound)
	}
	obj, err := w.fs.Object(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if obj.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", path, ErrDocumentNotFound)
	}
	if obj.Size() > w.maxFileSize {
		return nil, fmt.Errorf("%s is %d bytes: %w", path, obj.Size(), ErrFileTooLarge)
	}
	data, err := w.fs.DownloadWithURL(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return w.Parse(ctx, path, string(data))
}

// Tree returns the parsed tree of the document at path.
func (w *Workspace) Tree(ctx context.Context, path string) (*syntax.Tree, error) {
	doc, err := w.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return doc.Tree, nil
}

// Set replaces the document at path with text, keeping its editor state.
func (w *Workspace) Set(ctx context.Context, path, text string) (*Document, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	path = cleanPath(path)
	doc, err := w.Parse(ctx, path, text)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if prev, ok := w.docs[path]; ok {
		doc.Open = prev.Open
		doc.Version = prev.Version
	}
	w.docs[path] = doc
	return doc, nil
}

// Open records an editor buffer for path. Until Close, the watcher will
// not evict it.
func (w *Workspace) Open(ctx context.Context, path, text string, version int) (*Document, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	path = cleanPath(path)
	doc, err := w.Parse(ctx, path, text)
	if err != nil {
		return nil, err
	}
	doc.Open = true
	doc.Version = version

	w.mu.Lock()
	w.docs[path] = doc
	w.mu.Unlock()
	return doc, nil
}

// Close releases editor ownership of path and drops the buffer, so the
// next Get reads storage again.
func (w *Workspace) Close(path string) {
	path = cleanPath(path)
	w.mu.Lock()
	delete(w.docs, path)
	w.mu.Unlock()
	w.flight.Forget(path)
}

// IsOpen reports whether an editor buffer owns path.
func (w *Workspace) IsOpen(path string) bool {
	path = cleanPath(path)
	w.mu.RLock()
	defer w.mu.RUnlock()
	doc, ok := w.docs[path]
	return ok && doc.Open
}

// Invalidate drops a disk-backed document. Open buffers are kept.
// It reports whether an entry was removed.
func (w *Workspace) Invalidate(path string) bool {
	path = cleanPath(path)
	w.mu.Lock()
	defer w.mu.Unlock()
	doc, ok := w.docs[path]
	if !ok || doc.Open {
		return false
	}
	delete(w.docs, path)
	w.flight.Forget(path)
	return true
}

// Paths returns the cached document paths, sorted.
func (w *Workspace) Paths() []string {
	w.mu.RLock()
	out := make([]string, 0, len(w.docs))
	for p := range w.docs {
		out = append(out, p)
	}
	w.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Reset drops every cached document, including open buffers.
func (w *Workspace) Reset() {
	w.mu.Lock()
	w.docs = make(map[string]*Document)
	w.mu.Unlock()
}

func (w *Workspace) cached(path string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.docs[path]
	return ok
}

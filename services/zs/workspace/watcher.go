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

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for more events before
// evicting a batch.
const DefaultDebounce = 100 * time.Millisecond

// FileChange is one debounced change to a ZS source file.
type FileChange struct {
	Path string
	Op   FileOp

	// Evicted reports whether the change dropped a cached document.
	Evicted bool
}

// FileOp is the kind of change.
type FileOp int

const (
	FileOpCreate FileOp = iota
	FileOpWrite
	FileOpRemove
	FileOpRename
)

// String returns the operation name.
func (op FileOp) String() string {
	switch op {
	case FileOpCreate:
		return "create"
	case FileOpWrite:
		return "write"
	case FileOpRemove:
		return "remove"
	case FileOpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the debounce window.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithSkipDirs sets directory names that are never watched, in addition
// to hidden directories.
func WithSkipDirs(names ...string) WatcherOption {
	return func(w *Watcher) {
		w.skipDirs = names
	}
}

// Watcher evicts cached documents when their files change on disk.
//
// Description:
//
//	Watches a directory tree with fsnotify. Events on .zs and .zi files are
//	collected until the debounce window passes without new events; the
//	batch is then deduplicated per path, disk-backed documents are evicted
//	from the workspace, and the batch is sent on Changes. Editor buffers
//	are never evicted.
//
// Thread Safety:
//
//	Safe for concurrent use. Batches are delivered from one goroutine.
type Watcher struct {
	ws       *Workspace
	root     string
	fsw      *fsnotify.Watcher
	debounce time.Duration
	skipDirs []string
	logger   *slog.Logger

	events   chan FileChange
	out      chan []FileChange
	done     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	started bool
}

// NewWatcher creates a watcher over root that evicts from ws.
//
// Call Start to begin watching and Stop to release the fsnotify handle.
func NewWatcher(ws *Workspace, root string, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		ws:       ws,
		root:     cleanPath(root),
		fsw:      fsw,
		debounce: DefaultDebounce,
		skipDirs: []string{"node_modules", "vendor"},
		logger:   ws.logger,
		events:   make(chan FileChange, 1000),
		out:      make(chan []FileChange, 16),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Changes delivers evicted batches. It is closed when the watcher stops.
// A slow reader misses batches rather than blocking eviction.
func (w *Watcher) Changes() <-chan []FileChange {
	return w.out
}

// Start adds root and its subdirectories and begins processing events.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return ErrWatcherStarted
	}
	w.started = true
	w.mu.Unlock()

	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	go w.processEvents(ctx)
	go w.debounceLoop(ctx)

	w.logger.Info("watching workspace", slog.String("root", w.root))
	return nil
}

// Stop ends watching. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("closing watcher", slog.String("error", err.Error()))
		}
	})
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, s := range w.skipDirs {
		if name == s {
			return true
		}
	}
	return false
}

func isSource(path string) bool {
	switch filepath.Ext(path) {
	case ".zs", ".zi":
		return true
	default:
		return false
	}
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !w.skipDir(info.Name()) {
					if err := w.addRecursive(event.Name); err != nil {
						w.logger.Warn("watching new directory",
							slog.String("dir", event.Name),
							slog.String("error", err.Error()))
					}
					continue
				}
			}
			if !isSource(event.Name) {
				continue
			}

			select {
			case w.events <- FileChange{Path: event.Name, Op: convertOp(event.Op)}:
			default:
				w.logger.Warn("watcher buffer full, event dropped", slog.String("path", event.Name))
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

func convertOp(op fsnotify.Op) FileOp {
	switch {
	case op.Has(fsnotify.Create):
		return FileOpCreate
	case op.Has(fsnotify.Write):
		return FileOpWrite
	case op.Has(fsnotify.Remove):
		return FileOpRemove
	case op.Has(fsnotify.Rename):
		return FileOpRename
	default:
		return FileOpWrite
	}
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	defer close(w.out)

	var batch []FileChange
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(batch) > 0 {
			w.evict(dedupe(batch))
			batch = batch[:0]
		}
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-w.done:
			flush()
			return
		case change := <-w.events:
			batch = append(batch, change)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			flush()
		}
	}
}

func (w *Watcher) evict(changes []FileChange) {
	for i := range changes {
		changes[i].Evicted = w.ws.Invalidate(changes[i].Path)
	}
	w.logger.Debug("workspace files changed", slog.Int("count", len(changes)))

	select {
	case w.out <- changes:
	default:
	}
}

// dedupe keeps the latest change per path, at the path's first position.
func dedupe(changes []FileChange) []FileChange {
	seen := make(map[string]int, len(changes))
	out := make([]FileChange, 0, len(changes))
	for _, c := range changes {
		if i, ok := seen[c.Path]; ok {
			out[i] = c
			continue
		}
		seen[c.Path] = len(out)
		out = append(out, c)
	}
	return out
}

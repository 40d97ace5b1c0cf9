// Copyright (C) 2025 Harshodai (contact@askmukthiguru.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ingestion

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher ingests transcript files dropped into a local directory.
//
// # Description
//
// Watches a flat directory for markdown and plain-text files. A file
// write schedules an ingestion after a debounce window, so a file being
// copied in or edited is picked up once, not per write syscall. The
// file path doubles as the source URL, which makes re-drops replace the
// previous version.
//
// # Thread Safety
//
// Safe for concurrent use. Ingestions run sequentially on the watcher
// goroutine to avoid hammering the embedding service.
type Watcher struct {
	dir      string
	svc      *Service
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher builds a watcher over dir. The directory must exist.
func NewWatcher(dir string, svc *Service) *Watcher {
	return &Watcher{
		dir:      dir,
		svc:      svc,
		debounce: 2 * time.Second,
		pending:  make(map[string]*time.Timer),
	}
}

// Run watches until ctx is canceled. Existing files are ingested once
// at startup so a pre-populated directory works without touching files.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return err
	}
	slog.Info("Watching transcript directory", "dir", w.dir)

	w.ingestExisting(ctx)

	work := make(chan string)
	go w.runIngestions(ctx, work)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isTranscript(event.Name) {
				continue
			}
			w.schedule(event.Name, work)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Transcript watcher error", "error", err)
		}
	}
}

// schedule arms (or re-arms) the debounce timer for path.
func (w *Watcher) schedule(path string, work chan<- string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		work <- path
	})
}

func (w *Watcher) runIngestions(ctx context.Context, work <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-work:
			w.ingestFile(ctx, path)
		}
	}
}

func (w *Watcher) ingestExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		slog.Warn("Failed to list transcript directory", "dir", w.dir, "error", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !isTranscript(entry.Name()) {
			continue
		}
		w.ingestFile(ctx, filepath.Join(w.dir, entry.Name()))
	}
}

func (w *Watcher) ingestFile(ctx context.Context, path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("Failed to read transcript file", "path", path, "error", err)
		return
	}
	name := filepath.Base(path)
	_, err = w.svc.Ingest(ctx, Request{
		Content:     string(content),
		SourceURL:   "file://" + path,
		Title:       strings.TrimSuffix(name, filepath.Ext(name)),
		ContentType: "transcript",
	})
	if err != nil {
		slog.Error("Transcript ingestion failed", "path", path, "error", err)
		return
	}
	slog.Info("Transcript ingested", "path", path)
}

func isTranscript(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".txt":
		return true
	}
	return false
}

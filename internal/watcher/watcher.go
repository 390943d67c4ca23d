// Package watcher keeps a directory in sync with the document store by
// ingesting supported files as they appear and removing documents whose
// files are deleted.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bruncanepa/murmur-brain/internal/core/ports/driving"
	"github.com/bruncanepa/murmur-brain/internal/logger"
)

// DefaultDebounce is how long a path must be quiet before it is processed.
// Editors often emit several write events for a single save.
const DefaultDebounce = 500 * time.Millisecond

type changeType int

const (
	changeNone changeType = iota
	changeUpsert
	changeDelete
)

// Watcher observes a directory tree and mirrors file changes into the
// document service.
type Watcher struct {
	root     string
	docs     driving.DocumentService
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	changes chan change
}

type change struct {
	path string
	kind changeType
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides the quiet period before a changed file is processed.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher for the directory tree rooted at root.
func New(root string, docs driving.DocumentService, opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		docs:     docs,
		debounce: DefaultDebounce,
		pending:  make(map[string]*time.Timer),
		changes:  make(chan change, 64),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run ingests all existing supported files under the root, then watches
// for changes until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("stat watch root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch root %s is not a directory", w.root)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fs watcher: %w", err)
	}
	defer fsWatcher.Close()

	if err := w.addRecursive(fsWatcher, w.root); err != nil {
		return err
	}

	w.syncExisting(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			// New directories need their own watch before files land in them.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(fsWatcher, event.Name); err != nil {
						logger.Warn("watching new directory %s: %v", event.Name, err)
					}
					continue
				}
			}
			if kind := classify(event); kind != changeNone {
				w.schedule(event.Name, kind)
			}

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("fs watcher: %v", err)

		case c := <-w.changes:
			w.apply(ctx, c)
		}
	}
}

// classify maps a raw filesystem event to the action to take, or
// changeNone when the event should be ignored.
func classify(event fsnotify.Event) changeType {
	if isHidden(event.Name) || !isSupported(event.Name) {
		return changeNone
	}
	switch {
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		return changeDelete
	case event.Op.Has(fsnotify.Create), event.Op.Has(fsnotify.Write):
		if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
			return changeNone
		}
		return changeUpsert
	default:
		return changeNone
	}
}

// schedule arms a debounce timer for the path, replacing any timer
// already pending for it.
func (w *Watcher) schedule(path string, kind changeType) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.changes <- change{path: path, kind: kind}
	})
}

func (w *Watcher) apply(ctx context.Context, c change) {
	switch c.kind {
	case changeUpsert:
		if _, err := w.docs.IngestFile(ctx, c.path); err != nil {
			logger.Warn("ingesting %s: %v", c.path, err)
			return
		}
		logger.Info("ingested %s", c.path)
	case changeDelete:
		if err := w.removeByName(ctx, filepath.Base(c.path)); err != nil {
			logger.Warn("removing document for %s: %v", c.path, err)
		}
	}
}

// removeByName deletes every document whose file name matches name.
func (w *Watcher) removeByName(ctx context.Context, name string) error {
	docs, err := w.docs.ListDocuments(ctx)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if doc.FileName != name {
			continue
		}
		if err := w.docs.DeleteDocument(ctx, doc.ID); err != nil {
			return err
		}
		logger.Info("removed document %s (%s)", doc.ID, name)
	}
	return nil
}

// syncExisting ingests supported files already present under the root
// that the store does not know about yet.
func (w *Watcher) syncExisting(ctx context.Context) {
	known := make(map[string]bool)
	if docs, err := w.docs.ListDocuments(ctx); err == nil {
		for _, doc := range docs {
			known[doc.FileName] = true
		}
	}

	err := filepath.WalkDir(w.root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			if isHidden(path) && path != w.root {
				return filepath.SkipDir
			}
			return nil
		}
		if isHidden(path) || !isSupported(path) || known[filepath.Base(path)] {
			return nil
		}
		if _, err := w.docs.IngestFile(ctx, path); err != nil {
			logger.Warn("ingesting %s: %v", path, err)
		} else {
			logger.Info("ingested %s", path)
		}
		return nil
	})
	if err != nil {
		logger.Warn("scanning %s: %v", w.root, err)
	}
}

func (w *Watcher) addRecursive(fsWatcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if isHidden(path) && path != root {
			return filepath.SkipDir
		}
		if err := fsWatcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// isSupported reports whether the file extension is one ingestion accepts.
func isSupported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	default:
		return false
	}
}

// isHidden reports whether any component of the path starts with a dot.
// The special entries "." and ".." do not count as hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

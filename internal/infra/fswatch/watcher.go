// Package fswatch watches a directory for files that disappear.
//
// The sync engine treats a missing cache file as a signal to fetch the
// document again; the watcher turns remove and rename events into that
// signal while a long-running command is active.
package fswatch

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports files removed from watched directories.
type Watcher struct {
	watcher   *fsnotify.Watcher
	callbacks []func(string)
	mu        sync.RWMutex
	logger    *slog.Logger
	ext       string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger for the watcher.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithExtension only reports files with the given extension (".md").
func WithExtension(ext string) Option {
	return func(w *Watcher) {
		w.ext = ext
	}
}

// New creates a new watcher.
func New(opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher: fw,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Watch adds a directory to watch.
func (w *Watcher) Watch(dir string) error {
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Error("failed to watch directory",
			"path", dir,
			"error", err,
		)
		return err
	}
	w.logger.Debug("watching directory for removals", "path", dir)
	return nil
}

// OnRemove registers a callback called with the path of every removed or
// renamed-away file.
func (w *Watcher) OnRemove(callback func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Run dispatches events until ctx is done or the watcher is closed.
// Callbacks run on the calling goroutine, one at a time.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("cache watcher started")

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				w.logger.Debug("watcher events channel closed")
				return nil
			}
			if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if w.ext != "" && filepath.Ext(event.Name) != w.ext {
				continue
			}
			w.logger.Debug("cache file removed",
				"file", event.Name,
				"op", event.Op.String(),
			)
			w.notify(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.logger.Debug("watcher errors channel closed")
				return nil
			}
			w.logger.Error("cache watcher error", "error", err)
		case <-ctx.Done():
			w.logger.Debug("watcher received stop signal")
			return ctx.Err()
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	if err := w.watcher.Close(); err != nil {
		w.logger.Error("failed to close watcher", "error", err)
		return err
	}
	w.logger.Info("cache watcher stopped")
	return nil
}

func (w *Watcher) notify(path string) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, cb := range w.callbacks {
		cb(path)
	}
}

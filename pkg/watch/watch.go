// Package watch re-resolves a local configuration file when it changes on
// disk. Rapid editor save bursts are debounced so the handler runs once per
// burst.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler receives the new configuration bytes after a change settles.
type Handler func(raw []byte)

// Watcher watches one configuration file.
type Watcher struct {
	path    string
	delay   time.Duration
	handler Handler
	logger  *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// Option customises a Watcher.
type Option func(*Watcher)

// WithDelay overrides the debounce period.
func WithDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithLogger routes watcher diagnostics to the given logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

const defaultDelay = 250 * time.Millisecond

// New constructs a Watcher for path; Run starts it.
func New(path string, handler Handler, opts ...Option) *Watcher {
	w := &Watcher{
		path:    filepath.Clean(path),
		delay:   defaultDelay,
		handler: handler,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w
}

// Run watches until the context is cancelled. The parent directory is
// watched rather than the file itself so atomic rename-into-place saves are
// seen.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("configuration watcher error", "path", w.path, "error", err)
		}
	}
}

// schedule restarts the debounce timer; only the last event of a burst fires
// the handler.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, func() {
		raw, err := os.ReadFile(w.path)
		if err != nil {
			w.logger.Warn("configuration reload failed", "path", w.path, "error", err)
			return
		}
		w.handler(raw)
	})
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// Package watcher observes the configuration file on disk and notifies the
// daemon when a valid new version appears.
package watcher

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"rewindd/internal/config"
)

const debounceDelay = 100 * time.Millisecond

// Watcher watches one configuration file. Edits are debounced because most
// editors fire several write events per save, and invalid intermediate
// states are dropped instead of forwarded.
type Watcher struct {
	path    string
	logger  *slog.Logger
	fs      *fsnotify.Watcher
	changed chan struct{}

	mu     sync.Mutex
	closed bool
}

// New starts watching the directory containing path. Changed() fires after a
// write or create of the file passes validation.
func New(path string, logger *slog.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory, not the file: editors that write via rename
	// replace the inode and file-level watches go stale.
	if err := fs.Add(filepath.Dir(path)); err != nil {
		fs.Close()
		return nil, fmt.Errorf("watch directory: %w", err)
	}

	w := &Watcher{
		path:    path,
		logger:  logger,
		fs:      fs,
		changed: make(chan struct{}, 1),
	}
	go w.loop()

	return w, nil
}

// Changed delivers one notification per debounced, validated config change.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changed
}

func (w *Watcher) loop() {
	var debounce *time.Timer

	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, w.notify)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}

// notify validates the file before signaling, so the daemon never restarts
// the buffer onto a broken configuration.
func (w *Watcher) notify() {
	if _, err := config.LoadFromPath(w.path); err != nil {
		w.logger.Warn("ignoring invalid config change", "path", w.path, "error", err)
		return
	}

	w.logger.Info("configuration changed", "path", w.path)
	select {
	case w.changed <- struct{}{}:
	default:
	}
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.fs.Close()
}

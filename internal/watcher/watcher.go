// Package watcher turns photos dropped into a capture folder into callbacks.
// Directories are watched recursively and every image path is reported once
// its writes have settled for the debounce interval.
package watcher

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bstardust/flood-survey-collector/internal/media"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is long enough for a phone sync client to finish a write
const DefaultDebounce = 500 * time.Millisecond

// Watcher handles the file system events using fsnotify
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	onFile    func(string)
	log       *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
	done   chan struct{}
}

// NewWatcher starts watching root. onFile runs on its own goroutine, once
// per settled image file.
func NewWatcher(root string, debounce time.Duration, onFile func(string), log *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = slog.Default()
	}

	w := &Watcher{
		fsWatcher: fw,
		debounce:  debounce,
		onFile:    onFile,
		log:       log,
		timers:    make(map[string]*time.Timer),
		done:      make(chan struct{}),
	}

	if err := w.AddRecursive(root); err != nil {
		fw.Close()
		return nil, err
	}

	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := w.AddRecursive(event.Name); err != nil {
				w.log.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
		}
		return
	}
	if !media.IsImageFile(event.Name) {
		return
	}

	w.schedule(event.Name)
}

// schedule (re)arms the per-path timer so only the last event fires
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		closed := w.closed
		w.mu.Unlock()

		if !closed {
			w.onFile(path)
		}
	})
}

// AddRecursive adds the given path and all its sub-directories to the watcher
func (w *Watcher) AddRecursive(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			w.log.Debug("watching", "path", p)
			return w.fsWatcher.Add(p)
		}
		return nil
	})
}

// Close stops the watcher and drops pending callbacks
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for p, t := range w.timers {
		t.Stop()
		delete(w.timers, p)
	}
	w.mu.Unlock()

	err := w.fsWatcher.Close()
	<-w.done
	return err
}

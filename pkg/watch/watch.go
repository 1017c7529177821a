// Package watch reports debounced file changes under a set of directories.
// The dev server uses it to broadcast change notices to connected sockline
// clients.
package watch

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 300 * time.Millisecond

// Watcher watches directories and invokes one callback per settled change.
type Watcher struct {
	fs       *fsnotify.Watcher
	log      *slog.Logger
	dirs     []string
	patterns []string
	debounce time.Duration
	notify   func(path string)
	done     chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a custom logging implementation.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.log = logger
		}
	}
}

// WithPatterns restricts notifications to base names matching any of the
// given filepath.Match patterns. Default: everything.
func WithPatterns(patterns ...string) Option {
	return func(w *Watcher) {
		if len(patterns) > 0 {
			w.patterns = patterns
		}
	}
}

// WithDebounce sets how long a path must stay quiet before it is reported.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a Watcher over dirs that calls notify with each changed path.
func New(notify func(path string), dirs []string, opts ...Option) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fs:       fs,
		log:      slog.Default(),
		dirs:     dirs,
		patterns: []string{"*"},
		debounce: defaultDebounce,
		notify:   notify,
		done:     make(chan struct{}),
	}
	if len(w.dirs) == 0 {
		w.dirs = []string{"."}
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching. It returns once all directories are registered;
// notifications arrive on a background goroutine.
func (w *Watcher) Start() error {
	for _, dir := range w.dirs {
		if err := w.fs.Add(dir); err != nil {
			return err
		}
		w.log.Info("watching directory", "dir", dir)
	}
	go w.loop()
	return nil
}

// Stop ends watching. Pending debounced changes are discarded.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fs.Close()
}

func (w *Watcher) loop() {
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) && w.matches(event.Name) {
				pending[event.Name] = time.Now()
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Error("watch error", "error", err)
		case <-ticker.C:
			now := time.Now()
			for path, last := range pending {
				if now.Sub(last) >= w.debounce {
					delete(pending, path)
					w.log.Debug("file changed", "path", path)
					w.notify(path)
				}
			}
		}
	}
}

func (w *Watcher) matches(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.patterns {
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

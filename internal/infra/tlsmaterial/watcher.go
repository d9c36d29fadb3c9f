// Package tlsmaterial loads and validates the TLS key pair of the web listener.
package tlsmaterial

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrNothingToWatch is returned when both files are builtin.
var ErrNothingToWatch = errors.New("tlsmaterial: no file to watch")

// Watcher watches the configured key and certificate files and calls
// onChange after they are rewritten.
type Watcher struct {
	certFile string
	keyFile  string
	onChange func()
	done     chan struct{}
	stopOnce sync.Once
	logger   *slog.Logger

	// A burst of events fires onChange once, debounce after the last one.
	debounce time.Duration
	timerMu  sync.Mutex
	timer    *time.Timer
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger for the watcher.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithDebounce sets the debounce duration.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher creates a watcher for the given files. Builtin or blank paths
// are skipped.
func NewWatcher(certFile, keyFile string, onChange func(), opts ...WatcherOption) (*Watcher, error) {
	if !watchable(certFile) && !watchable(keyFile) {
		return nil, ErrNothingToWatch
	}

	w := &Watcher{
		certFile: certFile,
		keyFile:  keyFile,
		onChange: onChange,
		done:     make(chan struct{}),
		logger:   slog.Default(),
		debounce: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

func watchable(path string) bool {
	return strings.TrimSpace(path) != "" && path != BuiltinCertPath && path != BuiltinKeyPath
}

// Start starts watching for changes.
// This function blocks until Stop() is called.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlsmaterial: create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directories, not the files, to catch rename-into-place writes
	files := make(map[string]bool, 2)
	dirs := make(map[string]bool, 2)
	for _, f := range []string{w.certFile, w.keyFile} {
		if !watchable(f) {
			continue
		}
		f = filepath.Clean(f)
		files[f] = true
		dir := filepath.Dir(f)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("tlsmaterial: watch dir %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	w.logger.Info("TLS material watcher started",
		"cert_file", w.certFile,
		"key_file", w.keyFile,
	)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !files[filepath.Clean(event.Name)] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			w.logger.Debug("TLS material changed",
				"file", event.Name,
				"op", event.Op.String(),
			)
			w.debouncedNotify()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("TLS material watcher error", "error", err)

		case <-w.done:
			return nil
		}
	}
}

// StartAsync starts watching in a goroutine.
func (w *Watcher) StartAsync() {
	go func() {
		if err := w.Start(); err != nil {
			w.logger.Error("TLS material watcher stopped with error", "error", err)
		}
	}()
}

// Stop stops watching and cancels a pending notification. It is safe to
// call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.timerMu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.timerMu.Unlock()
	})
}

func (w *Watcher) debouncedNotify() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Reset(w.debounce)
		return
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	select {
	case <-w.done:
		return
	default:
	}
	if w.onChange != nil {
		w.onChange()
	}
}

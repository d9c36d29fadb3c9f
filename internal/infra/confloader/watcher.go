package confloader

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

// Watcher reports writes to configuration files such as webhost.yaml and
// the dotenv file.
//
// fsnotify observes the parent directory of every watched file so that
// editors replacing the file by rename are still seen.
type Watcher struct {
	fs     *fsnotify.Watcher
	logger *slog.Logger

	mu        sync.RWMutex
	files     map[string]struct{}
	callbacks []func(string)

	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the watcher's logger.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher creates an idle watcher. Call Watch, OnChange and then Start.
func NewWatcher(opts ...WatcherOption) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fs:     fs,
		logger: slog.Default(),
		files:  make(map[string]struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch adds path to the watched set. The file itself need not exist yet.
func (w *Watcher) Watch(path string) error {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := w.fs.Add(dir); err != nil {
		w.logger.Error("cannot watch configuration directory", "dir", dir, "error", err)
		return err
	}

	w.mu.Lock()
	w.files[path] = struct{}{}
	w.mu.Unlock()

	w.logger.Debug("watching configuration file", "file", path)
	return nil
}

// OnChange registers callback. Callbacks run in registration order on the
// watcher goroutine and receive the changed file's path.
func (w *Watcher) OnChange(callback func(string)) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, callback)
	w.mu.Unlock()
}

// Start dispatches change notifications until Stop is called.
func (w *Watcher) Start() {
	w.logger.Info("configuration watcher started")
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if w.relevant(ev) {
				w.logger.Debug("configuration file changed", "file", ev.Name, "op", ev.Op.String())
				w.notifyCallbacks(ev.Name)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error("configuration watcher error", "error", err)
		}
	}
}

// StartAsync runs Start on a new goroutine.
func (w *Watcher) StartAsync() {
	go w.Start()
}

// Stop ends the watcher. Later calls return nil.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fs.Close()
		if err != nil {
			w.logger.Error("closing configuration watcher", "error", err)
			return
		}
		w.logger.Info("configuration watcher stopped")
	})
	return err
}

// relevant keeps writes and creations of watched files only.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.files[filepath.Clean(ev.Name)]
	return ok
}

func (w *Watcher) notifyCallbacks(path string) {
	w.mu.RLock()
	callbacks := append([](func(string))(nil), w.callbacks...)
	w.mu.RUnlock()
	for _, cb := range callbacks {
		cb(path)
	}
}

// Throttle limits callback to the rate limiter allows. Excess calls block
// instead of being dropped, so the last write of a burst is always seen.
func Throttle(limiter *rate.Limiter, callback func(string)) func(string) {
	return func(path string) {
		if limiter.Wait(context.Background()) != nil {
			return
		}
		callback(path)
	}
}

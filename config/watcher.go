package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/archbeaver/beaver/errors"
)

// ReloadCallback is called with the freshly loaded config after a file change
type ReloadCallback func(*Config) error

// Watcher watches a config file and reloads it on change
type Watcher struct {
	path           string
	watcher        *fsnotify.Watcher
	logger         *zap.SugaredLogger
	debouncePeriod time.Duration

	mu        sync.Mutex
	callbacks []ReloadCallback
	timer     *time.Timer
	done      chan struct{}
	closeOnce sync.Once
}

// NewWatcher creates a watcher for the config file at path
func NewWatcher(path string, logger *zap.SugaredLogger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "failed to watch config file %s", path)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Watcher{
		path:           path,
		watcher:        fw,
		logger:         logger,
		debouncePeriod: 300 * time.Millisecond,
		done:           make(chan struct{}),
	}, nil
}

// OnReload registers a callback to be called when the config is reloaded
func (w *Watcher) OnReload(cb ReloadCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Start begins watching for config file changes
func (w *Watcher) Start() {
	go w.loop()
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
	})
	return err
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.logger.Infow("Config change detected", "file", event.Name, "op", event.Op.String())
				w.scheduleReload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("Config watcher error", "error", err)
		}
	}
}

// scheduleReload coalesces bursts of writes into one reload
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debouncePeriod, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := LoadFromFile(w.path)
	if err != nil {
		w.logger.Warnw("Config reload failed", "file", w.path, "error", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		w.logger.Warnw("Reloaded config is invalid, keeping previous", "file", w.path, "error", err)
		return
	}

	w.mu.Lock()
	callbacks := append([]ReloadCallback(nil), w.callbacks...)
	w.mu.Unlock()

	for _, cb := range callbacks {
		if err := cb(cfg); err != nil {
			w.logger.Warnw("Config reload callback failed", "error", err)
		}
	}
}

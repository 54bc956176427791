package config

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"hearth/internal/logging"
)

// Watcher watches a config file for changes and reloads the mutable subset
// of Config on write, debounced to absorb editors that emit several events
// per save. Grounded on internal/core.MangleWatcher's debounce pattern.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	path        string
	onReload    func(ReloadableSnapshot)
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewWatcher creates a Watcher for path. onReload is invoked with the newly
// loaded snapshot whenever the file changes and reparses successfully.
func NewWatcher(path string, onReload func(ReloadableSnapshot)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fw,
		path:        path,
		onReload:    onReload,
		debounceMap: make(map[string]time.Time),
		debounceDur: ReloadDebounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine. Non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.path); err != nil {
		logging.Get(logging.CategoryConfig).Warn("config watcher: failed to watch %s: %v", w.path, err)
		return err
	}

	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.handleEvent(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryConfig).Warn("config watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(name string) {
	w.mu.Lock()
	last, seen := w.debounceMap[name]
	now := time.Now()
	if seen && now.Sub(last) < w.debounceDur {
		w.debounceMap[name] = now
		w.mu.Unlock()
		return
	}
	w.debounceMap[name] = now
	w.mu.Unlock()

	cfg, err := Load(w.path)
	if err != nil {
		logging.Get(logging.CategoryConfig).Warn("config watcher: reload of %s failed, keeping previous settings: %v", w.path, err)
		return
	}
	logging.Get(logging.CategoryConfig).Info("config watcher: reloaded %s", w.path)
	w.onReload(cfg.Snapshot())
}

// Stop halts the watcher and releases the underlying fsnotify handle.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	_ = w.watcher.Close()
}

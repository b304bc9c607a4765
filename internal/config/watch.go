package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"pipedream/internal/logging"
)

// Watcher reloads a config file when it changes on disk and publishes the
// result on Updates. Reloads that fail to parse are logged and skipped.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	path     string
	updates  chan *Config
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	debounce time.Duration
}

// NewWatcher creates a watcher for the config file at path.
func NewWatcher(path string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:  w,
		path:     filepath.Clean(path),
		updates:  make(chan *Config, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		debounce: 150 * time.Millisecond,
	}, nil
}

// Updates delivers freshly loaded configs. Only the latest pending update is
// kept.
func (w *Watcher) Updates() <-chan *Config {
	return w.updates
}

// Start begins watching. The directory is watched rather than the file so
// editors that replace the file on save are still seen.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logging.BootWarn("config watcher: failed to create %s: %v", dir, err)
	}
	if err := w.watcher.Add(dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.Boot("config watcher: watching %s", w.path)

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	wasRunning := w.running
	w.running = false
	w.mu.Unlock()

	if wasRunning {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		logging.BootError("config watcher: close failed: %v", err)
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	var pending <-chan time.Time
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
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			logging.BootDebug("config watcher: %s %s", event.Op, event.Name)
			pending = time.After(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.BootError("config watcher error: %v", err)
		case <-pending:
			pending = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		logging.BootWarn("config watcher: reload failed: %v", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		logging.BootWarn("config watcher: reloaded config invalid: %v", err)
		return
	}
	// Replace any update the consumer has not picked up yet.
	select {
	case <-w.updates:
	default:
	}
	w.updates <- cfg
}

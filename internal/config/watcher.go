package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce collapses the burst of events an editor save produces
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads the config file when it changes on disk
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(*Config)
	watcher  *fsnotify.Watcher
	logger   *zap.Logger

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// Watch starts watching path. onChange receives every config that loads
// and validates; invalid edits are logged and the previous config stays
// in effect.
func Watch(path string, debounce time.Duration, logger *zap.Logger, onChange func(*Config)) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// editors replace files by renaming, so the directory is watched
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	w := &Watcher{
		path:     path,
		debounce: debounce,
		onChange: onChange,
		watcher:  watcher,
		logger:   logger.With(zap.String("config", path)),
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.watchChanges()
	return w, nil
}

func (w *Watcher) watchChanges() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watch error", zap.Error(err))
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.reload)
		return
	}
	w.timer.Reset(w.debounce)
}

func (w *Watcher) reload() {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}

	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous config", zap.Error(err))
		return
	}
	w.logger.Info("config reloaded",
		zap.Duration("fetchTimeout", cfg.Timeout()),
		zap.Bool("trace", cfg.Trace))
	w.onChange(cfg)
}

// Close stops watching
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

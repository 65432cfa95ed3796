package manager

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchDelay coalesces bursts of file changes into one registration.
var WatchDelay = 100 * time.Millisecond

// watcher re-registers a base path when files are created or changed
// below it.
type watcher struct {
	fsw      *fsnotify.Watcher
	basePath string
	register func()

	mu      sync.Mutex
	timer   *time.Timer
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// Watch re-runs Register for basePath whenever files are created, written
// or renamed below it, until ctx ends or the Manager is closed.
func (m *Manager) Watch(ctx context.Context, basePath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = detached(ctx)
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(absPath); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrManagerClosed
	}
	if _, ok := m.watchers[absPath]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyWatching, basePath)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	logger := m.logger(ctx).With("base_path", basePath)
	w := &watcher{
		fsw:      fsw,
		basePath: absPath,
		closeCh:  make(chan struct{}),
		register: func() {
			if err := m.Register(ctx, basePath); err != nil {
				logger.Warn("re-registering providers failed", "error", err)
			}
		},
	}
	if err := w.addRecursive(absPath); err != nil {
		fsw.Close()
		return err
	}
	m.watchers[absPath] = w

	w.wg.Add(1)
	go w.processLoop(ctx, func(err error) {
		logger.Warn("watch error", "error", err)
	})
	return nil
}

// addRecursive watches dir and its non-hidden subdirectories.
func (w *watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && hidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// processLoop handles incoming fsnotify events.
func (w *watcher) processLoop(ctx context.Context, onError func(error)) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return
		case <-w.closeCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			onError(err)
		}
	}
}

func (w *watcher) handle(event fsnotify.Event) {
	if hidden(filepath.Base(event.Name)) {
		return
	}
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Rename) {
		return
	}
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.addRecursive(event.Name)
		}
	}
	w.schedule()
}

// schedule runs register once WatchDelay has passed without further changes.
func (w *watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(WatchDelay, w.register)
}

func (w *watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// Close stops the watcher.
func (w *watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	w.wg.Wait()
	return w.fsw.Close()
}

// Unwatch stops watching basePath.
func (m *Manager) Unwatch(basePath string) error {
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return err
	}
	m.mu.Lock()
	w, ok := m.watchers[absPath]
	delete(m.watchers, absPath)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return w.Close()
}

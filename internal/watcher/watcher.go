// Package watcher reloads the index artifact when it changes on disk.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// ArtifactWatcher watches the artifact directory and invokes onReload after
// the vector file settles. Writes are debounced because a rebuild streams the
// file in many chunks and only the final state is loadable.
type ArtifactWatcher struct {
	dir        string
	targetFile string
	onReload   func()
	debounce   time.Duration
	watcher    *fsnotify.Watcher
	mu         sync.Mutex
	timer      *time.Timer
	done       chan struct{}
	started    bool
	stopOnce   sync.Once
	logger     *zap.Logger
}

// NewArtifactWatcher creates a watcher for the vector file inside artifactDir.
func NewArtifactWatcher(artifactDir, targetFile string, onReload func(), logger *zap.Logger) *ArtifactWatcher {
	return &ArtifactWatcher{
		dir:        filepath.Clean(artifactDir),
		targetFile: targetFile,
		onReload:   onReload,
		debounce:   defaultDebounce,
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
func (w *ArtifactWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		_ = watcher.Close()
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	w.mu.Unlock()

	w.logger.Info("watching index artifact",
		zap.String("dir", w.dir), zap.String("file", w.targetFile))
	go w.run(ctx)
	return nil
}

func (w *ArtifactWatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *ArtifactWatcher) handleEvent(ev fsnotify.Event) {
	if filepath.Base(ev.Name) != w.targetFile {
		return
	}
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	w.logger.Debug("artifact event", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.logger.Info("artifact changed, reloading")
		w.onReload()
	})
}

// Stop stops the watcher and releases resources.
func (w *ArtifactWatcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}

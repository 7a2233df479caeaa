package asset

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Purger is anything holding resolution results that go stale when files change.
type Purger interface {
	Purge()
}

// Watcher purges resolution results whenever the image tree changes, so an
// image added after a terminal failure is picked up on the next render.
type Watcher struct {
	watcher *fsnotify.Watcher
	target  Purger
	logger  *zap.Logger
}

// NewWatcher watches dir and every directory below it.
func NewWatcher(dir string, target Purger, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := addTree(fw, dir); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return &Watcher{watcher: fw, target: target, logger: logger}, nil
}

// Run blocks until ctx is done, purging on every change. It closes the
// underlying watcher before returning.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				w.watchDir(ev.Name)
			}
			w.logger.Debug("image tree changed", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			w.target.Purge()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.target.Purge()
				continue
			}
			w.logger.Warn("image watcher error", zap.Error(err))
		}
	}
}

// watchDir adds watches for a directory created after startup. Files already
// inside it are covered by the purge that follows its Create event.
func (w *Watcher) watchDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := addTree(w.watcher, path); err != nil {
		w.logger.Warn("watch new directory", zap.String("path", path), zap.Error(err))
	}
}

func addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
}

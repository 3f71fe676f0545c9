package watcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"drivesync/internal/engine"
	"drivesync/internal/logger"
	"drivesync/internal/model"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FSNotify is the portable backend. fsnotify cannot pair the two halves of a
// move: a rename inside the tree arrives as moved-from followed by a plain
// create, so moved-to is never produced.
type FSNotify struct {
	fw   *fsnotify.Watcher
	dirs map[string]model.EventMask
	// selfRemoved remembers watched directories already reported gone. The
	// kernel reports their removal once from the parent and once from the
	// directory's own watch.
	selfRemoved map[string]model.EventKind
}

func NewFSNotify() (*FSNotify, error) {
	fw, err := fsnotify.NewBufferedWatcher(eventBufferSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &FSNotify{
		fw:          fw,
		dirs:        make(map[string]model.EventMask),
		selfRemoved: make(map[string]model.EventKind),
	}, nil
}

func (w *FSNotify) Subscribe(path string, mask model.EventMask, recursive bool) error {
	dirs, err := listDirs(path, recursive)
	if err != nil {
		return err
	}

	for _, dir := range dirs {
		if err := w.fw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}

		w.dirs[dir] = mask
		logger.Log.Debug("watching directory",
			zap.String("path", dir))
	}

	return nil
}

func (w *FSNotify) Unsubscribe(path string) error {
	if _, ok := w.dirs[path]; !ok {
		return engine.ErrNotWatched
	}

	var firstErr error
	for dir := range w.dirs {
		if !isUnder(dir, path) {
			continue
		}

		delete(w.dirs, dir)
		// The kernel drops watches on deleted directories by itself.
		if err := w.fw.Remove(dir); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

func (w *FSNotify) Next(timeout time.Duration) (model.RawEvent, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case fsEvent, ok := <-w.fw.Events:
			if !ok {
				return model.RawEvent{}, false, engine.ErrSourceClosed
			}

			if ev, keep := w.translate(fsEvent); keep {
				return ev, true, nil
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return model.RawEvent{}, false, engine.ErrSourceClosed
			}
			return model.RawEvent{}, false, err

		case <-timer.C:
			return model.RawEvent{}, false, nil
		}
	}
}

func (w *FSNotify) Close() error {
	return w.fw.Close()
}

func (w *FSNotify) translate(fsEvent fsnotify.Event) (model.RawEvent, bool) {
	ev := model.RawEvent{Path: filepath.Clean(fsEvent.Name)}

	switch {
	case fsEvent.Op.Has(fsnotify.Create):
		ev.Kind = model.EventCreated
		ev.IsDir = isDir(ev.Path)
		delete(w.selfRemoved, ev.Path)

	case fsEvent.Op.Has(fsnotify.Write):
		ev.Kind = model.EventModified
		ev.IsDir = isDir(ev.Path)

	case fsEvent.Op.Has(fsnotify.Remove):
		ev.Kind = model.EventDeleted

	case fsEvent.Op.Has(fsnotify.Rename):
		ev.Kind = model.EventMovedFrom

	default:
		return ev, false
	}

	if ev.Kind == model.EventDeleted || ev.Kind == model.EventMovedFrom {
		if kind, seen := w.selfRemoved[ev.Path]; seen && kind == ev.Kind {
			delete(w.selfRemoved, ev.Path)
			return ev, false
		}

		if _, watched := w.dirs[ev.Path]; watched {
			ev.IsDir = true
			w.selfRemoved[ev.Path] = ev.Kind
		}
	}

	mask, ok := w.dirs[filepath.Dir(ev.Path)]
	if !ok {
		// Self events of a watched directory whose parent is not watched.
		mask = w.dirs[ev.Path]
	}

	if !mask.Has(ev.Kind) {
		logger.Log.Debug("event filtered by mask",
			zap.String("kind", string(ev.Kind)),
			zap.String("path", ev.Path))
		return ev, false
	}

	return ev, true
}

func isDir(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.IsDir()
}

package engine

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"drivesync/internal/logger"
	"drivesync/internal/model"
	"drivesync/internal/pathkey"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ErrNotWatched is returned by sources asked to drop a path they do not
// watch. The manager treats it as already removed.
var ErrNotWatched = errors.New("path is not watched")

// WatchManager keeps the source's subscriptions in step with the directories
// under the root. It owns the table of watched directories and is only used
// from the engine loop goroutine.
type WatchManager struct {
	fs      afero.Fs
	source  NotificationSource
	norm    *pathkey.Normalizer
	mask    model.EventMask
	watched mapset.Set[string]
}

func NewWatchManager(fs afero.Fs, source NotificationSource, norm *pathkey.Normalizer, mask model.EventMask) *WatchManager {
	return &WatchManager{
		fs:      fs,
		source:  source,
		norm:    norm,
		mask:    mask,
		watched: mapset.NewThreadUnsafeSet[string](),
	}
}

// Install subscribes to the whole tree under the root.
func (m *WatchManager) Install() error {
	root := m.norm.Root()
	if err := m.source.Subscribe(root, m.mask, true); err != nil {
		return &SubscriptionError{Op: "install", Path: root, Err: err}
	}

	m.track(root)
	logger.Log.Info("watching",
		zap.String("root", root),
		zap.Int("dirs", m.Count()),
		zap.String("mask", m.mask.String()))

	return nil
}

// Apply updates subscriptions after an event has been classified.
func (m *WatchManager) Apply(ev model.RawEvent, d Decision) error {
	switch {
	case d.HasAction() && d.Action.Kind == KindUploadDir:
		// Subdirectories may already exist by the time the watch is added.
		return m.subscribe(ev.Path)

	case d.HasAction() && d.Action.Kind == KindDeleteFile && d.Key.IsDir():
		return m.unsubscribe(ev.Path)

	case d.Outcome == OutcomeRenameDetected && ev.IsDir:
		// The moved-from half already dropped the old location.
		m.forget(ev.SrcPath)
		return m.subscribe(ev.Path)

	case ev.Kind == model.EventMovedFrom && ev.IsDir:
		return m.unsubscribe(ev.Path)
	}

	return nil
}

func (m *WatchManager) subscribe(path string) error {
	if err := m.source.Subscribe(path, m.mask, true); err != nil {
		return &SubscriptionError{Op: "add", Path: path, Err: err}
	}

	m.track(path)
	logger.Log.Debug("started watching",
		zap.String("path", path))
	return nil
}

func (m *WatchManager) unsubscribe(path string) error {
	defer m.forget(path)

	if err := m.source.Unsubscribe(path); err != nil && !errors.Is(err, ErrNotWatched) {
		return &SubscriptionError{Op: "remove", Path: path, Err: err}
	}

	logger.Log.Debug("stopped watching",
		zap.String("path", path))
	return nil
}

// track records dir and every directory beneath it.
func (m *WatchManager) track(dir string) {
	m.watched.Add(dir)

	err := afero.Walk(m.fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Vanished while walking; a delete event will follow.
			return nil
		}

		if info.IsDir() {
			m.watched.Add(path)
		}
		return nil
	})
	if err != nil {
		logger.Log.Debug("failed to walk watched tree",
			zap.String("path", dir),
			zap.Error(err))
	}
}

// forget drops path and everything beneath it from the table.
func (m *WatchManager) forget(path string) {
	prefix := path + string(filepath.Separator)
	for _, p := range m.watched.ToSlice() {
		if p == path || strings.HasPrefix(p, prefix) {
			m.watched.Remove(p)
		}
	}
}

func (m *WatchManager) Watched(path string) bool {
	return m.watched.Contains(path)
}

func (m *WatchManager) Count() int {
	return m.watched.Cardinality()
}

// Package watcher adapts OS change notification APIs to the engine's
// NotificationSource.
package watcher

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"drivesync/internal/engine"
)

const (
	BackendFSNotify = "fsnotify"
	BackendInotify  = "inotify"

	eventBufferSize = 256
)

func New(backend string) (engine.NotificationSource, error) {
	switch backend {
	case "", BackendFSNotify:
		w, err := NewFSNotify()
		if err != nil {
			return nil, err
		}
		return w, nil
	case BackendInotify:
		w, err := NewInotify()
		if err != nil {
			return nil, err
		}
		return w, nil
	default:
		return nil, fmt.Errorf("unsupported watcher backend: %s", backend)
	}
}

// listDirs returns root and, when recursive, every directory below it.
func listDirs(root string, recursive bool) ([]string, error) {
	if !recursive {
		return []string{root}, nil
	}

	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})

	return dirs, err
}

func isUnder(path, dir string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}

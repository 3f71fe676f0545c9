//go:build !linux

package watcher

import (
	"errors"

	"drivesync/internal/engine"
)

func NewInotify() (engine.NotificationSource, error) {
	return nil, errors.New("inotify backend is only available on linux")
}

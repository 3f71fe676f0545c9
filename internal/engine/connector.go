package engine

import (
	"context"
	"io"
	"time"

	"drivesync/internal/model"
	"drivesync/internal/pathkey"
)

// RemoteConnector is the storage API the engine mirrors to.
type RemoteConnector interface {
	Paths(ctx context.Context) (pathkey.Set, error)
	UploadFile(ctx context.Context, key pathkey.Key) error
	UploadDir(ctx context.Context, key pathkey.Key) error
	UpdateFile(ctx context.Context, key pathkey.Key) error
	DeleteFile(ctx context.Context, key pathkey.Key) error
	// Download opens the remote content of a file key. It feeds the
	// remote-to-local half of startup reconciliation.
	Download(ctx context.Context, key pathkey.Key) (io.ReadCloser, error)
}

type LocalEnumerator interface {
	Paths(ctx context.Context) (pathkey.Set, error)
}

type LocalWriter interface {
	CreateDir(key pathkey.Key) error
	WriteFile(key pathkey.Key, r io.Reader) error
}

// NotificationSource delivers raw filesystem events. Next blocks for at most
// timeout and reports false when nothing arrived.
type NotificationSource interface {
	Subscribe(path string, mask model.EventMask, recursive bool) error
	Unsubscribe(path string) error
	Next(timeout time.Duration) (model.RawEvent, bool, error)
	Close() error
}

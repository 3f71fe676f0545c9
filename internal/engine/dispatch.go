package engine

import (
	"context"
	"fmt"
)

// Dispatcher applies remote actions. It makes exactly one connector call per
// action and never retries; retry policy belongs to the connector.
type Dispatcher struct {
	remote RemoteConnector
}

func NewDispatcher(remote RemoteConnector) *Dispatcher {
	return &Dispatcher{remote: remote}
}

func (d *Dispatcher) Dispatch(ctx context.Context, action Action) error {
	var err error

	switch action.Kind {
	case KindUploadFile:
		err = d.remote.UploadFile(ctx, action.Key)
	case KindUploadDir:
		err = d.remote.UploadDir(ctx, action.Key)
	case KindUpdateFile:
		err = d.remote.UpdateFile(ctx, action.Key)
	case KindDeleteFile:
		err = d.remote.DeleteFile(ctx, action.Key)
	default:
		return fmt.Errorf("%s: %w", action, ErrNotRemoteAction)
	}

	if err != nil {
		return &RemoteError{Op: opName(action.Kind), Key: action.Key, Err: err}
	}

	return nil
}

func opName(kind Kind) string {
	switch kind {
	case KindUploadFile:
		return "upload_file"
	case KindUploadDir:
		return "upload_dir"
	case KindUpdateFile:
		return "update_file"
	case KindDeleteFile:
		return "delete_file"
	case KindDownloadDir:
		return "download_dir"
	case KindDownloadFile:
		return "download_file"
	default:
		return string(kind)
	}
}

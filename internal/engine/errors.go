package engine

import (
	"errors"
	"fmt"

	"drivesync/internal/pathkey"
)

var (
	ErrNotRemoteAction = errors.New("action is not applied to the remote")
	ErrSourceClosed    = errors.New("notification source closed")
)

// RemoteError is a single failed remote operation. The path stays divergent
// until a later event touches it again.
type RemoteError struct {
	Op  string
	Key pathkey.Key
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// EnumerationError means one side could not be listed at startup. It is fatal:
// reconciling against a partial listing would sync the wrong difference.
type EnumerationError struct {
	Side string
	Err  error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("failed to enumerate %s paths: %v", e.Side, e.Err)
}

func (e *EnumerationError) Unwrap() error {
	return e.Err
}

// AmbiguousRenameError reports a correlated move that is not synced.
type AmbiguousRenameError struct {
	From pathkey.Key
	To   pathkey.Key
}

func (e *AmbiguousRenameError) Error() string {
	return fmt.Sprintf("rename %s -> %s is not synchronized", e.From, e.To)
}

// SubscriptionError is a failed watch install or removal.
type SubscriptionError struct {
	Op   string
	Path string
	Err  error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("failed to %s watch on %s: %v", e.Op, e.Path, e.Err)
}

func (e *SubscriptionError) Unwrap() error {
	return e.Err
}

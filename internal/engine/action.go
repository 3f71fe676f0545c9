package engine

import (
	"fmt"
	"time"

	"drivesync/internal/pathkey"
)

type Kind string

const (
	KindUploadFile   Kind = "UPLOAD_FILE"
	KindUploadDir    Kind = "UPLOAD_DIR"
	KindUpdateFile   Kind = "UPDATE_FILE"
	KindDeleteFile   Kind = "DELETE_FILE"
	KindDownloadDir  Kind = "DOWNLOAD_DIR"
	KindDownloadFile Kind = "DOWNLOAD_FILE"
)

// Action is one canonical synchronization instruction.
type Action struct {
	Kind Kind
	Key  pathkey.Key
}

func UploadFile(key pathkey.Key) Action   { return Action{Kind: KindUploadFile, Key: key} }
func UploadDir(key pathkey.Key) Action    { return Action{Kind: KindUploadDir, Key: key} }
func UpdateFile(key pathkey.Key) Action   { return Action{Kind: KindUpdateFile, Key: key} }
func DeleteFile(key pathkey.Key) Action   { return Action{Kind: KindDeleteFile, Key: key} }
func DownloadDir(key pathkey.Key) Action  { return Action{Kind: KindDownloadDir, Key: key} }
func DownloadFile(key pathkey.Key) Action { return Action{Kind: KindDownloadFile, Key: key} }

// IsRemote reports whether the action is applied through the remote connector.
func (a Action) IsRemote() bool {
	switch a.Kind {
	case KindUploadFile, KindUploadDir, KindUpdateFile, KindDeleteFile:
		return true
	default:
		return false
	}
}

func (a Action) String() string {
	return fmt.Sprintf("%s(%s)", a.Kind, a.Key)
}

// Result is the outcome of applying one action.
type Result struct {
	Action   Action
	Err      error
	SyncedAt time.Time
}

// Observer receives every applied action, successful or not.
type Observer interface {
	Observe(result Result)
}

type ObserverFunc func(result Result)

func (f ObserverFunc) Observe(result Result) {
	f(result)
}

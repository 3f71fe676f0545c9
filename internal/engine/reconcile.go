package engine

import (
	"drivesync/internal/pathkey"
)

// Plan is the ordered set of actions that makes both sides hold the union of
// their keys. Keys held by both sides are never touched: presence decides,
// not freshness.
type Plan struct {
	Uploads   []Action
	Downloads []Action
}

// Reconcile diffs the two key sets. Within each direction a directory action
// always precedes the actions for anything beneath it.
func Reconcile(local, remote pathkey.Set) Plan {
	var plan Plan

	for _, key := range local.Difference(remote).Sorted() {
		if key.IsDir() {
			plan.Uploads = append(plan.Uploads, UploadDir(key))
		} else {
			plan.Uploads = append(plan.Uploads, UploadFile(key))
		}
	}

	for _, key := range remote.Difference(local).Sorted() {
		if key.IsDir() {
			plan.Downloads = append(plan.Downloads, DownloadDir(key))
		} else {
			plan.Downloads = append(plan.Downloads, DownloadFile(key))
		}
	}

	return plan
}

// Actions returns uploads followed by downloads.
func (p Plan) Actions() []Action {
	actions := make([]Action, 0, p.Len())
	actions = append(actions, p.Uploads...)
	return append(actions, p.Downloads...)
}

func (p Plan) Len() int {
	return len(p.Uploads) + len(p.Downloads)
}

func (p Plan) Empty() bool {
	return p.Len() == 0
}

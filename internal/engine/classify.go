package engine

import (
	"drivesync/internal/model"
	"drivesync/internal/pathkey"
)

type Outcome int

const (
	// OutcomeSync carries an Action derived directly from the event.
	OutcomeSync Outcome = iota
	// OutcomeCreateOnly is a moved-to without a correlated source. It is
	// indistinguishable from a fresh creation and carries the creation Action.
	OutcomeCreateOnly
	// OutcomeRenameDetected is a moved-to whose source was correlated.
	// Cross-path renames are not synchronized; no Action is produced.
	OutcomeRenameDetected
	// OutcomeDropped means the event carries nothing to sync.
	OutcomeDropped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSync:
		return "sync"
	case OutcomeCreateOnly:
		return "create-only"
	case OutcomeRenameDetected:
		return "rename-detected"
	case OutcomeDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

type Rename struct {
	From pathkey.Key
	To   pathkey.Key
}

// Decision is the classifier's verdict on one RawEvent.
type Decision struct {
	Outcome Outcome
	Key     pathkey.Key
	Action  Action
	Rename  Rename
	Reason  string
}

func (d Decision) HasAction() bool {
	return d.Outcome == OutcomeSync || d.Outcome == OutcomeCreateOnly
}

// Classifier turns raw notifications into canonical actions. It holds no
// state besides the normalizer, so every decision depends on one event only.
type Classifier struct {
	norm *pathkey.Normalizer
}

func NewClassifier(norm *pathkey.Normalizer) *Classifier {
	return &Classifier{norm: norm}
}

func (c *Classifier) Classify(ev model.RawEvent) Decision {
	key, err := c.norm.ToKey(ev.Path, ev.IsDir)
	if err != nil {
		return dropped("", err.Error())
	}

	if key == c.norm.RootKey() {
		return dropped(key, "event on sync root")
	}

	switch ev.Kind {
	case model.EventCreated:
		return synced(key, creation(key))

	case model.EventModified:
		if ev.IsDir {
			return dropped(key, "directories carry no content")
		}
		return synced(key, UpdateFile(key))

	case model.EventDeleted:
		return synced(key, DeleteFile(key))

	case model.EventMovedFrom:
		return dropped(key, "moved-from is superseded by its moved-to")

	case model.EventMovedTo:
		if !ev.HasPairedSource() {
			return Decision{
				Outcome: OutcomeCreateOnly,
				Key:     key,
				Action:  creation(key),
			}
		}

		from, err := c.norm.ToKey(ev.SrcPath, ev.IsDir)
		if err != nil {
			// Moved in from outside the root: nothing remote refers to the
			// source, so this is a plain creation.
			return Decision{
				Outcome: OutcomeCreateOnly,
				Key:     key,
				Action:  creation(key),
			}
		}

		return Decision{
			Outcome: OutcomeRenameDetected,
			Key:     key,
			Rename:  Rename{From: from, To: key},
			Reason:  "cross-path rename is not synchronized",
		}

	default:
		return dropped(key, "unknown event kind "+string(ev.Kind))
	}
}

func creation(key pathkey.Key) Action {
	if key.IsDir() {
		return UploadDir(key)
	}

	return UploadFile(key)
}

func synced(key pathkey.Key, action Action) Decision {
	return Decision{Outcome: OutcomeSync, Key: key, Action: action}
}

func dropped(key pathkey.Key, reason string) Decision {
	return Decision{Outcome: OutcomeDropped, Key: key, Reason: reason}
}

package model

import "strings"

type EventKind string

const (
	EventCreated   EventKind = "CREATED"
	EventModified  EventKind = "MODIFIED"
	EventDeleted   EventKind = "DELETED"
	EventMovedFrom EventKind = "MOVED_FROM"
	EventMovedTo   EventKind = "MOVED_TO"
)

// EventMask selects which kinds a subscription delivers.
type EventMask uint8

const (
	MaskCreated EventMask = 1 << iota
	MaskModified
	MaskDeleted
	MaskMovedFrom
	MaskMovedTo

	MaskAll = MaskCreated | MaskModified | MaskDeleted | MaskMovedFrom | MaskMovedTo
)

func (m EventMask) Has(kind EventKind) bool {
	switch kind {
	case EventCreated:
		return m&MaskCreated != 0
	case EventModified:
		return m&MaskModified != 0
	case EventDeleted:
		return m&MaskDeleted != 0
	case EventMovedFrom:
		return m&MaskMovedFrom != 0
	case EventMovedTo:
		return m&MaskMovedTo != 0
	default:
		return false
	}
}

func (m EventMask) String() string {
	var parts []string
	for _, k := range []EventKind{EventCreated, EventModified, EventDeleted, EventMovedFrom, EventMovedTo} {
		if m.Has(k) {
			parts = append(parts, string(k))
		}
	}

	return strings.Join(parts, "|")
}

// RawEvent is a filesystem notification as delivered by a watcher backend.
// SrcPath is only set on moved-to events whose moved-from half the backend
// could correlate.
type RawEvent struct {
	Kind    EventKind
	Path    string
	IsDir   bool
	SrcPath string
}

func (e RawEvent) HasPairedSource() bool {
	return e.Kind == EventMovedTo && e.SrcPath != ""
}

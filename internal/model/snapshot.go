package model

import "time"

// SessionSnapshot is the status of a running sync session as served by the
// daemon.
type SessionSnapshot struct {
	Root      string     `json:"root"`
	Remote    string     `json:"remote"`
	Phase     string     `json:"phase"`
	StartedAt time.Time  `json:"started_at"`
	Synced    int        `json:"synced"`
	Failed    int        `json:"failed"`
	Watches   int        `json:"watches"`
	LastSync  *time.Time `json:"last_sync"`
	LastError string     `json:"last_error,omitempty"`
}

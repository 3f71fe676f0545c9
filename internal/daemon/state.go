package daemon

import (
	"sync"
	"time"

	"drivesync/internal/engine"
	"drivesync/internal/model"
)

// SessionState counts what a session applied. It is written by the engine
// goroutine and read by HTTP handlers.
type SessionState struct {
	mu        sync.RWMutex
	root      string
	remote    string
	phase     engine.Phase
	startedAt time.Time
	synced    int
	failed    int
	watches   int
	lastSync  *time.Time
	lastError string
}

func NewSessionState(root, remote string) *SessionState {
	return &SessionState{
		root:      root,
		remote:    remote,
		startedAt: time.Now(),
	}
}

func (s *SessionState) Observe(result engine.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := result.SyncedAt
	if at.IsZero() {
		at = time.Now()
	}
	s.lastSync = &at

	if result.Err != nil {
		s.failed++
		s.lastError = result.Err.Error()
	} else {
		s.synced++
	}
}

func (s *SessionState) SetPhase(phase engine.Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = phase
}

func (s *SessionState) SetWatches(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watches = n
}

func (s *SessionState) Snapshot() model.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return model.SessionSnapshot{
		Root:      s.root,
		Remote:    s.remote,
		Phase:     string(s.phase),
		StartedAt: s.startedAt,
		Synced:    s.synced,
		Failed:    s.failed,
		Watches:   s.watches,
		LastSync:  s.lastSync,
		LastError: s.lastError,
	}
}

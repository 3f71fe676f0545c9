package daemon

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"drivesync/internal/db"
	"drivesync/internal/engine"
	"drivesync/internal/model"
	"drivesync/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHistory(t *testing.T) *repository.HistoryRepository {
	t.Helper()

	conn, err := db.Open(":memory:")
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return repository.NewHistoryRepository(conn)
}

func serve(t *testing.T, srv *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestStatus(t *testing.T) {
	state := NewSessionState("/data/root", "gdrive:backup")
	state.SetPhase(engine.PhaseWatching)
	state.SetWatches(3)
	state.Observe(engine.Result{Action: engine.UploadFile("root/a.txt")})
	state.Observe(engine.Result{Action: engine.UploadFile("root/b.txt"), Err: errors.New("boom")})

	srv := NewServer(state, nil, 0)
	rec := serve(t, srv, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap model.SessionSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "/data/root", snap.Root)
	assert.Equal(t, "gdrive:backup", snap.Remote)
	assert.Equal(t, "WATCHING", snap.Phase)
	assert.Equal(t, 1, snap.Synced)
	assert.Equal(t, 1, snap.Failed)
	assert.Equal(t, 3, snap.Watches)
	assert.Equal(t, "boom", snap.LastError)
	assert.NotNil(t, snap.LastSync)
}

func TestHistory(t *testing.T) {
	repo := newHistory(t)
	repo.Observe(engine.Result{Action: engine.UploadFile("root/a.txt")})
	repo.Observe(engine.Result{Action: engine.DeleteFile("root/b.txt"), Err: errors.New("denied")})

	srv := NewServer(NewSessionState("/data/root", "local:/mnt"), repo, 0)

	rec := serve(t, srv, http.MethodGet, "/history")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []model.History
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 2)

	rec = serve(t, srv, http.MethodGet, "/history?failed=true")
	require.Equal(t, http.StatusOK, rec.Code)
	var failed []model.History
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &failed))
	require.Len(t, failed, 1)
	assert.Equal(t, "root/b.txt", failed[0].Key)

	rec = serve(t, srv, http.MethodGet, "/history?n=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryDisabled(t *testing.T) {
	srv := NewServer(NewSessionState("/data/root", "local:/mnt"), nil, 0)
	rec := serve(t, srv, http.MethodGet, "/history")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStop(t *testing.T) {
	srv := NewServer(NewSessionState("/data/root", "local:/mnt"), nil, 0)

	rec := serve(t, srv, http.MethodPost, "/stop")
	require.Equal(t, http.StatusOK, rec.Code)

	// A second request must not block while the first is pending.
	rec = serve(t, srv, http.MethodPost, "/stop")
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-srv.StopCh():
	default:
		t.Fatal("stop was not signalled")
	}
}

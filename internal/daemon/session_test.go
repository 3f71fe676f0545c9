package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"drivesync/internal/config"
	"drivesync/internal/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localConfig(target string) *config.Config {
	cfg := config.Default
	cfg.Remote = config.RemoteConfig{Backend: "local", LocalDir: target}
	cfg.Watcher.PollTimeout = 50 * time.Millisecond
	cfg.DaemonPort = 0
	return &cfg
}

func TestSessionMirrorsToLocalTarget(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "root")
	target := filepath.Join(base, "share")

	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "a.txt"), []byte("local"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".DS_Store"), []byte("x"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(target, "root"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "root", "remote.txt"), []byte("remote"), 0644))

	repo := newHistory(t)
	session := NewSession(localConfig(target), root, repo)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	require.Eventually(t, func() bool {
		return session.State().Snapshot().Phase == string(engine.PhaseWatching)
	}, 5*time.Second, 20*time.Millisecond)

	b, err := os.ReadFile(filepath.Join(target, "root", "sub", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "local", string(b))

	b, err = os.ReadFile(filepath.Join(root, "remote.txt"))
	require.NoError(t, err)
	assert.Equal(t, "remote", string(b))

	_, err = os.Stat(filepath.Join(target, "root", ".DS_Store"))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, os.WriteFile(filepath.Join(root, "live.txt"), []byte("live"), 0644))
	require.Eventually(t, func() bool {
		b, err := os.ReadFile(filepath.Join(target, "root", "live.txt"))
		return err == nil && string(b) == "live"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("session did not stop")
	}

	snap := session.State().Snapshot()
	assert.Equal(t, string(engine.PhaseStopped), snap.Phase)
	assert.GreaterOrEqual(t, snap.Synced, 3)

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(snap.Synced+snap.Failed), stats.Total)
}

func TestSessionCreatesMissingRoot(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "fresh")

	session := NewSession(localConfig(filepath.Join(base, "share")), root, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The cancelled context ends the session during enumeration.
	_ = session.Run(ctx)

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSessionUnknownBackend(t *testing.T) {
	cfg := localConfig(t.TempDir())
	cfg.Remote.Backend = "ftp"

	err := NewSession(cfg, filepath.Join(t.TempDir(), "root"), nil).Run(context.Background())
	assert.ErrorContains(t, err, "unsupported remote backend")
}

//go:build linux

package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"drivesync/internal/engine"
	"drivesync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInotifyPairsMoves(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	w, err := NewInotify()
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Subscribe(root, model.MaskAll, true))

	src := filepath.Join(root, "old.txt")
	dst := filepath.Join(root, "new.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	nextMatching(t, w, model.EventCreated, src)

	require.NoError(t, os.Rename(src, dst))
	nextMatching(t, w, model.EventMovedFrom, src)
	ev := nextMatching(t, w, model.EventMovedTo, dst)
	assert.Equal(t, src, ev.SrcPath)
	assert.True(t, ev.HasPairedSource())
}

func TestInotifyDirectoryFlag(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	w, err := NewInotify()
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Subscribe(root, model.MaskAll, true))

	dir := filepath.Join(root, "d")
	require.NoError(t, os.Mkdir(dir, 0o755))
	ev := nextMatching(t, w, model.EventCreated, dir)
	assert.True(t, ev.IsDir)
}

func TestInotifyNestedSubscription(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	w, err := NewInotify()
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Subscribe(root, model.MaskAll, true))
	require.NoError(t, w.Subscribe(sub, model.MaskAll, true))
	assert.Nil(t, w.subs[sub].ch)

	require.NoError(t, w.Unsubscribe(sub))
	assert.ErrorIs(t, w.Unsubscribe(sub), engine.ErrNotWatched)
}

func TestInotifyClosed(t *testing.T) {
	w, err := NewInotify()
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, _, err = w.Next(time.Second)
	assert.ErrorIs(t, err, engine.ErrSourceClosed)
}

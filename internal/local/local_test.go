package local

import (
	"context"
	"strings"
	"testing"

	"drivesync/internal/pathkey"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T) (*Tree, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	norm, err := pathkey.NewNormalizer("/data/notes")
	require.NoError(t, err)

	return NewTree(fs, norm), fs
}

func TestTree_Paths(t *testing.T) {
	tree, fs := newTestTree(t)
	require.NoError(t, fs.MkdirAll("/data/notes/sub/deep", 0755))
	require.NoError(t, fs.MkdirAll("/data/other", 0755))
	require.NoError(t, afero.WriteFile(fs, "/data/notes/a.txt", []byte("a"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/data/notes/sub/b.txt", []byte("b"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/data/other/c.txt", []byte("c"), 0644))

	keys, err := tree.Paths(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []pathkey.Key{
		"notes/",
		"notes/a.txt",
		"notes/sub/",
		"notes/sub/b.txt",
		"notes/sub/deep/",
	}, keys.Sorted())
}

func TestTree_PathsMissingRoot(t *testing.T) {
	tree, _ := newTestTree(t)

	_, err := tree.Paths(context.Background())
	assert.Error(t, err)
}

func TestTree_PathsCancelled(t *testing.T) {
	tree, fs := newTestTree(t)
	require.NoError(t, fs.MkdirAll("/data/notes", 0755))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tree.Paths(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTree_Writes(t *testing.T) {
	tree, fs := newTestTree(t)

	require.NoError(t, tree.CreateDir("notes/x/y/"))
	ok, err := afero.DirExists(fs, "/data/notes/x/y")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, tree.WriteFile("notes/x/y/z.txt", strings.NewReader("content")))
	b, err := afero.ReadFile(fs, "/data/notes/x/y/z.txt")
	require.NoError(t, err)
	assert.Equal(t, "content", string(b))

	assert.Error(t, tree.CreateDir("elsewhere/"))
	assert.Error(t, tree.WriteFile("elsewhere/a.txt", strings.NewReader("")))
}

package remote

import (
	"io"
	"testing"

	"drivesync/internal/pathkey"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRel(t *testing.T) {
	assert.Equal(t, "", Rel("root/"))
	assert.Equal(t, "a.txt", Rel("root/a.txt"))
	assert.Equal(t, "sub/deep", Rel("root/sub/deep/"))
}

func TestSplitPath(t *testing.T) {
	assert.Nil(t, SplitPath(""))
	assert.Nil(t, SplitPath("/"))
	assert.Equal(t, []string{"backup", "laptop"}, SplitPath("/backup/laptop/"))
}

func TestContentOpen(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/root/a.txt", []byte("hello"), 0644))

	norm, err := pathkey.NewNormalizer("/data/root")
	require.NoError(t, err)
	c := NewContent(fs, norm)

	assert.Equal(t, pathkey.Key("root/"), c.RootKey())

	f, err := c.Open("root/a.txt")
	require.NoError(t, err)
	defer f.Close()

	b, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	_, err = c.Open("root/missing.txt")
	assert.Error(t, err)

	_, err = c.Open("other/a.txt")
	assert.Error(t, err)
}

// Package remote holds what the storage backends share: access to the local
// content they upload and the mapping of keys onto backend relative paths.
package remote

import (
	"fmt"
	"strings"

	"drivesync/internal/pathkey"

	"github.com/spf13/afero"
)

// Content opens the local file behind a key.
type Content struct {
	fs   afero.Fs
	norm *pathkey.Normalizer
}

func NewContent(fs afero.Fs, norm *pathkey.Normalizer) *Content {
	return &Content{fs: fs, norm: norm}
}

func (c *Content) RootKey() pathkey.Key {
	return c.norm.RootKey()
}

func (c *Content) Open(key pathkey.Key) (afero.File, error) {
	path, err := c.norm.ToLocal(key)
	if err != nil {
		return nil, err
	}

	f, err := c.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return f, nil
}

// Rel returns the slash separated path of key below the root, or "" for the
// root itself.
func Rel(key pathkey.Key) string {
	segs := key.Segments()
	if len(segs) <= 1 {
		return ""
	}

	return strings.Join(segs[1:], "/")
}

// SplitPath splits a configured folder like "/backup/laptop" into its parts.
func SplitPath(p string) []string {
	p = strings.Trim(strings.ReplaceAll(p, "\\", "/"), "/")
	if p == "" {
		return nil
	}

	return strings.Split(p, "/")
}

// Package local implements the local side of a sync session: enumerating the
// keys under the root and writing keys downloaded from the remote.
package local

import (
	"context"
	"fmt"
	"io"
	"os"

	"drivesync/internal/logger"
	"drivesync/internal/pathkey"
	"drivesync/internal/util"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type Tree struct {
	fs   afero.Fs
	norm *pathkey.Normalizer
}

func NewTree(fs afero.Fs, norm *pathkey.Normalizer) *Tree {
	return &Tree{fs: fs, norm: norm}
}

// Paths walks the root once and returns every file and directory key,
// including the root itself.
func (t *Tree) Paths(ctx context.Context) (pathkey.Set, error) {
	keys := pathkey.NewSet()

	err := afero.Walk(t.fs, t.norm.Root(), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if !info.IsDir() && !info.Mode().IsRegular() {
			logger.Log.Debug("skipping special file",
				zap.String("path", path))
			return nil
		}

		key, err := t.norm.ToKey(path, info.IsDir())
		if err != nil {
			return err
		}

		keys.Add(key)
		return nil
	})
	if err != nil {
		return pathkey.Set{}, fmt.Errorf("failed to walk %s: %w", t.norm.Root(), err)
	}

	return keys, nil
}

func (t *Tree) CreateDir(key pathkey.Key) error {
	path, err := t.norm.ToLocal(key)
	if err != nil {
		return err
	}

	if err := t.fs.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create dir: %w", err)
	}

	return nil
}

func (t *Tree) WriteFile(key pathkey.Key, r io.Reader) error {
	path, err := t.norm.ToLocal(key)
	if err != nil {
		return err
	}

	return util.AtomicWrite(t.fs, path, r)
}

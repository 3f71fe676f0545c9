// Package localdir uses a mounted directory, such as a network share, as the
// remote side.
package localdir

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"drivesync/internal/logger"
	"drivesync/internal/pathkey"
	"drivesync/internal/remote"
	"drivesync/internal/util"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type Connector struct {
	fs      afero.Fs
	content *remote.Content
	rootKey pathkey.Key
	// dir is the remote copy of the synced root, <target>/<base name>.
	dir string
}

func New(fs afero.Fs, content *remote.Content, target string) (*Connector, error) {
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("invalid target path: %w", err)
	}

	rootKey := content.RootKey()
	dir := filepath.Join(absTarget, rootKey.Base())
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create target dir: %w", err)
	}

	logger.Log.Info("local connector ready",
		zap.String("dir", dir))

	return &Connector{
		fs:      fs,
		content: content,
		rootKey: rootKey,
		dir:     dir,
	}, nil
}

func (c *Connector) Paths(ctx context.Context) (pathkey.Set, error) {
	keys := pathkey.NewSet()

	err := afero.Walk(c.fs, c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(c.dir, path)
		if err != nil {
			return err
		}

		if rel == "." {
			keys.Add(c.rootKey)
			return nil
		}

		keys.Add(pathkey.Join(info.IsDir(), c.rootKey.Base(), filepath.ToSlash(rel)))
		return nil
	})
	if err != nil {
		return pathkey.Set{}, fmt.Errorf("failed to walk %s: %w", c.dir, err)
	}

	return keys, nil
}

func (c *Connector) UploadFile(ctx context.Context, key pathkey.Key) error {
	return c.copy(ctx, key)
}

func (c *Connector) UpdateFile(ctx context.Context, key pathkey.Key) error {
	return c.copy(ctx, key)
}

func (c *Connector) UploadDir(ctx context.Context, key pathkey.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.fs.MkdirAll(c.pathOf(key), 0755); err != nil {
		return fmt.Errorf("failed to create dir: %w", err)
	}

	return nil
}

func (c *Connector) DeleteFile(ctx context.Context, key pathkey.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return util.RemoveAllIfExists(c.fs, c.pathOf(key))
}

func (c *Connector) Download(ctx context.Context, key pathkey.Key) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := c.fs.Open(c.pathOf(key))
	if err != nil {
		return nil, fmt.Errorf("failed to open remote file: %w", err)
	}

	return f, nil
}

func (c *Connector) copy(ctx context.Context, key pathkey.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := c.content.Open(key)
	if err != nil {
		return err
	}
	defer func() {
		_ = src.Close()
	}()

	return util.AtomicWrite(c.fs, c.pathOf(key), src)
}

func (c *Connector) pathOf(key pathkey.Key) string {
	rel := remote.Rel(key)
	if rel == "" {
		return c.dir
	}

	return filepath.Join(c.dir, filepath.FromSlash(rel))
}

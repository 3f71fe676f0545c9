// Package dropbox mirrors keys into a Dropbox folder.
package dropbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"drivesync/internal/logger"
	"drivesync/internal/pathkey"
	"drivesync/internal/remote"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"go.uber.org/zap"
)

// The SDK calls take no context, so the connector checks ctx before each
// request instead.
type Connector struct {
	client  files.Client
	content *remote.Content
	rootKey pathkey.Key
	root    string
}

func New(ctx context.Context, client files.Client, content *remote.Content, folder string) (*Connector, error) {
	rootKey := content.RootKey()
	parts := append(remote.SplitPath(folder), rootKey.Base())

	c := &Connector{
		client:  client,
		content: content,
		rootKey: rootKey,
		root:    "/" + strings.Join(parts, "/"),
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := c.ensureFolder(c.root); err != nil {
		return nil, fmt.Errorf("failed to prepare dropbox folder: %w", err)
	}

	logger.Log.Info("dropbox connector ready",
		zap.String("folder", c.root))

	return c, nil
}

func (c *Connector) Paths(ctx context.Context) (pathkey.Set, error) {
	keys := pathkey.NewSet(c.rootKey)

	arg := files.NewListFolderArg(c.root)
	arg.Recursive = true

	resp, err := c.client.ListFolder(arg)
	if err != nil {
		return pathkey.Set{}, fmt.Errorf("failed to list dropbox folder: %w", err)
	}

	for {
		for _, entry := range resp.Entries {
			if key, ok := c.keyOf(entry); ok {
				keys.Add(key)
			}
		}

		if !resp.HasMore {
			break
		}

		if err := ctx.Err(); err != nil {
			return pathkey.Set{}, err
		}

		resp, err = c.client.ListFolderContinue(files.NewListFolderContinueArg(resp.Cursor))
		if err != nil {
			return pathkey.Set{}, fmt.Errorf("failed to continue dropbox listing: %w", err)
		}
	}

	return keys, nil
}

func (c *Connector) UploadFile(ctx context.Context, key pathkey.Key) error {
	return c.put(ctx, key)
}

func (c *Connector) UpdateFile(ctx context.Context, key pathkey.Key) error {
	return c.put(ctx, key)
}

func (c *Connector) UploadDir(ctx context.Context, key pathkey.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.ensureFolder(c.pathOf(key)); err != nil {
		return fmt.Errorf("failed to create dropbox folder: %w", err)
	}

	return nil
}

func (c *Connector) DeleteFile(ctx context.Context, key pathkey.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := c.client.DeleteV2(files.NewDeleteArg(c.pathOf(key))); err != nil {
		if isNotFound(err) {
			return nil
		}

		return fmt.Errorf("failed to delete from dropbox: %w", err)
	}

	return nil
}

func (c *Connector) Download(ctx context.Context, key pathkey.Key) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_, content, err := c.client.Download(files.NewDownloadArg(c.pathOf(key)))
	if err != nil {
		return nil, fmt.Errorf("failed to download from dropbox: %w", err)
	}

	return content, nil
}

func (c *Connector) put(ctx context.Context, key pathkey.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := c.content.Open(key)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	arg := files.NewUploadArg(c.pathOf(key))
	arg.Mode = &files.WriteMode{Tagged: dropbox.Tagged{Tag: files.WriteModeOverwrite}}
	arg.Autorename = false

	if _, err := c.client.Upload(arg, f); err != nil {
		return fmt.Errorf("failed to upload to dropbox: %w", err)
	}

	return nil
}

func (c *Connector) ensureFolder(path string) error {
	arg := files.NewCreateFolderArg(path)
	arg.Autorename = false

	if _, err := c.client.CreateFolderV2(arg); err != nil && !isConflict(err) {
		return err
	}

	return nil
}

func (c *Connector) pathOf(key pathkey.Key) string {
	rel := remote.Rel(key)
	if rel == "" {
		return c.root
	}

	return c.root + "/" + rel
}

// keyOf maps a listed entry back to its key. Dropbox paths are case
// insensitive, so the root prefix is compared with EqualFold.
func (c *Connector) keyOf(entry files.IsMetadata) (pathkey.Key, bool) {
	var (
		display string
		isDir   bool
	)

	switch m := entry.(type) {
	case *files.FileMetadata:
		display = m.PathDisplay
	case *files.FolderMetadata:
		display = m.PathDisplay
		isDir = true
	default:
		return "", false
	}

	if len(display) < len(c.root) || !strings.EqualFold(display[:len(c.root)], c.root) {
		return "", false
	}

	rel := strings.TrimPrefix(display[len(c.root):], "/")
	if rel == "" {
		return c.rootKey, true
	}

	return pathkey.Join(isDir, c.rootKey.Base(), rel), true
}

func isNotFound(err error) bool {
	if apiErr, ok := errors.AsType[files.DeleteV2APIError](err); ok {
		return apiErr.EndpointError != nil &&
			apiErr.EndpointError.PathLookup != nil &&
			apiErr.EndpointError.PathLookup.Tag == files.LookupErrorNotFound
	}

	return false
}

func isConflict(err error) bool {
	if apiErr, ok := errors.AsType[files.CreateFolderV2APIError](err); ok {
		return apiErr.EndpointError != nil &&
			apiErr.EndpointError.Path != nil &&
			apiErr.EndpointError.Path.Tag == files.WriteErrorConflict
	}

	return false
}

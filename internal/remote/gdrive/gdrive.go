// Package gdrive mirrors keys into a Google Drive folder, one Drive folder
// per directory key.
package gdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"drivesync/internal/logger"
	"drivesync/internal/pathkey"
	"drivesync/internal/remote"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

const folderMimeType = "application/vnd.google-apps.folder"

type Connector struct {
	mu      sync.RWMutex
	svc     *drive.Service
	content *remote.Content
	rootKey pathkey.Key
	rootID  string
	idCache map[pathkey.Key]string
}

// New prepares folder and, inside it, the folder named after the synced
// root, creating both when missing.
func New(ctx context.Context, svc *drive.Service, content *remote.Content, folder string) (*Connector, error) {
	c := &Connector{
		svc:     svc,
		content: content,
		rootKey: content.RootKey(),
		idCache: make(map[pathkey.Key]string),
	}

	parentID := "root"
	for _, part := range append(remote.SplitPath(folder), c.rootKey.Base()) {
		id, err := c.findChild(ctx, part, parentID, true)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare gdrive folder: %w", err)
		}

		if id == "" {
			id, err = c.createFolder(ctx, part, parentID)
			if err != nil {
				return nil, fmt.Errorf("failed to prepare gdrive folder: %w", err)
			}
		}

		parentID = id
	}

	c.rootID = parentID
	c.setCachedID(c.rootKey, parentID)

	logger.Log.Info("gdrive connector ready",
		zap.String("folder", folder),
		zap.String("root", c.rootKey.String()),
		zap.String("folder_id", parentID))

	return c, nil
}

// Paths lists the remote tree breadth first.
func (c *Connector) Paths(ctx context.Context) (pathkey.Set, error) {
	keys := pathkey.NewSet(c.rootKey)

	type dir struct {
		key pathkey.Key
		id  string
	}
	queue := []dir{{key: c.rootKey, id: c.rootID}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		q := fmt.Sprintf("'%s' in parents and trashed=false", cur.id)
		call := c.svc.Files.List().Q(q).
			Fields("nextPageToken, files(id, name, mimeType)").
			PageSize(1000)

		err := call.Pages(ctx, func(list *drive.FileList) error {
			for _, f := range list.Files {
				isDir := f.MimeType == folderMimeType
				key := pathkey.Join(isDir, cur.key.String(), f.Name)

				keys.Add(key)
				c.setCachedID(key, f.Id)

				if isDir {
					queue = append(queue, dir{key: key, id: f.Id})
				}
			}
			return nil
		})
		if err != nil {
			return pathkey.Set{}, fmt.Errorf("failed to list %s: %w", cur.key, err)
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
	_, err := c.ensureFolder(ctx, key)
	return err
}

// DeleteFile removes the Drive object behind key. Drive removes folder
// contents along with the folder. Missing objects are not an error.
func (c *Connector) DeleteFile(ctx context.Context, key pathkey.Key) error {
	id, err := c.idFor(ctx, key)
	if err != nil {
		return err
	}

	if id == "" {
		return nil
	}

	if err := c.svc.Files.Delete(id).Context(ctx).Do(); err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	c.forget(key)
	return nil
}

func (c *Connector) Download(ctx context.Context, key pathkey.Key) (io.ReadCloser, error) {
	id, err := c.idFor(ctx, key)
	if err != nil {
		return nil, err
	}

	if id == "" {
		return nil, fmt.Errorf("remote file %s not found", key)
	}

	resp, err := c.svc.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}

	return resp.Body, nil
}

// put creates the file or replaces the content of the existing one.
func (c *Connector) put(ctx context.Context, key pathkey.Key) error {
	parentID, err := c.ensureFolder(ctx, key.Parent())
	if err != nil {
		return fmt.Errorf("failed to create parent folders: %w", err)
	}

	f, err := c.content.Open(key)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	existingID, err := c.idFor(ctx, key)
	if err != nil {
		return err
	}

	if existingID != "" {
		_, err = c.svc.Files.Update(existingID, &drive.File{}).Media(f).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to update file: %w", err)
		}

		return nil
	}

	driveFile := &drive.File{
		Name:    key.Base(),
		Parents: []string{parentID},
	}

	created, err := c.svc.Files.Create(driveFile).Media(f).Fields("id").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	c.setCachedID(key, created.Id)
	return nil
}

// ensureFolder returns the id of the folder behind a directory key, creating
// it and any missing ancestors.
func (c *Connector) ensureFolder(ctx context.Context, key pathkey.Key) (string, error) {
	if key == c.rootKey || key == "" {
		return c.rootID, nil
	}

	if id := c.getCachedID(key); id != "" {
		return id, nil
	}

	parentID, err := c.ensureFolder(ctx, key.Parent())
	if err != nil {
		return "", err
	}

	id, err := c.findChild(ctx, key.Base(), parentID, true)
	if err != nil {
		return "", err
	}

	if id == "" {
		id, err = c.createFolder(ctx, key.Base(), parentID)
		if err != nil {
			return "", err
		}
	}

	c.setCachedID(key, id)
	return id, nil
}

// idFor resolves key to a Drive id without creating anything. It returns ""
// when some element of the key does not exist.
func (c *Connector) idFor(ctx context.Context, key pathkey.Key) (string, error) {
	if key == c.rootKey {
		return c.rootID, nil
	}

	if id := c.getCachedID(key); id != "" {
		return id, nil
	}

	parent := key.Parent()
	if parent == "" {
		return "", nil
	}

	parentID, err := c.idFor(ctx, parent)
	if err != nil || parentID == "" {
		return "", err
	}

	id, err := c.findChild(ctx, key.Base(), parentID, key.IsDir())
	if err != nil {
		return "", err
	}

	if id != "" {
		c.setCachedID(key, id)
	}

	return id, nil
}

func (c *Connector) findChild(ctx context.Context, name, parentID string, folder bool) (string, error) {
	op := "!="
	if folder {
		op = "="
	}

	q := fmt.Sprintf("name='%s' and '%s' in parents and mimeType%s'%s' and trashed=false",
		escapeName(name), parentID, op, folderMimeType)

	list, err := c.svc.Files.List().Q(q).Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to look up %s: %w", name, err)
	}

	if len(list.Files) == 0 {
		return "", nil
	}

	return list.Files[0].Id, nil
}

func (c *Connector) createFolder(ctx context.Context, name, parentID string) (string, error) {
	f := &drive.File{
		Name:     name,
		MimeType: folderMimeType,
		Parents:  []string{parentID},
	}

	created, err := c.svc.Files.Create(f).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create folder %s: %w", name, err)
	}

	return created.Id, nil
}

func (c *Connector) getCachedID(key pathkey.Key) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.idCache[key]
}

func (c *Connector) setCachedID(key pathkey.Key, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.idCache[key] = id
}

// forget drops key and, for directories, everything cached below it.
func (c *Connector) forget(key pathkey.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k := range c.idCache {
		if k == key || k.HasAncestor(key) {
			delete(c.idCache, k)
		}
	}
}

func escapeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "\\\\")
	return strings.ReplaceAll(name, "'", "\\'")
}

func isNotFound(err error) bool {
	if apiErr, ok := errors.AsType[*googleapi.Error](err); ok {
		return apiErr.Code == http.StatusNotFound
	}

	return false
}

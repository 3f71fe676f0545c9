package gdrive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"

	"drivesync/internal/pathkey"
	"drivesync/internal/remote"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

var (
	nameQuery   = regexp.MustCompile(`name='((?:[^'\\]|\\.)*)'`)
	parentQuery = regexp.MustCompile(`'([^']+)' in parents`)
	mimeQuery   = regexp.MustCompile(`mimeType(!?=)'`)
)

type fakeFile struct {
	id, name, parent, mime string
	content            string
}

// fakeDrive serves the subset of the Drive v3 files API the connector uses.
type fakeDrive struct {
	mu     sync.Mutex
	files  map[string]*fakeFile
	nextID int
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{files: make(map[string]*fakeFile)}
}

func (d *fakeDrive) add(name, parent, mime, content string) string {
	d.nextID++
	id := fmt.Sprintf("id%d", d.nextID)
	d.files[id] = &fakeFile{id: id, name: name, parent: parent, mime: mime, content: content}
	return id
}

func (d *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/files":
		d.list(w, r.URL.Query().Get("q"))

	case r.Method == http.MethodPost && r.URL.Path == "/files":
		var f drive.File
		if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		id := d.add(f.Name, f.Parents[0], f.MimeType, "")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id})

	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/files/"):
		id := strings.TrimPrefix(r.URL.Path, "/files/")
		if _, ok := d.files[id]; !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"code":404,"message":"not found"}}`)
			return
		}
		delete(d.files, id)
		w.WriteHeader(http.StatusNoContent)

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/files/"):
		f, ok := d.files[strings.TrimPrefix(r.URL.Path, "/files/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"code":404,"message":"not found"}}`)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = io.WriteString(w, f.content)

	default:
		http.Error(w, "unexpected request", http.StatusNotImplemented)
	}
}

func (d *fakeDrive) list(w http.ResponseWriter, q string) {
	parent := parentQuery.FindStringSubmatch(q)[1]

	var name string
	if m := nameQuery.FindStringSubmatch(q); m != nil {
		name = strings.ReplaceAll(m[1], `\'`, `'`)
	}

	mimeOp := ""
	if m := mimeQuery.FindStringSubmatch(q); m != nil {
		mimeOp = m[1]
	}

	out := &drive.FileList{Files: []*drive.File{}}
	for _, f := range d.files {
		if f.parent != parent {
			continue
		}
		if name != "" && f.name != name {
			continue
		}
		if mimeOp == "=" && f.mime != folderMimeType {
			continue
		}
		if mimeOp == "!=" && f.mime == folderMimeType {
			continue
		}
		out.Files = append(out.Files, &drive.File{Id: f.id, Name: f.name, MimeType: f.mime})
	}

	_ = json.NewEncoder(w).Encode(out)
}

func (d *fakeDrive) byName(name string) *fakeFile {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, f := range d.files {
		if f.name == name {
			return f
		}
	}
	return nil
}

func newConnector(t *testing.T, d *fakeDrive, folder string) *Connector {
	t.Helper()

	srv := httptest.NewServer(d)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	svc, err := drive.NewService(ctx,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	norm, err := pathkey.NewNormalizer("/data/root")
	require.NoError(t, err)

	c, err := New(ctx, svc, remote.NewContent(afero.NewMemMapFs(), norm), folder)
	require.NoError(t, err)
	return c
}

func TestNewCreatesFolders(t *testing.T) {
	d := newFakeDrive()
	c := newConnector(t, d, "/backup/laptop")

	backup := d.byName("backup")
	require.NotNil(t, backup)
	assert.Equal(t, "root", backup.parent)

	laptop := d.byName("laptop")
	require.NotNil(t, laptop)
	assert.Equal(t, backup.id, laptop.parent)

	root := d.byName("root")
	require.NotNil(t, root)
	assert.Equal(t, laptop.id, root.parent)
	assert.Equal(t, root.id, c.rootID)
}

func TestNewReusesExistingFolder(t *testing.T) {
	d := newFakeDrive()
	existing := d.add("root", "root", folderMimeType, "")

	c := newConnector(t, d, "")
	assert.Equal(t, existing, c.rootID)
	assert.Len(t, d.files, 1)
}

func TestPathsListsTree(t *testing.T) {
	d := newFakeDrive()
	rootID := d.add("root", "root", folderMimeType, "")
	sub := d.add("sub", rootID, folderMimeType, "")
	d.add("a.txt", rootID, "text/plain", "a")
	d.add("b.txt", sub, "text/plain", "b")

	c := newConnector(t, d, "")

	keys, err := c.Paths(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []pathkey.Key{"root/", "root/a.txt", "root/sub/", "root/sub/b.txt"}, keys.Sorted())
}

func TestUploadDirCreatesAncestors(t *testing.T) {
	d := newFakeDrive()
	c := newConnector(t, d, "")

	require.NoError(t, c.UploadDir(context.Background(), "root/x/y/"))

	x := d.byName("x")
	require.NotNil(t, x)
	assert.Equal(t, c.rootID, x.parent)

	y := d.byName("y")
	require.NotNil(t, y)
	assert.Equal(t, x.id, y.parent)
	assert.Equal(t, folderMimeType, y.mime)

	// Second call is served from the cache and the existing folder.
	require.NoError(t, c.UploadDir(context.Background(), "root/x/y/"))
	assert.Len(t, d.files, 3)
}

func TestDeleteFile(t *testing.T) {
	d := newFakeDrive()
	rootID := d.add("root", "root", folderMimeType, "")
	d.add("a.txt", rootID, "text/plain", "a")

	c := newConnector(t, d, "")

	require.NoError(t, c.DeleteFile(context.Background(), "root/a.txt"))
	assert.Nil(t, d.byName("a.txt"))

	// Already gone.
	require.NoError(t, c.DeleteFile(context.Background(), "root/a.txt"))
	require.NoError(t, c.DeleteFile(context.Background(), "root/missing/deep.txt"))
}

func TestDownload(t *testing.T) {
	d := newFakeDrive()
	rootID := d.add("root", "root", folderMimeType, "")
	d.add("a.txt", rootID, "text/plain", "remote content")

	c := newConnector(t, d, "")

	rc, err := c.Download(context.Background(), "root/a.txt")
	require.NoError(t, err)
	defer rc.Close()

	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "remote content", string(b))

	_, err = c.Download(context.Background(), "root/missing.txt")
	assert.Error(t, err)
}

func TestEscapeName(t *testing.T) {
	assert.Equal(t, `it\'s`, escapeName("it's"))
	assert.Equal(t, `a\\b`, escapeName(`a\b`))
}

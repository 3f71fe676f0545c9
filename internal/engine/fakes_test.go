package engine

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"drivesync/internal/model"
	"drivesync/internal/pathkey"
)

type fakeRemote struct {
	keys    pathkey.Set
	listErr error
	calls   []Action
	fail    map[Kind]error
	content map[pathkey.Key]string
}

func newFakeRemote(keys ...pathkey.Key) *fakeRemote {
	return &fakeRemote{
		keys:    pathkey.NewSet(keys...),
		fail:    make(map[Kind]error),
		content: make(map[pathkey.Key]string),
	}
}

func (r *fakeRemote) Paths(_ context.Context) (pathkey.Set, error) {
	return r.keys, r.listErr
}

func (r *fakeRemote) do(kind Kind, key pathkey.Key) error {
	r.calls = append(r.calls, Action{Kind: kind, Key: key})
	return r.fail[kind]
}

func (r *fakeRemote) UploadFile(_ context.Context, key pathkey.Key) error {
	return r.do(KindUploadFile, key)
}

func (r *fakeRemote) UploadDir(_ context.Context, key pathkey.Key) error {
	return r.do(KindUploadDir, key)
}

func (r *fakeRemote) UpdateFile(_ context.Context, key pathkey.Key) error {
	return r.do(KindUpdateFile, key)
}

func (r *fakeRemote) DeleteFile(_ context.Context, key pathkey.Key) error {
	return r.do(KindDeleteFile, key)
}

func (r *fakeRemote) Download(_ context.Context, key pathkey.Key) (io.ReadCloser, error) {
	if err := r.fail[KindDownloadFile]; err != nil {
		return nil, err
	}

	return io.NopCloser(strings.NewReader(r.content[key])), nil
}

type fakeLocal struct {
	keys pathkey.Set
	err  error
}

func (l *fakeLocal) Paths(_ context.Context) (pathkey.Set, error) {
	return l.keys, l.err
}

type fakeWriter struct {
	dirs  []pathkey.Key
	files map[pathkey.Key]string
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{files: make(map[pathkey.Key]string)}
}

func (w *fakeWriter) CreateDir(key pathkey.Key) error {
	w.dirs = append(w.dirs, key)
	return nil
}

func (w *fakeWriter) WriteFile(key pathkey.Key, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	w.files[key] = string(b)
	return nil
}

type subscription struct {
	path      string
	recursive bool
}

// scriptedSource replays a fixed list of events and then reports timeouts.
type scriptedSource struct {
	events       []model.RawEvent
	subscribed   []subscription
	unsubscribed []string
	subErr       error
	closed       bool
	onDrain      func()
}

func (s *scriptedSource) Subscribe(path string, _ model.EventMask, recursive bool) error {
	if s.subErr != nil {
		return s.subErr
	}

	s.subscribed = append(s.subscribed, subscription{path: path, recursive: recursive})
	return nil
}

func (s *scriptedSource) Unsubscribe(path string) error {
	s.unsubscribed = append(s.unsubscribed, path)
	return nil
}

func (s *scriptedSource) Next(_ time.Duration) (model.RawEvent, bool, error) {
	if s.closed {
		return model.RawEvent{}, false, ErrSourceClosed
	}

	if len(s.events) == 0 {
		if s.onDrain != nil {
			s.onDrain()
		}
		return model.RawEvent{}, false, nil
	}

	ev := s.events[0]
	s.events = s.events[1:]
	return ev, true, nil
}

func (s *scriptedSource) Close() error {
	s.closed = true
	return nil
}

var errTransient = errors.New("rate limited")

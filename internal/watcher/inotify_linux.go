//go:build linux

package watcher

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"drivesync/internal/engine"
	"drivesync/internal/logger"
	"drivesync/internal/model"

	"github.com/rjeczalik/notify"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const maxPendingMoves = 1024

var inotifyEvents = []notify.Event{
	notify.InCreate,
	notify.InModify,
	notify.InDelete,
	notify.InMovedFrom,
	notify.InMovedTo,
}

type subscription struct {
	mask      model.EventMask
	recursive bool
	// ch is nil when the path is already covered by a recursive ancestor.
	ch        chan notify.EventInfo
	stop      chan struct{}
}

// Inotify is the Linux backend. Unlike FSNotify it pairs moved-from and
// moved-to halves by their kernel cookie, so renames inside the tree carry
// their source path.
type Inotify struct {
	subs   map[string]*subscription
	events chan tagged
	done   chan struct{}
	once   sync.Once

	// Cookies of moved-from events awaiting their moved-to half.
	moves     map[uint32]string
	moveOrder []uint32
}

type tagged struct {
	root string
	info notify.EventInfo
}

func NewInotify() (*Inotify, error) {
	return &Inotify{
		subs:   make(map[string]*subscription),
		events: make(chan tagged, eventBufferSize),
		done:   make(chan struct{}),
		moves:  make(map[uint32]string),
	}, nil
}

func (w *Inotify) Subscribe(path string, mask model.EventMask, recursive bool) error {
	path = filepath.Clean(path)
	if _, ok := w.subs[path]; ok {
		return nil
	}

	if w.covered(path) {
		w.subs[path] = &subscription{mask: mask}
		return nil
	}

	target := path
	if recursive {
		target = filepath.Join(path, "...")
	}

	sub := &subscription{
		mask:      mask,
		recursive: recursive,
		ch:        make(chan notify.EventInfo, eventBufferSize),
		stop:      make(chan struct{}),
	}
	if err := notify.Watch(target, sub.ch, inotifyEvents...); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	w.subs[path] = sub
	go w.forward(path, sub)

	logger.Log.Debug("watching directory",
		zap.String("path", path),
		zap.Bool("recursive", recursive))
	return nil
}

func (w *Inotify) Unsubscribe(path string) error {
	path = filepath.Clean(path)
	if _, ok := w.subs[path]; !ok {
		return engine.ErrNotWatched
	}

	for p, sub := range w.subs {
		if !isUnder(p, path) {
			continue
		}

		w.release(sub)
		delete(w.subs, p)
	}

	return nil
}

func (w *Inotify) Next(timeout time.Duration) (model.RawEvent, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case t := <-w.events:
			if ev, keep := w.translate(t); keep {
				return ev, true, nil
			}

		case <-w.done:
			return model.RawEvent{}, false, engine.ErrSourceClosed

		case <-timer.C:
			return model.RawEvent{}, false, nil
		}
	}
}

func (w *Inotify) Close() error {
	w.once.Do(func() {
		for p, sub := range w.subs {
			w.release(sub)
			delete(w.subs, p)
		}
		close(w.done)
	})

	return nil
}

func (w *Inotify) covered(path string) bool {
	for p, sub := range w.subs {
		if sub.ch != nil && sub.recursive && p != path && isUnder(path, p) {
			return true
		}
	}

	return false
}

func (w *Inotify) release(sub *subscription) {
	if sub.ch == nil {
		return
	}

	notify.Stop(sub.ch)
	close(sub.stop)
}

func (w *Inotify) forward(root string, sub *subscription) {
	for {
		select {
		case info := <-sub.ch:
			select {
			case w.events <- tagged{root: root, info: info}:
			case <-sub.stop:
				return
			case <-w.done:
				return
			}
		case <-sub.stop:
			return
		case <-w.done:
			return
		}
	}
}

func (w *Inotify) translate(t tagged) (model.RawEvent, bool) {
	ev := model.RawEvent{Path: filepath.Clean(t.info.Path())}

	var cookie uint32
	if raw, ok := t.info.Sys().(*unix.InotifyEvent); ok {
		ev.IsDir = raw.Mask&unix.IN_ISDIR != 0
		cookie = raw.Cookie
	}

	switch t.info.Event() {
	case notify.InCreate:
		ev.Kind = model.EventCreated
	case notify.InModify:
		ev.Kind = model.EventModified
	case notify.InDelete:
		ev.Kind = model.EventDeleted
	case notify.InMovedFrom:
		ev.Kind = model.EventMovedFrom
		w.rememberMove(cookie, ev.Path)
	case notify.InMovedTo:
		ev.Kind = model.EventMovedTo
		if src, ok := w.moves[cookie]; ok {
			ev.SrcPath = src
			delete(w.moves, cookie)
		}
	default:
		return ev, false
	}

	mask := model.MaskAll
	if sub, ok := w.subs[t.root]; ok {
		mask = sub.mask
	}

	return ev, mask.Has(ev.Kind)
}

func (w *Inotify) rememberMove(cookie uint32, path string) {
	if cookie == 0 {
		return
	}

	if len(w.moveOrder) >= maxPendingMoves {
		delete(w.moves, w.moveOrder[0])
		w.moveOrder = w.moveOrder[1:]
	}

	w.moves[cookie] = path
	w.moveOrder = append(w.moveOrder, cookie)
}

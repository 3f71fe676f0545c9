// Package pathkey maps local filesystem paths to the slash separated keys that
// both sides of a sync session are indexed by.
//
// A key is rooted at the base name of the synchronized directory, so a file
// /home/me/notes/todo.md synced from /home/me/notes has the key
// "notes/todo.md". Directory keys end with a slash ("notes/sub/") and the
// root itself is "notes/".
package pathkey

import (
	"path"
	"strings"
)

type Key string

func (k Key) String() string {
	return string(k)
}

func (k Key) IsDir() bool {
	return strings.HasSuffix(string(k), "/")
}

// Base returns the last element of the key without the directory slash.
func (k Key) Base() string {
	return path.Base(strings.TrimSuffix(string(k), "/"))
}

// Parent returns the key of the enclosing directory, or "" for a top level
// key.
func (k Key) Parent() Key {
	trimmed := strings.TrimSuffix(string(k), "/")
	dir := path.Dir(trimmed)
	if dir == "." || dir == "/" {
		return ""
	}

	return Key(dir + "/")
}

// Segments splits the key into its path elements.
func (k Key) Segments() []string {
	trimmed := strings.Trim(string(k), "/")
	if trimmed == "" {
		return nil
	}

	return strings.Split(trimmed, "/")
}

// HasAncestor reports whether dir is a strict ancestor directory of k.
func (k Key) HasAncestor(dir Key) bool {
	if !dir.IsDir() || k == dir {
		return false
	}

	return strings.HasPrefix(string(k), string(dir))
}

// Join builds a key from path elements. isDir controls the trailing slash.
func Join(isDir bool, elems ...string) Key {
	p := strings.Trim(path.Join(elems...), "/")
	if p == "" || p == "." {
		return ""
	}

	if isDir {
		p += "/"
	}

	return Key(p)
}

package pathkey

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Normalizer converts between absolute local paths under Root and keys.
type Normalizer struct {
	root string
	base string
}

func NewNormalizer(root string) (*Normalizer, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid root path: %w", err)
	}

	absRoot = filepath.Clean(absRoot)
	base := filepath.Base(absRoot)
	if base == string(filepath.Separator) || base == "." {
		return nil, fmt.Errorf("cannot sync filesystem root %q", absRoot)
	}

	return &Normalizer{root: absRoot, base: base}, nil
}

func (n *Normalizer) Root() string {
	return n.root
}

func (n *Normalizer) RootKey() Key {
	return Key(n.base + "/")
}

// ToKey maps an absolute local path to its key.
func (n *Normalizer) ToKey(localPath string, isDir bool) (Key, error) {
	rel, err := filepath.Rel(n.root, filepath.Clean(localPath))
	if err != nil {
		return "", fmt.Errorf("failed to relativize %s: %w", localPath, err)
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside of %s", localPath, n.root)
	}

	if rel == "." {
		return n.RootKey(), nil
	}

	return Join(isDir, n.base, filepath.ToSlash(rel)), nil
}

// ToLocal maps a key back to its absolute local path.
func (n *Normalizer) ToLocal(key Key) (string, error) {
	segs := key.Segments()
	if len(segs) == 0 || segs[0] != n.base {
		return "", fmt.Errorf("key %q is not rooted at %q", key, n.base)
	}

	return filepath.Join(append([]string{n.root}, segs[1:]...)...), nil
}

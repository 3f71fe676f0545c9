// Package pipeline holds the ignore filter applied to both enumeration and
// live events.
package pipeline

import (
	"fmt"
	"path"
	"strings"

	"drivesync/internal/pathkey"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter drops keys matching an ignore list. A pattern without a slash is
// matched against every path element, so ".git" hides a whole repository
// metadata tree. A pattern with a slash is a doublestar glob matched against
// the key below the root, like "build/**/*.o".
type Filter struct {
	segment []string
	full    []string
}

func NewFilter(ignoreList []string) (*Filter, error) {
	f := &Filter{}

	for _, pattern := range ignoreList {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid ignore pattern %q", pattern)
		}

		if strings.Contains(strings.Trim(pattern, "/"), "/") {
			f.full = append(f.full, strings.Trim(pattern, "/"))
		} else {
			f.segment = append(f.segment, strings.Trim(pattern, "/"))
		}
	}

	return f, nil
}

func (f *Filter) Ignored(key pathkey.Key) bool {
	segs := key.Segments()
	if len(segs) <= 1 {
		// The root is never ignored.
		return false
	}

	for _, part := range segs[1:] {
		for _, pattern := range f.segment {
			if matched, err := path.Match(pattern, part); err == nil && matched {
				return true
			}
		}
	}

	rel := strings.Join(segs[1:], "/")
	for _, pattern := range f.full {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}

	return false
}

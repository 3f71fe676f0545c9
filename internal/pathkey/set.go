package pathkey

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// Set is the snapshot of keys one side holds at a point in time.
type Set struct {
	keys mapset.Set[Key]
}

func NewSet(keys ...Key) Set {
	return Set{keys: mapset.NewThreadUnsafeSet(keys...)}
}

func (s Set) Add(key Key) {
	s.keys.Add(key)
}

func (s Set) Contains(key Key) bool {
	if s.keys == nil {
		return false
	}

	return s.keys.Contains(key)
}

func (s Set) Len() int {
	if s.keys == nil {
		return 0
	}

	return s.keys.Cardinality()
}

// Difference returns the keys present in s but not in other.
func (s Set) Difference(other Set) Set {
	if s.keys == nil {
		return NewSet()
	}

	if other.keys == nil {
		return Set{keys: s.keys.Clone()}
	}

	return Set{keys: s.keys.Difference(other.keys)}
}

// Sorted returns the keys in lexical order. A directory key is a prefix of
// all of its descendants, so it always sorts before them.
func (s Set) Sorted() []Key {
	if s.keys == nil {
		return nil
	}

	keys := s.keys.ToSlice()
	slices.Sort(keys)
	return keys
}

// Without returns a copy of s minus the keys drop reports true for.
func (s Set) Without(drop func(Key) bool) Set {
	out := NewSet()
	if s.keys == nil {
		return out
	}

	for key := range s.keys.Iter() {
		if !drop(key) {
			out.Add(key)
		}
	}

	return out
}

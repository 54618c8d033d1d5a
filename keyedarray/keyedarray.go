// Package keyedarray implements an ordered collection with an O(1) key
// index, the Go-generic re-expression of the original library's
// ZifArray: a GPtrArray paired with a GHashTable built from a caller
// mapping function. Because Go generics fix the key function at
// construction time, the original's "undefined behaviour if the mapping
// function changes after items are inserted" caveat cannot arise here.
package keyedarray

import "fmt"

// Array is an insertion-ordered collection of T, indexed by a key
// extracted with the keyOf function passed to New.
type Array[T any] struct {
	keyOf func(T) string
	items []T
	index map[string]int // key -> position in items
}

// New returns an empty Array whose key for each element is keyOf(element).
func New[T any](keyOf func(T) string) *Array[T] {
	return &Array[T]{
		keyOf: keyOf,
		index: make(map[string]int),
	}
}

// Add appends v, returning false without modifying the array if an item
// with the same key is already present.
func (a *Array[T]) Add(v T) bool {
	k := a.keyOf(v)
	if _, ok := a.index[k]; ok {
		return false
	}
	a.index[k] = len(a.items)
	a.items = append(a.items, v)
	return true
}

// RemoveByKey removes the item with the given key, if present, returning
// whether an item was removed. Removal is O(n) to preserve insertion
// order of the remaining elements, matching zif_array_remove's semantics.
func (a *Array[T]) RemoveByKey(key string) bool {
	pos, ok := a.index[key]
	if !ok {
		return false
	}
	a.items = append(a.items[:pos], a.items[pos+1:]...)
	delete(a.index, key)
	for k, p := range a.index {
		if p > pos {
			a.index[k] = p - 1
		}
	}
	return true
}

// Remove removes v by recomputing its key. Equivalent to
// RemoveByKey(a.keyOf(v)).
func (a *Array[T]) Remove(v T) bool {
	return a.RemoveByKey(a.keyOf(v))
}

// LookupByKey returns the item with the given key and whether it was found.
func (a *Array[T]) LookupByKey(key string) (T, bool) {
	pos, ok := a.index[key]
	if !ok {
		var zero T
		return zero, false
	}
	return a.items[pos], true
}

// All returns the items in insertion order. The returned slice aliases
// internal storage and must not be mutated by the caller.
func (a *Array[T]) All() []T { return a.items }

// Len returns the number of items currently stored.
func (a *Array[T]) Len() int { return len(a.items) }

// String implements fmt.Stringer for debugging/log output.
func (a *Array[T]) String() string {
	return fmt.Sprintf("keyedarray.Array[%d items]", a.Len())
}

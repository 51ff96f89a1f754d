// Package set provides a small generic set used for key bookkeeping.
package set

import (
	"cmp"
	"slices"
)

type Void struct{}

// Set is a generic set type that can hold any comparable type
type Set[T comparable] map[T]Void

// New creates a new empty set
func New[T comparable]() Set[T] {
	return make(Set[T])
}

// Of creates a set holding the given items.
func Of[T comparable](items ...T) Set[T] {
	s := make(Set[T], len(items))
	s.AddList(items)
	return s
}

// Keys creates a set from the keys of a map.
func Keys[K comparable, V any](m map[K]V) Set[K] {
	s := make(Set[K], len(m))
	for k := range m {
		s.Add(k)
	}
	return s
}

// Add adds an item to the set
func (s Set[T]) Add(item T) {
	s[item] = Void{}
}

func (s Set[T]) AddList(items []T) {
	for i := range items {
		s[items[i]] = Void{}
	}
}

// Contains checks if an item exists in the set
func (s Set[T]) Contains(item T) bool {
	_, exists := s[item]
	return exists
}

// Size returns the number of items in the set
func (s Set[T]) Size() int {
	return len(s)
}

// IsEmpty returns true if the set is empty
func (s Set[T]) IsEmpty() bool {
	return len(s) == 0
}

// Difference returns the items of s that are not in other.
func (s Set[T]) Difference(other Set[T]) Set[T] {
	out := New[T]()
	for item := range s {
		if !other.Contains(item) {
			out[item] = Void{}
		}
	}
	return out
}

// ToSlice returns all items in the set as a slice
func (s Set[T]) ToSlice() []T {
	items := make([]T, 0, len(s))
	for item := range s {
		items = append(items, item)
	}
	return items
}

// Sorted returns the items of the set in ascending order.
func Sorted[T cmp.Ordered](s Set[T]) []T {
	items := s.ToSlice()
	slices.Sort(items)
	return items
}

// Package store provides template stores: sources of the key/value template
// map of one bundle for one locale suffix.
package store

import (
	"context"
	"maps"
	"sync"
)

// Templates maps operation names to raw templates.
type Templates map[string]string

// Clone returns a copy of t.
func (t Templates) Clone() Templates {
	if t == nil {
		return nil
	}
	return maps.Clone(t)
}

// Overlay copies every entry of src into t, replacing existing keys.
func (t Templates) Overlay(src Templates) {
	for k, v := range src {
		t[k] = v
	}
}

// Store fetches the templates of bundleID for one locale suffix such as "",
// "_fr" or "_fr_fr". found is false when no source exists for the suffix;
// err is reserved for I/O failures.
type Store interface {
	Fetch(ctx context.Context, bundleID, suffix string) (t Templates, found bool, err error)
}

// Func adapts a function to the Store interface.
type Func func(ctx context.Context, bundleID, suffix string) (Templates, bool, error)

func (f Func) Fetch(ctx context.Context, bundleID, suffix string) (Templates, bool, error) {
	return f(ctx, bundleID, suffix)
}

// Name returns the name template sources are stored under, e.g. "messages_fr_fr".
func Name(bundleID, suffix string) string {
	return bundleID + suffix
}

// MapStore is an in-memory Store safe for concurrent use.
type MapStore struct {
	mu      sync.RWMutex
	entries map[string]Templates
}

// NewMapStore creates an empty MapStore.
func NewMapStore() *MapStore {
	return &MapStore{entries: make(map[string]Templates)}
}

// Put stores a copy of t for bundleID and suffix, replacing any previous map.
func (s *MapStore) Put(bundleID, suffix string, t Templates) *MapStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[Name(bundleID, suffix)] = t.Clone()
	return s
}

// Delete removes the map of bundleID and suffix.
func (s *MapStore) Delete(bundleID, suffix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, Name(bundleID, suffix))
}

// Fetch returns a copy of the stored map.
func (s *MapStore) Fetch(_ context.Context, bundleID, suffix string) (Templates, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.entries[Name(bundleID, suffix)]
	if !ok {
		return nil, false, nil
	}
	return t.Clone(), true, nil
}

// Copyright 2025 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package fetchconf

import (
	"maps"
	"net/http"
	"slices"
	"sync"

	"github.com/maruel/fetchconf/reactive"
)

// DefaultHeaders returns the base headers used when Options.Headers is nil.
func DefaultHeaders() http.Header {
	return http.Header{"Content-Type": {"application/json"}}
}

// MergeHeaders returns a new header set built from layers in increasing
// precedence. A key present in a later layer replaces every value of the same
// key from the earlier ones. Keys are compared case-insensitively.
//
// Within one layer, spellings of the same key are applied in sorted order, so
// "content-type" wins over "Content-Type".
func MergeHeaders(layers ...http.Header) http.Header {
	out := http.Header{}
	for _, h := range layers {
		for _, k := range slices.Sorted(maps.Keys(h)) {
			out[http.CanonicalHeaderKey(k)] = slices.Clone(h[k])
		}
	}
	return out
}

// HeaderStore is a mutable set of headers that notifies on every change.
//
// It implements reactive.Ref[http.Header].
type HeaderStore struct {
	mu sync.RWMutex
	h  http.Header
	n  reactive.Notifier
}

// NewHeaderStore returns an empty store.
func NewHeaderStore() *HeaderStore {
	return &HeaderStore{h: http.Header{}}
}

// Get returns a copy of the headers.
func (s *HeaderStore) Get() http.Header {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.h.Clone()
}

// Value returns the first value associated with key.
func (s *HeaderStore) Value(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.h.Get(key)
}

// Set replaces the values of key with value.
func (s *HeaderStore) Set(key, value string) {
	s.mutate(func(h http.Header) { h.Set(key, value) })
}

// Add appends value to key.
func (s *HeaderStore) Add(key, value string) {
	s.mutate(func(h http.Header) { h.Add(key, value) })
}

// Del removes key.
func (s *HeaderStore) Del(key string) {
	s.mutate(func(h http.Header) { h.Del(key) })
}

// Replace swaps the whole content with a copy of h.
func (s *HeaderStore) Replace(h http.Header) {
	s.mutate(func(cur http.Header) {
		clear(cur)
		maps.Copy(cur, MergeHeaders(h))
	})
}

// Reset removes every header.
func (s *HeaderStore) Reset() {
	s.mutate(func(h http.Header) { clear(h) })
}

// Subscribe implements reactive.Signal.
func (s *HeaderStore) Subscribe(fn func()) func() {
	return s.n.Subscribe(fn)
}

// Volatile implements reactive.Signal.
func (s *HeaderStore) Volatile() bool {
	return false
}

func (s *HeaderStore) mutate(fn func(http.Header)) {
	s.mu.Lock()
	fn(s.h)
	s.mu.Unlock()
	s.n.Notify()
}

// mergedHeaders derives base, then auth when non-empty, then custom.
func mergedHeaders(base, auth reactive.Ref[http.Header], custom *HeaderStore) *reactive.Derived[http.Header] {
	return reactive.Derive(func() http.Header {
		layers := make([]http.Header, 0, 3)
		if base != nil {
			layers = append(layers, base.Get())
		}
		if auth != nil {
			if a := auth.Get(); len(a) != 0 {
				layers = append(layers, a)
			}
		}
		layers = append(layers, custom.Get())
		return MergeHeaders(layers...)
	}, base, auth, custom)
}

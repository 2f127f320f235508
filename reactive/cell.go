// Copyright 2025 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package reactive

import "sync"

// Cell is a mutable Ref. Every Set notifies the subscribers, even when the
// new value equals the old one.
type Cell[T any] struct {
	mu sync.RWMutex
	v  T
	n  Notifier
}

// NewCell returns a Cell holding v.
func NewCell[T any](v T) *Cell[T] {
	return &Cell[T]{v: v}
}

// Get implements Ref.
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v
}

// Set replaces the value and notifies.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
	c.n.Notify()
}

// Update replaces the value with fn(old) atomically, then notifies.
func (c *Cell[T]) Update(fn func(T) T) {
	c.mu.Lock()
	c.v = fn(c.v)
	c.mu.Unlock()
	c.n.Notify()
}

// Subscribe implements Signal.
func (c *Cell[T]) Subscribe(fn func()) func() {
	return c.n.Subscribe(fn)
}

// Volatile implements Signal.
func (c *Cell[T]) Volatile() bool {
	return false
}

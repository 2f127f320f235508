// Copyright 2025 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package reactive

import "sync"

// Link is a settable Ref that follows a source.
//
// It starts with the source's value. Each time the source changes to a value
// different from the last one seen, the link is overwritten with it. Set
// writes the link directly; the next source change wins again.
type Link[T comparable] struct {
	src Ref[T]
	n   Notifier

	mu   sync.Mutex
	v    T
	last T
	stop func()
}

// NewLink returns a Link following src. A nil src makes a plain cell holding
// the zero value.
func NewLink[T comparable](src Ref[T]) *Link[T] {
	l := &Link[T]{src: src, stop: func() {}}
	if src == nil {
		return l
	}
	l.last = src.Get()
	l.v = l.last
	stop := src.Subscribe(l.pull)
	l.mu.Lock()
	l.stop = stop
	l.mu.Unlock()
	return l
}

// Get implements Ref. A volatile source is polled first.
func (l *Link[T]) Get() T {
	if l.src != nil && l.src.Volatile() {
		l.pull()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.v
}

// Set overrides the current value until the source changes.
func (l *Link[T]) Set(v T) {
	l.mu.Lock()
	l.v = v
	l.mu.Unlock()
	l.n.Notify()
}

// Subscribe implements Signal.
func (l *Link[T]) Subscribe(fn func()) func() {
	return l.n.Subscribe(fn)
}

// Volatile implements Signal.
func (l *Link[T]) Volatile() bool {
	return l.src != nil && l.src.Volatile()
}

// Close stops following the source. The current value is kept.
func (l *Link[T]) Close() {
	l.mu.Lock()
	stop := l.stop
	l.stop = func() {}
	l.mu.Unlock()
	stop()
}

// pull reads the source under the lock, so concurrent pulls store the
// source's values in the order they were read.
func (l *Link[T]) pull() {
	l.mu.Lock()
	v := l.src.Get()
	if v == l.last {
		l.mu.Unlock()
		return
	}
	l.last = v
	l.v = v
	l.mu.Unlock()
	l.n.Notify()
}

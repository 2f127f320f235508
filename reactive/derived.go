// Copyright 2025 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package reactive

import "sync"

// Derived is a cached value computed from other refs.
//
// Any notification from a dependency marks it dirty and is forwarded to its
// own subscribers; the next Get recomputes. When one of the dependencies is
// volatile, every Get recomputes.
type Derived[T any] struct {
	fn func() T

	mu       sync.Mutex
	v        T
	valid    bool
	volatile bool
	gen      uint64
	cancels  []func()

	n Notifier
}

// Derive returns a Derived computing fn. deps must list every Ref fn reads;
// nil entries are ignored.
func Derive[T any](fn func() T, deps ...Signal) *Derived[T] {
	d := &Derived[T]{fn: fn}
	for _, dep := range deps {
		if dep == nil {
			continue
		}
		if dep.Volatile() {
			d.volatile = true
		}
		d.cancels = append(d.cancels, dep.Subscribe(d.invalidate))
	}
	return d
}

// Get implements Ref.
func (d *Derived[T]) Get() T {
	d.mu.Lock()
	if d.valid && !d.volatile {
		v := d.v
		d.mu.Unlock()
		return v
	}
	gen := d.gen
	d.mu.Unlock()

	// fn runs unlocked: reading a dependency may notify back into invalidate.
	v := d.fn()

	d.mu.Lock()
	if d.gen == gen {
		d.v = v
		d.valid = true
	}
	d.mu.Unlock()
	return v
}

// Subscribe implements Signal.
func (d *Derived[T]) Subscribe(fn func()) func() {
	return d.n.Subscribe(fn)
}

// Volatile implements Signal.
func (d *Derived[T]) Volatile() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.volatile
}

// Close detaches d from its dependencies. d stays readable but recomputes on
// every Get from then on.
func (d *Derived[T]) Close() {
	d.mu.Lock()
	cancels := d.cancels
	d.cancels = nil
	d.volatile = true
	d.valid = false
	d.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

func (d *Derived[T]) invalidate() {
	d.mu.Lock()
	d.valid = false
	d.gen++
	d.mu.Unlock()
	d.n.Notify()
}

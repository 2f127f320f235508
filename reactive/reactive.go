// Copyright 2025 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package reactive implements small reactive values with explicit dependency
// tracking.
//
// A Ref is read with Get and observed with Subscribe. Const, Func and Cell
// are the three ways to make one. Derive builds a cached value over other
// refs that is recomputed lazily once any of them changed.
package reactive

// Signal is the untyped part of a Ref, used to track dependencies.
type Signal interface {
	// Subscribe registers fn to be called after the value may have changed.
	// The returned function cancels the subscription; it is safe to call more
	// than once.
	Subscribe(fn func()) (cancel func())
	// Volatile reports whether the value can change without notification.
	// Dependents of a volatile signal must re-read it every time.
	Volatile() bool
}

// Ref is a value that can change over time.
type Ref[T any] interface {
	Signal
	Get() T
}

// Const returns a Ref that always yields v.
func Const[T any](v T) Ref[T] {
	return constant[T]{v: v}
}

// Func returns a Ref that calls fn on each read.
//
// fn cannot notify, so the Ref is volatile.
func Func[T any](fn func() T) Ref[T] {
	return getter[T](fn)
}

// ReadOnly hides the concrete type of r, so callers cannot type assert it
// back to a *Cell and mutate it.
func ReadOnly[T any](r Ref[T]) Ref[T] {
	if _, ok := r.(readOnly[T]); ok {
		return r
	}
	return readOnly[T]{r: r}
}

// Watch calls fn with the current value of r each time r signals.
//
// Nothing is ever reported for a volatile Ref without its own
// notifications.
func Watch[T any](r Ref[T], fn func(T)) (stop func()) {
	return r.Subscribe(func() { fn(r.Get()) })
}

//

type constant[T any] struct {
	v T
}

func (c constant[T]) Get() T                  { return c.v }
func (c constant[T]) Subscribe(func()) func() { return func() {} }
func (c constant[T]) Volatile() bool          { return false }

type getter[T any] func() T

func (g getter[T]) Get() T                  { return g() }
func (g getter[T]) Subscribe(func()) func() { return func() {} }
func (g getter[T]) Volatile() bool          { return true }

type readOnly[T any] struct {
	r Ref[T]
}

func (r readOnly[T]) Get() T                     { return r.r.Get() }
func (r readOnly[T]) Subscribe(fn func()) func() { return r.r.Subscribe(fn) }
func (r readOnly[T]) Volatile() bool             { return r.r.Volatile() }

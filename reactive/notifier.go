// Copyright 2025 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package reactive

import "sync"

// Notifier is a list of subscribers. The zero value is ready to use.
type Notifier struct {
	mu   sync.Mutex
	next uint64
	subs []subscriber
}

type subscriber struct {
	id uint64
	fn func()
}

// Subscribe implements Signal.
func (n *Notifier) Subscribe(fn func()) func() {
	n.mu.Lock()
	id := n.next
	n.next++
	n.subs = append(n.subs, subscriber{id: id, fn: fn})
	n.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			for i := range n.subs {
				if n.subs[i].id == id {
					n.subs = append(n.subs[:i:i], n.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Notify calls every subscriber in subscription order. It must not be called
// with a lock held that a subscriber could need.
func (n *Notifier) Notify() {
	n.mu.Lock()
	fns := make([]func(), len(n.subs))
	for i := range n.subs {
		fns[i] = n.subs[i].fn
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Len returns the number of active subscribers.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

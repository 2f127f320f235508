// Copyright 2025 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package fetchconf

import (
	"net/http"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// Throttle spaces requests to at most QPS per second.
//
// There is no allowance for bursts; it is meant to stay under a server's rate
// limiter, not to implement one.
type Throttle struct {
	Transport http.RoundTripper
	QPS       float64
	// Clock defaults to clockz.RealClock.
	Clock clockz.Clock

	mu   sync.Mutex
	next time.Time
}

// RoundTrip implements http.RoundTripper.
func (t *Throttle) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.QPS <= 0 {
		return t.Transport.RoundTrip(req)
	}
	clock := t.Clock
	if clock == nil {
		clock = clockz.RealClock
	}
	window := time.Duration(float64(time.Second) / t.QPS)

	t.mu.Lock()
	now := clock.Now()
	var sleep time.Duration
	if t.next.After(now) {
		sleep = t.next.Sub(now)
	}
	t.next = now.Add(sleep + window)
	t.mu.Unlock()

	if sleep > 0 {
		ctx := req.Context()
		select {
		case <-clock.After(sleep):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return t.Transport.RoundTrip(req)
}

// Unwrap implements Unwrapper.
func (t *Throttle) Unwrap() http.RoundTripper {
	return t.Transport
}

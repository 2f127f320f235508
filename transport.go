// Copyright 2025 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package fetchconf

import (
	"log/slog"
	"net/http"

	"github.com/zoobzio/clockz"
)

// TransportOptions configures NewTransport. The zero value is valid.
type TransportOptions struct {
	// Base is the innermost transport. Defaults to http.DefaultTransport.
	Base http.RoundTripper
	// Logger enables the Log layer.
	Logger   *slog.Logger
	LogLevel slog.Level
	// Retry defaults to DefaultRetryPolicy. Use &StatusRetry{} to disable.
	Retry RetryPolicy
	// QPS enables the Throttle layer when positive.
	QPS float64
	// PostEncoding enables the PostCompressed layer.
	PostEncoding string
	// Clock is used by Retry and Throttle. Defaults to clockz.RealClock.
	Clock clockz.Clock

	_ struct{}
}

// NewTransport returns the transport stack used by Define by default:
//
//	Throttle → Retry → RequestID → Log → PostCompressed → AcceptCompressed → Base
//
// Layers that are not enabled by opts are skipped. opts may be nil.
func NewTransport(opts *TransportOptions) http.RoundTripper {
	if opts == nil {
		opts = &TransportOptions{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockz.RealClock
	}
	t := opts.Base
	if t == nil {
		t = http.DefaultTransport
	}
	t = &AcceptCompressed{Transport: t}
	if opts.PostEncoding != "" {
		t = &PostCompressed{Transport: t, Encoding: opts.PostEncoding}
	}
	if opts.Logger != nil {
		t = &Log{Transport: t, Logger: opts.Logger, Level: opts.LogLevel}
	}
	t = &RequestID{Transport: t}
	t = &Retry{Transport: t, Policy: opts.Retry, Clock: clock}
	if opts.QPS > 0 {
		t = &Throttle{Transport: t, QPS: opts.QPS, Clock: clock}
	}
	return t
}

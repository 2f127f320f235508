// Copyright 2025 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package fetchconf configures HTTP fetches from reactive sources.
//
// Define takes a base URL, base headers and authorization headers, each a
// reactive.Ref that may change over time, e.g. when a token is refreshed.
// Every Client it returns reads their current values on each request, so
// nothing needs to be rebuilt when they change.
//
// Headers are merged in increasing precedence: the base headers, the auth
// headers, then the custom headers set through Client.CustomHeaders.
//
// The requests go through an http.RoundTripper stack built from the layers
// of this package: Throttle, Retry, RequestID, Log, PostCompressed,
// AcceptCompressed, HeaderTransport and Capture.
package fetchconf

import "net/http"

// Unwrapper is implemented by every http.RoundTripper of this package to
// expose the transport it wraps.
type Unwrapper interface {
	Unwrap() http.RoundTripper
}

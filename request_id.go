// Copyright 2025 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package fetchconf

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader is the header set by RequestID.
const RequestIDHeader = "X-Request-ID"

// RequestID is a http.RoundTripper that adds X-Request-ID to each request
// that doesn't already have one. The ID is reported in FetchError and by Log.
type RequestID struct {
	Transport http.RoundTripper

	_ struct{}
}

// RoundTrip implements http.RoundTripper.
func (r *RequestID) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(RequestIDHeader) != "" {
		return r.Transport.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set(RequestIDHeader, uuid.NewString())
	return r.Transport.RoundTrip(req)
}

// Unwrap implements Unwrapper.
func (r *RequestID) Unwrap() http.RoundTripper {
	return r.Transport
}

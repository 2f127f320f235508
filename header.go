// Copyright 2025 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package fetchconf

import (
	"net/http"

	"github.com/maruel/fetchconf/reactive"
)

// HeaderTransport is a http.RoundTripper that applies the current value of
// Header to each request.
//
// Header is read at send time, so a token refresh is picked up by the next
// request.
type HeaderTransport struct {
	Transport http.RoundTripper
	// Header is the headers to apply.
	// - A key with no value removes the key from the request.
	// - Otherwise the values replace the request's values for the key.
	Header reactive.Ref[http.Header]
	// KeepExisting leaves the keys the request already has untouched. Keys
	// with no value or only empty values are then skipped.
	KeepExisting bool

	_ struct{}
}

// RoundTrip implements http.RoundTripper.
func (h *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if h.Header == nil {
		return h.Transport.RoundTrip(req)
	}
	hdr := h.Header.Get()
	if len(hdr) == 0 {
		return h.Transport.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	for k, v := range hdr {
		if h.KeepExisting {
			if len(req.Header.Values(k)) != 0 || isEmpty(v) {
				continue
			}
		}
		if len(v) == 0 {
			req.Header.Del(k)
			continue
		}
		req.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), v...)
	}
	return h.Transport.RoundTrip(req)
}

// Unwrap implements Unwrapper.
func (h *HeaderTransport) Unwrap() http.RoundTripper {
	return h.Transport
}

func isEmpty(v []string) bool {
	for _, s := range v {
		if s != "" {
			return false
		}
	}
	return true
}

// Copyright 2025 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package fetchconf

import (
	"net/http"

	"github.com/maruel/fetchconf/reactive"
)

// BearerAuth returns the Authorization header for token, suitable for
// Options.Auth.
//
// The header is "Bearer <token>", or empty when the token is empty or token
// is nil. It follows token as it changes, e.g. on a refresh.
func BearerAuth(token reactive.Ref[string]) *reactive.Derived[http.Header] {
	return reactive.Derive(func() http.Header {
		var t string
		if token != nil {
			t = token.Get()
		}
		if t == "" {
			return http.Header{"Authorization": {""}}
		}
		return http.Header{"Authorization": {"Bearer " + t}}
	}, token)
}

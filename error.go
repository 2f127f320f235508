// Copyright 2025 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package fetchconf

import (
	"fmt"
	"net/http"
)

// FetchError is returned by Executor.Fetch when the request could not be sent
// or the server replied with a status of 400 or more.
type FetchError struct {
	Method string
	URL    string
	// StatusCode is 0 when no response was received.
	StatusCode int
	Status     string
	Header     http.Header
	// Data is the decoded error body, using the same rules as a successful
	// ResponseJSON response.
	Data any
	// RequestID is the X-Request-ID that was sent, if any.
	RequestID string
	// Err is the underlying error. It is nil for a plain HTTP error status.
	Err error
}

func (e *FetchError) Error() string {
	prefix := fmt.Sprintf("[%s] %q", e.Method, e.URL)
	if e.StatusCode == 0 {
		if e.Err == nil {
			return prefix + ": <no response>"
		}
		return prefix + ": <no response> " + e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Status, e.Err)
	}
	return prefix + ": " + e.Status
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Copyright 2025 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package fetchconf

import "github.com/zoobzio/capitan"

// Fetch signals.
var (
	// FetchSucceeded is emitted when Client.Fetch returns a response.
	FetchSucceeded = capitan.NewSignal(
		"fetchconf.fetch.succeeded",
		"Fetch completed",
	)

	// FetchFailed is emitted when Client.Fetch fails, before OnError runs.
	FetchFailed = capitan.NewSignal(
		"fetchconf.fetch.failed",
		"Fetch failed",
	)

	// BaseURLChanged is emitted when the base URL of a Definition changes,
	// either from its source or from Client.SetBaseURL.
	BaseURLChanged = capitan.NewSignal(
		"fetchconf.baseurl.changed",
		"Base URL changed",
	)
)

// Field keys for fetch events.
var (
	// KeyMethod is the HTTP method.
	KeyMethod = capitan.NewStringKey("method")

	// KeyURL is the request target as passed to Fetch.
	KeyURL = capitan.NewStringKey("url")

	// KeyBaseURL is the base URL.
	KeyBaseURL = capitan.NewStringKey("base_url")

	// KeyStatus is the HTTP status code, 0 when no response was received.
	KeyStatus = capitan.NewIntKey("status")

	// KeyError is the final error message, after ParseError.
	KeyError = capitan.NewStringKey("error")

	// KeyDuration is the time spent in the request.
	KeyDuration = capitan.NewDurationKey("duration")
)

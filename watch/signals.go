// Copyright 2025 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package watch

import "github.com/zoobzio/capitan"

// Watch lifecycle signals.
var (
	// WatchStarted is emitted once the initial content is loaded.
	WatchStarted = capitan.NewSignal(
		"fetchconf.watch.started",
		"File watch started",
	)

	// WatchStopped is emitted when the context ends or the watcher closes.
	WatchStopped = capitan.NewSignal(
		"fetchconf.watch.stopped",
		"File watch stopped",
	)

	// FileChanged is emitted when new content was decoded and stored.
	FileChanged = capitan.NewSignal(
		"fetchconf.watch.changed",
		"File content applied",
	)

	// DecodeFailed is emitted when new content was rejected.
	DecodeFailed = capitan.NewSignal(
		"fetchconf.watch.decode.failed",
		"File content rejected",
	)

	// WatchError is emitted on fsnotify errors.
	WatchError = capitan.NewSignal(
		"fetchconf.watch.error",
		"File watcher error",
	)
)

// Field keys for watch events.
var (
	// KeyPath is the watched file.
	KeyPath = capitan.NewStringKey("path")

	// KeyError is the error message.
	KeyError = capitan.NewStringKey("error")
)

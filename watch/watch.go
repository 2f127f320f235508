// Copyright 2025 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package watch mirrors files into reactive cells.
//
// It is meant for credentials and settings that are rotated on disk, like a
// projected service account token:
//
//	token, err := watch.Token(ctx, "/var/run/secrets/token")
//	if err != nil {
//	    return err
//	}
//	def := fetchconf.Define(&fetchconf.Options{Auth: fetchconf.BearerAuth(token)})
package watch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/maruel/fetchconf/reactive"
	"github.com/zoobzio/capitan"
)

// File returns a cell holding the decoded content of path, kept up to date
// until ctx is done.
//
// The initial content must decode; an error is returned otherwise. Later
// content that fails to decode is reported with the DecodeFailed signal and
// the previous value is kept.
//
// The parent directory is watched, so atomic replacements by rename are
// seen.
func File[T any](ctx context.Context, path string, decode Decoder[T]) (*reactive.Cell[T], error) {
	path = filepath.Clean(path)
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err = w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	v, err := decode(raw)
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	cell := reactive.NewCell(v)
	capitan.Emit(ctx, WatchStarted, KeyPath.Field(path))
	go func() {
		defer func() {
			_ = w.Close()
			capitan.Emit(context.WithoutCancel(ctx), WatchStopped, KeyPath.Field(path))
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-w.Events:
				if !ok {
					return
				}
				// Any change in the directory may be a swap of the file, so
				// compare the content instead of the event name.
				data, err := os.ReadFile(path)
				if err != nil || bytes.Equal(data, raw) {
					continue
				}
				raw = data
				v, err := decode(data)
				if err != nil {
					capitan.Emit(ctx, DecodeFailed, KeyPath.Field(path), KeyError.Field(err.Error()))
					continue
				}
				cell.Set(v)
				capitan.Emit(ctx, FileChanged, KeyPath.Field(path))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				// Keep watching.
				capitan.Emit(ctx, WatchError, KeyPath.Field(path), KeyError.Field(err.Error()))
			}
		}
	}()
	return cell, nil
}

// Token watches a file holding a bearer token.
func Token(ctx context.Context, path string) (*reactive.Cell[string], error) {
	return File(ctx, path, Text)
}

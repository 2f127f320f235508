// Copyright 2025 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package fetchconf

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Log is a http.RoundTripper that logs each request and response via slog.
//
// It logs at Level, unless the request fails or the response body can't be
// read; then it logs at error level. Header values are never logged, since
// they carry credentials.
type Log struct {
	Transport http.RoundTripper
	Logger    *slog.Logger
	Level     slog.Level
	// IncludeResponseBody logs the response body once closed, instead of its
	// size.
	IncludeResponseBody bool

	_ struct{}
}

// RoundTrip implements http.RoundTripper.
func (l *Log) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ll := logger.With("dur", elapsed{start: time.Now()})
	if id := req.Header.Get(RequestIDHeader); id != "" {
		ll = ll.With("id", id)
	}
	ll.Log(ctx, l.Level, "fetch", "method", req.Method, "url", req.URL.String(), "headers", len(req.Header))
	resp, err := l.Transport.RoundTrip(req)
	if err != nil {
		ll.ErrorContext(ctx, "fetch", "err", err)
		return resp, err
	}
	ll.Log(ctx, l.Level, "fetch", "status", resp.StatusCode, "Content-Type", resp.Header.Get("Content-Type"), "Content-Encoding", resp.Header.Get("Content-Encoding"))
	resp.Body = &logBody{body: resp.Body, ctx: ctx, l: ll, level: l.Level, keep: l.IncludeResponseBody}
	return resp, nil
}

// Unwrap implements Unwrapper.
func (l *Log) Unwrap() http.RoundTripper {
	return l.Transport
}

//

type logBody struct {
	body  io.ReadCloser
	ctx   context.Context
	l     *slog.Logger
	level slog.Level
	keep  bool

	content []byte
	size    int64
	err     error
}

func (b *logBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	b.size += int64(n)
	if b.keep {
		b.content = append(b.content, p[:n]...)
	}
	if err != nil && err != io.EOF && b.err == nil {
		b.err = err
	}
	return n, err
}

func (b *logBody) Close() error {
	err := b.body.Close()
	if err != nil && b.err == nil {
		b.err = err
	}
	level := b.level
	if b.err != nil {
		level = slog.LevelError
	}
	if b.keep {
		b.l.Log(b.ctx, level, "fetch", "size", b.size, "body", string(b.content), "err", b.err)
	} else {
		b.l.Log(b.ctx, level, "fetch", "size", b.size, "err", b.err)
	}
	return err
}

type elapsed struct {
	start time.Time
}

func (e elapsed) LogValue() slog.Value {
	return slog.DurationValue(time.Since(e.start))
}

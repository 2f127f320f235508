// Copyright 2025 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package fetchconf

import (
	"bytes"
	"io"
	"net/http"
)

// Record is a request and its outcome captured by Capture.
type Record struct {
	Request *http.Request
	// Response's Body is replaced with the content that was read.
	Response *http.Response
	Err      error

	_ struct{}
}

// Capture is a http.RoundTripper that sends a Record to C for each request.
//
// When a response is received, the Record is sent once its body is closed.
type Capture struct {
	Transport http.RoundTripper
	C         chan<- Record

	_ struct{}
}

// RoundTrip implements http.RoundTripper.
func (c *Capture) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := c.Transport.RoundTrip(req)
	if resp == nil {
		c.C <- Record{Request: req, Err: err}
		return resp, err
	}
	snapshot := &http.Response{}
	*snapshot = *resp
	resp.Body = &captureBody{body: resp.Body, req: req, resp: snapshot, c: c.C}
	return resp, err
}

// Unwrap implements Unwrapper.
func (c *Capture) Unwrap() http.RoundTripper {
	return c.Transport
}

type captureBody struct {
	body    io.ReadCloser
	req     *http.Request
	resp    *http.Response
	c       chan<- Record
	content bytes.Buffer
	err     error
}

func (b *captureBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	_, _ = b.content.Write(p[:n])
	if err != nil && err != io.EOF && b.err == nil {
		b.err = err
	}
	return n, err
}

func (b *captureBody) Close() error {
	err := b.body.Close()
	b.resp.Body = io.NopCloser(bytes.NewReader(b.content.Bytes()))
	b.c <- Record{Request: b.req, Response: b.resp, Err: b.err}
	return err
}

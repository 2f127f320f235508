// Copyright 2025 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package fetchconf

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// AcceptEncoding is the Accept-Encoding sent by AcceptCompressed, preferred
// first.
const AcceptEncoding = "zstd, br, gzip"

// AcceptCompressed lets the client accept zstd, br and gzip compressed
// responses and decompresses them transparently.
type AcceptCompressed struct {
	Transport http.RoundTripper

	_ struct{}
}

// RoundTrip implements http.RoundTripper.
func (a *AcceptCompressed) RoundTrip(req *http.Request) (*http.Response, error) {
	// Setting Accept-Encoding disables the standard library's transparent gzip.
	req = req.Clone(req.Context())
	req.Header.Set("Accept-Encoding", AcceptEncoding)
	resp, err := a.Transport.RoundTrip(req)
	if resp == nil {
		return resp, err
	}
	ce := resp.Header.Get("Content-Encoding")
	if ce == "" || ce == "identity" {
		return resp, err
	}
	dec, ok := decoders[ce]
	if !ok {
		_ = resp.Body.Close()
		return nil, errors.Join(fmt.Errorf("unsupported Content-Encoding %q", ce), err)
	}
	r, err2 := dec(resp.Body)
	if err2 != nil {
		_ = resp.Body.Close()
		return nil, errors.Join(err2, err)
	}
	resp.Body = &decodedBody{r: r, orig: resp.Body}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return resp, err
}

// Unwrap implements Unwrapper.
func (a *AcceptCompressed) Unwrap() http.RoundTripper {
	return a.Transport
}

// PostCompressed compresses request bodies with Encoding.
//
// Most servers do not accept compressed requests; only use it against one
// that does.
type PostCompressed struct {
	Transport http.RoundTripper
	// Encoding is one of "zstd", "br" or "gzip".
	Encoding string
	// Level is the compression level. 0 selects a fast level.
	// - "br" uses values between 1 and 11.
	// - "gzip" uses values between 1 and 9.
	// - "zstd" uses values between 1 and 4.
	Level int

	_ struct{}
}

// RoundTrip implements http.RoundTripper.
func (p *PostCompressed) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body == nil || req.Body == http.NoBody || req.Header.Get("Content-Encoding") != "" {
		// Nothing to compress or it is already encoded.
		return p.Transport.RoundTrip(req)
	}
	enc, ok := encoders[p.Encoding]
	if !ok {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		if p.Encoding == "" {
			return nil, errors.New("PostCompressed requires Encoding")
		}
		return nil, fmt.Errorf("invalid Encoding value: %q", p.Encoding)
	}
	req, err := rewindable(req)
	if err != nil {
		return nil, err
	}
	getBody := req.GetBody
	req.Body = compressed(req.Body, enc, p.Level)
	req.GetBody = func() (io.ReadCloser, error) {
		b, err := getBody()
		if err != nil {
			return nil, err
		}
		return compressed(b, enc, p.Level), nil
	}
	req.ContentLength = -1
	req.Header.Del("Content-Length")
	req.Header.Set("Content-Encoding", p.Encoding)
	return p.Transport.RoundTrip(req)
}

// Unwrap implements Unwrapper.
func (p *PostCompressed) Unwrap() http.RoundTripper {
	return p.Transport
}

//

var decoders = map[string]func(io.Reader) (io.ReadCloser, error){
	"br": func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(brotli.NewReader(r)), nil
	},
	"gzip": func(r io.Reader) (io.ReadCloser, error) {
		return gzip.NewReader(r)
	},
	"zstd": func(r io.Reader) (io.ReadCloser, error) {
		d, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	},
}

var encoders = map[string]func(w io.Writer, level int) (io.WriteCloser, error){
	"br": func(w io.Writer, level int) (io.WriteCloser, error) {
		if level == 0 {
			level = 3
		}
		return brotli.NewWriterLevel(w, level), nil
	},
	"gzip": func(w io.Writer, level int) (io.WriteCloser, error) {
		if level == 0 {
			level = 3
		}
		return gzip.NewWriterLevel(w, level)
	},
	"zstd": func(w io.Writer, level int) (io.WriteCloser, error) {
		l := zstd.EncoderLevel(level)
		if l == 0 {
			l = zstd.SpeedFastest
		}
		return zstd.NewWriter(w, zstd.WithEncoderLevel(l))
	},
}

// compressed streams body through enc.
func compressed(body io.ReadCloser, enc func(io.Writer, int) (io.WriteCloser, error), level int) io.ReadCloser {
	r, w := io.Pipe()
	go func() {
		c, err := enc(w, level)
		if err != nil {
			_ = body.Close()
			_ = w.CloseWithError(err)
			return
		}
		_, err = io.Copy(c, body)
		if err2 := body.Close(); err == nil {
			err = err2
		}
		if err2 := c.Close(); err == nil {
			err = err2
		}
		_ = w.CloseWithError(err)
	}()
	return r
}

type decodedBody struct {
	r    io.ReadCloser
	orig io.ReadCloser
}

func (d *decodedBody) Read(p []byte) (int, error) {
	return d.r.Read(p)
}

func (d *decodedBody) Close() error {
	// Close the decoder first, then the network body.
	return errors.Join(d.r.Close(), d.orig.Close())
}

// Copyright 2025 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package fetchconf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ResponseType selects how Executor.Fetch decodes a response body.
type ResponseType int

const (
	// ResponseJSON decodes JSON. It is the default.
	ResponseJSON ResponseType = iota
	// ResponseText returns the body as a string.
	ResponseText
	// ResponseBytes returns the body as []byte.
	ResponseBytes
	// ResponseStream returns the body as an io.ReadCloser the caller must
	// close.
	ResponseStream
)

func (r ResponseType) String() string {
	switch r {
	case ResponseJSON:
		return "json"
	case ResponseText:
		return "text"
	case ResponseBytes:
		return "bytes"
	case ResponseStream:
		return "stream"
	default:
		return fmt.Sprintf("ResponseType(%d)", int(r))
	}
}

// RequestOptions are the per-call options of a fetch.
type RequestOptions struct {
	// Method defaults to GET.
	Method string
	// Query values replace the same keys in the target's query string.
	Query url.Values
	// Header overrides the executor's headers key by key.
	Header http.Header
	// Body is sent as is for []byte, string and io.Reader, form encoded for
	// url.Values and JSON encoded otherwise.
	Body         any
	ResponseType ResponseType
	// Result, when set, receives the decoded JSON body. It must be a pointer.
	Result any

	_ struct{}
}

// Response is the outcome of a successful fetch.
type Response struct {
	StatusCode int
	Header     http.Header
	// Data is the decoded body:
	//   - ResponseJSON: Result if set, else the value decoded into an any; a
	//     body that is not JSON is returned as a string and an empty body as
	//     nil.
	//   - ResponseText: string.
	//   - ResponseBytes: []byte.
	//   - ResponseStream: io.ReadCloser.
	Data any

	_ struct{}
}

// Fetcher is implemented by Client and Executor.
type Fetcher interface {
	Fetch(ctx context.Context, target string, opts *RequestOptions) (*Response, error)
}

// FetchJSON fetches target and decodes the JSON response into a T.
func FetchJSON[T any](ctx context.Context, f Fetcher, target string, opts *RequestOptions) (T, error) {
	var out T
	o := RequestOptions{}
	if opts != nil {
		o = *opts
	}
	o.ResponseType = ResponseJSON
	o.Result = &out
	if _, err := f.Fetch(ctx, target, &o); err != nil {
		return out, err
	}
	return out, nil
}

// Executor issues requests against a fixed base URL with fixed headers.
//
// It is cheap to create; Client builds one per call with the values current
// at that time.
type Executor struct {
	BaseURL string
	Header  http.Header
	// Client defaults to http.DefaultClient.
	Client *http.Client

	_ struct{}
}

// Fetch sends one request. Any failure is returned as a *FetchError.
func (e *Executor) Fetch(ctx context.Context, target string, opts *RequestOptions) (*Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	u, err := resolveURL(e.BaseURL, target, opts.Query)
	if err != nil {
		return nil, &FetchError{Method: method, URL: target, Err: err}
	}
	body, contentType, err := encodeBody(opts.Body)
	if err != nil {
		return nil, &FetchError{Method: method, URL: u, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, &FetchError{Method: method, URL: u, Err: err}
	}
	req.Header = MergeHeaders(e.Header, opts.Header)
	// The body's type replaces the executor's Content-Type, not the call's.
	if contentType != "" && opts.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	c := e.Client
	if c == nil {
		c = http.DefaultClient
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, &FetchError{Method: method, URL: u, RequestID: req.Header.Get(RequestIDHeader), Err: err}
	}
	if resp.StatusCode >= 400 {
		fe := &FetchError{
			Method:     method,
			URL:        u,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Header:     resp.Header,
			RequestID:  requestID(resp, req),
		}
		b, err := io.ReadAll(resp.Body)
		if err2 := resp.Body.Close(); err == nil {
			err = err2
		}
		fe.Err = err
		fe.Data = decodeAny(b)
		return nil, fe
	}
	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header}
	if opts.ResponseType == ResponseStream {
		out.Data = resp.Body
		return out, nil
	}
	b, err := io.ReadAll(resp.Body)
	if err2 := resp.Body.Close(); err == nil {
		err = err2
	}
	if err != nil {
		return nil, &FetchError{Method: method, URL: u, StatusCode: resp.StatusCode, Status: resp.Status, Header: resp.Header, RequestID: requestID(resp, req), Err: err}
	}
	switch opts.ResponseType {
	case ResponseText:
		out.Data = string(b)
	case ResponseBytes:
		out.Data = b
	case ResponseJSON:
		if opts.Result == nil {
			out.Data = decodeAny(b)
			break
		}
		if len(bytes.TrimSpace(b)) != 0 {
			if err = json.Unmarshal(b, opts.Result); err != nil {
				return nil, &FetchError{Method: method, URL: u, StatusCode: resp.StatusCode, Status: resp.Status, Header: resp.Header, RequestID: requestID(resp, req), Data: string(b), Err: fmt.Errorf("failed to decode response: %w", err)}
			}
		}
		out.Data = opts.Result
	default:
		return nil, &FetchError{Method: method, URL: u, StatusCode: resp.StatusCode, Status: resp.Status, Err: fmt.Errorf("unsupported response type %s", opts.ResponseType)}
	}
	return out, nil
}

// resolveURL joins target to base and applies query.
func resolveURL(base, target string, query url.Values) (string, error) {
	s := target
	switch {
	case base == "" || strings.Contains(target, "://") || strings.HasPrefix(target, base):
	case target == "":
		s = base
	default:
		s = strings.TrimRight(base, "/") + "/" + strings.TrimLeft(target, "/")
	}
	if len(query) == 0 {
		return s, nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, v := range query {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// encodeBody returns the request body and the Content-Type it implies, if
// any.
func encodeBody(v any) (io.Reader, string, error) {
	switch b := v.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return bytes.NewReader(b), "", nil
	case string:
		return strings.NewReader(b), "", nil
	case url.Values:
		return strings.NewReader(b.Encode()), "application/x-www-form-urlencoded", nil
	case io.Reader:
		return b, "", nil
	default:
		d, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode body: %w", err)
		}
		return bytes.NewReader(d), "application/json", nil
	}
}

// decodeAny decodes JSON, falling back to the raw text.
func decodeAny(b []byte) any {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	var v any
	d := json.NewDecoder(bytes.NewReader(b))
	if err := d.Decode(&v); err != nil {
		return string(b)
	}
	if _, err := d.Token(); !errors.Is(err, io.EOF) {
		return string(b)
	}
	return v
}

func requestID(resp *http.Response, req *http.Request) string {
	if resp.Request != nil {
		if id := resp.Request.Header.Get(RequestIDHeader); id != "" {
			return id
		}
	}
	return req.Header.Get(RequestIDHeader)
}

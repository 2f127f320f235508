// Copyright 2025 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package fetchconf

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/maruel/fetchconf/reactive"
	"github.com/zoobzio/capitan"
)

// Options configures Define. Every field is optional.
type Options struct {
	// BaseURL is prepended to relative request targets. When it is a live
	// Ref, later changes are followed.
	BaseURL reactive.Ref[string]
	// Headers are the base headers. Defaults to DefaultHeaders().
	Headers reactive.Ref[http.Header]
	// Auth headers override Headers. See BearerAuth.
	Auth reactive.Ref[http.Header]
	// ParseError translates a failed fetch into the error returned to the
	// caller. Returning nil keeps the original error.
	ParseError func(err *FetchError) error
	// OnError is called once with the final error of every failed fetch,
	// before it is returned.
	OnError func(err error)
	// Transport defaults to NewTransport(nil).
	Transport http.RoundTripper

	_ struct{}
}

// Definition holds the reactive state shared by every Client it creates.
type Definition struct {
	parseError func(*FetchError) error
	onError    func(error)
	transport  http.RoundTripper
	client     *http.Client

	baseURL *reactive.Link[string]
	custom  *HeaderStore
	headers *reactive.Derived[http.Header]
	stop    func()
}

// Define wires the reactive sources of opts. opts may be nil.
//
// Call New to get a Client; call Close once no more Client is needed to stop
// following Options.BaseURL.
func Define(opts *Options) *Definition {
	if opts == nil {
		opts = &Options{}
	}
	base := opts.Headers
	if base == nil {
		base = reactive.Const(DefaultHeaders())
	}
	t := opts.Transport
	if t == nil {
		t = NewTransport(nil)
	}
	d := &Definition{
		parseError: opts.ParseError,
		onError:    opts.OnError,
		transport:  t,
		client:     &http.Client{Transport: t},
		baseURL:    reactive.NewLink(opts.BaseURL),
		custom:     NewHeaderStore(),
	}
	d.headers = mergedHeaders(base, opts.Auth, d.custom)
	d.stop = reactive.Watch[string](d.baseURL, func(u string) {
		capitan.Emit(context.Background(), BaseURLChanged, KeyBaseURL.Field(u))
	})
	return d
}

// New returns a Client view over d. Views share all their state.
func (d *Definition) New() *Client {
	return &Client{d: d}
}

// Close stops following Options.BaseURL and releases the merged headers'
// subscriptions. Clients remain usable with the last known values.
func (d *Definition) Close() {
	d.stop()
	d.baseURL.Close()
	d.headers.Close()
}

// Client fetches with the current state of its Definition.
type Client struct {
	d *Definition
}

// Fetch sends a request with the base URL and headers current at the time of
// the call.
//
// A failure goes through Options.ParseError then Options.OnError. The
// resulting error is always returned.
func (c *Client) Fetch(ctx context.Context, target string, opts *RequestOptions) (*Response, error) {
	start := time.Now()
	resp, err := c.Executor(nil).Fetch(ctx, target, opts)
	method := http.MethodGet
	if opts != nil && opts.Method != "" {
		method = opts.Method
	}
	if err == nil {
		capitan.Emit(ctx, FetchSucceeded,
			KeyMethod.Field(method),
			KeyURL.Field(target),
			KeyStatus.Field(resp.StatusCode),
			KeyDuration.Field(time.Since(start)),
		)
		return resp, nil
	}
	return nil, c.d.fail(ctx, method, target, time.Since(start), err)
}

// Executor returns an Executor bound to the current base URL and to header,
// or to the merged headers when header is nil.
func (c *Client) Executor(header http.Header) *Executor {
	if header == nil {
		header = c.d.headers.Get()
	}
	return &Executor{
		BaseURL: c.d.baseURL.Get(),
		Header:  header.Clone(),
		Client:  c.d.client,
	}
}

// CustomHeaders returns the store whose headers override every other source.
func (c *Client) CustomHeaders() *HeaderStore {
	return c.d.custom
}

// Headers returns the merged headers as a read-only Ref. The value must not be
// modified; use Header for a private copy.
func (c *Client) Headers() reactive.Ref[http.Header] {
	return reactive.ReadOnly[http.Header](c.d.headers)
}

// Header returns a copy of the current merged headers.
func (c *Client) Header() http.Header {
	return c.d.headers.Get().Clone()
}

// BaseURL returns the current base URL.
func (c *Client) BaseURL() string {
	return c.d.baseURL.Get()
}

// BaseURLRef returns the base URL as a read-only Ref.
func (c *Client) BaseURLRef() reactive.Ref[string] {
	return reactive.ReadOnly[string](c.d.baseURL)
}

// SetBaseURL overrides the base URL until Options.BaseURL changes again.
func (c *Client) SetBaseURL(u string) {
	c.d.baseURL.Set(u)
}

// HTTPClient returns an *http.Client that adds the merged headers to each
// request. Useful to hand to a third party SDK.
//
// Headers set by the caller on the request are kept; empty merged headers,
// like the Authorization of an unset token, are not sent.
func (c *Client) HTTPClient() *http.Client {
	return &http.Client{
		Transport: &HeaderTransport{
			Transport:    c.d.transport,
			Header:       c.Headers(),
			KeepExisting: true,
		},
	}
}

func (d *Definition) fail(ctx context.Context, method, target string, dur time.Duration, err error) error {
	final := err
	var fe *FetchError
	if errors.As(err, &fe) && d.parseError != nil {
		if perr := d.parseError(fe); perr != nil {
			final = perr
		}
	}
	status := 0
	if fe != nil {
		status = fe.StatusCode
	}
	capitan.Emit(ctx, FetchFailed,
		KeyMethod.Field(method),
		KeyURL.Field(target),
		KeyStatus.Field(status),
		KeyError.Field(final.Error()),
		KeyDuration.Field(dur),
	)
	if d.onError != nil {
		d.onError(final)
	}
	return final
}

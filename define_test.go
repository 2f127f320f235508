// Copyright 2025 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package fetchconf_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/maruel/fetchconf"
	"github.com/maruel/fetchconf/reactive"
)

// noRetry is a transport that never retries, to keep error tests fast.
var noRetry = fetchconf.NewTransport(&fetchconf.TransportOptions{Retry: &fetchconf.StatusRetry{}})

func TestDefine_defaultHeaders(t *testing.T) {
	def := fetchconf.Define(nil)
	defer def.Close()
	c := def.New()
	if got := c.Header(); !reflect.DeepEqual(got, http.Header{"Content-Type": {"application/json"}}) {
		t.Fatal(got)
	}
	if got := c.BaseURL(); got != "" {
		t.Fatal(got)
	}
}

func TestDefine_precedence(t *testing.T) {
	def := fetchconf.Define(&fetchconf.Options{
		Headers: reactive.Const(http.Header{"X-A": {"base"}, "X-B": {"base"}, "X-C": {"base"}}),
		Auth:    reactive.Const(http.Header{"x-b": {"auth"}, "x-c": {"auth"}}),
	})
	defer def.Close()
	c := def.New()
	c.CustomHeaders().Set("x-C", "custom")
	want := http.Header{"X-A": {"base"}, "X-B": {"auth"}, "X-C": {"custom"}}
	if got := c.Header(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDefine_authReactivity(t *testing.T) {
	token := reactive.NewCell("first")
	def := fetchconf.Define(&fetchconf.Options{Auth: fetchconf.BearerAuth(token)})
	defer def.Close()
	c := def.New()
	changes := 0
	stop := c.Headers().Subscribe(func() { changes++ })
	defer stop()
	if got := c.Header().Get("Authorization"); got != "Bearer first" {
		t.Fatal(got)
	}
	token.Set("second")
	if got := c.Header().Get("Authorization"); got != "Bearer second" {
		t.Fatal(got)
	}
	if changes != 1 {
		t.Fatal(changes)
	}
	if got := c.Header().Get("Content-Type"); got != "application/json" {
		t.Fatal(got)
	}
}

func TestDefine_authGetter(t *testing.T) {
	tok := "a"
	def := fetchconf.Define(&fetchconf.Options{
		Auth: fetchconf.BearerAuth(reactive.Func(func() string { return tok })),
	})
	defer def.Close()
	c := def.New()
	_ = c.Header()
	tok = "b"
	if got := c.Header().Get("Authorization"); got != "Bearer b" {
		t.Fatal(got)
	}
}

func TestDefine_customHeaders(t *testing.T) {
	def := fetchconf.Define(&fetchconf.Options{
		Auth: reactive.Const(http.Header{"X-Trace-Id": {"auth"}}),
	})
	defer def.Close()
	c := def.New()
	c.CustomHeaders().Set("X-Trace-Id", "abc")
	if got := c.Header().Get("X-Trace-Id"); got != "abc" {
		t.Fatal(got)
	}
	c.CustomHeaders().Del("X-Trace-Id")
	if got := c.Header().Get("X-Trace-Id"); got != "auth" {
		t.Fatal(got)
	}
}

func TestDefine_sharedViews(t *testing.T) {
	def := fetchconf.Define(nil)
	defer def.Close()
	c1 := def.New()
	c2 := def.New()
	if c1 == c2 {
		t.Fatal("expected distinct views")
	}
	c1.CustomHeaders().Set("X-One", "1")
	c2.CustomHeaders().Set("X-Two", "2")
	if !reflect.DeepEqual(c1.Header(), c2.Header()) {
		t.Fatal(c1.Header(), c2.Header())
	}
	if got := c1.Header().Get("X-Two"); got != "2" {
		t.Fatal(got)
	}
	c2.SetBaseURL("https://shared.test")
	if got := c1.BaseURL(); got != "https://shared.test" {
		t.Fatal(got)
	}
}

type customError struct {
	msg string
}

func (c *customError) Error() string {
	return c.msg
}

func TestDefine_errorTranslation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
	}))
	defer ts.Close()
	var seen []error
	def := fetchconf.Define(&fetchconf.Options{
		BaseURL: reactive.Const(ts.URL),
		ParseError: func(err *fetchconf.FetchError) error {
			if m, ok := err.Data.(map[string]any); ok {
				return &customError{msg: fmt.Sprint(m["message"])}
			}
			return nil
		},
		OnError:   func(err error) { seen = append(seen, err) },
		Transport: noRetry,
	})
	defer def.Close()
	_, err := def.New().Fetch(context.Background(), "/x", nil)
	var ce *customError
	if !errors.As(err, &ce) || ce.msg != "boom" {
		t.Fatalf("%T %v", err, err)
	}
	if len(seen) != 1 || seen[0] != err {
		t.Fatalf("OnError calls: %v", seen)
	}
}

func TestDefine_errorPassthrough(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer ts.Close()
	calls := 0
	def := fetchconf.Define(&fetchconf.Options{
		BaseURL:    reactive.Const(ts.URL),
		ParseError: func(*fetchconf.FetchError) error { return nil },
		OnError:    func(error) { calls++ },
		Transport:  noRetry,
	})
	defer def.Close()
	_, err := def.New().Fetch(context.Background(), "/x", nil)
	var fe *fetchconf.FetchError
	if !errors.As(err, &fe) || fe.StatusCode != http.StatusForbidden || fe.Data != "nope\n" {
		t.Fatalf("%#v", err)
	}
	if calls != 1 {
		t.Fatal(calls)
	}
}

func TestClient_HTTPClient_keepsRequestHeaders(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, "%s|%s|%s", r.Header.Get("Content-Type"), r.Header.Get("Authorization"), r.Header.Get("X-Trace-Id"))
	}))
	defer ts.Close()
	def := fetchconf.Define(&fetchconf.Options{Auth: fetchconf.BearerAuth(reactive.Const(""))})
	defer def.Close()
	c := def.New()
	c.CustomHeaders().Set("X-Trace-Id", "abc")
	hc := c.HTTPClient()

	req, err := http.NewRequest(http.MethodPost, ts.URL, strings.NewReader("a=1"))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic sdk")
	resp, err := hc.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	b, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), "application/x-www-form-urlencoded|Basic sdk|abc"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	// Without a token, no empty Authorization is sent.
	resp, err = hc.Get(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	b, err = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), "application/json||abc"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDefine_onErrorPanics(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()
	data := []struct {
		name       string
		parseError func(*fetchconf.FetchError) error
		onError    func(error)
		want       string
	}{
		{"ParseError", func(*fetchconf.FetchError) error { panic("parse") }, nil, "parse"},
		{"OnError", nil, func(error) { panic("report") }, "report"},
	}
	for _, line := range data {
		t.Run(line.name, func(t *testing.T) {
			def := fetchconf.Define(&fetchconf.Options{
				BaseURL:    reactive.Const(ts.URL),
				ParseError: line.parseError,
				OnError:    line.onError,
				Transport:  noRetry,
			})
			defer def.Close()
			returned := false
			func() {
				defer func() {
					if r := recover(); r != line.want {
						t.Errorf("recovered %v, want %q", r, line.want)
					}
				}()
				_, _ = def.New().Fetch(context.Background(), "/x", nil)
				returned = true
			}()
			if returned {
				t.Fatal("Fetch returned normally")
			}
		})
	}
}

func TestDefine_baseURLPropagation(t *testing.T) {
	var hitsA, hitsB atomic.Int32
	a := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hitsA.Add(1)
		_, _ = w.Write([]byte("{}"))
	}))
	defer a.Close()
	b := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hitsB.Add(1)
		_, _ = w.Write([]byte("{}"))
	}))
	defer b.Close()

	base := reactive.NewCell(a.URL)
	def := fetchconf.Define(&fetchconf.Options{BaseURL: base})
	defer def.Close()
	c := def.New()
	ctx := context.Background()
	if _, err := c.Fetch(ctx, "/ping", nil); err != nil {
		t.Fatal(err)
	}
	base.Set(b.URL)
	if got := c.BaseURL(); got != b.URL {
		t.Fatal(got)
	}
	if _, err := c.Fetch(ctx, "/ping", nil); err != nil {
		t.Fatal(err)
	}
	if hitsA.Load() != 1 || hitsB.Load() != 1 {
		t.Fatal(hitsA.Load(), hitsB.Load())
	}

	// A manual override holds until the source changes again.
	c.SetBaseURL(a.URL)
	if got := c.BaseURLRef().Get(); got != a.URL {
		t.Fatal(got)
	}
	base.Set(b.URL + "/v2")
	if got := c.BaseURL(); got != b.URL+"/v2" {
		t.Fatal(got)
	}
}

func TestDefine_close(t *testing.T) {
	base := reactive.NewCell("https://a.test")
	def := fetchconf.Define(&fetchconf.Options{BaseURL: base})
	c := def.New()
	def.Close()
	base.Set("https://b.test")
	if got := c.BaseURL(); got != "https://a.test" {
		t.Fatal(got)
	}
	// Headers are still computed after Close.
	c.CustomHeaders().Set("X-After", "1")
	if got := c.Header().Get("X-After"); got != "1" {
		t.Fatal(got)
	}
}

func TestClient_Executor(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, "%q", r.Header.Get("X-Only"))
	}))
	defer ts.Close()
	def := fetchconf.Define(&fetchconf.Options{BaseURL: reactive.Const(ts.URL)})
	defer def.Close()
	c := def.New()
	e := c.Executor(http.Header{"X-Only": {"me"}})
	if e.BaseURL != ts.URL {
		t.Fatal(e.BaseURL)
	}
	if _, ok := e.Header["Content-Type"]; ok {
		t.Fatal("explicit headers must replace the merged headers")
	}
	resp, err := e.Fetch(context.Background(), "/", nil)
	if err != nil || resp.Data != "me" {
		t.Fatal(resp, err)
	}
	if got := c.Executor(nil).Header.Get("Content-Type"); got != "application/json" {
		t.Fatal(got)
	}
}

func TestClient_HTTPClient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("Authorization")))
	}))
	defer ts.Close()
	token := reactive.NewCell("one")
	def := fetchconf.Define(&fetchconf.Options{Auth: fetchconf.BearerAuth(token)})
	defer def.Close()
	hc := def.New().HTTPClient()
	for _, want := range []string{"one", "two"} {
		token.Set(want)
		resp, err := hc.Get(ts.URL)
		if err != nil {
			t.Fatal(err)
		}
		b, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			t.Fatal(err)
		}
		if got := string(b); got != "Bearer "+want {
			t.Fatal(got)
		}
	}
}

func TestClient_FetchJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"fetchconf","stars":3}`))
	}))
	defer ts.Close()
	def := fetchconf.Define(&fetchconf.Options{BaseURL: reactive.Const(ts.URL)})
	defer def.Close()
	type repo struct {
		Name  string `json:"name"`
		Stars int    `json:"stars"`
	}
	got, err := fetchconf.FetchJSON[repo](context.Background(), def.New(), "/repo", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "fetchconf" || got.Stars != 3 {
		t.Fatalf("%+v", got)
	}
}

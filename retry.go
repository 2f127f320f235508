// Copyright 2025 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package fetchconf

import (
	"bytes"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/zoobzio/clockz"
)

// Retry is a http.RoundTripper that sends a request again according to
// Policy.
type Retry struct {
	Transport http.RoundTripper
	// Policy defaults to DefaultRetryPolicy.
	Policy RetryPolicy
	// Clock defaults to clockz.RealClock.
	Clock clockz.Clock

	_ struct{}
}

// RoundTrip implements http.RoundTripper.
func (r *Retry) RoundTrip(req *http.Request) (*http.Response, error) {
	policy := r.Policy
	if policy == nil {
		policy = &DefaultRetryPolicy
	}
	clock := r.Clock
	if clock == nil {
		clock = clockz.RealClock
	}
	req, err := rewindable(req)
	if err != nil {
		return nil, err
	}
	ctx := req.Context()
	resp, err := r.Transport.RoundTrip(req)
	for try := 0; ctx.Err() == nil && policy.ShouldRetry(req, try, resp, err); try++ {
		wait := policy.Delay(try)
		if resp != nil {
			// A server sending Retry-After knows better.
			if d, ok := parseRetryAfter(resp.Header.Get("Retry-After"), clock.Now()); ok {
				wait = d
			}
		}
		select {
		case <-ctx.Done():
			// Return the previous try untouched.
			return resp, err
		case <-clock.After(wait):
		}
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
		if req.GetBody != nil {
			if req.Body, err = req.GetBody(); err != nil {
				return nil, err
			}
		}
		resp, err = r.Transport.RoundTrip(req)
	}
	return resp, err
}

// Unwrap implements Unwrapper.
func (r *Retry) Unwrap() http.RoundTripper {
	return r.Transport
}

// RetryPolicy determines when Retry sends a request again.
type RetryPolicy interface {
	// ShouldRetry is called after attempt try, starting at 0, returned resp
	// or err.
	ShouldRetry(req *http.Request, try int, resp *http.Response, err error) bool
	// Delay is the wait before the attempt following try, unless the server
	// sent Retry-After.
	Delay(try int) time.Duration
}

// DefaultRetryStatusCodes are the HTTP statuses retried by
// DefaultRetryPolicy.
var DefaultRetryStatusCodes = []int{
	http.StatusRequestTimeout,      // 408
	http.StatusConflict,            // 409
	http.StatusTooEarly,            // 425
	http.StatusTooManyRequests,     // 429
	http.StatusInternalServerError, // 500
	http.StatusBadGateway,          // 502
	http.StatusServiceUnavailable,  // 503
	http.StatusGatewayTimeout,      // 504
}

// DefaultRetryPolicy retries once, except for requests with a payload.
var DefaultRetryPolicy = StatusRetry{
	Count:       1,
	StatusCodes: DefaultRetryStatusCodes,
}

// StatusRetry retries transport errors and a set of HTTP statuses.
type StatusRetry struct {
	// Count is the number of retries of GET, HEAD, OPTIONS and other methods
	// without a payload.
	Count int
	// PayloadCount is the number of retries of POST, PUT, PATCH and DELETE.
	PayloadCount int
	// Wait is the delay between tries.
	Wait time.Duration
	// StatusCodes are the retried HTTP statuses.
	StatusCodes []int
}

// ShouldRetry implements RetryPolicy.
func (s *StatusRetry) ShouldRetry(req *http.Request, try int, resp *http.Response, err error) bool {
	limit := s.Count
	switch req.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		limit = s.PayloadCount
	}
	if try >= limit {
		return false
	}
	if err != nil {
		return !isNotRetriableError(err)
	}
	return resp != nil && slices.Contains(s.StatusCodes, resp.StatusCode)
}

// Delay implements RetryPolicy.
func (s *StatusRetry) Delay(int) time.Duration {
	return s.Wait
}

//

// List of regexes used to match errors returned by net/http. These are not
// typed so we have to match on the error string.
var (
	redirectsErrorRe     = regexp.MustCompile(`stopped after \d+ redirects\z`)
	schemeErrorRe        = regexp.MustCompile(`unsupported protocol scheme`)
	invalidHeaderErrorRe = regexp.MustCompile(`invalid header`)
	notTrustedErrorRe    = regexp.MustCompile(`certificate is not trusted`)
)

// isNotRetriableError catches errors that would fail the same way again.
func isNotRetriableError(err error) bool {
	var tlsErr *tls.CertificateVerificationError
	if errors.As(err, &tlsErr) {
		return true
	}
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return false
	}
	s := urlErr.Error()
	return redirectsErrorRe.MatchString(s) || schemeErrorRe.MatchString(s) || invalidHeaderErrorRe.MatchString(s) || notTrustedErrorRe.MatchString(s)
}

func parseRetryAfter(header string, now time.Time) (time.Duration, bool) {
	if header == "" {
		return 0, false
	}
	if s, err := strconv.ParseInt(header, 10, 64); err == nil {
		if s > 0 {
			return time.Duration(s) * time.Second, true
		}
		return 0, false
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := t.Sub(now); d > 0 {
			return d, true
		}
	}
	return 0, false
}

// rewindable returns a clone of req whose body can be read again through
// GetBody.
func rewindable(req *http.Request) (*http.Request, error) {
	req = req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return req, nil
	}
	b, err := io.ReadAll(req.Body)
	if err2 := req.Body.Close(); err == nil {
		err = err2
	}
	if err != nil {
		return nil, err
	}
	req.Body = io.NopCloser(bytes.NewReader(b))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}
	return req, nil
}

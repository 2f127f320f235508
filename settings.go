// Copyright 2025 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package fetchconf

import (
	"maps"
	"net/http"
	"slices"

	"github.com/maruel/fetchconf/reactive"
)

// Settings is a declarative form of Options, e.g. loaded from a file with
// watch.File.
type Settings struct {
	BaseURL string            `yaml:"base_url" json:"base_url" validate:"omitempty,url"`
	Headers map[string]string `yaml:"headers" json:"headers"`
	// Token is sent as a bearer Authorization header when set.
	Token string `yaml:"token" json:"token"`
}

// SettingsOptions returns Options whose BaseURL, Headers and Auth follow s.
//
// An empty Headers map falls back to DefaultHeaders().
func SettingsOptions(s reactive.Ref[Settings]) *Options {
	baseURL := reactive.Derive(func() string { return s.Get().BaseURL }, s)
	headers := reactive.Derive(func() http.Header {
		hdr := s.Get().Headers
		if len(hdr) == 0 {
			return DefaultHeaders()
		}
		out := make(http.Header, len(hdr))
		for _, k := range slices.Sorted(maps.Keys(hdr)) {
			out.Set(k, hdr[k])
		}
		return out
	}, s)
	auth := reactive.Derive(func() http.Header {
		t := s.Get().Token
		if t == "" {
			return nil
		}
		return http.Header{"Authorization": {"Bearer " + t}}
	}, s)
	return &Options{BaseURL: baseURL, Headers: headers, Auth: auth}
}

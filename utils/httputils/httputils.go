// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package httputils provides utility functions for working with HTTP.
package httputils

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/http/httpproxy"
)

/////////////////////////////////////////
/// RountTrippers

// SensitiveParams are the query and form parameters masked in traces.
var SensitiveParams = []string{"key", "token", "oid", "api_key"}

var sensitiveRe = regexp.MustCompile(`(?i)((?:^|[?&"\s])(?:` + strings.Join(SensitiveParams, "|") + `)"?\s*[=:]\s*"?)([^&"\s]+)`)

// Redact masks credential values in a query string, URL or JSON body.
func Redact(s string) string {
	return sensitiveRe.ReplaceAllString(s, "${1}REDACTED")
}

// RedactURL returns u as a string with credential parameters masked.
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	c := *u
	q := c.Query()

	for _, p := range SensitiveParams {
		if q.Has(p) {
			q.Set(p, "REDACTED")
		}
	}

	c.RawQuery = q.Encode()

	return c.String()
}

// LoggingRoundTripper adds a very primitive logging to a http transaction.
type LoggingRoundTripper struct {
	Transport http.RoundTripper
	Writer    io.Writer
	DumpBody  bool
}

// reduce the content the liens.
func abbreviate(lines []string, prefix rune) []string {
	const maxLines, maxChars = 2048, 512

	for i, line := range lines {
		if i >= maxLines {
			break
		}

		if strings.HasPrefix(strings.ToLower(line), "authorization:") {
			line = "Authorization: REDACTED"
		}

		lines[i] = fmt.Sprintf("%c %s", prefix, Redact(line))
	}

	if len(lines) > maxLines {
		lines = lines[:maxLines]
		lines = append(lines, "…")
	}

	for i, line := range lines {
		if len(line) > maxChars {
			lines[i] = line[0:maxChars] + "…"
		}
	}

	return lines
}

func (t *LoggingRoundTripper) dumpRequest(req *http.Request) error {
	dump, err := httputil.DumpRequestOut(req, t.DumpBody)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	lines := abbreviate(strings.Split(string(dump), "\n"), '>')
	lines = append(lines, "")
	_, err = fmt.Fprint(t.Writer, strings.Join(lines, "\n"))

	return err
}

func (t *LoggingRoundTripper) dumpResponse(resp *http.Response, duration time.Duration) error {
	dump, err := httputil.DumpResponse(resp, t.DumpBody)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	lines := abbreviate(strings.Split(string(dump), "\n"), '<')

	_, err = fmt.Fprintf(t.Writer, "< RESPONSE: [%v]\n", duration)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	lines = append(lines, "")
	_, err = fmt.Fprint(t.Writer, strings.Join(lines, "\n"))

	return err
}

// RoundTrip implements the http.RoundTripper interface.
func (t *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Writer == nil {
		return t.Transport.RoundTrip(req)
	}

	if err := t.dumpRequest(req); err != nil {
		return nil, err
	}

	start := time.Now()

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if err := t.dumpResponse(resp, time.Since(start)); err != nil {
		return nil, err
	}

	return resp, nil
}

// AppendRequestHeadersRoundTripper adds headers to the request.
type AppendRequestHeadersRoundTripper struct {
	Transport http.RoundTripper
	Headers   map[string]string
}

// RoundTrip implements the http.RoundTripper interface.
func (t *AppendRequestHeadersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	req = req.Clone(req.Context())
	for k, v := range t.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}

	return t.Transport.RoundTrip(req)
}

////////////////////////////////////////////////////

// ClientOptions configures NewClient.
type ClientOptions struct {
	// UserAgent is the User-Agent header to use in HTTP requests
	UserAgent string

	// Trace receives a dump of every request and response, nil disables it
	Trace io.Writer

	// Enables full HTTP body tracing
	TraceBody bool

	// Proxy settings, nil reads HTTP_PROXY, HTTPS_PROXY and NO_PROXY
	Proxy *httpproxy.Config
}

// NewClient builds the client shared by provider adapters. It carries no
// overall timeout: deadlines come from the request context.
func NewClient(options *ClientOptions) *http.Client {
	if options == nil {
		options = &ClientOptions{}
	}

	proxy := options.Proxy
	if proxy == nil {
		proxy = httpproxy.FromEnvironment()
	}

	proxyFunc := proxy.ProxyFunc()

	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			return proxyFunc(req.URL)
		},
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}

	userAgent := "mobile-locator/unknown"
	if options.UserAgent != "" {
		userAgent = options.UserAgent
	}

	return &http.Client{
		Transport: &AppendRequestHeadersRoundTripper{
			Headers: map[string]string{
				"User-Agent": userAgent,
				"Accept":     "application/json",
			},
			Transport: &LoggingRoundTripper{
				Writer:    options.Trace,
				DumpBody:  options.TraceBody,
				Transport: transport,
			},
		},
	}
}

// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package locator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

// ErrorKind classifies location failures.
type ErrorKind int

const (
	// KindUnknownProvider the engine name is not registered.
	KindUnknownProvider ErrorKind = iota + 1
	// KindMalformedRequest the cell lacks what the provider needs.
	KindMalformedRequest
	// KindNetwork connection, DNS or socket failure.
	KindNetwork
	// KindAuthentication the provider rejected (or never got) credentials.
	KindAuthentication
	// KindRateLimit the provider throttled the request.
	KindRateLimit
	// KindNotFound the provider has no data for the cell.
	KindNotFound
	// KindMalformedResponse unparsable or out-of-range payload.
	KindMalformedResponse
	// KindTimeout the deadline elapsed before the provider answered.
	KindTimeout
)

var kindNames = map[ErrorKind]string{
	KindUnknownProvider:   "unknown provider",
	KindMalformedRequest:  "malformed request",
	KindNetwork:           "network error",
	KindAuthentication:    "authentication error",
	KindRateLimit:         "rate limit",
	KindNotFound:          "not found",
	KindMalformedResponse: "malformed response",
	KindTimeout:           "timeout",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}

	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Sentinels for errors.Is. Only the Kind is compared.
var (
	ErrUnknownProvider   = &Error{Kind: KindUnknownProvider}
	ErrMalformedRequest  = &Error{Kind: KindMalformedRequest}
	ErrNetwork           = &Error{Kind: KindNetwork}
	ErrAuthentication    = &Error{Kind: KindAuthentication}
	ErrRateLimit         = &Error{Kind: KindRateLimit}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrMalformedResponse = &Error{Kind: KindMalformedResponse}
	ErrTimeout           = &Error{Kind: KindTimeout}
)

// Error is the single error type surfaced by engines and adapters.
type Error struct {
	Kind     ErrorKind
	Provider string
	Message  string
	Err      error
}

// Errorf builds an Error for the given provider.
func Errorf(kind ErrorKind, provider string, format string, args ...any) *Error {
	return &Error{Kind: kind, Provider: provider, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error around a cause.
func Wrap(kind ErrorKind, provider string, err error, message string) *Error {
	return &Error{Kind: kind, Provider: provider, Message: message, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}

	if e.Message != "" {
		msg += ": " + e.Message
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so errors.Is(err, ErrTimeout)
// works regardless of provider and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

// KindOf returns the kind of err, or 0 when err is not an *Error.
func KindOf(err error) ErrorKind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}

	return 0
}

// IsTimeoutError reports whether err is a timeout.
func IsTimeoutError(err error) bool {
	return KindOf(err) == KindTimeout
}

// IsRateLimitError reports whether the provider throttled the request.
func IsRateLimitError(err error) bool {
	return KindOf(err) == KindRateLimit
}

// IsNotFoundError reports whether the provider had no data for the cell.
func IsNotFoundError(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsAuthenticationError reports whether credentials were rejected or missing.
func IsAuthenticationError(err error) bool {
	return KindOf(err) == KindAuthentication
}

// ClassifyHTTPStatus maps a non-2xx provider status into an Error.
func ClassifyHTTPStatus(provider string, statusCode int, body string) *Error {
	kind := KindMalformedResponse

	switch {
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		kind = KindAuthentication
	case statusCode == http.StatusTooManyRequests:
		kind = KindRateLimit
	case statusCode == http.StatusNotFound:
		kind = KindNotFound
	case statusCode == http.StatusBadRequest:
		kind = KindMalformedRequest
	case statusCode >= http.StatusInternalServerError:
		kind = KindNetwork
	}

	msg := fmt.Sprintf("HTTP %d", statusCode)
	if body != "" {
		msg += " " + body
	}

	return &Error{Kind: kind, Provider: provider, Message: msg}
}

// classify turns whatever an adapter returned into an *Error.
func classify(provider string, err error) *Error {
	var le *Error
	if errors.As(err, &le) {
		if le.Provider == "" {
			c := *le
			c.Provider = provider

			return &c
		}

		return le
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(KindTimeout, provider, err, "deadline exceeded")
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Wrap(KindTimeout, provider, err, "request timeout")
		}

		return Wrap(KindNetwork, provider, err, "request failed")
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.Canceled) {
		return Wrap(KindNetwork, provider, err, "request failed")
	}

	return Wrap(KindMalformedResponse, provider, err, "unexpected failure")
}

// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/johndoehack/mobile-locator/locator"
	"github.com/johndoehack/mobile-locator/utils/httputils"
	"go.uber.org/zap"
)

// maxBodySize bounds how much of a provider response is read.
const maxBodySize = 1 << 20

var defaultClient = httputils.NewClient(&httputils.ClientOptions{
	UserAgent: "mobile-locator (+https://github.com/johndoehack/mobile-locator)",
})

// statusDecoder turns a non-2xx response into an error. Returning nil falls
// back to locator.ClassifyHTTPStatus.
type statusDecoder func(status int, body []byte) error

// base carries what every adapter shares: its name, the engine options and
// the HTTP plumbing.
type base struct {
	name        string
	options     *locator.Options
	credentials []string
	client      *http.Client
	logger      *zap.Logger
}

func newBase(name string, opts *locator.Options, credentials ...string) base {
	client := opts.HTTPClient
	if client == nil {
		client = defaultClient
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return base{
		name:        name,
		options:     opts,
		credentials: credentials,
		client:      client,
		logger:      logger.With(zap.String("provider", name)),
	}
}

func (b *base) Name() string {
	return b.name
}

// precheck validates the cell and the credentials before any I/O.
func (b *base) precheck(cell locator.Cell) error {
	if err := cell.Validate(); err != nil {
		return locator.Wrap(locator.KindMalformedRequest, b.name, err, "invalid cell")
	}

	var missing []string

	for _, c := range b.credentials {
		if b.credential(c) == "" {
			missing = append(missing, c)
		}
	}

	if len(missing) > 0 {
		return locator.Errorf(locator.KindAuthentication, b.name, "missing credential option(s): %s", strings.Join(missing, ", "))
	}

	return nil
}

func (b *base) credential(name string) string {
	switch name {
	case "key":
		return b.options.Key
	case "token":
		return b.options.Token
	case "oid":
		return b.options.OID
	default:
		return ""
	}
}

func (b *base) endpoint(def string) string {
	return b.options.EndpointOr(def)
}

func (b *base) get(ctx context.Context, endpoint string, query url.Values, out any, onStatus statusDecoder) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return locator.Wrap(locator.KindMalformedRequest, b.name, err, "parsing endpoint")
	}

	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}

	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return locator.Wrap(locator.KindMalformedRequest, b.name, err, "creating request")
	}

	return b.do(req, out, onStatus)
}

func (b *base) postJSON(ctx context.Context, endpoint string, body any, out any, onStatus statusDecoder) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return locator.Wrap(locator.KindMalformedRequest, b.name, err, "encoding request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return locator.Wrap(locator.KindMalformedRequest, b.name, err, "creating request")
	}

	req.Header.Set("Content-Type", "application/json")

	return b.do(req, out, onStatus)
}

func (b *base) postForm(ctx context.Context, endpoint string, form url.Values, out any, onStatus statusDecoder) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return locator.Wrap(locator.KindMalformedRequest, b.name, err, "creating request")
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return b.do(req, out, onStatus)
}

// do issues exactly one request and decodes a JSON body into out.
func (b *base) do(req *http.Request, out any, onStatus statusDecoder) error {
	b.logger.Debug("request", zap.String("method", req.Method), zap.String("url", httputils.RedactURL(req.URL)))

	resp, err := b.client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}

		return locator.Wrap(locator.KindNetwork, b.name, err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}

		return locator.Wrap(locator.KindNetwork, b.name, err, "reading response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if onStatus != nil {
			if err := onStatus(resp.StatusCode, body); err != nil {
				return err
			}
		}

		return locator.ClassifyHTTPStatus(b.name, resp.StatusCode, snippet(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return locator.Wrap(locator.KindMalformedResponse, b.name, err, "decoding "+snippet(body))
	}

	return nil
}

// location builds the adapter result, rejecting out-of-range values.
func (b *base) location(lat, lng, accuracy float64) (locator.Location, error) {
	loc := locator.Location{Latitude: lat, Longitude: lng, Accuracy: accuracy}
	if err := loc.Validate(); err != nil {
		return locator.Location{}, locator.Wrap(locator.KindMalformedResponse, b.name, err, "invalid location")
	}

	return loc, nil
}

// position is location for decoded coordinates. A success payload that
// omits either coordinate is malformed, never a point at 0,0.
func (b *base) position(lat, lng *number, accuracy number) (locator.Location, error) {
	if lat == nil || lng == nil {
		return locator.Location{}, locator.Errorf(locator.KindMalformedResponse, b.name, "response without coordinates")
	}

	return b.location(float64(*lat), float64(*lng), float64(accuracy))
}

func snippet(body []byte) string {
	const maxSnippet = 200

	s := strings.TrimSpace(string(body))
	if len(s) > maxSnippet {
		s = s[:maxSnippet] + "…"
	}

	return httputils.Redact(s)
}

// number decodes JSON numbers that some providers send as strings.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*n = 0

		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s: %w", data, err)
	}

	*n = number(f)

	return nil
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

var errNoResult = errors.New("no result")

// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package providers

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/johndoehack/mobile-locator/locator"
)

// The Google Geolocation API request/response schema, also spoken by the
// Mozilla Location Service.

type geolocateCellTower struct {
	CellID            int  `json:"cellId"`
	LocationAreaCode  int  `json:"locationAreaCode"`
	MobileCountryCode int  `json:"mobileCountryCode"`
	MobileNetworkCode int  `json:"mobileNetworkCode"`
	SignalStrength    *int `json:"signalStrength,omitempty"`
	Age               int  `json:"age,omitempty"`
}

type geolocateFallbacks struct {
	LAC bool `json:"lacf"`
	IP  bool `json:"ipf"`
}

type geolocateRequest struct {
	ConsiderIP bool                 `json:"considerIp"`
	RadioType  string               `json:"radioType,omitempty"`
	CellTowers []geolocateCellTower `json:"cellTowers"`
	Fallbacks  *geolocateFallbacks  `json:"fallbacks,omitempty"`
}

type geolocateResponse struct {
	Location *struct {
		Lat *number `json:"lat"`
		Lng *number `json:"lng"`
	} `json:"location"`
	Accuracy number `json:"accuracy"`
}

type geolocateError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

func newGeolocateRequest(cell locator.Cell) geolocateRequest {
	towers := make([]geolocateCellTower, 0, 1+len(cell.Neighbors))
	for _, c := range append([]locator.Cell{cell}, cell.Neighbors...) {
		towers = append(towers, geolocateCellTower{
			CellID:            c.CID,
			LocationAreaCode:  c.LAC,
			MobileCountryCode: c.MCC,
			MobileNetworkCode: c.MNC,
			SignalStrength:    c.Signal,
			Age:               c.Age,
		})
	}

	return geolocateRequest{
		RadioType:  cell.RadioType(),
		CellTowers: towers,
	}
}

// geolocateStatus maps the {"error": {...}} envelope to a locator error.
func geolocateStatus(provider string) statusDecoder {
	return func(status int, body []byte) error {
		var e geolocateError
		if err := json.Unmarshal(body, &e); err != nil || len(e.Error.Errors) == 0 {
			return nil
		}

		reason := e.Error.Errors[0].Reason

		kind := locator.ClassifyHTTPStatus(provider, status, "").Kind

		switch reason {
		case "keyInvalid", "keyExpired", "accessNotConfigured":
			kind = locator.KindAuthentication
		case "dailyLimitExceeded", "userRateLimitExceeded", "rateLimitExceeded":
			kind = locator.KindRateLimit
		case "notFound":
			kind = locator.KindNotFound
		case "parseError", "invalidRequest":
			kind = locator.KindMalformedRequest
		}

		return locator.Errorf(kind, provider, "%s (%s)", e.Error.Message, reason)
	}
}

// geolocate runs one Google-style geolocate call against endpoint?key=.
func (b *base) geolocate(ctx context.Context, endpoint string, req geolocateRequest) (locator.Location, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return locator.Location{}, locator.Wrap(locator.KindMalformedRequest, b.name, err, "parsing endpoint")
	}

	q := u.Query()
	q.Set("key", b.options.Key)
	u.RawQuery = q.Encode()

	var resp geolocateResponse
	if err := b.postJSON(ctx, u.String(), req, &resp, geolocateStatus(b.name)); err != nil {
		return locator.Location{}, err
	}

	if resp.Location == nil {
		return locator.Location{}, locator.Errorf(locator.KindMalformedResponse, b.name, "response without location")
	}

	return b.position(resp.Location.Lat, resp.Location.Lng, resp.Accuracy)
}

// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package providers

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/johndoehack/mobile-locator/locator"
)

const yandexEndpoint = "https://api.lbs.yandex.net/geolocation"

// Yandex uses the Yandex Locator API.
type Yandex struct {
	base
}

func newYandex(opts *locator.Options) locator.Adapter {
	return &Yandex{base: newBase("yandex", opts, "key")}
}

type yandexCell struct {
	CountryCode    int  `json:"countrycode"`
	OperatorID     int  `json:"operatorid"`
	CellID         int  `json:"cellid"`
	LAC            int  `json:"lac"`
	SignalStrength *int `json:"signal_strength,omitempty"`
	Age            int  `json:"age,omitempty"`
}

type yandexRequest struct {
	Common struct {
		Version string `json:"version"`
		APIKey  string `json:"api_key"`
	} `json:"common"`
	GSMCells []yandexCell `json:"gsm_cells"`
}

type yandexResponse struct {
	Position *struct {
		Latitude  *number `json:"latitude"`
		Longitude *number `json:"longitude"`
		Precision number  `json:"precision"`
		Type      string  `json:"type"`
	} `json:"position"`
}

type yandexError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Resolve implements locator.Adapter.
func (y *Yandex) Resolve(ctx context.Context, cell locator.Cell) (locator.Location, error) {
	if err := y.precheck(cell); err != nil {
		return locator.Location{}, err
	}

	var req yandexRequest
	req.Common.Version = "1.0"
	req.Common.APIKey = y.options.Key

	for _, c := range append([]locator.Cell{cell}, cell.Neighbors...) {
		req.GSMCells = append(req.GSMCells, yandexCell{
			CountryCode:    c.MCC,
			OperatorID:     c.MNC,
			CellID:         c.CID,
			LAC:            c.LAC,
			SignalStrength: c.Signal,
			Age:            c.Age,
		})
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return locator.Location{}, locator.Wrap(locator.KindMalformedRequest, y.name, err, "encoding request")
	}

	form := url.Values{}
	form.Set("json", string(payload))

	var resp yandexResponse
	if err := y.postForm(ctx, y.endpoint(yandexEndpoint), form, &resp, y.decodeError); err != nil {
		return locator.Location{}, err
	}

	// Yandex silently falls back to GeoIP when it does not know the cell.
	if resp.Position == nil || !strings.EqualFold(resp.Position.Type, "gsm") {
		return locator.Location{}, locator.Wrap(locator.KindNotFound, y.name, errNoResult, cell.String())
	}

	return y.position(resp.Position.Latitude, resp.Position.Longitude, resp.Position.Precision)
}

func (y *Yandex) decodeError(status int, body []byte) error {
	var e yandexError
	if err := json.Unmarshal(body, &e); err != nil || e.Error.Message == "" {
		return nil
	}

	kind := locator.ClassifyHTTPStatus(y.name, status, "").Kind
	if strings.Contains(strings.ToLower(e.Error.Message), "key") {
		kind = locator.KindAuthentication
	}

	return locator.Errorf(kind, y.name, "%s", e.Error.Message)
}

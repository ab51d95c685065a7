// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package providers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/johndoehack/mobile-locator/locator"
)

const mylnikovEndpoint = "https://api.mylnikov.org/geolocation/cell"

const mylnikovDefaultData = "all"

// Mylnikov uses the free mylnikov.org API. Options.Data selects the data
// set: "all" by default, "open" restricts it to openly licensed sources.
type Mylnikov struct {
	base
}

func newMylnikov(opts *locator.Options) locator.Adapter {
	return &Mylnikov{base: newBase("mylnikov", opts)}
}

type mylnikovResponse struct {
	Result number `json:"result"`
	Desc   string `json:"desc"`
	Data   struct {
		Lat   *number `json:"lat"`
		Lon   *number `json:"lon"`
		Range number  `json:"range"`
	} `json:"data"`
}

// Resolve implements locator.Adapter.
func (m *Mylnikov) Resolve(ctx context.Context, cell locator.Cell) (locator.Location, error) {
	if err := m.precheck(cell); err != nil {
		return locator.Location{}, err
	}

	q := url.Values{}
	q.Set("v", "1.1")
	q.Set("mcc", itoa(cell.MCC))
	q.Set("mnc", itoa(cell.MNC))
	q.Set("lac", itoa(cell.LAC))
	q.Set("cellid", itoa(cell.CID))

	data := m.options.Data
	if data == "" {
		data = mylnikovDefaultData
	}

	q.Set("data", data)

	var resp mylnikovResponse
	if err := m.get(ctx, m.endpoint(mylnikovEndpoint), q, &resp, nil); err != nil {
		return locator.Location{}, err
	}

	if result := int(resp.Result); result != http.StatusOK {
		return locator.Location{}, locator.ClassifyHTTPStatus(m.name, result, resp.Desc)
	}

	return m.position(resp.Data.Lat, resp.Data.Lon, resp.Data.Range)
}

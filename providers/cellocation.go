// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package providers

import (
	"context"
	"net/url"

	"github.com/johndoehack/mobile-locator/locator"
)

const cellocationEndpoint = "http://api.cellocation.com:83/cell/"

// Cellocation uses the free cellocation.com API, no credentials required.
type Cellocation struct {
	base
}

func newCellocation(opts *locator.Options) locator.Adapter {
	return &Cellocation{base: newBase("cellocation", opts)}
}

type cellocationResponse struct {
	ErrCode number  `json:"errcode"`
	Lat     *number `json:"lat"`
	Lon     *number `json:"lon"`
	Radius  number  `json:"radius"`
	Address string  `json:"address"`
}

// Resolve implements locator.Adapter.
func (c *Cellocation) Resolve(ctx context.Context, cell locator.Cell) (locator.Location, error) {
	if err := c.precheck(cell); err != nil {
		return locator.Location{}, err
	}

	q := url.Values{}
	q.Set("mcc", itoa(cell.MCC))
	q.Set("mnc", itoa(cell.MNC))
	q.Set("lac", itoa(cell.LAC))
	q.Set("ci", itoa(cell.CID))
	q.Set("coord", "wgs84")
	q.Set("output", "json")

	var resp cellocationResponse
	if err := c.get(ctx, c.endpoint(cellocationEndpoint), q, &resp, nil); err != nil {
		return locator.Location{}, err
	}

	switch int(resp.ErrCode) {
	case 0:
	case 10000:
		return locator.Location{}, locator.Errorf(locator.KindMalformedRequest, c.name, "rejected parameters for %s", cell)
	case 10001:
		return locator.Location{}, locator.Wrap(locator.KindNotFound, c.name, errNoResult, cell.String())
	case 403:
		return locator.Location{}, locator.Errorf(locator.KindRateLimit, c.name, "request quota exhausted")
	default:
		return locator.Location{}, locator.Errorf(locator.KindMalformedResponse, c.name, "errcode %d", int(resp.ErrCode))
	}

	return c.position(resp.Lat, resp.Lon, resp.Radius)
}

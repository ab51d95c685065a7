// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package providers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/johndoehack/mobile-locator/locator"
)

const gpsspgEndpoint = "http://api.gpsspg.com/bs/"

// GPSspg uses the gpsspg.com base station API.
type GPSspg struct {
	base
}

func newGPSspg(opts *locator.Options) locator.Adapter {
	return &GPSspg{base: newBase("gpsspg", opts, "oid", "key")}
}

type gpsspgResponse struct {
	Status number `json:"status"`
	Msg    string `json:"msg"`
	Match  number `json:"match"`
	Result []struct {
		Lat    *number `json:"lat"`
		Lng    *number `json:"lng"`
		Radius number  `json:"radius"`
	} `json:"result"`
}

// Resolve implements locator.Adapter.
func (g *GPSspg) Resolve(ctx context.Context, cell locator.Cell) (locator.Location, error) {
	if err := g.precheck(cell); err != nil {
		return locator.Location{}, err
	}

	bs := []string{itoa(cell.MCC), itoa(cell.MNC), itoa(cell.LAC), itoa(cell.CID)}
	if cell.Signal != nil {
		bs = append(bs, itoa(*cell.Signal))
	}

	q := url.Values{}
	q.Set("oid", g.options.OID)
	q.Set("key", g.options.Key)
	q.Set("bs", strings.Join(bs, ","))
	q.Set("hex", "10")
	q.Set("to", "0") // GPS frame, i.e. WGS84
	q.Set("output", "json")

	var resp gpsspgResponse
	if err := g.get(ctx, g.endpoint(gpsspgEndpoint), q, &resp, nil); err != nil {
		return locator.Location{}, err
	}

	// gpsspg mirrors HTTP codes in its status field.
	if status := int(resp.Status); status != http.StatusOK {
		return locator.Location{}, locator.ClassifyHTTPStatus(g.name, status, resp.Msg)
	}

	if len(resp.Result) == 0 {
		return locator.Location{}, locator.Wrap(locator.KindNotFound, g.name, errNoResult, cell.String())
	}

	r := resp.Result[0]

	return g.position(r.Lat, r.Lng, r.Radius)
}

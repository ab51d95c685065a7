// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package providers

import (
	"context"
	"net/url"

	"github.com/johndoehack/mobile-locator/locator"
	"github.com/johndoehack/mobile-locator/spatial"
)

const haoserviceEndpoint = "http://api.haoservice.com/api/getlbs"

// HaoService uses the haoservice.com LBS API, which answers in GCJ02.
type HaoService struct {
	base
}

func newHaoService(opts *locator.Options) locator.Adapter {
	return &HaoService{base: newBase("haoservice", opts, "key")}
}

type haoserviceResponse struct {
	ErrCode  number `json:"ErrCode"`
	Reason   string `json:"Reason"`
	Location *struct {
		Latitude  *number `json:"latitude"`
		Longitude *number `json:"longitude"`
		Accuracy  number  `json:"accuracy"`
	} `json:"location"`
}

// Resolve implements locator.Adapter.
func (h *HaoService) Resolve(ctx context.Context, cell locator.Cell) (locator.Location, error) {
	if err := h.precheck(cell); err != nil {
		return locator.Location{}, err
	}

	q := url.Values{}
	q.Set("mcc", itoa(cell.MCC))
	q.Set("mnc", itoa(cell.MNC))
	q.Set("lac", itoa(cell.LAC))
	q.Set("cell_id", itoa(cell.CID))
	q.Set("key", h.options.Key)

	var resp haoserviceResponse
	if err := h.get(ctx, h.endpoint(haoserviceEndpoint), q, &resp, nil); err != nil {
		return locator.Location{}, err
	}

	switch int(resp.ErrCode) {
	case 0:
	case 10001, 10002:
		return locator.Location{}, locator.Errorf(locator.KindAuthentication, h.name, "%s (%d)", resp.Reason, int(resp.ErrCode))
	case 10003, 10004:
		return locator.Location{}, locator.Errorf(locator.KindRateLimit, h.name, "%s (%d)", resp.Reason, int(resp.ErrCode))
	case 10006:
		return locator.Location{}, locator.Wrap(locator.KindNotFound, h.name, errNoResult, cell.String())
	default:
		return locator.Location{}, locator.Errorf(locator.KindMalformedResponse, h.name, "%s (%d)", resp.Reason, int(resp.ErrCode))
	}

	if resp.Location == nil {
		return locator.Location{}, locator.Wrap(locator.KindNotFound, h.name, errNoResult, cell.String())
	}

	if resp.Location.Latitude == nil || resp.Location.Longitude == nil {
		return locator.Location{}, locator.Errorf(locator.KindMalformedResponse, h.name, "response without coordinates")
	}

	gcj := spatial.Point{Lat: float64(*resp.Location.Latitude), Lng: float64(*resp.Location.Longitude)}
	if !gcj.Valid() {
		return locator.Location{}, locator.Errorf(locator.KindMalformedResponse, h.name, "invalid location %v", gcj)
	}

	wgs := spatial.ToWGS84(gcj, spatial.GCJ02)

	return h.location(wgs.Lat, wgs.Lng, float64(resp.Location.Accuracy))
}

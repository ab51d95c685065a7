// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package providers

import (
	"context"
	"net/url"

	"github.com/johndoehack/mobile-locator/locator"
)

const opencellidEndpoint = "https://opencellid.org/cell/get"

// OpenCellID uses the opencellid.org cell API.
type OpenCellID struct {
	base
}

func newOpenCellID(opts *locator.Options) locator.Adapter {
	return &OpenCellID{base: newBase("opencellid", opts, "key")}
}

type opencellidResponse struct {
	Lat   *number `json:"lat"`
	Lon   *number `json:"lon"`
	Range number  `json:"range"`
	Error string  `json:"error"`
	Code  number  `json:"code"`
}

var opencellidErrors = map[int]locator.ErrorKind{
	1: locator.KindNotFound,
	2: locator.KindAuthentication,
	3: locator.KindMalformedRequest,
	4: locator.KindAuthentication,
	5: locator.KindNetwork,
	6: locator.KindRateLimit,
	7: locator.KindRateLimit,
}

// Resolve implements locator.Adapter.
func (o *OpenCellID) Resolve(ctx context.Context, cell locator.Cell) (locator.Location, error) {
	if err := o.precheck(cell); err != nil {
		return locator.Location{}, err
	}

	q := url.Values{}
	q.Set("key", o.options.Key)
	q.Set("mcc", itoa(cell.MCC))
	q.Set("mnc", itoa(cell.MNC))
	q.Set("lac", itoa(cell.LAC))
	q.Set("cellid", itoa(cell.CID))
	q.Set("radio", fromRadio(cell.RadioType()))
	q.Set("format", "json")

	var resp opencellidResponse
	if err := o.get(ctx, o.endpoint(opencellidEndpoint), q, &resp, nil); err != nil {
		return locator.Location{}, err
	}

	if resp.Error != "" {
		kind, ok := opencellidErrors[int(resp.Code)]
		if !ok {
			kind = locator.KindMalformedResponse
		}

		return locator.Location{}, locator.Errorf(kind, o.name, "%s (code %d)", resp.Error, int(resp.Code))
	}

	return o.position(resp.Lat, resp.Lon, resp.Range)
}

// fromRadio maps radio names to the OpenCellID vocabulary.
func fromRadio(radio string) string {
	switch radio {
	case "wcdma":
		return "UMTS"
	case "lte":
		return "LTE"
	case "cdma":
		return "CDMA"
	default:
		return "GSM"
	}
}

// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package providers

import (
	"context"
	"strings"

	"github.com/johndoehack/mobile-locator/locator"
)

const unwiredlabsEndpoint = "https://us1.unwiredlabs.com/v2/process.php"

// UnwiredLabs uses the Unwired Labs LocationAPI.
type UnwiredLabs struct {
	base
}

func newUnwiredLabs(opts *locator.Options) locator.Adapter {
	return &UnwiredLabs{base: newBase("unwiredlabs", opts, "token")}
}

type unwiredlabsCell struct {
	LAC    int  `json:"lac"`
	CID    int  `json:"cid"`
	MCC    int  `json:"mcc,omitempty"`
	MNC    int  `json:"mnc,omitempty"`
	Signal *int `json:"signal,omitempty"`
}

type unwiredlabsRequest struct {
	Token   string            `json:"token"`
	Radio   string            `json:"radio"`
	MCC     int               `json:"mcc"`
	MNC     int               `json:"mnc"`
	Cells   []unwiredlabsCell `json:"cells"`
	Address int               `json:"address"`
}

type unwiredlabsResponse struct {
	Status   string  `json:"status"`
	Message  string  `json:"message"`
	Lat      *number `json:"lat"`
	Lon      *number `json:"lon"`
	Accuracy number  `json:"accuracy"`
}

// Resolve implements locator.Adapter.
func (u *UnwiredLabs) Resolve(ctx context.Context, cell locator.Cell) (locator.Location, error) {
	if err := u.precheck(cell); err != nil {
		return locator.Location{}, err
	}

	req := unwiredlabsRequest{
		Token: u.options.Token,
		Radio: cell.RadioType(),
		MCC:   cell.MCC,
		MNC:   cell.MNC,
		Cells: []unwiredlabsCell{{LAC: cell.LAC, CID: cell.CID, Signal: cell.Signal}},
	}

	for _, n := range cell.Neighbors {
		req.Cells = append(req.Cells, unwiredlabsCell{LAC: n.LAC, CID: n.CID, MCC: n.MCC, MNC: n.MNC, Signal: n.Signal})
	}

	var resp unwiredlabsResponse
	if err := u.postJSON(ctx, u.endpoint(unwiredlabsEndpoint), req, &resp, nil); err != nil {
		return locator.Location{}, err
	}

	if resp.Status != "ok" {
		return locator.Location{}, locator.Errorf(unwiredlabsErrorKind(resp.Message), u.name, "%s", resp.Message)
	}

	return u.position(resp.Lat, resp.Lon, resp.Accuracy)
}

// unwiredlabsErrorKind classifies the free-text error messages.
func unwiredlabsErrorKind(message string) locator.ErrorKind {
	m := strings.ToLower(message)

	switch {
	case strings.Contains(m, "token"):
		return locator.KindAuthentication
	case strings.Contains(m, "balance"), strings.Contains(m, "limit"):
		return locator.KindRateLimit
	case strings.Contains(m, "no matches"), strings.Contains(m, "not found"):
		return locator.KindNotFound
	case strings.Contains(m, "invalid"):
		return locator.KindMalformedRequest
	default:
		return locator.KindMalformedResponse
	}
}

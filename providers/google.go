// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package providers

import (
	"context"

	"github.com/johndoehack/mobile-locator/locator"
)

const googleEndpoint = "https://www.googleapis.com/geolocation/v1/geolocate"

// Google uses the Google Maps Geolocation API.
type Google struct {
	base
}

func newGoogle(opts *locator.Options) locator.Adapter {
	return &Google{base: newBase("google", opts, "key")}
}

// Resolve implements locator.Adapter.
func (g *Google) Resolve(ctx context.Context, cell locator.Cell) (locator.Location, error) {
	if err := g.precheck(cell); err != nil {
		return locator.Location{}, err
	}

	return g.geolocate(ctx, g.endpoint(googleEndpoint), newGeolocateRequest(cell))
}

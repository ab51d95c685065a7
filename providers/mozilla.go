// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package providers

import (
	"context"

	"github.com/johndoehack/mobile-locator/locator"
)

const mozillaEndpoint = "https://location.services.mozilla.com/v1/geolocate"

// Mozilla uses the Mozilla Location Service, a Google-compatible API.
type Mozilla struct {
	base
}

func newMozilla(opts *locator.Options) locator.Adapter {
	return &Mozilla{base: newBase("mozilla", opts, "key")}
}

// Resolve implements locator.Adapter.
func (m *Mozilla) Resolve(ctx context.Context, cell locator.Cell) (locator.Location, error) {
	if err := m.precheck(cell); err != nil {
		return locator.Location{}, err
	}

	req := newGeolocateRequest(cell)
	// Without this MLS answers with a LAC or GeoIP estimate instead of a 404.
	req.Fallbacks = &geolocateFallbacks{}

	return m.geolocate(ctx, m.endpoint(mozillaEndpoint), req)
}

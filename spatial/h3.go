// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"fmt"

	"github.com/uber/h3-go/v4"
)

// DefaultH3Resolution is roughly a city block (~0.1 km² cells), finer than
// any cell-tower estimate.
const DefaultH3Resolution = 9

// H3Cell returns the H3 index of p at res, in its usual hex form.
func H3Cell(p Point, res int) (string, error) {
	if !p.Valid() {
		return "", fmt.Errorf("invalid point %v", p)
	}

	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lng), res)
	if err != nil {
		return "", fmt.Errorf("error converting to h3 cell at res %d: %w", res, err)
	}

	return cell.String(), nil
}

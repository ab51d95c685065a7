// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package locator resolves cell towers into positions through a single
// third-party provider per Engine.
package locator

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/johndoehack/mobile-locator/spatial"
	"go.uber.org/zap"
)

// MaxAccuracy is the largest accuracy radius, in meters, an engine accepts
// from a provider.
const MaxAccuracy = 10000.0

// Cell identifies a base station plus optional radio measurements.
type Cell struct {
	MCC int `json:"mcc"`
	MNC int `json:"mnc"`
	LAC int `json:"lac"`
	CID int `json:"cid"`

	Signal    *int   `json:"signal,omitempty"` // dBm
	Radio     string `json:"radio,omitempty"`  // gsm, wcdma, lte, cdma
	Age       int    `json:"age,omitempty"`    // ms since the measurement
	Neighbors []Cell `json:"neighbors,omitempty"`
}

func (c Cell) String() string {
	return fmt.Sprintf("%d-%d-%d-%d", c.MCC, c.MNC, c.LAC, c.CID)
}

// Validate checks the identifiers every provider needs.
func (c Cell) Validate() error {
	switch {
	case c.MCC <= 0 || c.MCC > 999:
		return fmt.Errorf("mcc %d out of range", c.MCC)
	case c.MNC < 0 || c.MNC > 999:
		return fmt.Errorf("mnc %d out of range", c.MNC)
	case c.LAC < 0:
		return fmt.Errorf("lac %d out of range", c.LAC)
	case c.CID <= 0:
		return fmt.Errorf("cid %d out of range", c.CID)
	}

	return nil
}

// RadioType returns Radio or "gsm" when unset.
func (c Cell) RadioType() string {
	if c.Radio == "" {
		return "gsm"
	}

	return c.Radio
}

// Location is a resolved position.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"` // meters
}

// Point returns the location as a spatial.Point.
func (l Location) Point() spatial.Point {
	return spatial.Point{Lat: l.Latitude, Lng: l.Longitude}
}

// Validate checks the declared ranges.
func (l Location) Validate() error {
	if !l.Point().Valid() {
		return fmt.Errorf("coordinates (%v, %v) out of range", l.Latitude, l.Longitude)
	}

	if math.IsNaN(l.Accuracy) || l.Accuracy < 0 || l.Accuracy > MaxAccuracy {
		return fmt.Errorf("accuracy %v out of range", l.Accuracy)
	}

	return nil
}

// Adapter turns a cell into a WGS84 location through one provider.
type Adapter interface {
	Name() string
	Resolve(ctx context.Context, cell Cell) (Location, error)
}

// Options configures an Engine and is shared read-only with its adapter.
type Options struct {
	// Key, Token and OID are provider credentials.
	Key   string `yaml:"key,omitempty"`
	Token string `yaml:"token,omitempty"`
	OID   string `yaml:"oid,omitempty"`

	// Timeout before a call is abandoned. Zero means the provider default,
	// negative expires immediately.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// System is the reference frame of returned locations.
	System spatial.System `yaml:"system,omitempty"`

	// Data is a provider-specific result-set hint, e.g. "open".
	Data string `yaml:"data,omitempty"`

	// Endpoint overrides the provider base URL.
	Endpoint string `yaml:"endpoint,omitempty"`

	// Extra carries options no engine recognizes.
	Extra map[string]string `yaml:"extra,omitempty"`

	HTTPClient *http.Client `yaml:"-"`
	Logger     *zap.Logger  `yaml:"-"`
}

// Clone returns a copy that does not share the Extra map.
func (o *Options) Clone() *Options {
	if o == nil {
		return &Options{}
	}

	c := *o
	if o.Extra != nil {
		c.Extra = make(map[string]string, len(o.Extra))
		for k, v := range o.Extra {
			c.Extra[k] = v
		}
	}

	return &c
}

// EndpointOr returns Endpoint, or def when unset.
func (o *Options) EndpointOr(def string) string {
	if o.Endpoint != "" {
		return o.Endpoint
	}

	return def
}

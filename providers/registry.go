// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package providers adapts third-party cell geolocation APIs to
// locator.Adapter and builds engines for them by name.
package providers

import (
	"fmt"
	"time"

	"github.com/johndoehack/mobile-locator/locator"
)

// Provider describes a supported geolocation service.
type Provider struct {
	Name           string        // Name used by CreateEngine, case sensitive
	Homepage       string        // Where to sign up for credentials
	Credentials    []string      // Options fields the service needs: key, token, oid
	DefaultTimeout time.Duration // Applied when Options.Timeout is zero
	newAdapter     func(*locator.Options) locator.Adapter
}

// All available providers. Built once, never modified.
var providers = func() []Provider {
	return []Provider{
		{
			Name:           "cellocation",
			Homepage:       "http://www.cellocation.com/",
			DefaultTimeout: 5 * time.Second,
			newAdapter:     newCellocation,
		},
		{
			Name:           "google",
			Homepage:       "https://developers.google.com/maps/documentation/geolocation",
			Credentials:    []string{"key"},
			DefaultTimeout: 5 * time.Second,
			newAdapter:     newGoogle,
		},
		{
			Name:           "gpsspg",
			Homepage:       "http://www.gpsspg.com/api/bs/",
			Credentials:    []string{"oid", "key"},
			DefaultTimeout: 10 * time.Second,
			newAdapter:     newGPSspg,
		},
		{
			Name:           "haoservice",
			Homepage:       "http://www.haoservice.com/docs/4",
			Credentials:    []string{"key"},
			DefaultTimeout: 10 * time.Second,
			newAdapter:     newHaoService,
		},
		{
			Name:           "mozilla",
			Homepage:       "https://location.services.mozilla.com/",
			Credentials:    []string{"key"},
			DefaultTimeout: 5 * time.Second,
			newAdapter:     newMozilla,
		},
		{
			Name:           "mylnikov",
			Homepage:       "https://www.mylnikov.org/archives/1170",
			DefaultTimeout: 5 * time.Second,
			newAdapter:     newMylnikov,
		},
		{
			Name:           "opencellid",
			Homepage:       "https://opencellid.org/",
			Credentials:    []string{"key"},
			DefaultTimeout: 5 * time.Second,
			newAdapter:     newOpenCellID,
		},
		{
			Name:           "unwiredlabs",
			Homepage:       "https://unwiredlabs.com/",
			Credentials:    []string{"token"},
			DefaultTimeout: 5 * time.Second,
			newAdapter:     newUnwiredLabs,
		},
		{
			Name:           "yandex",
			Homepage:       "https://yandex.ru/dev/locator/",
			Credentials:    []string{"key"},
			DefaultTimeout: 5 * time.Second,
			newAdapter:     newYandex,
		},
	}
}()

// Find returns the provider registered under name.
func Find(name string) (*Provider, error) {
	for i := range providers {
		if providers[i].Name == name {
			// Copy to avoid handing out a reference into the table
			p := providers[i]

			return &p, nil
		}
	}

	return nil, &locator.Error{Kind: locator.KindUnknownProvider, Message: fmt.Sprintf("%q", name)}
}

// Each applies the given callback function to each provider.
// It stops iteration and returns the error if the callback returns an error.
func Each(callback func(Provider) error) error {
	for i := range providers {
		if err := callback(providers[i]); err != nil {
			return err
		}
	}

	return nil
}

// Names returns the provider names in registration order.
func Names() []string {
	names := make([]string, 0, len(providers))
	for i := range providers {
		names = append(names, providers[i].Name)
	}

	return names
}

// CreateEngine builds an engine for the named provider. opts may be nil.
// An unknown name is the only error; credentials are checked at Locate
// time and no I/O happens here.
func CreateEngine(name string, opts *locator.Options) (*locator.Engine, error) {
	p, err := Find(name)
	if err != nil {
		return nil, err
	}

	o := opts.Clone()
	if o.Timeout == 0 {
		o.Timeout = p.DefaultTimeout
	}

	return locator.NewEngine(p.newAdapter(o), o), nil
}

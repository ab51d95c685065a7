// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/johndoehack/mobile-locator/locator"
	"github.com/johndoehack/mobile-locator/spatial"
)

// engineAPI is what every engine offers callers.
type engineAPI interface {
	Locate(ctx context.Context, cell locator.Cell) (*locator.Location, error)
	LocateAsync(ctx context.Context, cell locator.Cell, cb locator.Callback)
}

func TestNames(t *testing.T) {
	want := []string{
		"cellocation", "google", "gpsspg", "haoservice", "mozilla",
		"mylnikov", "opencellid", "unwiredlabs", "yandex",
	}

	if diff := cmp.Diff(want, Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateEngineForEveryProvider(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			for _, opts := range []*locator.Options{nil, {}, {Key: "k", Token: "t", OID: "o"}} {
				engine, err := CreateEngine(name, opts)
				if err != nil {
					t.Fatalf("CreateEngine(%q) error = %v", name, err)
				}

				if engine.Name() != name {
					t.Errorf("engine name = %q, want %q", engine.Name(), name)
				}

				var _ engineAPI = engine
			}
		})
	}
}

func TestCreateEngineUnknownProvider(t *testing.T) {
	tests := []string{"not-a-real-provider", "Google", "", "opencellid "}

	for _, name := range tests {
		engine, err := CreateEngine(name, nil)
		if err == nil {
			t.Fatalf("CreateEngine(%q) expected an error", name)
		}

		if engine != nil {
			t.Errorf("CreateEngine(%q) returned an engine", name)
		}

		if !errors.Is(err, locator.ErrUnknownProvider) {
			t.Errorf("CreateEngine(%q) error = %v, want unknown provider", name, err)
		}
	}

	_, err := CreateEngine("not-a-real-provider", nil)
	if want := `unknown provider: "not-a-real-provider"`; err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestCreateEngineDefaults(t *testing.T) {
	engine, err := CreateEngine("gpsspg", nil)
	if err != nil {
		t.Fatal(err)
	}

	opts := engine.Options()
	if opts.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want provider default", opts.Timeout)
	}

	if opts.System != spatial.WGS84 {
		t.Errorf("System = %q, want wgs84", opts.System)
	}

	engine, err = CreateEngine("gpsspg", &locator.Options{Timeout: time.Second, System: spatial.BD09, Extra: map[string]string{"foo": "bar"}})
	if err != nil {
		t.Fatal(err)
	}

	opts = engine.Options()
	if opts.Timeout != time.Second || opts.System != spatial.BD09 {
		t.Errorf("explicit options not kept: %+v", opts)
	}
}

func TestCreateEngineDoesNotAliasOptions(t *testing.T) {
	in := &locator.Options{Key: "a", Extra: map[string]string{"x": "1"}}

	engine, err := CreateEngine("google", in)
	if err != nil {
		t.Fatal(err)
	}

	in.Key = "b"
	in.Extra["x"] = "2"

	opts := engine.Options()
	if opts.Key != "a" || opts.Extra["x"] != "1" {
		t.Errorf("engine options changed with the caller's: %+v", opts)
	}
}

func TestFindAndEach(t *testing.T) {
	p, err := Find("unwiredlabs")
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"token"}, p.Credentials); diff != "" {
		t.Errorf("Credentials mismatch (-want +got):\n%s", diff)
	}

	// The returned value is a copy.
	p.Name = "changed"
	if again, _ := Find("unwiredlabs"); again.Name != "unwiredlabs" {
		t.Error("Find exposed the registry")
	}

	count := 0
	stop := errors.New("stop")

	err = Each(func(Provider) error {
		count++
		if count == 3 {
			return stop
		}

		return nil
	})
	if !errors.Is(err, stop) || count != 3 {
		t.Errorf("Each did not stop: count=%d err=%v", count, err)
	}
}

// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package locator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/johndoehack/mobile-locator/spatial"
	"go.uber.org/zap"
)

// DefaultTimeout applies when neither the options nor the provider set one.
const DefaultTimeout = 5 * time.Second

// State is the lifecycle of a single Locate call.
type State string

// Locate states. Succeeded, Failed and TimedOut are terminal.
const (
	StatePending    State = "pending"
	StateRequesting State = "requesting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
	StateTimedOut   State = "timed_out"
)

// Callback receives the outcome of LocateAsync: exactly one of loc and
// err is non-nil.
type Callback func(loc *Location, err error)

// Engine binds one Adapter to a snapshot of Options. It keeps no per-call
// state and may be shared between goroutines.
type Engine struct {
	adapter Adapter
	options Options
	logger  *zap.Logger

	// systemErr is set when Options.System names no known system; every
	// Locate call then fails with it.
	systemErr error
}

// NewEngine builds an engine around adapter. A zero Timeout falls back to
// DefaultTimeout and an empty System to WGS84. System is matched without
// regard to case.
func NewEngine(adapter Adapter, opts *Options) *Engine {
	o := opts.Clone()
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}

	var systemErr error

	if system, err := spatial.ParseSystem(string(o.System)); err != nil {
		systemErr = Wrap(KindMalformedRequest, adapter.Name(), err, "output system")
	} else {
		o.System = system
	}

	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		adapter:   adapter,
		options:   *o,
		logger:    logger.With(zap.String("provider", adapter.Name())),
		systemErr: systemErr,
	}
}

// Name returns the provider name.
func (e *Engine) Name() string {
	return e.adapter.Name()
}

// Options returns a copy of the options the engine was built with.
func (e *Engine) Options() Options {
	return *e.options.Clone()
}

// Locate resolves cell and returns the location in the configured system.
func (e *Engine) Locate(ctx context.Context, cell Cell) (*Location, error) {
	start := time.Now()

	e.logger.Debug("locate", zap.Stringer("cell", cell), zap.String("state", string(StateRequesting)))

	loc, err := Location{}, e.systemErr
	if err == nil {
		loc, err = WithTimeout(ctx, e.options.Timeout, func(ctx context.Context) (Location, error) {
			return e.resolve(ctx, cell)
		})
	}

	if err != nil {
		le := classify(e.Name(), err)
		state := StateOf(le)

		e.logger.Debug("locate finished",
			zap.Stringer("cell", cell),
			zap.String("state", string(state)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(le),
		)

		return nil, le
	}

	e.logger.Debug("locate finished",
		zap.Stringer("cell", cell),
		zap.String("state", string(StateSucceeded)),
		zap.Duration("duration", time.Since(start)),
		zap.Float64("latitude", loc.Latitude),
		zap.Float64("longitude", loc.Longitude),
		zap.Float64("accuracy", loc.Accuracy),
	)

	return &loc, nil
}

// LocateAsync runs Locate in its own goroutine and invokes cb exactly once.
func (e *Engine) LocateAsync(ctx context.Context, cell Cell, cb Callback) {
	go func() {
		loc, err := e.Locate(ctx, cell)
		if err != nil {
			cb(nil, err)

			return
		}

		cb(loc, nil)
	}()
}

// resolve runs the adapter and the transform. It executes inside the
// WithTimeout goroutine, which recovers panics.
func (e *Engine) resolve(ctx context.Context, cell Cell) (loc Location, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = Errorf(KindMalformedResponse, e.Name(), "internal failure: %v", p)
		}
	}()

	raw, err := e.adapter.Resolve(ctx, cell)
	if err != nil {
		return Location{}, err
	}

	if err := raw.Validate(); err != nil {
		return Location{}, Wrap(KindMalformedResponse, e.Name(), err, "provider returned an invalid location")
	}

	p := spatial.Transform(raw.Point(), e.options.System)
	loc = Location{Latitude: p.Lat, Longitude: p.Lng, Accuracy: raw.Accuracy}

	if err := loc.Validate(); err != nil {
		return Location{}, Wrap(KindMalformedResponse, e.Name(), err, fmt.Sprintf("transform to %s", e.options.System))
	}

	return loc, nil
}

// StateOf returns the terminal state of a Locate call that returned err.
func StateOf(err error) State {
	switch {
	case err == nil:
		return StateSucceeded
	case errors.Is(err, ErrTimeout):
		return StateTimedOut
	default:
		return StateFailed
	}
}

// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package locator

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTimeoutOperationWins(t *testing.T) {
	want := Location{Latitude: 1, Longitude: 2, Accuracy: 3}

	got, err := WithTimeout(context.Background(), time.Second, func(context.Context) (Location, error) {
		return want, nil
	})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWithTimeoutOperationErrorIsVerbatim(t *testing.T) {
	perr := &Error{Kind: KindAuthentication, Message: "bad key"}

	_, err := WithTimeout(context.Background(), time.Second, func(context.Context) (Location, error) {
		return Location{}, perr
	})
	assert.Same(t, perr, err)
}

func TestWithTimeoutDeadlineWins(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	_, err := WithTimeout(context.Background(), 10*time.Millisecond, func(context.Context) (Location, error) {
		<-release // ignores its context on purpose

		return Location{Latitude: 1}, nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
	assert.Less(t, time.Since(start), time.Second)
}

func TestWithTimeoutZeroLimit(t *testing.T) {
	called := false

	_, err := WithTimeout(context.Background(), 0, func(context.Context) (Location, error) {
		called = true

		return Location{}, nil
	})
	require.Error(t, err)
	assert.True(t, IsTimeoutError(err))
	assert.False(t, called)
}

func TestWithTimeoutCancelsOperationContext(t *testing.T) {
	canceled := make(chan struct{})

	_, err := WithTimeout(context.Background(), 2*MinTimeout, func(ctx context.Context) (Location, error) {
		<-ctx.Done()
		close(canceled)

		return Location{}, ctx.Err()
	})
	require.Error(t, err)
	assert.True(t, IsTimeoutError(err))

	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("operation context was not canceled")
	}
}

func TestWithTimeoutLateResultDoesNotLeak(t *testing.T) {
	before := runtime.NumGoroutine()

	for range 20 {
		_, err := WithTimeout(context.Background(), MinTimeout, func(context.Context) (Location, error) {
			time.Sleep(5 * MinTimeout)

			return Location{}, nil
		})
		require.Error(t, err)
	}

	// Every abandoned goroutine delivers into its buffered channel and exits.
	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWithTimeoutRecoversPanic(t *testing.T) {
	_, err := WithTimeout(context.Background(), time.Second, func(context.Context) (Location, error) {
		panic("adapter bug")
	})
	require.Error(t, err)
	assert.Equal(t, KindMalformedResponse, KindOf(err))
}

func TestWithTimeoutParentDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*MinTimeout)
	defer cancel()

	start := time.Now()
	_, err := WithTimeout(ctx, time.Minute, func(ctx context.Context) (Location, error) {
		<-ctx.Done()

		return Location{}, ctx.Err()
	})
	require.Error(t, err)
	assert.True(t, IsTimeoutError(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestWithTimeoutShortParentDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	called := false
	_, err := WithTimeout(ctx, time.Minute, func(context.Context) (Location, error) {
		called = true

		return Location{Latitude: 1}, nil
	})
	require.Error(t, err)
	assert.True(t, IsTimeoutError(err))
	assert.False(t, called)
}

func TestWithTimeoutTinyLimitBeatsFastOperation(t *testing.T) {
	for _, limit := range []time.Duration{time.Nanosecond, time.Millisecond, MinTimeout - 1} {
		for range 500 {
			called := false

			loc, err := WithTimeout(context.Background(), limit, func(context.Context) (Location, error) {
				called = true

				return Location{Latitude: 1, Longitude: 2, Accuracy: 3}, nil
			})
			require.Error(t, err, limit)
			assert.True(t, IsTimeoutError(err), limit)
			assert.Contains(t, err.Error(), "timeout")
			assert.Zero(t, loc)
			assert.False(t, called, limit)
		}
	}
}

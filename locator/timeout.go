// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package locator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Operation is a single provider call.
type Operation func(ctx context.Context) (Location, error)

type outcome struct {
	loc Location
	err error
}

// MinTimeout is the shortest budget a call is attempted with. Shorter
// budgets time out without running the operation, so a tiny limit fails
// the same way against a provider that answers in microseconds.
const MinTimeout = 10 * time.Millisecond

// WithTimeout runs op against a deadline of limit. Whichever settles first
// wins; a result that arrives after the deadline is dropped. A limit below
// MinTimeout, or a parent context with less than MinTimeout left, times out
// without running op.
func WithTimeout(ctx context.Context, limit time.Duration, op Operation) (Location, error) {
	if limit < MinTimeout {
		return Location{}, timeoutError(limit, nil)
	}

	deadline := time.Now().Add(limit)

	// The parent may carry an earlier deadline.
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
		limit = time.Until(d)

		if limit < MinTimeout {
			return Location{}, timeoutError(limit, context.DeadlineExceeded)
		}
	}

	opCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	// Buffered so a late result never blocks the abandoned goroutine.
	done := make(chan outcome, 1)

	go func() {
		var o outcome

		defer func() {
			if p := recover(); p != nil {
				o = outcome{err: Errorf(KindMalformedResponse, "", "provider panicked: %v", p)}
			}
			done <- o
		}()

		o.loc, o.err = op(opCtx)
	}()

	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case o := <-done:
		if !time.Now().Before(deadline) {
			return Location{}, timeoutError(limit, o.err)
		}

		return o.loc, o.err
	case <-timer.C:
		return Location{}, timeoutError(limit, nil)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Location{}, timeoutError(limit, ctx.Err())
		}

		return Location{}, Wrap(KindNetwork, "", ctx.Err(), "request abandoned")
	}
}

func timeoutError(limit time.Duration, cause error) *Error {
	return &Error{
		Kind:    KindTimeout,
		Message: fmt.Sprintf("no answer within %v", limit),
		Err:     cause,
	}
}

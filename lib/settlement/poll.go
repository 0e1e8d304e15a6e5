// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package settlement

import (
	"context"
	"time"

	"github.com/bureau-foundation/ap2/lib/clock"
	"github.com/bureau-foundation/ap2/lib/mandate"
)

// Poll waits interval, calls check, and repeats up to attempts times,
// stopping as soon as check reports done. A failing check keeps the
// previous value and does not stop the loop.
//
// It returns the last value seen together with:
//   - nil when check reported done,
//   - a *mandate.TimeoutError when attempts ran out,
//   - ctx.Err() when ctx was cancelled during a wait.
//
// The wait timer is released on every exit path.
func Poll[T any](ctx context.Context, clk clock.Clock, attempts int, interval time.Duration, last T,
	check func(ctx context.Context) (T, bool, error)) (T, error) {
	for attempt := 0; attempt < attempts; attempt++ {
		timer := clk.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return last, ctx.Err()
		case <-timer.C:
		}

		value, done, err := check(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			continue
		}
		last = value
		if done {
			return last, nil
		}
	}
	return last, &mandate.TimeoutError{Operation: "settlement status poll", Attempts: attempts}
}

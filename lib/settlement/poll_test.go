// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bureau-foundation/ap2/lib/clock"
	"github.com/bureau-foundation/ap2/lib/mandate"
	"github.com/bureau-foundation/ap2/lib/testutil"
)

type pollResult struct {
	value string
	err   error
}

func startPoll(ctx context.Context, fake *clock.FakeClock, attempts int, check func(context.Context) (string, bool, error)) <-chan pollResult {
	done := make(chan pollResult, 1)
	go func() {
		value, err := Poll(ctx, fake, attempts, 2*time.Second, "created", check)
		done <- pollResult{value, err}
	}()
	return done
}

func TestPollStopsWhenDone(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	statuses := []string{"pending", "paid", "never"}
	calls := 0
	done := startPoll(context.Background(), fake, 3, func(context.Context) (string, bool, error) {
		status := statuses[calls]
		calls++
		return status, status == "paid", nil
	})

	for range 2 {
		fake.WaitForTimers(1)
		fake.Advance(2 * time.Second)
	}
	result := testutil.RequireReceive(t, done, 5*time.Second, "poll result")
	if result.err != nil || result.value != "paid" {
		t.Fatalf("Poll = %q, %v; want paid, nil", result.value, result.err)
	}
	if calls != 2 {
		t.Errorf("check called %d times, want 2", calls)
	}
}

func TestPollExhaustsAttempts(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	calls := 0
	done := startPoll(context.Background(), fake, 3, func(context.Context) (string, bool, error) {
		calls++
		if calls == 2 {
			return "", false, errors.New("provider unavailable")
		}
		return "pending", false, nil
	})

	for range 3 {
		fake.WaitForTimers(1)
		fake.Advance(2 * time.Second)
	}
	result := testutil.RequireReceive(t, done, 5*time.Second, "poll result")
	if result.value != "pending" {
		t.Errorf("last value = %q, want pending", result.value)
	}
	var timeout *mandate.TimeoutError
	if !errors.As(result.err, &timeout) || timeout.Attempts != 3 {
		t.Fatalf("err = %v, want TimeoutError after 3 attempts", result.err)
	}
	if !errors.Is(result.err, mandate.ErrTimeout) {
		t.Error("TimeoutError should match ErrTimeout")
	}
}

func TestPollCancelledReleasesTimer(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx, cancel := context.WithCancel(context.Background())
	done := startPoll(ctx, fake, 3, func(context.Context) (string, bool, error) {
		t.Error("check must not run after cancellation")
		return "", false, nil
	})

	fake.WaitForTimers(1)
	cancel()
	result := testutil.RequireReceive(t, done, 5*time.Second, "poll result")
	if !errors.Is(result.err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", result.err)
	}
	if result.value != "created" {
		t.Errorf("value = %q, want the initial value", result.value)
	}
	if pending := fake.PendingCount(); pending != 0 {
		t.Errorf("pending timers = %d after cancellation, want 0", pending)
	}
}

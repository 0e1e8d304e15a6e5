// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockNowAndSet(t *testing.T) {
	clock := Fake(epoch)
	if got := clock.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	clock.Advance(90 * time.Minute)
	if got, want := clock.Now(), epoch.Add(90*time.Minute); !got.Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", got, want)
	}
	clock.Set(epoch)
	if got := clock.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() after Set = %v, want %v", got, epoch)
	}
}

func TestFakeClockTimerFiresAtDeadline(t *testing.T) {
	clock := Fake(epoch)
	timer := clock.NewTimer(2 * time.Second)

	clock.Advance(time.Second)
	select {
	case <-timer.C:
		t.Fatal("timer fired before deadline")
	default:
	}

	clock.Advance(time.Second)
	select {
	case <-timer.C:
	default:
		t.Fatal("timer did not fire at deadline")
	}
	if timer.Stop() {
		t.Error("Stop after firing should report false")
	}
}

func TestFakeClockStoppedTimerNeverFires(t *testing.T) {
	clock := Fake(epoch)
	timer := clock.NewTimer(time.Second)
	if !timer.Stop() {
		t.Fatal("Stop on pending timer should report true")
	}
	if clock.PendingCount() != 0 {
		t.Fatalf("PendingCount = %d after Stop, want 0", clock.PendingCount())
	}
	clock.Advance(time.Hour)
	select {
	case <-timer.C:
		t.Fatal("stopped timer fired")
	default:
	}
}

func TestFakeClockNonPositiveDuration(t *testing.T) {
	clock := Fake(epoch)
	select {
	case <-clock.After(0):
	default:
		t.Fatal("After(0) should be ready immediately")
	}
	clock.Sleep(-time.Second)
}

func TestFakeClockWaitForTimers(t *testing.T) {
	clock := Fake(epoch)
	done := make(chan struct{})
	go func() {
		clock.Sleep(5 * time.Second)
		close(done)
	}()

	clock.WaitForTimers(1)
	clock.Advance(5 * time.Second)
	<-done
}

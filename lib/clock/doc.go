// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the injectable time source used by the mandate
// engine, the token signer, and settlement polling.
//
// Mandate expiry, token TTLs, and settlement poll delays are all
// time-dependent. Components hold a Clock instead of calling the time
// package directly so tests can pin "now" to an exact expiry boundary
// and step poll loops forward without sleeping.
//
// Production code uses Real(). Tests use Fake(initial) and move time
// with Advance. WaitForTimers closes the race between a goroutine
// registering a timer and the test advancing past it:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go poller.Run(ctx)
//	c.WaitForTimers(1)
//	c.Advance(2 * time.Second)
package clock

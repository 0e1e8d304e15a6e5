// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds the mandate signing secret outside the Go heap.
//
// A [Buffer] is backed by an anonymous mmap region that is excluded
// from core dumps and, where the process is allowed to, locked against
// swap. Close zeroes and unmaps it. The signing secret is loaded once
// at startup ([FromEnv] or [ReadFile]) and lives in a Buffer for the
// life of the process; the derived token key is likewise kept in a
// Buffer by lib/mandatetoken.
//
// Depends on golang.org/x/sys/unix.
package secret

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [SocketDir] returns a short directory under /tmp for Unix sockets,
// whose paths are limited to 108 bytes; t.TempDir() paths can exceed
// that. [WaitForSocket] blocks until a socket accepts connections.
//
// [RequireReceive] and [RequireClosed] bound channel waits with a
// wall-clock timeout so a broken test fails instead of hanging. They
// are the only place tests use real timeouts; everything else runs on
// the fake clock from lib/clock.
//
// All helpers call t.Fatalf on failure.
package testutil

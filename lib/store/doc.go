// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package store is the authoritative in-memory registry of mandates,
// receipts, the customer profile, the active settlement id, and the
// audit log. Nothing is persisted; the store lives as long as the
// process and is passed explicitly to every component that needs it.
//
// Concurrency: one RWMutex guards all maps. Id generation and
// insertion happen inside a single write-locked section, so two
// creations can never race for an id. Audit appends take the read
// lock (plus the log's own mutex), which makes [Store.Reset] atomic:
// no reader or appender observes a partially cleared store.
//
// Records are returned by value. Mandates are immutable once
// inserted; only receipt status, the profile, and the active
// settlement id change afterwards.
package store

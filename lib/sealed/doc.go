// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed keeps the mandate signing secret encrypted at rest
// with age. An operator seals the secret to one or more x25519
// recipients (`ap2 key seal`); the service opens the sealed file at
// startup with its identity file and holds the plaintext only in a
// [secret.Buffer].
//
// Sealed files use the ASCII-armored age format so they survive being
// pasted into configuration repositories.
//
// Depends on lib/secret for secure memory allocation.
package sealed

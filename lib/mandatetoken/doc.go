// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package mandatetoken signs and verifies the compact tokens that bind
// cart and payment mandates to their claims.
//
// Wire format (base64url, no padding):
//
//	CBOR(Envelope) || MAC
//
// The MAC is a 32-byte BLAKE3 keyed hash over the CBOR bytes. The key
// is derived from the configured shared secret with HKDF-SHA256 so the
// operator can supply a secret of any length. Every party in the
// chain shares the one secret; tokens prove integrity and freshness,
// not which party produced them.
//
// [Signer.Verify] distinguishes tampering ([ErrMalformed],
// [ErrInvalidSignature], both reported by [IsTampered]) from simple
// expiry ([ErrExpired]) so callers can report them differently.
package mandatetoken

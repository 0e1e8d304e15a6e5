// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the single CBOR configuration used across the
// service: mandate token payloads, the socket request/response
// protocol, and audit-trail exports all go through it.
//
// Encoding uses Core Deterministic Encoding (RFC 8949 §4.2). Token
// MACs are computed over encoded claim bytes, so the same claims must
// always encode to the same bytes; anything that signs data must use
// Marshal from this package rather than a locally configured encoder.
//
// Types that implement encoding.TextMarshaler (decimal amounts,
// timestamps) encode as CBOR text strings, which keeps decimal values
// exact on the wire.
package codec

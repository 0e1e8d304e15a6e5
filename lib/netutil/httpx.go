// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides HTTP and connection helpers shared by the
// Mollie client and the service's HTTP routes.
//
// Body reads are bounded: responses at MaxResponseSize, request bodies
// at the caller's limit. Connection error helpers classify errors that
// occur when a streaming client goes away.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// MaxResponseSize bounds provider API response reads. Mollie
// responses are a few kilobytes; the bound exists only to stop a
// misbehaving server from exhausting memory.
const MaxResponseSize int64 = 4 << 20

// ReadResponse reads an API response body up to MaxResponseSize bytes.
// Use instead of io.ReadAll when reading HTTP response bodies.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeJSON reads at most limit bytes of body and decodes them into
// v. Unknown fields are rejected.
func DecodeJSON(body io.Reader, limit int64, v any) error {
	decoder := json.NewDecoder(io.LimitReader(body, limit))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decoding JSON body: %w", err)
	}
	return nil
}

// WriteJSON writes v as a JSON response with the given status.
// Encoding failures after the header is sent cannot be reported to
// the client and are returned for logging.
func WriteJSON(writer http.ResponseWriter, status int, v any) error {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	return json.NewEncoder(writer).Encode(v)
}

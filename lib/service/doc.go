// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the transport scaffolding the mandate
// service is built from:
//
//   - SocketServer: a CBOR request-response protocol on a Unix socket.
//     Each connection carries one request with an "action" field; the
//     response is {ok, data} or {ok: false, error, kind, mandateId}.
//   - Client: the matching caller, used by the ap2 CLI.
//   - HTTPServer: a TCP listener with graceful shutdown for the
//     webhook, event stream, and admin routes.
//
// Access control is the socket file's permissions (0600). Anyone who
// can open the socket can drive the mandate engine.
package service

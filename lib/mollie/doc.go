// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package mollie is a minimal client for the Mollie payments REST API
// (v2), covering what settlement needs: payments (create, get,
// cancel), customers, and customer mandates.
//
// [Client] implements settlement.Provider and recurring.Customers.
// Requests are JSON over HTTPS with bearer authentication. Non-2xx
// responses become [*APIError], which carries Mollie's problem-detail
// title and detail. Plain HTTP is accepted only for loopback hosts, so
// tests can point the client at an httptest server.
package mollie

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package settlement realizes authorized payment mandates through an
// external payment provider.
//
// The [Provider] interface is the whole provider contract: create,
// get, and cancel a remote payment. [Settler] drives it:
//
//   - Settle reads the amount from the stored payment mandate (never
//     from the caller), picks the sequence from lib/recurring, records
//     the provider payment as the active settlement, and for recurring
//     charges polls for a final status a bounded number of times.
//   - HandleWebhook re-fetches the provider's status for a payment id
//     and updates the receipt; the webhook body is never trusted.
//   - Kill cancels in-flight polls and the active settlement. With
//     nothing active it does nothing.
//
// Provider calls pass through a circuit breaker. Failures surface as
// [mandate.ProviderError] with a remediation suggestion and never
// invalidate the mandate chain.
//
// [MemoryProvider] is an in-process provider for demo mode and tests.
package settlement

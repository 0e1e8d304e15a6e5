// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine is the AP2 mandate chain state machine.
//
// A chain advances one explicit call at a time:
//
//	CreateIntentMandate → CreateCartMandate → CreatePaymentMandate → ValidateMandateChain
//
// Each creation checks its preconditions in a fixed order and fails
// with the first violated one. Cart and payment mandates carry tokens
// from lib/mandatetoken whose claims are bound to the stored record;
// every later step re-verifies those tokens instead of trusting an
// earlier result.
//
// Creation failures are returned as classified errors from lib/mandate
// and are recorded in the audit log against the mandate they concern.
// ValidateMandateChain never returns an error: an invalid chain is a
// normal result.
//
// The engine never contacts the settlement provider. lib/settlement
// consumes payment mandates separately.
package engine

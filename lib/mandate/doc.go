// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package mandate defines the AP2 mandate chain records and the error
// taxonomy shared by every component that creates, validates, or
// settles them.
//
// A chain narrows a purchase goal into an executable payment:
//
//	IntentMandate  (goal, budget ceiling, expiry)
//	  └─ CartMandate     (priced items, merchant signature)
//	       └─ PaymentMandate  (amount, method, user authorization)
//
// Records are plain values. The store owns them; every other component
// receives copies.
//
// Errors: every failure carries one of the kind sentinels
// ([ErrValidation], [ErrNotFound], [ErrExpired], [ErrBudgetExceeded],
// [ErrSignatureInvalid], [ErrProvider], [ErrTimeout]) reachable with
// errors.Is, plus the id of the mandate it concerns when known.
// [KindOf] names the kind for wire responses.
package mandate

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/ap2/lib/events"
	"github.com/bureau-foundation/ap2/lib/mandate"
	"github.com/bureau-foundation/ap2/lib/mandatetoken"
	"github.com/bureau-foundation/ap2/lib/money"
)

// ChainValidation is the outcome of ValidateMandateChain. On failure
// only Valid and Error are set.
type ChainValidation struct {
	Valid      bool                 `cbor:"valid" json:"valid"`
	Error      string               `cbor:"error,omitempty" json:"error,omitempty"`
	Chain      *ChainSummary        `cbor:"chain,omitempty" json:"chain,omitempty"`
	AuditTrail []mandate.AuditEntry `cbor:"auditTrail,omitempty" json:"auditTrail,omitempty"`
}

// ChainSummary carries the key fields of each link.
type ChainSummary struct {
	Intent  IntentSummary  `cbor:"intentMandate" json:"intentMandate"`
	Cart    CartSummary    `cbor:"cartMandate" json:"cartMandate"`
	Payment PaymentSummary `cbor:"paymentMandate" json:"paymentMandate"`
}

type IntentSummary struct {
	ID          string       `cbor:"id" json:"id"`
	Description string       `cbor:"description" json:"description"`
	MaxBudget   money.Amount `cbor:"maxBudget" json:"maxBudget"`

	// WithinBudget is true when the cart total does not exceed
	// MaxBudget.
	WithinBudget bool `cbor:"withinBudget" json:"withinBudget"`
}

type CartSummary struct {
	ID             string       `cbor:"id" json:"id"`
	ItemCount      int          `cbor:"itemCount" json:"itemCount"`
	Total          money.Amount `cbor:"total" json:"total"`
	SignatureValid bool         `cbor:"signatureValid" json:"signatureValid"`
}

type PaymentSummary struct {
	ID                 string                `cbor:"id" json:"id"`
	Amount             money.Amount          `cbor:"amount" json:"amount"`
	Method             mandate.PaymentMethod `cbor:"method" json:"method"`
	AuthorizationValid bool                  `cbor:"authorizationValid" json:"authorizationValid"`
}

// ValidateMandateChain resolves payment → cart → intent, re-verifies
// both tokens, and re-checks the budget. It reports the first failing
// check in the result rather than as an error. A successful validation
// writes nothing to the audit log, so repeated calls on an unchanged
// chain return identical results.
func (e *Engine) ValidateMandateChain(paymentID string) ChainValidation {
	e.events.Emit(events.AgentMandate, events.TypeToolCall, "Validating mandate chain...",
		map[string]any{"paymentMandateId": paymentID})

	payment, ok := e.store.Payment(paymentID)
	if !ok {
		return e.invalidChain(paymentID, fmt.Sprintf("Payment Mandate %s not found", paymentID))
	}
	cart, ok := e.store.Cart(payment.CartMandateID)
	if !ok {
		return e.invalidChain(paymentID, fmt.Sprintf("Cart Mandate %s not found in chain", payment.CartMandateID))
	}
	intent, ok := e.store.Intent(cart.IntentMandateID)
	if !ok {
		return e.invalidChain(paymentID, fmt.Sprintf("Intent Mandate %s not found in chain", cart.IntentMandateID))
	}

	if err := e.verifyCart(cart); err != nil {
		e.store.Audit(auditAgent, ActionSignatureInvalid, err.Error(), cart.ID)
		if errors.Is(err, mandatetoken.ErrExpired) {
			return e.invalidChain(paymentID, "Cart Mandate signature expired")
		}
		return e.invalidChain(paymentID, "Cart Mandate signature invalid")
	}
	if err := e.verifyPayment(payment); err != nil {
		e.store.Audit(auditAgent, ActionSignatureInvalid, err.Error(), payment.ID)
		if errors.Is(err, mandatetoken.ErrExpired) {
			return e.invalidChain(paymentID, "Payment Mandate authorization expired")
		}
		return e.invalidChain(paymentID, "Payment Mandate authorization invalid")
	}

	exceeds, err := cart.Total.Exceeds(intent.MaxBudget)
	if err != nil {
		return e.invalidChain(paymentID, fmt.Sprintf("Currency mismatch: cart total in %s, budget in %s",
			cart.Total.Currency, intent.MaxBudget.Currency))
	}
	if exceeds {
		return e.invalidChain(paymentID, "Amount exceeds budget")
	}
	if !payment.Amount.Equal(cart.Total) {
		return e.invalidChain(paymentID, "Payment amount does not match cart total")
	}

	e.events.Emit(events.AgentMandate, events.TypeResult, "Mandate chain valid!",
		map[string]any{"paymentMandateId": paymentID})

	return ChainValidation{
		Valid: true,
		Chain: &ChainSummary{
			Intent: IntentSummary{
				ID:           intent.ID,
				Description:  intent.Description,
				MaxBudget:    intent.MaxBudget,
				WithinBudget: true,
			},
			Cart: CartSummary{
				ID:             cart.ID,
				ItemCount:      len(cart.Items),
				Total:          cart.Total,
				SignatureValid: true,
			},
			Payment: PaymentSummary{
				ID:                 payment.ID,
				Amount:             payment.Amount,
				Method:             payment.PaymentMethod,
				AuthorizationValid: true,
			},
		},
		AuditTrail: e.store.AuditFor(intent.ID, cart.ID, payment.ID),
	}
}

func (e *Engine) invalidChain(paymentID, reason string) ChainValidation {
	e.store.Audit(auditAgent, ActionChainInvalid, reason, paymentID)
	e.events.Emit(events.AgentMandate, events.TypeError, reason,
		map[string]any{"paymentMandateId": paymentID})
	e.logger.Warn("mandate chain invalid", "payment_mandate_id", paymentID, "reason", reason)
	return ChainValidation{Valid: false, Error: reason}
}

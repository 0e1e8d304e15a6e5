// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/ap2/lib/events"
	"github.com/bureau-foundation/ap2/lib/mandate"
	"github.com/bureau-foundation/ap2/lib/mandatetoken"
)

// CreatePaymentMandate authorizes payment of a cart's total. The
// amount is always copied from the stored cart.
func (e *Engine) CreatePaymentMandate(cartID string, method mandate.PaymentMethod) (mandate.PaymentMandate, error) {
	e.events.Emit(events.AgentMandate, events.TypeToolCall,
		fmt.Sprintf("Creating Payment Mandate (%s)", method), map[string]any{"cartMandateId": cartID})

	if _, err := mandate.ParsePaymentMethod(string(method)); err != nil {
		return mandate.PaymentMandate{}, e.reject(ActionRejectPayment, cartID, err)
	}

	cart, ok := e.store.Cart(cartID)
	if !ok {
		return mandate.PaymentMandate{}, e.reject(ActionRejectPayment, cartID, mandate.NotFound("Cart Mandate", cartID))
	}
	if err := e.verifyCart(cart); err != nil {
		e.store.Audit(auditAgent, ActionSignatureInvalid, err.Error(), cartID)
		return mandate.PaymentMandate{}, e.reject(ActionRejectPayment, cartID, err)
	}

	payment, err := e.store.AddPayment(func(id string) (mandate.PaymentMandate, error) {
		now := e.clock.Now()
		payment := mandate.PaymentMandate{
			ID:            id,
			CartMandateID: cartID,
			Amount:        cart.Total,
			PaymentMethod: method,
			Timestamp:     now,
		}
		authorization, err := e.signer.Sign(paymentClaims{
			PaymentMandateID: id,
			CartMandateID:    cartID,
			Amount:           cart.Total.Value,
			Currency:         cart.Total.Currency,
			PaymentMethod:    method,
			AuthorizedAt:     now,
		}, e.config.PaymentTTL)
		if err != nil {
			return mandate.PaymentMandate{}, fmt.Errorf("signing payment authorization: %w", err)
		}
		payment.UserAuthorization = authorization
		return payment, nil
	})
	if err != nil {
		return mandate.PaymentMandate{}, e.reject(ActionRejectPayment, cartID, err)
	}

	e.store.Audit(auditAgent, ActionCreatePayment,
		fmt.Sprintf("Payment mandate created: %s via %s", payment.Amount, payment.PaymentMethod), payment.ID)
	e.events.Emit(events.AgentMandate, events.TypeResult, "Payment Mandate created: "+payment.ID,
		map[string]any{"mandateId": payment.ID})
	e.logger.Info("payment mandate created",
		"mandate_id", payment.ID,
		"cart_mandate_id", cartID,
		"amount", payment.Amount.String(),
		"method", string(payment.PaymentMethod),
	)
	return payment, nil
}

// verifyCart re-verifies the merchant signature and its binding to the
// stored cart. Failures are SignatureInvalid; an expired token says so
// in the message and still matches mandatetoken.ErrExpired.
func (e *Engine) verifyCart(cart mandate.CartMandate) error {
	var claims cartClaims
	if _, err := e.signer.Verify(cart.MerchantSignature, &claims); err != nil {
		if errors.Is(err, mandatetoken.ErrExpired) {
			return mandate.SignatureInvalid(cart.ID, "Cart Mandate signature expired", err)
		}
		return mandate.SignatureInvalid(cart.ID, "Cart Mandate signature invalid (possible tampering)", err)
	}
	if !claims.matches(cart) {
		return mandate.SignatureInvalid(cart.ID, "Cart Mandate signature invalid (possible tampering)", errClaimsMismatch)
	}
	return nil
}

// verifyPayment is verifyCart for the user authorization.
func (e *Engine) verifyPayment(payment mandate.PaymentMandate) error {
	var claims paymentClaims
	if _, err := e.signer.Verify(payment.UserAuthorization, &claims); err != nil {
		if errors.Is(err, mandatetoken.ErrExpired) {
			return mandate.SignatureInvalid(payment.ID, "Payment Mandate authorization expired", err)
		}
		return mandate.SignatureInvalid(payment.ID, "Payment Mandate authorization invalid", err)
	}
	if !claims.matches(payment) {
		return mandate.SignatureInvalid(payment.ID, "Payment Mandate authorization invalid", errClaimsMismatch)
	}
	return nil
}

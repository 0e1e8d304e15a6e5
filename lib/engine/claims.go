// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bureau-foundation/ap2/lib/mandate"
)

// errClaimsMismatch means a token verified but describes a different
// record than the one it is attached to.
var errClaimsMismatch = errors.New("token claims do not match the stored mandate")

// cartClaims is what the merchant signature covers.
type cartClaims struct {
	CartMandateID   string             `cbor:"cartMandateId"`
	IntentMandateID string             `cbor:"intentMandateId"`
	Items           []mandate.CartItem `cbor:"items"`
	Total           decimal.Decimal    `cbor:"total"`
	Currency        string             `cbor:"currency"`
}

func newCartClaims(cart mandate.CartMandate) cartClaims {
	return cartClaims{
		CartMandateID:   cart.ID,
		IntentMandateID: cart.IntentMandateID,
		Items:           cart.Items,
		Total:           cart.Total.Value,
		Currency:        cart.Total.Currency,
	}
}

func (c cartClaims) matches(cart mandate.CartMandate) bool {
	if c.CartMandateID != cart.ID ||
		c.IntentMandateID != cart.IntentMandateID ||
		c.Currency != cart.Total.Currency ||
		!c.Total.Equal(cart.Total.Value) ||
		len(c.Items) != len(cart.Items) {
		return false
	}
	for index, item := range c.Items {
		if !sameItem(item, cart.Items[index]) {
			return false
		}
	}
	return true
}

// sameItem compares every signed field of a cart line.
func sameItem(signed, stored mandate.CartItem) bool {
	return signed.Name == stored.Name &&
		signed.Description == stored.Description &&
		signed.Quantity == stored.Quantity &&
		signed.UnitPrice.Equal(stored.UnitPrice) &&
		signed.Currency == stored.Currency &&
		signed.Vendor == stored.Vendor &&
		signed.URL == stored.URL
}

// paymentClaims is what the user authorization covers.
type paymentClaims struct {
	PaymentMandateID string                `cbor:"paymentMandateId"`
	CartMandateID    string                `cbor:"cartMandateId"`
	Amount           decimal.Decimal       `cbor:"amount"`
	Currency         string                `cbor:"currency"`
	PaymentMethod    mandate.PaymentMethod `cbor:"paymentMethod"`
	AuthorizedAt     time.Time             `cbor:"authorizedAt"`
}

func (c paymentClaims) matches(payment mandate.PaymentMandate) bool {
	return c.PaymentMandateID == payment.ID &&
		c.CartMandateID == payment.CartMandateID &&
		c.Currency == payment.Amount.Currency &&
		c.Amount.Equal(payment.Amount.Value) &&
		c.PaymentMethod == payment.PaymentMethod
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package settlement

import (
	"context"

	"github.com/bureau-foundation/ap2/lib/mandate"
	"github.com/bureau-foundation/ap2/lib/money"
	"github.com/bureau-foundation/ap2/lib/recurring"
)

// Status is a provider payment status. The set is open: values not
// listed here pass through unchanged.
type Status string

const (
	StatusOpen       Status = "open"
	StatusPending    Status = "pending"
	StatusAuthorized Status = "authorized"
	StatusPaid       Status = "paid"
	StatusCanceled   Status = "canceled"
	StatusExpired    Status = "expired"
	StatusFailed     Status = "failed"
)

// Final reports whether no further transition is expected.
func (s Status) Final() bool {
	switch s {
	case StatusPaid, StatusCanceled, StatusExpired, StatusFailed:
		return true
	}
	return false
}

// ReceiptStatus maps a provider status onto a receipt status.
func (s Status) ReceiptStatus() mandate.ReceiptStatus {
	switch s {
	case StatusPaid:
		return mandate.ReceiptSuccess
	case StatusFailed:
		return mandate.ReceiptFailed
	default:
		return mandate.ReceiptPending
	}
}

// PaymentRequest is what Settle asks the provider to charge.
type PaymentRequest struct {
	Amount            money.Amount
	Description       string
	Method            mandate.PaymentMethod
	CustomerID        string
	ProviderMandateID string
	Sequence          recurring.Sequence
	RedirectURL       string
	WebhookURL        string
	Metadata          map[string]string
}

// Payment is the provider's view of a payment.
type Payment struct {
	ID          string            `cbor:"id" json:"id"`
	Status      Status            `cbor:"status" json:"status"`
	Amount      money.Amount      `cbor:"amount" json:"amount"`
	Description string            `cbor:"description,omitempty" json:"description,omitempty"`
	Method      string            `cbor:"method,omitempty" json:"method,omitempty"`
	CheckoutURL string            `cbor:"checkoutUrl,omitempty" json:"checkoutUrl,omitempty"`
	CustomerID  string            `cbor:"customerId,omitempty" json:"customerId,omitempty"`
	MandateID   string            `cbor:"mandateId,omitempty" json:"mandateId,omitempty"`
	Metadata    map[string]string `cbor:"metadata,omitempty" json:"metadata,omitempty"`
}

// Provider is a remote payment service.
type Provider interface {
	CreatePayment(ctx context.Context, request PaymentRequest) (Payment, error)
	GetPayment(ctx context.Context, id string) (Payment, error)
	CancelPayment(ctx context.Context, id string) (Payment, error)
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mandate

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bureau-foundation/ap2/lib/money"
)

// Id prefixes for each mandate type.
const (
	IntentPrefix  = "intent_"
	CartPrefix    = "cart_"
	PaymentPrefix = "pay_"
)

// IntentMandate captures a purchase goal and its budget ceiling.
type IntentMandate struct {
	ID               string       `cbor:"id" json:"id"`
	Description      string       `cbor:"description" json:"description"`
	MaxBudget        money.Amount `cbor:"maxBudget" json:"maxBudget"`
	Category         string       `cbor:"category,omitempty" json:"category,omitempty"`
	Expiration       time.Time    `cbor:"expiration" json:"expiration"`
	UserConfirmation bool         `cbor:"userConfirmation" json:"userConfirmation"`
	CreatedAt        time.Time    `cbor:"createdAt" json:"createdAt"`
}

// ExpiredAt reports whether the intent has expired at now. The
// expiration instant itself is still valid.
func (m IntentMandate) ExpiredAt(now time.Time) bool {
	return now.After(m.Expiration)
}

// CartItem is one priced line of a cart.
type CartItem struct {
	Name        string          `cbor:"name" json:"name"`
	Description string          `cbor:"description,omitempty" json:"description,omitempty"`
	Quantity    int             `cbor:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `cbor:"unitPrice" json:"unitPrice"`
	Currency    string          `cbor:"currency,omitempty" json:"currency,omitempty"`
	Vendor      string          `cbor:"vendor,omitempty" json:"vendor,omitempty"`
	URL         string          `cbor:"url,omitempty" json:"url,omitempty"`
}

// LineTotal returns UnitPrice × Quantity.
func (item CartItem) LineTotal() decimal.Decimal {
	return money.LineTotal(item.UnitPrice, item.Quantity)
}

// CartMandate is a signed item selection tied to one intent.
type CartMandate struct {
	ID                string       `cbor:"id" json:"id"`
	IntentMandateID   string       `cbor:"intentMandateId" json:"intentMandateId"`
	Items             []CartItem   `cbor:"items" json:"items"`
	Total             money.Amount `cbor:"total" json:"total"`
	MerchantSignature string       `cbor:"merchantSignature" json:"merchantSignature"`
	CreatedAt         time.Time    `cbor:"createdAt" json:"createdAt"`
}

// Clone returns a copy that shares no slices with m.
func (m CartMandate) Clone() CartMandate {
	m.Items = append([]CartItem(nil), m.Items...)
	return m
}

// PaymentMethod is the payment instrument a payment mandate authorizes.
type PaymentMethod string

const (
	MethodIDEAL      PaymentMethod = "ideal"
	MethodCreditCard PaymentMethod = "creditcard"
	MethodBancontact PaymentMethod = "bancontact"
)

// ParsePaymentMethod validates a method name.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	switch method := PaymentMethod(value); method {
	case MethodIDEAL, MethodCreditCard, MethodBancontact:
		return method, nil
	default:
		return "", Validation("", fmt.Sprintf("unsupported payment method %q (want ideal, creditcard, or bancontact)", value))
	}
}

// PaymentMandate authorizes settlement of a cart's total.
type PaymentMandate struct {
	ID                string        `cbor:"id" json:"id"`
	CartMandateID     string        `cbor:"cartMandateId" json:"cartMandateId"`
	Amount            money.Amount  `cbor:"amount" json:"amount"`
	PaymentMethod     PaymentMethod `cbor:"paymentMethod" json:"paymentMethod"`
	UserAuthorization string        `cbor:"userAuthorization" json:"userAuthorization"`
	Timestamp         time.Time     `cbor:"timestamp" json:"timestamp"`
}

// AuditEntry is one append-only action record.
type AuditEntry struct {
	Sequence  uint64    `cbor:"sequence" json:"sequence"`
	Timestamp time.Time `cbor:"timestamp" json:"timestamp"`
	Agent     string    `cbor:"agent" json:"agent"`
	Action    string    `cbor:"action" json:"action"`
	Details   string    `cbor:"details" json:"details"`
	MandateID string    `cbor:"mandateId,omitempty" json:"mandateId,omitempty"`
}

// ReceiptStatus is the settlement outcome recorded on a receipt.
type ReceiptStatus string

const (
	ReceiptPending ReceiptStatus = "pending"
	ReceiptSuccess ReceiptStatus = "success"
	ReceiptFailed  ReceiptStatus = "failed"
)

// PaymentReceipt records a settlement attempt for a payment mandate.
type PaymentReceipt struct {
	MandateID    string        `cbor:"mandateId" json:"mandateId"`
	SettlementID string        `cbor:"settlementId" json:"settlementId"`
	Amount       money.Amount  `cbor:"amount" json:"amount"`
	Status       ReceiptStatus `cbor:"status" json:"status"`
	Timestamp    time.Time     `cbor:"timestamp" json:"timestamp"`
	AuditTrail   []AuditEntry  `cbor:"auditTrail" json:"auditTrail"`
}

// Clone returns a copy that shares no slices with r.
func (r PaymentReceipt) Clone() PaymentReceipt {
	r.AuditTrail = append([]AuditEntry(nil), r.AuditTrail...)
	return r
}

// ProviderMandateStatus is the state of a provider-side recurring
// authorization. Empty means none has been captured.
type ProviderMandateStatus string

const (
	ProviderMandateNone    ProviderMandateStatus = ""
	ProviderMandatePending ProviderMandateStatus = "pending"
	ProviderMandateValid   ProviderMandateStatus = "valid"
	ProviderMandateInvalid ProviderMandateStatus = "invalid"
)

// CustomerProfile tracks the recurring-payment setup of the single
// demo customer.
type CustomerProfile struct {
	CustomerID          string                `cbor:"customerId" json:"customerId"`
	Name                string                `cbor:"name" json:"name"`
	Email               string                `cbor:"email" json:"email"`
	PreferredMethod     PaymentMethod         `cbor:"preferredMethod" json:"preferredMethod"`
	ProviderMandateID   string                `cbor:"providerMandateId,omitempty" json:"providerMandateId,omitempty"`
	MandateStatus       ProviderMandateStatus `cbor:"mandateStatus,omitempty" json:"mandateStatus,omitempty"`
	AutoCheckoutEnabled bool                  `cbor:"autoCheckoutEnabled" json:"autoCheckoutEnabled"`
	CreatedAt           time.Time             `cbor:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time             `cbor:"updatedAt" json:"updatedAt"`
}

// FullyActive reports whether payments for this customer can settle
// without an interactive redirect.
func (p CustomerProfile) FullyActive() bool {
	return p.CustomerID != "" &&
		p.ProviderMandateID != "" &&
		p.MandateStatus == ProviderMandateValid &&
		p.AutoCheckoutEnabled
}

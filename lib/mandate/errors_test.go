// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mandate

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/bureau-foundation/ap2/lib/money"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("mac mismatch")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", Validation("intent_1", "bad"), "validation"},
		{"not found", NotFound("Intent Mandate", "intent_1"), "not_found"},
		{"expired", Expired("Intent Mandate", "intent_1"), "expired"},
		{"signature", SignatureInvalid("cart_1", "Cart Mandate signature invalid", cause), "signature_invalid"},
		{"budget", &BudgetError{IntentID: "intent_1"}, "budget_exceeded"},
		{"provider", &ProviderError{Operation: "create payment", Err: cause}, "provider"},
		{"timeout", &TimeoutError{Operation: "poll", Attempts: 3}, "timeout"},
		{"currency", fmt.Errorf("total: %w", money.ErrCurrencyMismatch), "validation"},
		{"wrapped", fmt.Errorf("creating cart: %w", NotFound("Intent Mandate", "x")), "not_found"},
		{"plain", errors.New("boom"), "internal"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := KindOf(test.err); got != test.want {
				t.Errorf("KindOf = %q, want %q", got, test.want)
			}
		})
	}
}

func TestErrorUnwrapsKindAndCause(t *testing.T) {
	cause := errors.New("token expired")
	err := SignatureInvalid("cart_1", "Cart Mandate signature expired", cause)

	if !errors.Is(err, ErrSignatureInvalid) {
		t.Error("errors.Is(err, ErrSignatureInvalid) = false")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false")
	}
	if MandateIDOf(err) != "cart_1" {
		t.Errorf("MandateIDOf = %q, want cart_1", MandateIDOf(err))
	}
}

func TestNotFoundMessage(t *testing.T) {
	err := NotFound("Intent Mandate", "intent_abc")
	if err.Error() != "Intent Mandate intent_abc not found" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestBudgetErrorMessage(t *testing.T) {
	err := &BudgetError{
		IntentID:  "intent_1",
		Total:     money.New(decimal.NewFromInt(1500), "EUR"),
		MaxBudget: money.New(decimal.NewFromInt(1200), "EUR"),
	}
	if err.Error() != "total 1500.00 EUR exceeds budget of 1200.00 EUR" {
		t.Errorf("Error() = %q", err.Error())
	}
	if MandateIDOf(err) != "intent_1" {
		t.Errorf("MandateIDOf = %q", MandateIDOf(err))
	}
}

func TestParsePaymentMethod(t *testing.T) {
	for _, valid := range []string{"ideal", "creditcard", "bancontact"} {
		if _, err := ParsePaymentMethod(valid); err != nil {
			t.Errorf("ParsePaymentMethod(%q): %v", valid, err)
		}
	}
	if _, err := ParsePaymentMethod("paypal"); !errors.Is(err, ErrValidation) {
		t.Errorf("ParsePaymentMethod(paypal): got %v, want ErrValidation", err)
	}
}

func TestFullyActive(t *testing.T) {
	profile := CustomerProfile{
		CustomerID:          "cst_1",
		ProviderMandateID:   "mdt_1",
		MandateStatus:       ProviderMandateValid,
		AutoCheckoutEnabled: true,
	}
	if !profile.FullyActive() {
		t.Error("complete profile is not fully active")
	}

	pending := profile
	pending.MandateStatus = ProviderMandatePending
	disabled := profile
	disabled.AutoCheckoutEnabled = false
	noMandate := profile
	noMandate.ProviderMandateID = ""

	for name, candidate := range map[string]CustomerProfile{
		"pending":    pending,
		"disabled":   disabled,
		"no mandate": noMandate,
	} {
		if candidate.FullyActive() {
			t.Errorf("%s profile reported fully active", name)
		}
	}
}

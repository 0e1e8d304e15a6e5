// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mandate

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/ap2/lib/money"
)

// Kind sentinels. Every error produced by the mandate components
// matches exactly one of these with errors.Is.
var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("not found")
	ErrExpired          = errors.New("expired")
	ErrBudgetExceeded   = errors.New("budget exceeded")
	ErrSignatureInvalid = errors.New("signature invalid")
	ErrProvider         = errors.New("provider error")
	ErrTimeout          = errors.New("timeout")
)

// Error is a classified failure tied to a mandate id.
type Error struct {
	// Kind is one of the package sentinels.
	Kind error

	// MandateID is the mandate the failure concerns, if known.
	MandateID string

	// Message is the human-readable reason returned to callers.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Validation returns a ValidationError.
func Validation(mandateID, message string) error {
	return &Error{Kind: ErrValidation, MandateID: mandateID, Message: message}
}

// NotFound returns a NotFound error naming the missing record, e.g.
// NotFound("Intent Mandate", id) reads "Intent Mandate <id> not found".
func NotFound(what, mandateID string) error {
	return &Error{Kind: ErrNotFound, MandateID: mandateID, Message: fmt.Sprintf("%s %s not found", what, mandateID)}
}

// Expired returns an Expired error.
func Expired(what, mandateID string) error {
	return &Error{Kind: ErrExpired, MandateID: mandateID, Message: what + " has expired"}
}

// SignatureInvalid returns a SignatureInvalid error wrapping the
// verification failure.
func SignatureInvalid(mandateID, message string, cause error) error {
	return &Error{Kind: ErrSignatureInvalid, MandateID: mandateID, Message: message, Err: cause}
}

// BudgetError reports a cart total above the intent's ceiling.
type BudgetError struct {
	IntentID  string
	Total     money.Amount
	MaxBudget money.Amount
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("total %s exceeds budget of %s", e.Total, e.MaxBudget)
}

// Is matches ErrBudgetExceeded.
func (e *BudgetError) Is(target error) bool {
	return target == ErrBudgetExceeded
}

// ProviderError reports a failed settlement provider call.
type ProviderError struct {
	// Operation names the provider call ("create payment").
	Operation string

	// Suggestion tells the caller how to remediate.
	Suggestion string

	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s failed: %v", e.Operation, e.Err)
}

func (e *ProviderError) Unwrap() []error {
	return []error{ErrProvider, e.Err}
}

// TimeoutError reports a bounded wait that ran out.
type TimeoutError struct {
	Operation string
	Attempts  int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s did not complete after %d attempts", e.Operation, e.Attempts)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// KindOf names the kind of err for wire responses: "validation",
// "not_found", "expired", "budget_exceeded", "signature_invalid",
// "provider", "timeout", or "internal" for anything unclassified.
// A currency mismatch from lib/money is a validation error.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, ErrValidation), errors.Is(err, money.ErrCurrencyMismatch), errors.Is(err, money.ErrInvalidCurrency):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrBudgetExceeded):
		return "budget_exceeded"
	case errors.Is(err, ErrProvider):
		return "provider"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "internal"
	}
}

// MandateIDOf returns the mandate id attached to err, if any.
func MandateIDOf(err error) string {
	var mandateError *Error
	if errors.As(err, &mandateError) {
		return mandateError.MandateID
	}
	var budgetError *BudgetError
	if errors.As(err, &budgetError) {
		return budgetError.IntentID
	}
	return ""
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package money carries currency-tagged decimal amounts. Arithmetic is
// exact (shopspring/decimal); combining amounts of different
// currencies is an error, never a silent conversion.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrCurrencyMismatch is returned when two amounts with different
// currencies are added or compared.
var ErrCurrencyMismatch = errors.New("currency mismatch")

// ErrInvalidCurrency is returned for codes that are not three ASCII
// letters.
var ErrInvalidCurrency = errors.New("invalid currency code")

// Amount is a decimal value in a single currency.
type Amount struct {
	Value    decimal.Decimal `cbor:"value" json:"value"`
	Currency string          `cbor:"currency" json:"currency"`
}

// New returns an Amount with a normalized currency code.
func New(value decimal.Decimal, currency string) Amount {
	return Amount{Value: value, Currency: NormalizeCurrency(currency)}
}

// Zero returns a zero amount in currency.
func Zero(currency string) Amount {
	return New(decimal.Zero, currency)
}

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

// ParseCurrency normalizes and validates an ISO-4217 style code.
func ParseCurrency(currency string) (string, error) {
	normalized := NormalizeCurrency(currency)
	if len(normalized) != 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}
	for _, r := range normalized {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
		}
	}
	return normalized, nil
}

func (a Amount) sameCurrency(other Amount) error {
	if a.Currency != other.Currency {
		return fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, a.Currency, other.Currency)
	}
	return nil
}

// Add returns a+other.
func (a Amount) Add(other Amount) (Amount, error) {
	if err := a.sameCurrency(other); err != nil {
		return Amount{}, err
	}
	return Amount{Value: a.Value.Add(other.Value), Currency: a.Currency}, nil
}

// Cmp compares a with other: -1, 0 or +1.
func (a Amount) Cmp(other Amount) (int, error) {
	if err := a.sameCurrency(other); err != nil {
		return 0, err
	}
	return a.Value.Cmp(other.Value), nil
}

// Exceeds reports whether a is strictly greater than limit.
func (a Amount) Exceeds(limit Amount) (bool, error) {
	comparison, err := a.Cmp(limit)
	if err != nil {
		return false, err
	}
	return comparison > 0, nil
}

// Equal reports whether both amounts carry the same currency and
// numerically equal values (1.5 equals 1.50).
func (a Amount) Equal(other Amount) bool {
	return a.Currency == other.Currency && a.Value.Equal(other.Value)
}

// IsPositive reports whether the value is strictly greater than zero.
func (a Amount) IsPositive() bool {
	return a.Value.IsPositive()
}

// Fixed formats the value with two fraction digits ("699.00").
func (a Amount) Fixed() string {
	return a.Value.StringFixed(2)
}

// String formats the amount as "699.00 EUR".
func (a Amount) String() string {
	return a.Fixed() + " " + a.Currency
}

// LineTotal returns unitPrice*quantity.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package money

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAddSameCurrency(t *testing.T) {
	a := New(decimal.RequireFromString("0.1"), "eur")
	b := New(decimal.RequireFromString("0.2"), "EUR")

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !sum.Value.Equal(decimal.RequireFromString("0.3")) {
		t.Errorf("0.1 + 0.2 = %s, want exactly 0.3", sum.Value)
	}
	if sum.Currency != "EUR" {
		t.Errorf("Currency = %q, want EUR", sum.Currency)
	}
}

func TestMismatchedCurrencies(t *testing.T) {
	euros := New(decimal.NewFromInt(10), "EUR")
	dollars := New(decimal.NewFromInt(10), "USD")

	if _, err := euros.Add(dollars); !errors.Is(err, ErrCurrencyMismatch) {
		t.Errorf("Add: got %v, want ErrCurrencyMismatch", err)
	}
	if _, err := euros.Cmp(dollars); !errors.Is(err, ErrCurrencyMismatch) {
		t.Errorf("Cmp: got %v, want ErrCurrencyMismatch", err)
	}
	if _, err := euros.Exceeds(dollars); !errors.Is(err, ErrCurrencyMismatch) {
		t.Errorf("Exceeds: got %v, want ErrCurrencyMismatch", err)
	}
	if euros.Equal(dollars) {
		t.Error("amounts in different currencies compare equal")
	}
}

func TestExceedsBoundary(t *testing.T) {
	limit := New(decimal.NewFromInt(1200), "EUR")

	tests := []struct {
		value string
		want  bool
	}{
		{"1199.99", false},
		{"1200", false},
		{"1200.00", false},
		{"1200.01", true},
	}
	for _, test := range tests {
		got, err := New(decimal.RequireFromString(test.value), "EUR").Exceeds(limit)
		if err != nil {
			t.Fatalf("Exceeds(%s): %v", test.value, err)
		}
		if got != test.want {
			t.Errorf("%s exceeds 1200 = %v, want %v", test.value, got, test.want)
		}
	}
}

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"eur", "EUR", false},
		{" usd ", "USD", false},
		{"EURO", "", true},
		{"E1R", "", true},
		{"", "", true},
	}
	for _, test := range tests {
		got, err := ParseCurrency(test.input)
		if (err != nil) != test.wantErr {
			t.Errorf("ParseCurrency(%q) error = %v, wantErr %v", test.input, err, test.wantErr)
			continue
		}
		if got != test.want {
			t.Errorf("ParseCurrency(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestLineTotalIsStable(t *testing.T) {
	price := decimal.RequireFromString("19.99")
	first := LineTotal(price, 3)
	for range 100 {
		if !LineTotal(price, 3).Equal(first) {
			t.Fatal("repeated LineTotal drifted")
		}
	}
	if first.StringFixed(2) != "59.97" {
		t.Errorf("LineTotal = %s, want 59.97", first.StringFixed(2))
	}
}

func TestString(t *testing.T) {
	amount := New(decimal.NewFromInt(699), "EUR")
	if amount.String() != "699.00 EUR" {
		t.Errorf("String() = %q", amount.String())
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/bureau-foundation/ap2/cmd/ap2/cli"
	"github.com/bureau-foundation/ap2/lib/mandate"
	"github.com/bureau-foundation/ap2/lib/money"
)

const laptopItems = `[
	// the main purchase
	{"name": "Laptop", "quantity": 1, "unitPrice": "1299.99", "vendor": "TechStore"},
	/* accessories */
	{"name": "Mouse", "quantity": 2, "unitPrice": 25, "vendor": "TechStore"},
]`

func TestParseItems(t *testing.T) {
	items, err := parseItems([]byte(laptopItems))
	if err != nil {
		t.Fatalf("parseItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items", len(items))
	}
	if items[0].Name != "Laptop" || !items[0].UnitPrice.Equal(decimal.RequireFromString("1299.99")) {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[1].Quantity != 2 || !items[1].UnitPrice.Equal(decimal.NewFromInt(25)) {
		t.Errorf("items[1] = %+v", items[1])
	}
}

func TestParseItemsRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "misspelled_field", input: `[{"name": "Laptop", "quantity": 1, "unit_price": "10"}]`, want: "unknown field"},
		{name: "empty", input: `[ // nothing yet
		]`, want: "no items"},
		{name: "not_an_array", input: `{"name": "Laptop"}`, want: "parsing items"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := parseItems([]byte(test.input))
			if err == nil || !strings.Contains(err.Error(), test.want) {
				t.Errorf("err = %v, want containing %q", err, test.want)
			}
		})
	}
}

func TestReadItemsFromFileAndStdin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.jsonc")
	if err := os.WriteFile(path, []byte(laptopItems), 0o644); err != nil {
		t.Fatal(err)
	}
	fromFile, err := readItems(path, nil)
	if err != nil || len(fromFile) != 2 {
		t.Fatalf("readItems(file) = %d items, %v", len(fromFile), err)
	}

	fromStdin, err := readItems("-", strings.NewReader(laptopItems))
	if err != nil || len(fromStdin) != 2 {
		t.Fatalf("readItems(-) = %d items, %v", len(fromStdin), err)
	}

	if _, err := readItems(filepath.Join(t.TempDir(), "missing.jsonc"), nil); err == nil {
		t.Error("missing file accepted")
	}
}

func TestPrintCart(t *testing.T) {
	var buffer bytes.Buffer
	printCart(cli.NewPlainPrinter(&buffer), mandate.CartMandate{
		ID:              "cart_1",
		IntentMandateID: "intent_1",
		Items: []mandate.CartItem{
			{Name: "Mouse", Quantity: 2, UnitPrice: decimal.RequireFromString("25"), Vendor: "TechStore"},
		},
		Total: money.New(decimal.RequireFromString("50"), "EUR"),
	})
	output := buffer.String()
	for _, want := range []string{"Cart mandate cart_1", "intent_1", "25.00 EUR", "50.00 EUR", "TechStore"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

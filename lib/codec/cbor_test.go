// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type lineItem struct {
	Name      string          `cbor:"name"`
	Quantity  int             `cbor:"quantity"`
	UnitPrice decimal.Decimal `cbor:"unit_price"`
}

type claimSet struct {
	IntentID string          `cbor:"intent_mandate_id"`
	Items    []lineItem      `cbor:"items"`
	Total    decimal.Decimal `cbor:"total"`
	At       time.Time       `cbor:"at"`
}

func sampleClaims() claimSet {
	return claimSet{
		IntentID: "intent_1",
		Items: []lineItem{
			{Name: "Laptop", Quantity: 1, UnitPrice: decimal.RequireFromString("699.00")},
			{Name: "Sleeve", Quantity: 2, UnitPrice: decimal.RequireFromString("19.95")},
		},
		Total: decimal.RequireFromString("738.90"),
		At:    time.Date(2026, 1, 1, 12, 0, 0, 123456789, time.UTC),
	}
}

func TestMarshalDeterministic(t *testing.T) {
	first, err := Marshal(sampleClaims())
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	second, err := Marshal(sampleClaims())
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}

func TestDecimalAndTimeSurviveRoundtrip(t *testing.T) {
	data, err := Marshal(sampleClaims())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded claimSet
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	want := sampleClaims()
	if !decoded.Total.Equal(want.Total) {
		t.Errorf("Total = %s, want %s", decoded.Total, want.Total)
	}
	if !decoded.Items[1].UnitPrice.Equal(want.Items[1].UnitPrice) {
		t.Errorf("UnitPrice = %s, want %s", decoded.Items[1].UnitPrice, want.Items[1].UnitPrice)
	}
	if !decoded.At.Equal(want.At) {
		t.Errorf("At = %v, want %v", decoded.At, want.At)
	}
}

func TestStreamRoundtrip(t *testing.T) {
	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, action := range []string{"create-intent", "create-cart", "status"} {
		if err := encoder.Encode(map[string]any{"action": action}); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for _, want := range []string{"create-intent", "create-cart", "status"} {
		var got map[string]any
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if got["action"] != want {
			t.Errorf("action = %v, want %s", got["action"], want)
		}
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	var decoded claimSet
	if err := Unmarshal([]byte{0xff, 0x00}, &decoded); err == nil {
		t.Fatal("expected error decoding invalid CBOR")
	}
}

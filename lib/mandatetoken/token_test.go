// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mandatetoken

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/bureau-foundation/ap2/lib/clock"
	"github.com/bureau-foundation/ap2/lib/secret"
)

type cartClaims struct {
	IntentMandateID string `cbor:"intentMandateId"`
	Total           string `cbor:"total"`
	Currency        string `cbor:"currency"`
}

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testSigner(t *testing.T, value string) (*Signer, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(epoch)
	shared, err := secret.NewFromBytes([]byte(value))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	defer shared.Close()

	signer, err := NewSigner(shared, fake)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	t.Cleanup(func() { signer.Close() })
	return signer, fake
}

func TestSignAndVerify(t *testing.T) {
	signer, _ := testSigner(t, "demo-shared-secret-value")

	token, err := signer.Sign(cartClaims{IntentMandateID: "intent_1", Total: "699.00", Currency: "EUR"}, time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	var claims cartClaims
	envelope, err := signer.Verify(token, &claims)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.IntentMandateID != "intent_1" || claims.Total != "699.00" || claims.Currency != "EUR" {
		t.Errorf("claims = %+v", claims)
	}
	if envelope.ID == "" {
		t.Error("envelope has no id")
	}
	if !envelope.Expiry().Equal(epoch.Add(time.Hour)) {
		t.Errorf("Expiry = %v, want %v", envelope.Expiry(), epoch.Add(time.Hour))
	}
}

func TestVerifyExpiryBoundary(t *testing.T) {
	signer, fake := testSigner(t, "demo-shared-secret-value")

	token, err := signer.Sign(cartClaims{IntentMandateID: "intent_1"}, 30*time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	fake.Advance(30 * time.Minute)
	if _, err := signer.Verify(token, nil); err != nil {
		t.Fatalf("Verify at the expiry instant: %v", err)
	}

	fake.Advance(time.Nanosecond)
	_, err = signer.Verify(token, nil)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("Verify after expiry: got %v, want ErrExpired", err)
	}
	if IsTampered(err) {
		t.Error("expired token reported as tampered")
	}
}

func TestVerifyKeepsSubMillisecondExpiry(t *testing.T) {
	signer, fake := testSigner(t, "demo-shared-secret-value")
	fake.Set(epoch.Add(900 * time.Microsecond))

	token, err := signer.Sign(cartClaims{IntentMandateID: "intent_1"}, time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	fake.Advance(time.Hour - 500*time.Microsecond)
	envelope, err := signer.Verify(token, nil)
	if err != nil {
		t.Fatalf("Verify 500µs before expiry: %v", err)
	}
	if want := epoch.Add(900*time.Microsecond + time.Hour); !envelope.Expiry().Equal(want) {
		t.Errorf("Expiry = %v, want %v", envelope.Expiry(), want)
	}

	fake.Advance(500*time.Microsecond + time.Nanosecond)
	if _, err := signer.Verify(token, nil); !errors.Is(err, ErrExpired) {
		t.Fatalf("Verify after expiry: got %v, want ErrExpired", err)
	}
}

func TestVerifyTamperedByte(t *testing.T) {
	signer, _ := testSigner(t, "demo-shared-secret-value")

	token, err := signer.Sign(cartClaims{IntentMandateID: "intent_1", Total: "699.00"}, time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		t.Fatalf("decoding token: %v", err)
	}

	for _, index := range []int{0, len(raw) / 2, len(raw) - 1} {
		mutated := append([]byte(nil), raw...)
		mutated[index] ^= 0x01
		_, err := signer.Verify(base64.RawURLEncoding.EncodeToString(mutated), nil)
		if !errors.Is(err, ErrInvalidSignature) {
			t.Errorf("byte %d flipped: got %v, want ErrInvalidSignature", index, err)
		}
		if !IsTampered(err) {
			t.Errorf("byte %d flipped: IsTampered = false", index)
		}
	}
}

func TestVerifyMalformed(t *testing.T) {
	signer, _ := testSigner(t, "demo-shared-secret-value")

	for _, token := range []string{"", "not base64 !!", "c2hvcnQ"} {
		_, err := signer.Verify(token, nil)
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("Verify(%q): got %v, want ErrMalformed", token, err)
		}
		if !IsTampered(err) {
			t.Errorf("Verify(%q): IsTampered = false", token)
		}
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	signer, _ := testSigner(t, "demo-shared-secret-value")
	other, _ := testSigner(t, "a-different-shared-secret")

	token, err := signer.Sign(cartClaims{IntentMandateID: "intent_1"}, time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := other.Verify(token, nil); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("Verify with other secret: got %v, want ErrInvalidSignature", err)
	}
}

func TestNewSignerRequiresSecret(t *testing.T) {
	if _, err := NewSigner(nil, clock.Fake(epoch)); !errors.Is(err, ErrNoSecret) {
		t.Errorf("NewSigner(nil): got %v, want ErrNoSecret", err)
	}

	short, err := secret.NewFromBytes([]byte("short"))
	if err != nil {
		t.Fatal(err)
	}
	defer short.Close()
	if _, err := NewSigner(short, clock.Fake(epoch)); err == nil {
		t.Error("NewSigner accepted a 5-byte secret")
	}
}

func TestSignRejectsNonPositiveTTL(t *testing.T) {
	signer, _ := testSigner(t, "demo-shared-secret-value")
	if _, err := signer.Sign(cartClaims{}, 0); err == nil {
		t.Error("Sign with zero ttl succeeded")
	}
}

func TestTokensAreUnique(t *testing.T) {
	signer, _ := testSigner(t, "demo-shared-secret-value")
	claims := cartClaims{IntentMandateID: "intent_1"}

	first, err := signer.Sign(claims, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	second, err := signer.Sign(claims, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Error("identical claims produced identical tokens")
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mandatetoken

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/hkdf"

	"github.com/bureau-foundation/ap2/lib/clock"
	"github.com/bureau-foundation/ap2/lib/codec"
	"github.com/bureau-foundation/ap2/lib/secret"
)

const (
	// macSize is the BLAKE3 output length appended to every token.
	macSize = 32

	// MinSecretSize is the shortest accepted shared secret.
	MinSecretSize = 16
)

var hkdfInfoToken = []byte("ap2.mandate.token.v1")

var encoding = base64.RawURLEncoding

// Errors returned by Sign and Verify.
var (
	ErrNoSecret         = errors.New("mandatetoken: no signing secret configured")
	ErrMalformed        = errors.New("mandatetoken: malformed token")
	ErrInvalidSignature = errors.New("mandatetoken: invalid signature")
	ErrExpired          = errors.New("mandatetoken: token has expired")
)

// IsTampered reports whether err means the token bytes were altered
// or forged, as opposed to merely expired.
func IsTampered(err error) bool {
	return errors.Is(err, ErrMalformed) || errors.Is(err, ErrInvalidSignature)
}

// Envelope is the signed payload.
type Envelope struct {
	// ID is unique per token.
	ID string `cbor:"1,keyasint"`

	// IssuedAt and ExpiresAt are Unix nanoseconds.
	IssuedAt  int64 `cbor:"2,keyasint"`
	ExpiresAt int64 `cbor:"3,keyasint"`

	// Claims is the deterministic CBOR encoding of the caller's
	// claim set.
	Claims codec.RawMessage `cbor:"4,keyasint"`
}

// Expiry returns ExpiresAt as a time.
func (e *Envelope) Expiry() time.Time {
	return time.Unix(0, e.ExpiresAt)
}

// Signer mints and verifies tokens with a key derived from the shared
// secret.
type Signer struct {
	key   *secret.Buffer
	clock clock.Clock
}

// NewSigner derives the token key from sharedSecret. The Signer does
// not take ownership of sharedSecret; the caller may close it once
// NewSigner returns.
func NewSigner(sharedSecret *secret.Buffer, clk clock.Clock) (*Signer, error) {
	if sharedSecret == nil || sharedSecret.Len() == 0 {
		return nil, ErrNoSecret
	}
	if sharedSecret.Len() < MinSecretSize {
		return nil, fmt.Errorf("mandatetoken: signing secret is %d bytes, need at least %d", sharedSecret.Len(), MinSecretSize)
	}
	if clk == nil {
		clk = clock.Real()
	}

	reader := hkdf.New(sha256.New, sharedSecret.Bytes(), nil, hkdfInfoToken)
	derived := make([]byte, macSize)
	if _, err := io.ReadFull(reader, derived); err != nil {
		secret.Zero(derived)
		return nil, fmt.Errorf("mandatetoken: deriving key: %w", err)
	}
	key, err := secret.NewFromBytes(derived)
	if err != nil {
		return nil, fmt.Errorf("mandatetoken: protecting key: %w", err)
	}
	return &Signer{key: key, clock: clk}, nil
}

// Close releases the derived key.
func (s *Signer) Close() error {
	return s.key.Close()
}

func (s *Signer) mac(payload []byte) []byte {
	hasher, err := blake3.NewKeyed(s.key.Bytes())
	if err != nil {
		panic("mandatetoken: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(payload)
	return hasher.Sum(nil)
}

// Sign encodes claims, stamps issue and expiry times, and returns the
// token string.
func (s *Signer) Sign(claims any, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("mandatetoken: ttl must be positive, got %s", ttl)
	}
	claimBytes, err := codec.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("mandatetoken: encoding claims: %w", err)
	}

	now := s.clock.Now()
	envelope := Envelope{
		ID:        uuid.NewString(),
		IssuedAt:  now.UnixNano(),
		ExpiresAt: now.Add(ttl).UnixNano(),
		Claims:    claimBytes,
	}
	payload, err := codec.Marshal(&envelope)
	if err != nil {
		return "", fmt.Errorf("mandatetoken: encoding envelope: %w", err)
	}

	raw := make([]byte, len(payload)+macSize)
	copy(raw, payload)
	copy(raw[len(payload):], s.mac(payload))
	return encoding.EncodeToString(raw), nil
}

// Verify checks the token against the current clock and decodes its
// claims into claims (which may be nil).
func (s *Signer) Verify(token string, claims any) (*Envelope, error) {
	return s.VerifyAt(token, claims, s.clock.Now())
}

// VerifyAt is like Verify with an explicit time. A token is still
// valid at its expiry instant and expired after it; the authentic
// envelope is returned alongside ErrExpired, but claims are not
// decoded.
func (s *Signer) VerifyAt(token string, claims any, now time.Time) (*Envelope, error) {
	raw, err := encoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(raw) <= macSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformed, len(raw))
	}

	splitPoint := len(raw) - macSize
	payload := raw[:splitPoint]
	if subtle.ConstantTimeCompare(s.mac(payload), raw[splitPoint:]) != 1 {
		return nil, ErrInvalidSignature
	}

	var envelope Envelope
	if err := codec.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decoding envelope: %v", ErrMalformed, err)
	}
	if now.After(envelope.Expiry()) {
		return &envelope, ErrExpired
	}

	if claims != nil {
		if err := codec.Unmarshal(envelope.Claims, claims); err != nil {
			return nil, fmt.Errorf("%w: decoding claims: %v", ErrMalformed, err)
		}
	}
	return &envelope, nil
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/ap2/lib/sealed"
)

func TestGenerateSealOpen(t *testing.T) {
	directory := t.TempDir()
	identityPath := filepath.Join(directory, "service.age")
	sealedPath := filepath.Join(directory, "signing.age")

	publicKey, err := generateIdentity(identityPath)
	if err != nil {
		t.Fatalf("generateIdentity: %v", err)
	}
	if !strings.HasPrefix(publicKey, "age1") {
		t.Errorf("public key = %q", publicKey)
	}
	info, err := os.Stat(identityPath)
	if err != nil {
		t.Fatal(err)
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		t.Errorf("identity mode = %o, want 600", mode)
	}
	if _, err := generateIdentity(identityPath); err == nil {
		t.Error("generateIdentity overwrote an existing file")
	}

	plaintext, err := secretFromInput([]byte("0123456789abcdef0123456789abcdef\n"))
	if err != nil {
		t.Fatalf("secretFromInput: %v", err)
	}
	defer plaintext.Close()
	if err := sealSecret(plaintext, []string{publicKey}, sealedPath); err != nil {
		t.Fatalf("sealSecret: %v", err)
	}

	opened, err := sealed.OpenFile(sealedPath, identityPath)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer opened.Close()
	if string(opened.Bytes()) != "0123456789abcdef0123456789abcdef" {
		t.Errorf("opened secret = %q", opened.Bytes())
	}
}

func TestSecretFromInputTooShort(t *testing.T) {
	if _, err := secretFromInput([]byte("short\n")); err == nil {
		t.Error("short secret accepted")
	}
}

func TestSealSecretRejectsBadRecipient(t *testing.T) {
	plaintext, err := secretFromInput([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatal(err)
	}
	defer plaintext.Close()
	err = sealSecret(plaintext, []string{"not-a-key"}, filepath.Join(t.TempDir(), "x.age"))
	if err == nil {
		t.Error("invalid recipient accepted")
	}
}

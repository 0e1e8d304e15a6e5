// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewFromBytesZeroesSource(t *testing.T) {
	source := []byte("shared-signing-secret")
	buffer, err := NewFromBytes(source)
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	defer buffer.Close()

	for index, value := range source {
		if value != 0 {
			t.Fatalf("source[%d] = %d, want 0", index, value)
		}
	}
	if !buffer.Equal([]byte("shared-signing-secret")) {
		t.Errorf("buffer contents differ from source")
	}
	if buffer.Len() != len("shared-signing-secret") {
		t.Errorf("Len = %d", buffer.Len())
	}
}

func TestCloseIsIdempotentAndPanicsOnRead(t *testing.T) {
	buffer, err := NewFromBytes([]byte("k"))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("Bytes after Close did not panic")
		}
	}()
	buffer.Bytes()
}

func TestNewRejectsEmpty(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Error("New(0) should fail")
	}
	if _, err := NewFromBytes(nil); err == nil {
		t.Error("NewFromBytes(nil) should fail")
	}
}

func TestFromEnvUnsetsVariable(t *testing.T) {
	t.Setenv("AP2_TEST_SECRET", "from-environment")

	buffer, err := FromEnv("AP2_TEST_SECRET")
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	defer buffer.Close()

	if !buffer.Equal([]byte("from-environment")) {
		t.Error("buffer does not hold the environment value")
	}
	if _, ok := os.LookupEnv("AP2_TEST_SECRET"); ok {
		t.Error("environment variable still set after FromEnv")
	}
}

func TestFromEnvMissing(t *testing.T) {
	if _, err := FromEnv("AP2_TEST_SECRET_THAT_IS_NOT_SET"); err == nil {
		t.Fatal("expected error for missing variable")
	}
}

func TestReadFileTrims(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte("  file-secret\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	buffer, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	defer buffer.Close()
	if !buffer.Equal([]byte("file-secret")) {
		t.Errorf("ReadFile did not trim whitespace")
	}
}

func TestReadFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(path, []byte(" \n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFile(path); err == nil {
		t.Fatal("expected error for whitespace-only file")
	}
}

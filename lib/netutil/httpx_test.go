// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"syscall"
	"testing"
)

type failReader struct{}

func (*failReader) Read([]byte) (int, error) {
	return 0, fmt.Errorf("simulated read failure")
}

func TestReadResponse(t *testing.T) {
	t.Run("normal body", func(t *testing.T) {
		data, err := ReadResponse(bytes.NewReader([]byte(`{"status":"open"}`)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != `{"status":"open"}` {
			t.Fatalf("got %q", data)
		}
	})

	t.Run("read error propagates", func(t *testing.T) {
		if _, err := ReadResponse(&failReader{}); err == nil {
			t.Fatal("expected error from failing reader")
		}
	})
}

func TestDecodeJSON(t *testing.T) {
	var request struct {
		Action string `json:"action"`
		Method string `json:"method"`
	}

	if err := DecodeJSON(strings.NewReader(`{"action":"setMethod","method":"ideal"}`), 1024, &request); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if request.Action != "setMethod" || request.Method != "ideal" {
		t.Errorf("request = %+v", request)
	}

	if err := DecodeJSON(strings.NewReader(`{"action":"toggle","extra":1}`), 1024, &request); err == nil {
		t.Error("unknown field should be rejected")
	}
	if err := DecodeJSON(strings.NewReader(`{"action":"toggle"}`), 5, &request); err == nil {
		t.Error("body beyond the limit should fail to decode")
	}
}

func TestWriteJSON(t *testing.T) {
	recorder := httptest.NewRecorder()
	if err := WriteJSON(recorder, http.StatusBadRequest, map[string]string{"error": "bad id"}); err != nil {
		t.Fatal(err)
	}
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("status = %d", recorder.Code)
	}
	if contentType := recorder.Header().Get("Content-Type"); contentType != "application/json" {
		t.Errorf("content type = %q", contentType)
	}
	var body map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil || body["error"] != "bad id" {
		t.Errorf("body = %q", recorder.Body.String())
	}
}

func TestIsExpectedCloseError(t *testing.T) {
	expected := []error{
		io.EOF,
		net.ErrClosed,
		context.Canceled,
		fmt.Errorf("write: %w", syscall.EPIPE),
		fmt.Errorf("read: %w", syscall.ECONNRESET),
	}
	for _, err := range expected {
		if !IsExpectedCloseError(err) {
			t.Errorf("IsExpectedCloseError(%v) = false", err)
		}
	}
	for _, err := range []error{nil, fmt.Errorf("boom"), syscall.EACCES} {
		if IsExpectedCloseError(err) {
			t.Errorf("IsExpectedCloseError(%v) = true", err)
		}
	}
}

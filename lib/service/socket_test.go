// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/ap2/lib/codec"
	"github.com/bureau-foundation/ap2/lib/mandate"
	"github.com/bureau-foundation/ap2/lib/testutil"
)

// sendRequest connects to a Unix socket, sends a CBOR request, and
// returns the decoded response envelope.
func sendRequest(t *testing.T, socketPath string, request any) Response {
	t.Helper()

	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to socket: %v", err)
	}
	defer conn.Close()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		t.Fatalf("writing request: %v", err)
	}
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	var response Response
	if err := codec.NewDecoder(conn).Decode(&response); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return response
}

func testSocketPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(testutil.SocketDir(t), "test.sock")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// startServer runs server until the test ends.
func startServer(t *testing.T, server *SocketServer, socketPath string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Serve(ctx); err != nil {
			t.Errorf("Serve: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
	testutil.WaitForSocket(t, socketPath)
}

func TestSocketServerStatus(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return map[string]any{"intents": 2, "carts": 1}, nil
	})
	startServer(t, server, socketPath)

	response := sendRequest(t, socketPath, map[string]string{"action": "status"})
	if !response.OK {
		t.Fatalf("expected ok=true, got error %q", response.Error)
	}
	var data map[string]any
	if err := codec.Unmarshal(response.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data["intents"] != uint64(2) {
		t.Errorf("intents = %v (%T)", data["intents"], data["intents"])
	}

	info, err := os.Stat(socketPath)
	if err != nil {
		t.Fatal(err)
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		t.Errorf("socket mode = %o, want 600", mode)
	}
}

func TestSocketServerUnknownAndMissingAction(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())
	startServer(t, server, socketPath)

	response := sendRequest(t, socketPath, map[string]string{"action": "nope"})
	if response.OK || !strings.Contains(response.Error, `unknown action "nope"`) || response.Kind != "validation" {
		t.Errorf("unknown action response = %+v", response)
	}
	response = sendRequest(t, socketPath, map[string]string{"other": "x"})
	if response.OK || response.Error != "missing required field: action" {
		t.Errorf("missing action response = %+v", response)
	}
}

func TestSocketServerClassifiesErrors(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())
	server.Handle("budget", func(ctx context.Context, raw []byte) (any, error) {
		return nil, mandate.NotFound("Intent Mandate", "intent_x")
	})
	server.Handle("broken", func(ctx context.Context, raw []byte) (any, error) {
		return nil, errors.New("disk on fire")
	})
	startServer(t, server, socketPath)

	response := sendRequest(t, socketPath, map[string]string{"action": "budget"})
	if response.OK || response.Kind != "not_found" || response.MandateID != "intent_x" {
		t.Errorf("response = %+v", response)
	}
	response = sendRequest(t, socketPath, map[string]string{"action": "broken"})
	if response.Kind != "internal" || response.Error != "disk on fire" {
		t.Errorf("response = %+v", response)
	}
}

func TestSocketServerNilResult(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())
	server.Handle("reset", func(ctx context.Context, raw []byte) (any, error) { return nil, nil })
	startServer(t, server, socketPath)

	response := sendRequest(t, socketPath, map[string]string{"action": "reset"})
	if !response.OK || len(response.Data) != 0 {
		t.Errorf("response = %+v", response)
	}
}

func TestSocketServerDuplicateHandlerPanics(t *testing.T) {
	server := NewSocketServer(testSocketPath(t), testLogger())
	handler := func(ctx context.Context, raw []byte) (any, error) { return nil, nil }
	server.Handle("status", handler)
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate action")
		}
	}()
	server.Handle("status", handler)
}

func TestDecode(t *testing.T) {
	raw, err := codec.Marshal(map[string]any{"action": "cart.create", "intentMandateId": "intent_1"})
	if err != nil {
		t.Fatal(err)
	}
	request, err := Decode[struct {
		IntentMandateID string `cbor:"intentMandateId"`
	}](raw)
	if err != nil || request.IntentMandateID != "intent_1" {
		t.Errorf("Decode = %+v, %v", request, err)
	}

	_, err = Decode[struct {
		Count int `cbor:"intentMandateId"`
	}](raw)
	if !errors.Is(err, mandate.ErrValidation) {
		t.Errorf("type mismatch err = %v, want validation", err)
	}
}

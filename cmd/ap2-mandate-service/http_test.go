// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/bureau-foundation/ap2/lib/events"
	"github.com/bureau-foundation/ap2/lib/mandate"
	"github.com/bureau-foundation/ap2/lib/settlement"
)

func serve(handler http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func postWebhook(handler http.Handler, id string) *httptest.ResponseRecorder {
	form := url.Values{"id": {id}}
	return serve(handler, http.MethodPost, "/webhook/mollie", "application/x-www-form-urlencoded", form.Encode())
}

func TestWebhookRejectsMalformedID(t *testing.T) {
	application := newTestApp(t)
	handler := application.router()

	for _, id := range []string{"", "pay_123", "tr_", "tr_12;drop"} {
		recorder := postWebhook(handler, id)
		if recorder.Code != http.StatusBadRequest {
			t.Errorf("webhook id %q: status = %d, want 400", id, recorder.Code)
		}
	}
}

func TestWebhookUnknownPaymentIsServerError(t *testing.T) {
	application := newTestApp(t)
	recorder := postWebhook(application.router(), "tr_doesnotexist")
	if recorder.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", recorder.Code)
	}
}

func TestWebhookPaidUpdatesReceipt(t *testing.T) {
	application := newTestApp(t)
	handler := application.router()
	payment := application.createChain(t)

	settled, err := application.settler.Settle(t.Context(), settlement.SettleRequest{PaymentMandateID: payment.ID})
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if err := application.provider.SetStatus(settled.SettlementID, settlement.StatusPaid); err != nil {
		t.Fatal(err)
	}

	recorder := postWebhook(handler, settled.SettlementID)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", recorder.Code, recorder.Body)
	}
	var body map[string]bool
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil || !body["received"] {
		t.Errorf("body = %s", recorder.Body)
	}

	receipt, ok := application.store.Receipt(payment.ID)
	if !ok || receipt.Status != mandate.ReceiptSuccess {
		t.Errorf("receipt = %+v, %v", receipt, ok)
	}
	if active := application.store.ActiveSettlement(); active != "" {
		t.Errorf("active settlement after paid webhook = %q", active)
	}
}

func TestAutoCheckoutRoute(t *testing.T) {
	application := newTestApp(t)
	handler := application.router()

	recorder := serve(handler, http.MethodGet, "/auto-checkout", "", "")
	if recorder.Code != http.StatusOK || !strings.Contains(recorder.Body.String(), `"hasProfile":false`) {
		t.Fatalf("GET = %d %s", recorder.Code, recorder.Body)
	}

	recorder = serve(handler, http.MethodPost, "/auto-checkout", "application/json", `{"action":"toggle"}`)
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("toggle without profile = %d, want 400", recorder.Code)
	}

	recorder = serve(handler, http.MethodPost, "/auto-checkout", "application/json", `{"action":"setup","method":"bancontact"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("setup = %d %s", recorder.Code, recorder.Body)
	}
	var summary struct {
		Enabled         bool   `json:"enabled"`
		CustomerID      string `json:"customerId"`
		PreferredMethod string `json:"preferredMethod"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &summary); err != nil {
		t.Fatal(err)
	}
	if !summary.Enabled || summary.CustomerID == "" || summary.PreferredMethod != "bancontact" {
		t.Errorf("summary after setup = %+v", summary)
	}

	recorder = serve(handler, http.MethodPost, "/auto-checkout", "application/json", `{"action":"setMethod","method":"paypal"}`)
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("unsupported method = %d, want 400", recorder.Code)
	}

	recorder = serve(handler, http.MethodPost, "/auto-checkout", "application/json", `{"action":"explode"}`)
	if recorder.Code != http.StatusBadRequest || !strings.Contains(recorder.Body.String(), "unknown action") {
		t.Errorf("unknown action = %d %s", recorder.Code, recorder.Body)
	}
}

func TestAdminRoutes(t *testing.T) {
	application := newTestApp(t)
	handler := application.router()
	application.createChain(t)

	recorder := serve(handler, http.MethodGet, "/admin/status", "", "")
	var status statusResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &status); err != nil {
		t.Fatalf("decoding status: %v (%s)", err, recorder.Body)
	}
	if status.Store.Payments != 1 || status.Provider != "memory" || status.Version == "" {
		t.Errorf("status = %+v", status)
	}

	recorder = serve(handler, http.MethodPost, "/admin/kill", "", "")
	var kill settlement.KillResult
	if err := json.Unmarshal(recorder.Body.Bytes(), &kill); err != nil || !kill.Killed {
		t.Errorf("kill = %s (%v)", recorder.Body, err)
	}

	recorder = serve(handler, http.MethodPost, "/admin/reset", "", "")
	if recorder.Code != http.StatusOK {
		t.Errorf("reset = %d", recorder.Code)
	}
	if counts := application.store.Status(); counts.Payments != 0 {
		t.Errorf("payments after reset = %d", counts.Payments)
	}

	recorder = serve(handler, http.MethodGet, "/admin/reset", "", "")
	if recorder.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /admin/reset = %d, want 405", recorder.Code)
	}
}

func TestEventStreamReplaysThenHeartbeats(t *testing.T) {
	application := newTestApp(t)
	application.events.Emit(events.AgentShopping, events.TypeStart, "Searching for laptops", nil)

	server := httptest.NewServer(application.router())
	defer server.Close()

	request, err := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL+"/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatalf("GET /events: %v", err)
	}
	defer response.Body.Close()
	if contentType := response.Header.Get("Content-Type"); contentType != "text/event-stream" {
		t.Errorf("Content-Type = %q", contentType)
	}

	lines := bufio.NewScanner(response.Body)
	nextLine := func() string {
		for lines.Scan() {
			if line := lines.Text(); line != "" {
				return line
			}
		}
		t.Fatalf("stream ended: %v", lines.Err())
		return ""
	}

	line := nextLine()
	payload, ok := strings.CutPrefix(line, "data: ")
	if !ok {
		t.Fatalf("first line = %q, want a data line", line)
	}
	var event events.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		t.Fatal(err)
	}
	if event.Message != "Searching for laptops" || event.Agent != events.AgentShopping {
		t.Errorf("replayed event = %+v", event)
	}

	// The timer armed before the replayed event was stopped; the next
	// one is the idle heartbeat.
	application.fake.WaitForTimers(1)
	application.fake.Advance(application.config.Events.Heartbeat.Std())
	if line := nextLine(); line != ": heartbeat" {
		t.Errorf("line after idle interval = %q, want heartbeat", line)
	}

	application.events.Emit(events.AgentPayment, events.TypeResult, "Payment created", nil)
	if line := nextLine(); !strings.Contains(line, "Payment created") {
		t.Errorf("live event line = %q", line)
	}
}

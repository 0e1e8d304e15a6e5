// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mollie

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/bureau-foundation/ap2/lib/mandate"
	"github.com/bureau-foundation/ap2/lib/money"
	"github.com/bureau-foundation/ap2/lib/recurring"
	"github.com/bureau-foundation/ap2/lib/settlement"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(Config{
		BaseURL:    server.URL,
		APIKey:     "test_key",
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClientHTTPSEnforcement(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "http://api.mollie.com/v2", APIKey: "test_key"})
	if err == nil {
		t.Fatal("expected error for plain HTTP")
	}
	if got := err.Error(); got != `mollie: API client requires HTTPS (got "http://api.mollie.com/v2")` {
		t.Errorf("error = %s", got)
	}
	for _, base := range []string{"http://127.0.0.1:8080", "http://localhost:9000/v2", "http://[::1]:1234"} {
		if _, err := NewClient(Config{BaseURL: base, APIKey: "k"}); err != nil {
			t.Errorf("loopback %s rejected: %v", base, err)
		}
	}
	if _, err := NewClient(Config{}); err == nil {
		t.Error("missing API key should be rejected")
	}
}

func TestCreatePayment(t *testing.T) {
	var received createPaymentBody
	client := newTestClient(t, func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost || request.URL.Path != "/payments" {
			t.Errorf("request = %s %s", request.Method, request.URL.Path)
		}
		if auth := request.Header.Get("Authorization"); auth != "Bearer test_key" {
			t.Errorf("Authorization = %q", auth)
		}
		body, _ := io.ReadAll(request.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("request body: %v", err)
		}
		writer.Header().Set("Content-Type", "application/hal+json")
		writer.WriteHeader(http.StatusCreated)
		io.WriteString(writer, `{
			"id": "tr_WDqYK6vllg",
			"status": "open",
			"amount": {"currency": "EUR", "value": "699.00"},
			"description": "Laptop",
			"method": "ideal",
			"metadata": {"paymentMandateId": "pay_1"},
			"_links": {"checkout": {"href": "https://www.mollie.com/checkout/select-issuer/ideal/7UhSN1zuXS"}}
		}`)
	})

	payment, err := client.CreatePayment(context.Background(), settlement.PaymentRequest{
		Amount:      money.New(decimal.RequireFromString("699"), "EUR"),
		Description: "Laptop",
		Method:      mandate.MethodIDEAL,
		Sequence:    recurring.SequenceOneOff,
		RedirectURL: "https://shop.test/done",
		Metadata:    map[string]string{"paymentMandateId": "pay_1"},
	})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	if received.Amount.Value != "699.00" || received.Amount.Currency != "EUR" {
		t.Errorf("sent amount = %+v", received.Amount)
	}
	if received.SequenceType != "oneoff" || received.Method != "ideal" || received.CustomerID != "" {
		t.Errorf("sent body = %+v", received)
	}
	if payment.ID != "tr_WDqYK6vllg" || payment.Status != settlement.StatusOpen {
		t.Errorf("payment = %+v", payment)
	}
	if payment.CheckoutURL == "" || payment.Amount.String() != "699.00 EUR" {
		t.Errorf("checkout %q amount %s", payment.CheckoutURL, payment.Amount)
	}
}

func TestGetPaymentNotFound(t *testing.T) {
	client := newTestClient(t, func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/payments/tr_missing" {
			t.Errorf("path = %s", request.URL.Path)
		}
		writer.WriteHeader(http.StatusNotFound)
		io.WriteString(writer, `{"status":404,"title":"Not Found","detail":"No payment exists with token tr_missing."}`)
	})

	_, err := client.GetPayment(context.Background(), "tr_missing")
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
	apiError := err.(*APIError)
	if !apiError.ClientError() || apiError.Detail == "" {
		t.Errorf("apiError = %+v", apiError)
	}
}

func TestCancelPaymentUsesDelete(t *testing.T) {
	client := newTestClient(t, func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodDelete {
			t.Errorf("method = %s", request.Method)
		}
		io.WriteString(writer, `{"id":"tr_abc","status":"canceled","amount":{"currency":"EUR","value":"10.00"}}`)
	})
	payment, err := client.CancelPayment(context.Background(), "tr_abc")
	if err != nil {
		t.Fatal(err)
	}
	if payment.Status != settlement.StatusCanceled {
		t.Errorf("status = %q", payment.Status)
	}
}

func TestServerErrorIsNotClientError(t *testing.T) {
	client := newTestClient(t, func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusBadGateway)
		io.WriteString(writer, "<html>bad gateway</html>")
	})
	_, err := client.GetPayment(context.Background(), "tr_abc")
	apiError, ok := err.(*APIError)
	if !ok {
		t.Fatalf("err = %v", err)
	}
	if apiError.ClientError() || apiError.StatusCode != http.StatusBadGateway {
		t.Errorf("apiError = %+v", apiError)
	}
}

func TestCustomersAndMandates(t *testing.T) {
	client := newTestClient(t, func(writer http.ResponseWriter, request *http.Request) {
		switch request.URL.Path {
		case "/customers":
			var body customerBody
			json.NewDecoder(request.Body).Decode(&body)
			body.ID = "cst_8wmqcHMN4U"
			json.NewEncoder(writer).Encode(body)
		case "/customers/cst_8wmqcHMN4U/mandates":
			io.WriteString(writer, `{"count":2,"_embedded":{"mandates":[
				{"id":"mdt_pending","status":"pending","method":"directdebit"},
				{"id":"mdt_h3gAaD5zP","status":"valid","method":"directdebit"}]}}`)
		default:
			t.Errorf("unexpected path %s", request.URL.Path)
			writer.WriteHeader(http.StatusNotFound)
		}
	})

	customer, err := client.CreateCustomer(context.Background(), "Demo Customer", "demo@ap2.example")
	if err != nil {
		t.Fatal(err)
	}
	if customer.ID != "cst_8wmqcHMN4U" || customer.Email != "demo@ap2.example" {
		t.Errorf("customer = %+v", customer)
	}
	mandates, err := client.ListMandates(context.Background(), customer.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(mandates) != 2 || mandates[1].Status != "valid" {
		t.Errorf("mandates = %+v", mandates)
	}
}

func TestValidPaymentID(t *testing.T) {
	valid := []string{"tr_WDqYK6vllg", "tr_1"}
	invalid := []string{"", "tr_", "tr_abc/../x", "cst_abc", "tr_abc def", "TR_abc"}
	for _, id := range valid {
		if !ValidPaymentID(id) {
			t.Errorf("ValidPaymentID(%q) = false", id)
		}
	}
	for _, id := range invalid {
		if ValidPaymentID(id) {
			t.Errorf("ValidPaymentID(%q) = true", id)
		}
	}
}

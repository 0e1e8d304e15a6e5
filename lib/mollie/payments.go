// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mollie

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/bureau-foundation/ap2/lib/money"
	"github.com/bureau-foundation/ap2/lib/recurring"
	"github.com/bureau-foundation/ap2/lib/settlement"
)

var (
	_ settlement.Provider = (*Client)(nil)
	_ recurring.Customers = (*Client)(nil)
)

// amount is Mollie's money object: the value is a string with exactly
// two decimals.
type amount struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

type link struct {
	Href string `json:"href"`
}

type paymentBody struct {
	ID          string            `json:"id"`
	Status      string            `json:"status"`
	Amount      amount            `json:"amount"`
	Description string            `json:"description"`
	Method      string            `json:"method"`
	CustomerID  string            `json:"customerId"`
	MandateID   string            `json:"mandateId"`
	Metadata    map[string]string `json:"metadata"`
	Links       struct {
		Checkout *link `json:"checkout"`
	} `json:"_links"`
}

type createPaymentBody struct {
	Amount       amount            `json:"amount"`
	Description  string            `json:"description"`
	RedirectURL  string            `json:"redirectUrl,omitempty"`
	WebhookURL   string            `json:"webhookUrl,omitempty"`
	Method       string            `json:"method,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CustomerID   string            `json:"customerId,omitempty"`
	MandateID    string            `json:"mandateId,omitempty"`
	SequenceType string            `json:"sequenceType,omitempty"`
}

func (body paymentBody) payment() (settlement.Payment, error) {
	value, err := decimal.NewFromString(body.Amount.Value)
	if err != nil {
		return settlement.Payment{}, fmt.Errorf("mollie: payment %s has invalid amount %q: %w", body.ID, body.Amount.Value, err)
	}
	payment := settlement.Payment{
		ID:          body.ID,
		Status:      settlement.Status(body.Status),
		Amount:      money.New(value, body.Amount.Currency),
		Description: body.Description,
		Method:      body.Method,
		CustomerID:  body.CustomerID,
		MandateID:   body.MandateID,
		Metadata:    body.Metadata,
	}
	if body.Links.Checkout != nil {
		payment.CheckoutURL = body.Links.Checkout.Href
	}
	return payment, nil
}

// CreatePayment creates a payment. Recurring payments carry the
// customer and mandate and no redirect.
func (client *Client) CreatePayment(ctx context.Context, request settlement.PaymentRequest) (settlement.Payment, error) {
	body := createPaymentBody{
		Amount:       amount{Currency: request.Amount.Currency, Value: request.Amount.Fixed()},
		Description:  request.Description,
		RedirectURL:  request.RedirectURL,
		WebhookURL:   request.WebhookURL,
		Method:       string(request.Method),
		Metadata:     request.Metadata,
		CustomerID:   request.CustomerID,
		MandateID:    request.ProviderMandateID,
		SequenceType: string(request.Sequence),
	}
	var response paymentBody
	if err := client.do(ctx, http.MethodPost, "/payments", body, &response); err != nil {
		return settlement.Payment{}, err
	}
	return response.payment()
}

// GetPayment fetches a payment by id.
func (client *Client) GetPayment(ctx context.Context, id string) (settlement.Payment, error) {
	var response paymentBody
	if err := client.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(id), nil, &response); err != nil {
		return settlement.Payment{}, err
	}
	return response.payment()
}

// CancelPayment cancels a payment that is still cancelable.
func (client *Client) CancelPayment(ctx context.Context, id string) (settlement.Payment, error) {
	var response paymentBody
	if err := client.do(ctx, http.MethodDelete, "/payments/"+url.PathEscape(id), nil, &response); err != nil {
		return settlement.Payment{}, err
	}
	return response.payment()
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mollie

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bureau-foundation/ap2/lib/recurring"
)

type customerBody struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type mandateListBody struct {
	Count    int `json:"count"`
	Embedded struct {
		Mandates []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
			Method string `json:"method"`
		} `json:"mandates"`
	} `json:"_embedded"`
}

// CreateCustomer registers a customer for recurring payments.
func (client *Client) CreateCustomer(ctx context.Context, name, email string) (recurring.Customer, error) {
	var response customerBody
	if err := client.do(ctx, http.MethodPost, "/customers", customerBody{Name: name, Email: email}, &response); err != nil {
		return recurring.Customer{}, err
	}
	return recurring.Customer{ID: response.ID, Name: response.Name, Email: response.Email}, nil
}

// ListMandates returns the customer's mandates, newest first as Mollie
// orders them.
func (client *Client) ListMandates(ctx context.Context, customerID string) ([]recurring.ProviderMandate, error) {
	var response mandateListBody
	path := "/customers/" + url.PathEscape(customerID) + "/mandates"
	if err := client.do(ctx, http.MethodGet, path, nil, &response); err != nil {
		return nil, err
	}
	mandates := make([]recurring.ProviderMandate, 0, len(response.Embedded.Mandates))
	for _, entry := range response.Embedded.Mandates {
		mandates = append(mandates, recurring.ProviderMandate{ID: entry.ID, Status: entry.Status, Method: entry.Method})
	}
	return mandates, nil
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mollie

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// APIError is a non-2xx response from the Mollie API. Mollie returns
// RFC 7807 problem details.
type APIError struct {
	StatusCode int
	Title      string
	Detail     string

	// Field names the offending request field on 422 responses.
	Field string
}

func (err *APIError) Error() string {
	message := fmt.Sprintf("mollie: HTTP %d: %s", err.StatusCode, err.Title)
	if err.Detail != "" {
		message += ": " + err.Detail
	}
	if err.Field != "" {
		message += " (field " + err.Field + ")"
	}
	return message
}

// ClientError reports whether the request itself was rejected. Rate
// limiting is not a client error.
func (err *APIError) ClientError() bool {
	return err.StatusCode >= 400 && err.StatusCode < 500 && err.StatusCode != 429
}

// IsNotFound reports whether err is a Mollie 404 response.
func IsNotFound(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 404
}

type problemBody struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Field  string `json:"field"`
}

func parseAPIError(statusCode int, body []byte) *APIError {
	apiError := &APIError{StatusCode: statusCode}
	var problem problemBody
	if err := json.Unmarshal(body, &problem); err == nil && problem.Title != "" {
		apiError.Title = problem.Title
		apiError.Detail = problem.Detail
		apiError.Field = problem.Field
		return apiError
	}
	apiError.Title = "unexpected response"
	if len(body) > 0 {
		detail := string(body)
		if len(detail) > 200 {
			detail = detail[:200]
		}
		apiError.Detail = detail
	}
	return apiError
}

var paymentIDPattern = regexp.MustCompile(`^tr_[A-Za-z0-9]+$`)

// ValidPaymentID reports whether id has the shape of a Mollie payment
// id. Webhook input is checked with this before any API call.
func ValidPaymentID(id string) bool {
	return paymentIDPattern.MatchString(id)
}

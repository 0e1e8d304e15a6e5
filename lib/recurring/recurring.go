// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package recurring tracks whether the customer holds a provider-side
// recurring-payment authorization and decides, from that state, how a
// payment mandate should be settled: as an automatic "recurring"
// charge, as the "first" charge that captures a new authorization, or
// as a plain interactive "oneoff".
//
// The mandate chain engine never consults this package. Settlement
// reads the plan off the profile when it is asked to settle.
package recurring

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/ap2/lib/events"
	"github.com/bureau-foundation/ap2/lib/mandate"
	"github.com/bureau-foundation/ap2/lib/store"
)

// Customer is a provider-side customer record.
type Customer struct {
	ID    string
	Name  string
	Email string
}

// ProviderMandate is a provider-side recurring authorization.
type ProviderMandate struct {
	ID     string
	Status string
	Method string
}

// Customers is the provider surface the tracker needs.
type Customers interface {
	CreateCustomer(ctx context.Context, name, email string) (Customer, error)
	ListMandates(ctx context.Context, customerID string) ([]ProviderMandate, error)
}

// Sequence is the provider sequence type of a settlement.
type Sequence string

const (
	SequenceOneOff    Sequence = "oneoff"
	SequenceFirst     Sequence = "first"
	SequenceRecurring Sequence = "recurring"
)

// Plan describes how one settlement should be requested.
type Plan struct {
	Sequence          Sequence
	CustomerID        string
	ProviderMandateID string

	// Method is the interactive payment method; empty for recurring
	// charges, which use the stored authorization.
	Method mandate.PaymentMethod
}

// Interactive reports whether the customer has to complete a
// checkout.
func (p Plan) Interactive() bool {
	return p.Sequence != SequenceRecurring
}

// Summary is the externally visible state of the recurring setup.
type Summary struct {
	Enabled            bool                          `cbor:"enabled" json:"enabled"`
	HasProfile         bool                          `cbor:"hasProfile" json:"hasProfile"`
	HasProviderMandate bool                          `cbor:"hasProviderMandate" json:"hasProviderMandate"`
	MandateID          string                        `cbor:"mandateId,omitempty" json:"mandateId,omitempty"`
	MandateStatus      mandate.ProviderMandateStatus `cbor:"mandateStatus,omitempty" json:"mandateStatus,omitempty"`
	PreferredMethod    mandate.PaymentMethod         `cbor:"preferredMethod,omitempty" json:"preferredMethod,omitempty"`
	CustomerID         string                        `cbor:"customerId,omitempty" json:"customerId,omitempty"`
	FullyActive        bool                          `cbor:"fullyActive" json:"fullyActive"`
}

// Identity is the customer the demo creates at the provider.
type Identity struct {
	Name  string
	Email string
}

// Options wires a Tracker.
type Options struct {
	Store     *store.Store
	Customers Customers
	Events    *events.Broadcaster
	Identity  Identity
	Logger    *slog.Logger
}

// Tracker manages the customer profile held in the store.
type Tracker struct {
	store     *store.Store
	customers Customers
	events    *events.Broadcaster
	identity  Identity
	logger    *slog.Logger
}

// NewTracker returns a Tracker. Store and Customers are required.
func NewTracker(options Options) (*Tracker, error) {
	if options.Store == nil || options.Customers == nil {
		return nil, fmt.Errorf("recurring: store and customers are required")
	}
	if options.Events == nil {
		options.Events = events.NewBroadcaster(nil, events.Config{})
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	return &Tracker{
		store:     options.Store,
		customers: options.Customers,
		events:    options.Events,
		identity:  options.Identity,
		logger:    options.Logger,
	}, nil
}

func summarize(profile mandate.CustomerProfile, exists bool) Summary {
	if !exists {
		return Summary{}
	}
	return Summary{
		Enabled:            profile.AutoCheckoutEnabled,
		HasProfile:         true,
		HasProviderMandate: profile.ProviderMandateID != "",
		MandateID:          profile.ProviderMandateID,
		MandateStatus:      profile.MandateStatus,
		PreferredMethod:    profile.PreferredMethod,
		CustomerID:         profile.CustomerID,
		FullyActive:        profile.FullyActive(),
	}
}

// Summary reports the current setup.
func (t *Tracker) Summary() Summary {
	return summarize(t.store.Profile())
}

// Setup enables auto-checkout with method. The provider customer is
// created on first use only; later calls update the method and
// re-enable.
func (t *Tracker) Setup(ctx context.Context, method mandate.PaymentMethod) (Summary, error) {
	if method == "" {
		method = mandate.MethodIDEAL
	}
	if _, err := mandate.ParsePaymentMethod(string(method)); err != nil {
		return Summary{}, err
	}

	t.events.Emit(events.AgentPayment, events.TypeToolCall,
		fmt.Sprintf("Setting up customer profile for auto-checkout via %s", method), nil)

	if existing, ok := t.store.Profile(); ok {
		profile, err := t.store.UpdateProfile(func(profile *mandate.CustomerProfile, exists bool) error {
			profile.PreferredMethod = method
			profile.AutoCheckoutEnabled = true
			return nil
		})
		if err != nil {
			return Summary{}, err
		}
		t.events.Emit(events.AgentPayment, events.TypeResult, "Customer profile updated: "+existing.CustomerID,
			map[string]any{"customerId": existing.CustomerID, "autoCheckout": true})
		return summarize(profile, true), nil
	}

	customer, err := t.customers.CreateCustomer(ctx, t.identity.Name, t.identity.Email)
	if err != nil {
		providerError := &mandate.ProviderError{
			Operation:  "create customer",
			Suggestion: "check the provider API key and account status",
			Err:        err,
		}
		t.events.Emit(events.AgentPayment, events.TypeError, "Customer profile setup failed: "+err.Error(), nil)
		return Summary{}, providerError
	}

	profile, err := t.store.UpdateProfile(func(profile *mandate.CustomerProfile, exists bool) error {
		if exists && profile.CustomerID != "" {
			// A concurrent Setup won; keep its customer.
			profile.PreferredMethod = method
			profile.AutoCheckoutEnabled = true
			return nil
		}
		*profile = mandate.CustomerProfile{
			CustomerID:          customer.ID,
			Name:                t.identity.Name,
			Email:               t.identity.Email,
			PreferredMethod:     method,
			AutoCheckoutEnabled: true,
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	t.store.Audit("PaymentAgent", "SETUP_CUSTOMER_PROFILE",
		fmt.Sprintf("Provider customer created: %s, auto-checkout enabled with %s", profile.CustomerID, method), "")
	t.events.Emit(events.AgentPayment, events.TypeResult, "Customer profile created: "+profile.CustomerID,
		map[string]any{"customerId": profile.CustomerID, "autoCheckout": true})
	t.logger.Info("customer profile created", "customer_id", profile.CustomerID, "method", string(method))
	return summarize(profile, true), nil
}

// Toggle flips auto-checkout. Fails with a ValidationError when no
// profile exists.
func (t *Tracker) Toggle() (Summary, error) {
	profile, err := t.store.UpdateProfile(func(profile *mandate.CustomerProfile, exists bool) error {
		if !exists {
			return mandate.Validation("", "no customer profile; run setup first")
		}
		profile.AutoCheckoutEnabled = !profile.AutoCheckoutEnabled
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	state := "disabled"
	if profile.AutoCheckoutEnabled {
		state = "enabled"
	}
	t.store.Audit("Settings", "TOGGLE_AUTO_CHECKOUT", "Auto-checkout "+state, "")
	t.events.Emit(events.AgentPayment, events.TypeResult, "Auto-checkout "+state,
		map[string]any{"autoCheckoutEnabled": profile.AutoCheckoutEnabled})
	return summarize(profile, true), nil
}

// SetMethod changes the preferred payment method.
func (t *Tracker) SetMethod(method mandate.PaymentMethod) (Summary, error) {
	if _, err := mandate.ParsePaymentMethod(string(method)); err != nil {
		return Summary{}, err
	}
	profile, err := t.store.UpdateProfile(func(profile *mandate.CustomerProfile, exists bool) error {
		if !exists {
			return mandate.Validation("", "no customer profile; run setup first")
		}
		profile.PreferredMethod = method
		return nil
	})
	if err != nil {
		return Summary{}, err
	}
	return summarize(profile, true), nil
}

// Plan decides the settlement sequence for the current profile.
// method overrides the interactive method; it defaults to the
// profile's preferred method and then to iDEAL.
func (t *Tracker) Plan(method mandate.PaymentMethod) Plan {
	profile, exists := t.store.Profile()
	switch {
	case exists && profile.FullyActive():
		return Plan{
			Sequence:          SequenceRecurring,
			CustomerID:        profile.CustomerID,
			ProviderMandateID: profile.ProviderMandateID,
		}
	case exists && profile.AutoCheckoutEnabled && profile.CustomerID != "" && profile.ProviderMandateID == "":
		if method == "" {
			method = profile.PreferredMethod
		}
		if method == "" {
			method = mandate.MethodIDEAL
		}
		return Plan{Sequence: SequenceFirst, CustomerID: profile.CustomerID, Method: method}
	default:
		if method == "" {
			method = mandate.MethodIDEAL
		}
		return Plan{Sequence: SequenceOneOff, Method: method}
	}
}

// NeedsMandate reports whether a paid first payment should trigger
// CaptureMandate.
func (t *Tracker) NeedsMandate() (customerID string, ok bool) {
	profile, exists := t.store.Profile()
	if !exists || profile.CustomerID == "" || profile.ProviderMandateID != "" {
		return "", false
	}
	return profile.CustomerID, true
}

// CaptureMandate records the customer's provider mandate: the first
// valid one, otherwise the first listed. Reports whether one was
// captured.
func (t *Tracker) CaptureMandate(ctx context.Context, customerID string) (bool, error) {
	mandates, err := t.customers.ListMandates(ctx, customerID)
	if err != nil {
		return false, &mandate.ProviderError{
			Operation:  "list mandates",
			Suggestion: "the mandate can be captured on the next paid webhook",
			Err:        err,
		}
	}
	if len(mandates) == 0 {
		return false, nil
	}
	chosen := mandates[0]
	for _, candidate := range mandates {
		if candidate.Status == string(mandate.ProviderMandateValid) {
			chosen = candidate
			break
		}
	}
	status := mandate.ProviderMandatePending
	if chosen.Status == string(mandate.ProviderMandateValid) {
		status = mandate.ProviderMandateValid
	}

	_, err = t.store.UpdateProfile(func(profile *mandate.CustomerProfile, exists bool) error {
		if !exists || profile.CustomerID != customerID {
			return mandate.Validation("", "customer profile changed during mandate capture")
		}
		profile.ProviderMandateID = chosen.ID
		profile.MandateStatus = status
		return nil
	})
	if err != nil {
		return false, err
	}

	t.store.Audit("Webhook", "CAPTURE_PROVIDER_MANDATE",
		fmt.Sprintf("Mandate captured: %s (status: %s)", chosen.ID, chosen.Status), "")
	t.events.Emit(events.AgentPayment, events.TypeResult, "Auto-checkout mandate captured: "+chosen.ID,
		map[string]any{"autoCheckoutActive": status == mandate.ProviderMandateValid, "mandateId": chosen.ID, "mandateStatus": chosen.Status})
	t.logger.Info("provider mandate captured", "customer_id", customerID, "provider_mandate_id", chosen.ID, "status", chosen.Status)
	return true, nil
}

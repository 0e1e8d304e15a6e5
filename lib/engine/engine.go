// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"errors"
	"log/slog"
	"time"

	"github.com/bureau-foundation/ap2/lib/clock"
	"github.com/bureau-foundation/ap2/lib/events"
	"github.com/bureau-foundation/ap2/lib/mandate"
	"github.com/bureau-foundation/ap2/lib/mandatetoken"
	"github.com/bureau-foundation/ap2/lib/money"
	"github.com/bureau-foundation/ap2/lib/store"
)

// Default lifetimes.
const (
	DefaultIntentTTL  = 60 * time.Minute
	DefaultCartTTL    = time.Hour
	DefaultPaymentTTL = 30 * time.Minute
	DefaultCurrency   = "EUR"
)

// auditAgent is the agent name recorded on engine audit entries.
const auditAgent = "MandateAgent"

// Audit actions.
const (
	ActionCreateIntent     = "CREATE_INTENT_MANDATE"
	ActionCreateCart       = "CREATE_CART_MANDATE"
	ActionCreatePayment    = "CREATE_PAYMENT_MANDATE"
	ActionRejectIntent     = "REJECT_INTENT_MANDATE"
	ActionRejectCart       = "REJECT_CART_MANDATE"
	ActionRejectPayment    = "REJECT_PAYMENT_MANDATE"
	ActionSignatureInvalid = "SIGNATURE_INVALID"
	ActionChainInvalid     = "CHAIN_VALIDATION_FAILED"
)

// Config holds the engine's policy values.
type Config struct {
	// Currency is used when an intent request names none.
	Currency string

	IntentTTL  time.Duration
	CartTTL    time.Duration
	PaymentTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.Currency == "" {
		c.Currency = DefaultCurrency
	}
	c.Currency = money.NormalizeCurrency(c.Currency)
	if c.IntentTTL <= 0 {
		c.IntentTTL = DefaultIntentTTL
	}
	if c.CartTTL <= 0 {
		c.CartTTL = DefaultCartTTL
	}
	if c.PaymentTTL <= 0 {
		c.PaymentTTL = DefaultPaymentTTL
	}
	return c
}

// Options wires an Engine's collaborators.
type Options struct {
	Store  *store.Store
	Signer *mandatetoken.Signer
	Events *events.Broadcaster
	Clock  clock.Clock
	Logger *slog.Logger
	Config Config
}

// Engine creates and validates mandate chains.
type Engine struct {
	store  *store.Store
	signer *mandatetoken.Signer
	events *events.Broadcaster
	clock  clock.Clock
	logger *slog.Logger
	config Config
}

// New returns an Engine. Store and Signer are required.
func New(options Options) (*Engine, error) {
	if options.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	if options.Signer == nil {
		return nil, errors.New("engine: signer is required")
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Events == nil {
		options.Events = events.NewBroadcaster(options.Clock, events.Config{})
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		store:  options.Store,
		signer: options.Signer,
		events: options.Events,
		clock:  options.Clock,
		logger: options.Logger,
		config: options.Config.withDefaults(),
	}, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.config
}

// reject audits and broadcasts a failed operation and returns err.
func (e *Engine) reject(action, mandateID string, err error) error {
	if id := mandate.MandateIDOf(err); id != "" {
		mandateID = id
	}
	e.store.Audit(auditAgent, action, err.Error(), mandateID)
	e.events.Emit(events.AgentMandate, events.TypeError, err.Error(), map[string]any{
		"mandateId": mandateID,
		"kind":      mandate.KindOf(err),
	})
	e.logger.Warn("mandate operation rejected",
		"action", action,
		"mandate_id", mandateID,
		"kind", mandate.KindOf(err),
		"error", err,
	)
	return err
}

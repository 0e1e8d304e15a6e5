// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/bureau-foundation/ap2/lib/clock"
	"github.com/bureau-foundation/ap2/lib/config"
	"github.com/bureau-foundation/ap2/lib/engine"
	"github.com/bureau-foundation/ap2/lib/events"
	"github.com/bureau-foundation/ap2/lib/mandatetoken"
	"github.com/bureau-foundation/ap2/lib/mollie"
	"github.com/bureau-foundation/ap2/lib/recurring"
	"github.com/bureau-foundation/ap2/lib/sealed"
	"github.com/bureau-foundation/ap2/lib/secret"
	"github.com/bureau-foundation/ap2/lib/settlement"
	"github.com/bureau-foundation/ap2/lib/store"
)

// backend is a settlement provider that also manages customers and
// their recurring authorizations.
type backend interface {
	settlement.Provider
	recurring.Customers
}

// app holds the service's components. Every surface (socket, HTTP)
// operates on the same instance.
type app struct {
	config    *config.Config
	clock     clock.Clock
	logger    *slog.Logger
	startedAt time.Time

	store   *store.Store
	events  *events.Broadcaster
	signer  *mandatetoken.Signer
	engine  *engine.Engine
	tracker *recurring.Tracker
	settler *settlement.Settler
}

// newApp wires the components. The signing secret is closed before
// newApp returns, whether or not wiring succeeds; only the derived
// token key is retained.
func newApp(cfg *config.Config, logger *slog.Logger, clk clock.Clock, provider backend, signingSecret *secret.Buffer) (*app, error) {
	signer, err := mandatetoken.NewSigner(signingSecret, clk)
	signingSecret.Close()
	if err != nil {
		return nil, fmt.Errorf("creating mandate signer: %w", err)
	}

	mandateStore := store.New(clk)
	broadcaster := events.NewBroadcaster(clk, events.Config{
		History:    cfg.Events.History,
		BufferSize: cfg.Events.Buffer,
	})

	mandateEngine, err := engine.New(engine.Options{
		Store:  mandateStore,
		Signer: signer,
		Events: broadcaster,
		Clock:  clk,
		Logger: logger.With("component", "engine"),
		Config: engine.Config{
			Currency:   cfg.Mandate.Currency,
			IntentTTL:  cfg.Mandate.IntentTTL.Std(),
			CartTTL:    cfg.Mandate.CartTTL.Std(),
			PaymentTTL: cfg.Mandate.PaymentTTL.Std(),
		},
	})
	if err != nil {
		signer.Close()
		return nil, err
	}

	tracker, err := recurring.NewTracker(recurring.Options{
		Store:     mandateStore,
		Customers: provider,
		Events:    broadcaster,
		Identity:  recurring.Identity{Name: cfg.Customer.Name, Email: cfg.Customer.Email},
		Logger:    logger.With("component", "recurring"),
	})
	if err != nil {
		signer.Close()
		return nil, err
	}

	settler, err := settlement.New(settlement.Options{
		Store:    mandateStore,
		Provider: provider,
		Tracker:  tracker,
		Events:   broadcaster,
		Clock:    clk,
		Logger:   logger.With("component", "settlement"),
		Config: settlement.Config{
			RedirectURL:     cfg.Settlement.RedirectURL,
			WebhookURL:      cfg.WebhookURL(),
			PollAttempts:    cfg.Settlement.PollAttempts,
			PollInterval:    cfg.Settlement.PollInterval.Std(),
			BreakerFailures: cfg.Settlement.BreakerFailures,
			BreakerCooldown: cfg.Settlement.BreakerCooldown.Std(),
		},
	})
	if err != nil {
		signer.Close()
		return nil, err
	}

	return &app{
		config:    cfg,
		clock:     clk,
		logger:    logger,
		startedAt: clk.Now(),
		store:     mandateStore,
		events:    broadcaster,
		signer:    signer,
		engine:    mandateEngine,
		tracker:   tracker,
		settler:   settler,
	}, nil
}

// Close releases the token key.
func (a *app) Close() error {
	return a.signer.Close()
}

// reset clears every mandate, receipt, audit entry, the customer
// profile, and the event history. Subscribers stay connected.
func (a *app) reset() {
	a.store.Reset()
	a.events.Clear()
	a.events.Emit(events.AgentOrchestrator, events.TypeComplete, "All mandates and events cleared", nil)
	a.logger.Info("state reset")
}

// loadSigningSecret reads the shared signing secret from the sealed
// file when one is configured and from the environment otherwise.
func loadSigningSecret(cfg *config.Config) (*secret.Buffer, error) {
	if cfg.Signing.SealedFile != "" {
		buffer, err := sealed.OpenFile(cfg.Signing.SealedFile, cfg.Signing.IdentityFile)
		if err != nil {
			return nil, fmt.Errorf("reading sealed signing secret: %w", err)
		}
		return buffer, nil
	}
	buffer, err := secret.FromEnv(cfg.Signing.SecretEnv)
	if err != nil {
		return nil, fmt.Errorf("reading signing secret: %w", err)
	}
	return buffer, nil
}

// newProvider builds the configured settlement backend.
func newProvider(cfg *config.Config, logger *slog.Logger) (backend, error) {
	switch cfg.Settlement.Provider {
	case config.ProviderMemory:
		checkoutBase := ""
		if cfg.Service.PublicURL != "" {
			checkoutBase = strings.TrimSuffix(cfg.Service.PublicURL, "/") + "/checkout"
		}
		return settlement.NewMemoryProvider(checkoutBase), nil

	case config.ProviderMollie:
		apiKey, err := secret.FromEnv(cfg.Settlement.APIKeyEnv)
		if err != nil {
			return nil, fmt.Errorf("reading provider API key: %w", err)
		}
		// The client keeps the key for the life of the process, so it
		// is copied out of the protected buffer once.
		key := string(apiKey.Bytes())
		apiKey.Close()

		return mollie.NewClient(mollie.Config{
			BaseURL: cfg.Settlement.MollieBaseURL,
			APIKey:  key,
			HTTPClient: &http.Client{
				Transport: otelhttp.NewTransport(http.DefaultTransport),
				Timeout:   cfg.Settlement.RequestTimeout.Std(),
			},
			Logger: logger.With("component", "mollie"),
		})

	default:
		return nil, fmt.Errorf("unknown settlement provider %q", cfg.Settlement.Provider)
	}
}

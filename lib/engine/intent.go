// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bureau-foundation/ap2/lib/events"
	"github.com/bureau-foundation/ap2/lib/mandate"
	"github.com/bureau-foundation/ap2/lib/money"
)

// IntentRequest describes a purchase goal.
type IntentRequest struct {
	Description string          `cbor:"description" json:"description"`
	MaxBudget   decimal.Decimal `cbor:"maxBudget" json:"maxBudget"`

	// Currency defaults to the engine's configured currency.
	Currency string `cbor:"currency,omitempty" json:"currency,omitempty"`

	Category string `cbor:"category,omitempty" json:"category,omitempty"`

	// TTL defaults to 60 minutes when zero or negative.
	TTL time.Duration `cbor:"ttl,omitempty" json:"ttl,omitempty"`
}

// CreateIntentMandate records a new intent.
func (e *Engine) CreateIntentMandate(request IntentRequest) (mandate.IntentMandate, error) {
	e.events.Emit(events.AgentMandate, events.TypeToolCall,
		fmt.Sprintf("Creating Intent Mandate: %q (max %s)", request.Description, request.MaxBudget.StringFixed(2)), nil)

	description := strings.TrimSpace(request.Description)
	if description == "" {
		return mandate.IntentMandate{}, e.reject(ActionRejectIntent, "", mandate.Validation("", "intent description is required"))
	}
	if !request.MaxBudget.IsPositive() {
		return mandate.IntentMandate{}, e.reject(ActionRejectIntent, "",
			mandate.Validation("", fmt.Sprintf("maxBudget must be greater than zero, got %s", request.MaxBudget)))
	}
	currency := e.config.Currency
	if request.Currency != "" {
		parsed, err := money.ParseCurrency(request.Currency)
		if err != nil {
			return mandate.IntentMandate{}, e.reject(ActionRejectIntent, "", mandate.Validation("", err.Error()))
		}
		currency = parsed
	}
	ttl := request.TTL
	if ttl <= 0 {
		ttl = e.config.IntentTTL
	}

	intent, err := e.store.AddIntent(func(id string) (mandate.IntentMandate, error) {
		now := e.clock.Now()
		return mandate.IntentMandate{
			Description:      description,
			MaxBudget:        money.New(request.MaxBudget, currency),
			Category:         strings.TrimSpace(request.Category),
			Expiration:       now.Add(ttl),
			UserConfirmation: true,
			CreatedAt:        now,
		}, nil
	})
	if err != nil {
		return mandate.IntentMandate{}, e.reject(ActionRejectIntent, "", err)
	}

	e.store.Audit(auditAgent, ActionCreateIntent,
		fmt.Sprintf("Intent mandate created: %s (max %s)", intent.Description, intent.MaxBudget), intent.ID)
	e.events.Emit(events.AgentMandate, events.TypeResult, "Intent Mandate created: "+intent.ID,
		map[string]any{"mandateId": intent.ID})
	e.logger.Info("intent mandate created",
		"mandate_id", intent.ID,
		"max_budget", intent.MaxBudget.String(),
		"expiration", intent.Expiration,
	)
	return intent, nil
}

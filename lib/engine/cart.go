// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/ap2/lib/events"
	"github.com/bureau-foundation/ap2/lib/mandate"
	"github.com/bureau-foundation/ap2/lib/money"
)

// CreateCartMandate prices items against an intent and signs the
// result. Checks, in order: intent exists, intent not expired, item
// shape, item currencies match the intent, total within budget.
func (e *Engine) CreateCartMandate(intentID string, items []mandate.CartItem) (mandate.CartMandate, error) {
	e.events.Emit(events.AgentMandate, events.TypeToolCall,
		fmt.Sprintf("Creating Cart Mandate for %d item(s)", len(items)), map[string]any{"intentMandateId": intentID})

	intent, ok := e.store.Intent(intentID)
	if !ok {
		return mandate.CartMandate{}, e.reject(ActionRejectCart, intentID, mandate.NotFound("Intent Mandate", intentID))
	}
	if intent.ExpiredAt(e.clock.Now()) {
		return mandate.CartMandate{}, e.reject(ActionRejectCart, intentID, mandate.Expired("Intent Mandate", intentID))
	}
	if err := validateItems(intentID, items); err != nil {
		return mandate.CartMandate{}, e.reject(ActionRejectCart, intentID, err)
	}

	currency := intent.MaxBudget.Currency
	annotated := make([]mandate.CartItem, len(items))
	total := money.Zero(currency)
	for index, item := range items {
		if item.Currency != "" && money.NormalizeCurrency(item.Currency) != currency {
			return mandate.CartMandate{}, e.reject(ActionRejectCart, intentID, &mandate.Error{
				Kind:      mandate.ErrValidation,
				MandateID: intentID,
				Message:   fmt.Sprintf("item %q is priced in %s but the intent is in %s", item.Name, money.NormalizeCurrency(item.Currency), currency),
				Err:       money.ErrCurrencyMismatch,
			})
		}
		item.Currency = currency
		annotated[index] = item
		line := money.New(item.LineTotal(), currency)
		var err error
		if total, err = total.Add(line); err != nil {
			return mandate.CartMandate{}, e.reject(ActionRejectCart, intentID, err)
		}
	}

	exceeds, err := total.Exceeds(intent.MaxBudget)
	if err != nil {
		return mandate.CartMandate{}, e.reject(ActionRejectCart, intentID, &mandate.Error{
			Kind: mandate.ErrValidation, MandateID: intentID, Message: "comparing cart total with budget", Err: err,
		})
	}
	if exceeds {
		return mandate.CartMandate{}, e.reject(ActionRejectCart, intentID, &mandate.BudgetError{
			IntentID:  intentID,
			Total:     total,
			MaxBudget: intent.MaxBudget,
		})
	}

	cart, err := e.store.AddCart(func(id string) (mandate.CartMandate, error) {
		cart := mandate.CartMandate{
			ID:              id,
			IntentMandateID: intentID,
			Items:           annotated,
			Total:           total,
			CreatedAt:       e.clock.Now(),
		}
		signature, err := e.signer.Sign(newCartClaims(cart), e.config.CartTTL)
		if err != nil {
			return mandate.CartMandate{}, fmt.Errorf("signing cart mandate: %w", err)
		}
		cart.MerchantSignature = signature
		return cart, nil
	})
	if err != nil {
		return mandate.CartMandate{}, e.reject(ActionRejectCart, intentID, err)
	}

	e.store.Audit(auditAgent, ActionCreateCart,
		fmt.Sprintf("Cart mandate created: %d item(s), total %s", len(cart.Items), cart.Total), cart.ID)
	e.events.Emit(events.AgentMandate, events.TypeResult,
		fmt.Sprintf("Cart Mandate created: %s (%s)", cart.ID, cart.Total),
		map[string]any{"mandateId": cart.ID, "total": cart.Total.Fixed()})
	e.logger.Info("cart mandate created",
		"mandate_id", cart.ID,
		"intent_mandate_id", intentID,
		"total", cart.Total.String(),
	)
	return cart, nil
}

func validateItems(intentID string, items []mandate.CartItem) error {
	if len(items) == 0 {
		return mandate.Validation(intentID, "cart must contain at least one item")
	}
	for index, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			return mandate.Validation(intentID, fmt.Sprintf("item %d has no name", index))
		}
		if item.Quantity < 1 {
			return mandate.Validation(intentID, fmt.Sprintf("item %q quantity must be at least 1, got %d", item.Name, item.Quantity))
		}
		if item.UnitPrice.IsNegative() {
			return mandate.Validation(intentID, fmt.Sprintf("item %q unit price must not be negative, got %s", item.Name, item.UnitPrice))
		}
	}
	return nil
}

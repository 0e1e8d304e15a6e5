// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"time"

	"github.com/bureau-foundation/ap2/lib/engine"
	"github.com/bureau-foundation/ap2/lib/mandate"
	"github.com/bureau-foundation/ap2/lib/recurring"
	"github.com/bureau-foundation/ap2/lib/service"
	"github.com/bureau-foundation/ap2/lib/settlement"
	"github.com/bureau-foundation/ap2/lib/store"
	"github.com/bureau-foundation/ap2/lib/version"
)

type cartRequest struct {
	IntentMandateID string             `cbor:"intentMandateId"`
	Items           []mandate.CartItem `cbor:"items"`
}

type paymentRequest struct {
	CartMandateID string                `cbor:"cartMandateId"`
	PaymentMethod mandate.PaymentMethod `cbor:"paymentMethod"`
}

type paymentMandateRequest struct {
	PaymentMandateID string `cbor:"paymentMandateId"`
}

type settleRequest struct {
	PaymentMandateID string                `cbor:"paymentMandateId"`
	Description      string                `cbor:"description"`
	Method           mandate.PaymentMethod `cbor:"method"`
}

type settlementRequest struct {
	SettlementID string `cbor:"settlementId"`
	Reason       string `cbor:"reason"`
}

type receiptRequest struct {
	PaymentMandateID string `cbor:"paymentMandateId"`
	SettlementID     string `cbor:"settlementId"`
}

type methodRequest struct {
	Method mandate.PaymentMethod `cbor:"method"`
}

type auditRequest struct {
	MandateIDs []string `cbor:"mandateIds"`
}

// statusResponse is returned by the status action and GET
// /admin/status.
type statusResponse struct {
	Version     string            `cbor:"version" json:"version"`
	Provider    string            `cbor:"provider" json:"provider"`
	Currency    string            `cbor:"currency" json:"currency"`
	Uptime      string            `cbor:"uptime" json:"uptime"`
	Subscribers int               `cbor:"subscribers" json:"subscribers"`
	Store       store.Counts      `cbor:"store" json:"store"`
	Recurring   recurring.Summary `cbor:"recurring" json:"recurring"`
}

type auditResponse struct {
	Entries []mandate.AuditEntry `cbor:"entries" json:"entries"`
}

func (a *app) status() statusResponse {
	return statusResponse{
		Version:     version.Info(),
		Provider:    a.config.Settlement.Provider,
		Currency:    a.engine.Config().Currency,
		Uptime:      a.clock.Now().Sub(a.startedAt).Truncate(time.Second).String(),
		Subscribers: a.events.Subscribers(),
		Store:       a.store.Status(),
		Recurring:   a.tracker.Summary(),
	}
}

// registerActions binds every socket action to the app.
func (a *app) registerActions(server *service.SocketServer) {
	server.Handle("create-intent", a.handleCreateIntent)
	server.Handle("create-cart", a.handleCreateCart)
	server.Handle("create-payment", a.handleCreatePayment)
	server.Handle("validate-chain", a.handleValidateChain)

	server.Handle("settle", a.handleSettle)
	server.Handle("payment-status", a.handlePaymentStatus)
	server.Handle("cancel-payment", a.handleCancelPayment)
	server.Handle("generate-receipt", a.handleGenerateReceipt)

	server.Handle("recurring-setup", a.handleRecurringSetup)
	server.Handle("recurring-toggle", func(ctx context.Context, raw []byte) (any, error) {
		return a.tracker.Toggle()
	})
	server.Handle("recurring-method", a.handleRecurringMethod)
	server.Handle("recurring-status", func(ctx context.Context, raw []byte) (any, error) {
		return a.tracker.Summary(), nil
	})

	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return a.status(), nil
	})
	server.Handle("reset", func(ctx context.Context, raw []byte) (any, error) {
		a.reset()
		return nil, nil
	})
	server.Handle("kill", func(ctx context.Context, raw []byte) (any, error) {
		return a.settler.Kill(ctx), nil
	})
	server.Handle("audit", a.handleAudit)
}

func (a *app) handleCreateIntent(ctx context.Context, raw []byte) (any, error) {
	request, err := service.Decode[engine.IntentRequest](raw)
	if err != nil {
		return nil, err
	}
	return a.engine.CreateIntentMandate(request)
}

func (a *app) handleCreateCart(ctx context.Context, raw []byte) (any, error) {
	request, err := service.Decode[cartRequest](raw)
	if err != nil {
		return nil, err
	}
	return a.engine.CreateCartMandate(request.IntentMandateID, request.Items)
}

func (a *app) handleCreatePayment(ctx context.Context, raw []byte) (any, error) {
	request, err := service.Decode[paymentRequest](raw)
	if err != nil {
		return nil, err
	}
	return a.engine.CreatePaymentMandate(request.CartMandateID, request.PaymentMethod)
}

func (a *app) handleValidateChain(ctx context.Context, raw []byte) (any, error) {
	request, err := service.Decode[paymentMandateRequest](raw)
	if err != nil {
		return nil, err
	}
	if request.PaymentMandateID == "" {
		return nil, mandate.Validation("", "paymentMandateId is required")
	}
	return a.engine.ValidateMandateChain(request.PaymentMandateID), nil
}

func (a *app) handleSettle(ctx context.Context, raw []byte) (any, error) {
	request, err := service.Decode[settleRequest](raw)
	if err != nil {
		return nil, err
	}
	return a.settler.Settle(ctx, settlement.SettleRequest{
		PaymentMandateID: request.PaymentMandateID,
		Description:      request.Description,
		Method:           request.Method,
	})
}

func (a *app) handlePaymentStatus(ctx context.Context, raw []byte) (any, error) {
	request, err := service.Decode[settlementRequest](raw)
	if err != nil {
		return nil, err
	}
	if request.SettlementID == "" {
		return nil, mandate.Validation("", "settlementId is required")
	}
	return a.settler.Status(ctx, request.SettlementID)
}

func (a *app) handleCancelPayment(ctx context.Context, raw []byte) (any, error) {
	request, err := service.Decode[settlementRequest](raw)
	if err != nil {
		return nil, err
	}
	if request.SettlementID == "" {
		return nil, mandate.Validation("", "settlementId is required")
	}
	return a.settler.Cancel(ctx, request.SettlementID, request.Reason)
}

func (a *app) handleGenerateReceipt(ctx context.Context, raw []byte) (any, error) {
	request, err := service.Decode[receiptRequest](raw)
	if err != nil {
		return nil, err
	}
	return a.settler.GenerateReceipt(ctx, request.PaymentMandateID, request.SettlementID)
}

func (a *app) handleRecurringSetup(ctx context.Context, raw []byte) (any, error) {
	request, err := service.Decode[methodRequest](raw)
	if err != nil {
		return nil, err
	}
	return a.tracker.Setup(ctx, request.Method)
}

func (a *app) handleRecurringMethod(ctx context.Context, raw []byte) (any, error) {
	request, err := service.Decode[methodRequest](raw)
	if err != nil {
		return nil, err
	}
	return a.tracker.SetMethod(request.Method)
}

func (a *app) handleAudit(ctx context.Context, raw []byte) (any, error) {
	request, err := service.Decode[auditRequest](raw)
	if err != nil {
		return nil, err
	}
	if len(request.MandateIDs) == 0 {
		return auditResponse{Entries: a.store.AuditSnapshot()}, nil
	}
	return auditResponse{Entries: a.store.AuditFor(request.MandateIDs...)}, nil
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/bureau-foundation/ap2/lib/events"
)

// WebhookResult reports what a provider status callback changed.
type WebhookResult struct {
	SettlementID    string `cbor:"settlementId" json:"settlementId"`
	Status          Status `cbor:"status" json:"status"`
	ReceiptUpdated  bool   `cbor:"receiptUpdated" json:"receiptUpdated"`
	MandateCaptured bool   `cbor:"mandateCaptured" json:"mandateCaptured"`
}

// HandleWebhook processes a provider callback for settlementID. The
// status is always re-fetched from the provider. Callers validate the
// id format before calling.
func (s *Settler) HandleWebhook(ctx context.Context, settlementID string) (WebhookResult, error) {
	payment, err := s.getPayment(ctx, settlementID)
	if err != nil {
		s.logger.Warn("webhook status lookup failed", "settlement_id", settlementID, "error", err)
		return WebhookResult{}, err
	}

	s.store.Audit(webhookAgent, "MOLLIE_WEBHOOK",
		fmt.Sprintf("Payment %s status: %s", payment.ID, payment.Status), payment.Metadata["paymentMandateId"])
	s.events.Emit(events.AgentPayment, events.TypeResult,
		fmt.Sprintf("Webhook: payment %s is %s", payment.ID, payment.Status),
		map[string]any{"settlementId": payment.ID, "status": string(payment.Status)})

	result := WebhookResult{SettlementID: payment.ID, Status: payment.Status}
	if !payment.Status.Final() {
		return result, nil
	}
	result.ReceiptUpdated = s.finish(payment.ID, payment.Status)

	if payment.Status == StatusPaid && payment.CustomerID != "" {
		if customerID, ok := s.tracker.NeedsMandate(); ok && customerID == payment.CustomerID {
			captured, err := s.tracker.CaptureMandate(ctx, customerID)
			if err != nil {
				s.logger.Warn("mandate capture failed", "customer_id", customerID, "error", err)
			}
			result.MandateCaptured = captured
		}
	}
	return result, nil
}

// KillResult reports what Kill stopped.
type KillResult struct {
	Killed         bool      `cbor:"killed" json:"killed"`
	Timestamp      time.Time `cbor:"timestamp" json:"timestamp"`
	SettlementID   string    `cbor:"settlementId,omitempty" json:"settlementId,omitempty"`
	Canceled       bool      `cbor:"canceled" json:"canceled"`
	PollsCancelled int       `cbor:"pollsCancelled" json:"pollsCancelled"`
	Error          string    `cbor:"error,omitempty" json:"error,omitempty"`
}

// Kill stops all settlement activity: in-flight polls are cancelled
// and the active settlement, if any, is cancelled at the provider on a
// best-effort basis. With nothing active no provider call is made and
// the store is unchanged.
func (s *Settler) Kill(ctx context.Context) KillResult {
	s.events.Emit(events.AgentOrchestrator, events.TypeError, "KILL SWITCH ACTIVATED", nil)

	s.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.polls))
	for token, cancel := range s.polls {
		cancels = append(cancels, cancel)
		delete(s.polls, token)
	}
	s.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}

	result := KillResult{Killed: true, Timestamp: s.clock.Now(), PollsCancelled: len(cancels)}
	settlementID := s.store.TakeActiveSettlement()
	if settlementID == "" {
		s.logger.Info("kill switch with no active settlement", "polls_cancelled", len(cancels))
		return result
	}
	result.SettlementID = settlementID

	var mandateID string
	if receipt, ok := s.store.ReceiptForSettlement(settlementID); ok {
		mandateID = receipt.MandateID
	}
	payment, err := s.call(ctx, "cancel payment", "the payment may already be completed or expired",
		func(ctx context.Context) (Payment, error) {
			return s.provider.CancelPayment(ctx, settlementID)
		})
	details := "Emergency stop: canceled payment " + settlementID
	if err != nil {
		result.Error = err.Error()
		details = fmt.Sprintf("Emergency stop: cancel of %s failed: %v", settlementID, err)
	} else {
		result.Canceled = true
		s.finish(settlementID, payment.Status)
		if mandateID == "" {
			mandateID = payment.Metadata["paymentMandateId"]
		}
	}
	s.store.Audit(killAgent, "KILL_SWITCH", details, mandateID)
	s.logger.Warn("kill switch activated", "settlement_id", settlementID, "mandate_id", mandateID, "canceled", result.Canceled)
	return result
}

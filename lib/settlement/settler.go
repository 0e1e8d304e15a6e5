// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/bureau-foundation/ap2/lib/clock"
	"github.com/bureau-foundation/ap2/lib/events"
	"github.com/bureau-foundation/ap2/lib/mandate"
	"github.com/bureau-foundation/ap2/lib/money"
	"github.com/bureau-foundation/ap2/lib/recurring"
	"github.com/bureau-foundation/ap2/lib/store"
)

const (
	DefaultPollAttempts = 3
	DefaultPollInterval = 2 * time.Second

	// MetadataSource tags every provider payment this service creates.
	MetadataSource   = "ap2-mandate-service"
	MetadataProtocol = "AP2"

	paymentAgent  = "PaymentAgent"
	webhookAgent  = "Webhook"
	killAgent     = "KillSwitch"
	apiSuggestion = "check the provider API key and account status"
)

// Config tunes a Settler. Zero fields take defaults.
type Config struct {
	// RedirectURL is where interactive checkouts return to. The
	// payment mandate id is appended as a query parameter.
	RedirectURL string

	// WebhookURL is registered with the provider for status
	// callbacks. Empty disables webhooks.
	WebhookURL string

	PollAttempts int
	PollInterval time.Duration

	// BreakerFailures is the number of consecutive provider failures
	// that opens the circuit. BreakerCooldown is how long it stays
	// open before a trial request.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

func (c *Config) applyDefaults() {
	if c.PollAttempts <= 0 {
		c.PollAttempts = DefaultPollAttempts
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 30 * time.Second
	}
}

// Options wires a Settler. Store, Provider, and Tracker are required.
type Options struct {
	Store    *store.Store
	Provider Provider
	Tracker  *recurring.Tracker
	Events   *events.Broadcaster
	Clock    clock.Clock
	Logger   *slog.Logger
	Config   Config
}

// Settler turns payment mandates into provider payments.
type Settler struct {
	store    *store.Store
	provider Provider
	tracker  *recurring.Tracker
	events   *events.Broadcaster
	clock    clock.Clock
	logger   *slog.Logger
	config   Config
	breaker  *gobreaker.CircuitBreaker[Payment]

	mu       sync.Mutex
	polls    map[uint64]context.CancelFunc
	nextPoll uint64
}

// New returns a Settler.
func New(options Options) (*Settler, error) {
	if options.Store == nil || options.Provider == nil || options.Tracker == nil {
		return nil, errors.New("settlement: store, provider, and tracker are required")
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
	options.Config.applyDefaults()

	logger := options.Logger
	failures := options.Config.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker[Payment](gobreaker.Settings{
		Name:        "settlement-provider",
		MaxRequests: 1,
		Timeout:     options.Config.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("provider circuit state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation and 4xx-style answers say nothing
			// about provider health.
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var rejected interface{ ClientError() bool }
			return errors.As(err, &rejected) && rejected.ClientError()
		},
	})

	return &Settler{
		store:    options.Store,
		provider: options.Provider,
		tracker:  options.Tracker,
		events:   options.Events,
		clock:    options.Clock,
		logger:   options.Logger,
		config:   options.Config,
		breaker:  breaker,
		polls:    make(map[uint64]context.CancelFunc),
	}, nil
}

func (s *Settler) call(ctx context.Context, operation, suggestion string, fn func(ctx context.Context) (Payment, error)) (Payment, error) {
	payment, err := s.breaker.Execute(func() (Payment, error) {
		return fn(ctx)
	})
	if err != nil {
		if suggestion == "" {
			suggestion = apiSuggestion
		}
		return Payment{}, &mandate.ProviderError{Operation: operation, Suggestion: suggestion, Err: err}
	}
	return payment, nil
}

func (s *Settler) getPayment(ctx context.Context, id string) (Payment, error) {
	return s.call(ctx, "get payment", "", func(ctx context.Context) (Payment, error) {
		return s.provider.GetPayment(ctx, id)
	})
}

// SettleRequest asks for a payment mandate to be charged.
type SettleRequest struct {
	PaymentMandateID string
	Description      string

	// Method overrides the mandate's payment method for interactive
	// checkouts.
	Method mandate.PaymentMethod
}

// SettleResult describes the provider payment Settle created.
type SettleResult struct {
	SettlementID     string             `cbor:"settlementId" json:"settlementId"`
	Status           Status             `cbor:"status" json:"status"`
	CheckoutURL      string             `cbor:"checkoutUrl,omitempty" json:"checkoutUrl,omitempty"`
	Amount           money.Amount       `cbor:"amount" json:"amount"`
	Sequence         recurring.Sequence `cbor:"sequence" json:"sequence"`
	AutoCheckout     bool               `cbor:"autoCheckout" json:"autoCheckout"`
	PaymentMandateID string             `cbor:"paymentMandateId" json:"paymentMandateId"`

	// PollTimedOut is set when a recurring charge had not reached a
	// final status after the bounded poll. Status is the last one
	// seen.
	PollTimedOut bool `cbor:"pollTimedOut,omitempty" json:"pollTimedOut,omitempty"`
}

// Settle creates a provider payment for the payment mandate named in
// request. The amount always comes from the stored mandate.
func (s *Settler) Settle(ctx context.Context, request SettleRequest) (SettleResult, error) {
	payment, ok := s.store.Payment(request.PaymentMandateID)
	if !ok {
		return SettleResult{}, mandate.NotFound("Payment Mandate", request.PaymentMandateID)
	}

	method := request.Method
	if method == "" {
		method = payment.PaymentMethod
	}
	plan := s.tracker.Plan(method)

	description := request.Description
	if description == "" {
		description = "AP2 payment " + payment.ID
	}

	s.events.Emit(events.AgentPayment, events.TypeToolCall,
		fmt.Sprintf("Creating %s payment: %s (%s)", plan.Sequence, payment.Amount, description),
		map[string]any{"paymentMandateId": payment.ID, "sequence": string(plan.Sequence)})

	providerRequest := PaymentRequest{
		Amount:            payment.Amount,
		Description:       description,
		CustomerID:        plan.CustomerID,
		ProviderMandateID: plan.ProviderMandateID,
		Sequence:          plan.Sequence,
		WebhookURL:        s.config.WebhookURL,
		Metadata: map[string]string{
			"paymentMandateId": payment.ID,
			"source":           MetadataSource,
			"protocol":         MetadataProtocol,
		},
	}
	if plan.Interactive() {
		providerRequest.Method = plan.Method
		providerRequest.RedirectURL = redirectURL(s.config.RedirectURL, payment.ID)
	}

	created, err := s.call(ctx, "create payment", "", func(ctx context.Context) (Payment, error) {
		return s.provider.CreatePayment(ctx, providerRequest)
	})
	if err != nil {
		s.events.Emit(events.AgentPayment, events.TypeError, "Payment creation failed: "+err.Error(),
			map[string]any{"paymentMandateId": payment.ID})
		s.logger.Warn("provider payment creation failed", "payment_mandate_id", payment.ID, "error", err)
		return SettleResult{}, err
	}

	s.store.SetActiveSettlement(created.ID)
	s.store.Audit(paymentAgent, "CREATE_MOLLIE_PAYMENT",
		fmt.Sprintf("Provider payment created: %s (%s) [%s]", created.ID, payment.Amount, plan.Sequence), payment.ID)
	s.store.PutReceipt(mandate.PaymentReceipt{
		MandateID:    payment.ID,
		SettlementID: created.ID,
		Amount:       payment.Amount,
		Status:       created.Status.ReceiptStatus(),
		Timestamp:    s.clock.Now(),
		AuditTrail:   s.store.AuditSnapshot(),
	})
	s.logger.Info("provider payment created",
		"payment_mandate_id", payment.ID,
		"settlement_id", created.ID,
		"sequence", string(plan.Sequence),
		"amount", payment.Amount.String(),
	)

	result := SettleResult{
		SettlementID:     created.ID,
		Status:           created.Status,
		CheckoutURL:      created.CheckoutURL,
		Amount:           payment.Amount,
		Sequence:         plan.Sequence,
		AutoCheckout:     !plan.Interactive(),
		PaymentMandateID: payment.ID,
	}

	if plan.Sequence == recurring.SequenceRecurring && !created.Status.Final() {
		final, timedOut, err := s.pollFinal(ctx, created)
		if err != nil {
			return result, err
		}
		result.Status = final.Status
		result.PollTimedOut = timedOut
	}
	if result.Status.Final() {
		s.finish(created.ID, result.Status)
	}

	message := fmt.Sprintf("Payment %s created, status %s", created.ID, result.Status)
	if result.CheckoutURL != "" {
		message += ", checkout: " + result.CheckoutURL
	}
	s.events.Emit(events.AgentPayment, events.TypeResult, message,
		map[string]any{"settlementId": created.ID, "status": string(result.Status), "sequence": string(plan.Sequence)})
	return result, nil
}

// pollFinal waits for a recurring charge to settle. The poll is
// registered so Kill can cancel it.
func (s *Settler) pollFinal(ctx context.Context, created Payment) (Payment, bool, error) {
	pollContext, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.nextPoll++
	token := s.nextPoll
	s.polls[token] = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.polls, token)
		s.mu.Unlock()
		cancel()
	}()

	final, err := Poll(pollContext, s.clock, s.config.PollAttempts, s.config.PollInterval, created,
		func(ctx context.Context) (Payment, bool, error) {
			current, err := s.getPayment(ctx, created.ID)
			if err != nil {
				s.logger.Debug("settlement poll failed", "settlement_id", created.ID, "error", err)
				return Payment{}, false, err
			}
			return current, current.Status == StatusPaid || current.Status == StatusFailed, nil
		})

	var timeout *mandate.TimeoutError
	switch {
	case err == nil:
		return final, false, nil
	case errors.As(err, &timeout):
		s.logger.Info("settlement poll gave up", "settlement_id", created.ID, "last_status", string(final.Status))
		return final, true, nil
	case ctx.Err() == nil:
		// Cancelled by Kill; the caller's context is still live.
		return final, false, nil
	default:
		return final, false, err
	}
}

// finish applies a final provider status to the receipt and clears
// the active settlement.
func (s *Settler) finish(settlementID string, status Status) bool {
	updated := false
	switch status {
	case StatusPaid:
		_, updated = s.store.UpdateReceiptStatus(settlementID, mandate.ReceiptSuccess)
	case StatusFailed, StatusCanceled, StatusExpired:
		_, updated = s.store.UpdateReceiptStatus(settlementID, mandate.ReceiptFailed)
	}
	s.store.ClearActiveSettlement(settlementID)
	return updated
}

func redirectURL(base, paymentMandateID string) string {
	if base == "" {
		return ""
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return base
	}
	query := parsed.Query()
	query.Set("payment", "success")
	query.Set("mandate", paymentMandateID)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// Status fetches the provider's current view of a settlement.
func (s *Settler) Status(ctx context.Context, settlementID string) (Payment, error) {
	s.events.Emit(events.AgentPayment, events.TypeToolCall, "Checking payment status: "+settlementID, nil)
	payment, err := s.getPayment(ctx, settlementID)
	if err != nil {
		s.events.Emit(events.AgentPayment, events.TypeError, "Status check failed: "+err.Error(), nil)
		return Payment{}, err
	}
	s.events.Emit(events.AgentPayment, events.TypeResult,
		fmt.Sprintf("Payment %s: %s", payment.ID, payment.Status),
		map[string]any{"settlementId": payment.ID, "status": string(payment.Status)})
	return payment, nil
}

// Cancel cancels a settlement at the provider.
func (s *Settler) Cancel(ctx context.Context, settlementID, reason string) (Payment, error) {
	s.events.Emit(events.AgentPayment, events.TypeToolCall, "Canceling payment: "+settlementID, nil)
	payment, err := s.call(ctx, "cancel payment", "the payment may already be completed or expired",
		func(ctx context.Context) (Payment, error) {
			return s.provider.CancelPayment(ctx, settlementID)
		})
	if err != nil {
		s.events.Emit(events.AgentPayment, events.TypeError, "Cancel failed: "+err.Error(), nil)
		return Payment{}, err
	}

	details := "Payment canceled: " + settlementID
	if reason != "" {
		details += " (" + reason + ")"
	}
	s.store.Audit(paymentAgent, "CANCEL_PAYMENT", details, payment.Metadata["paymentMandateId"])
	s.finish(settlementID, payment.Status)
	s.events.Emit(events.AgentPayment, events.TypeResult, "Payment canceled: "+settlementID,
		map[string]any{"settlementId": settlementID, "status": string(payment.Status)})
	return payment, nil
}

// GenerateReceipt records a receipt for the payment mandate using the
// provider's current status. An unreachable provider yields a pending
// receipt rather than an error.
func (s *Settler) GenerateReceipt(ctx context.Context, paymentMandateID, settlementID string) (mandate.PaymentReceipt, error) {
	payment, ok := s.store.Payment(paymentMandateID)
	if !ok {
		return mandate.PaymentReceipt{}, mandate.NotFound("Payment Mandate", paymentMandateID)
	}
	s.events.Emit(events.AgentPayment, events.TypeToolCall, "Generating receipt for "+paymentMandateID, nil)

	status := mandate.ReceiptPending
	if current, err := s.getPayment(ctx, settlementID); err != nil {
		s.logger.Warn("receipt status lookup failed", "settlement_id", settlementID, "error", err)
	} else {
		status = current.Status.ReceiptStatus()
	}

	s.store.Audit(paymentAgent, "GENERATE_RECEIPT",
		fmt.Sprintf("Receipt generated: %s, status %s", settlementID, status), paymentMandateID)
	receipt := mandate.PaymentReceipt{
		MandateID:    paymentMandateID,
		SettlementID: settlementID,
		Amount:       payment.Amount,
		Status:       status,
		Timestamp:    s.clock.Now(),
		AuditTrail:   s.store.AuditSnapshot(),
	}
	s.store.PutReceipt(receipt)

	s.events.Emit(events.AgentPayment, events.TypeResult, fmt.Sprintf("Receipt: %s (%s)", status, payment.Amount),
		map[string]any{"paymentMandateId": paymentMandateID, "settlementId": settlementID, "status": string(status)})
	return receipt.Clone(), nil
}

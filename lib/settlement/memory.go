// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/bureau-foundation/ap2/lib/recurring"
)

// ErrUnknownPayment is returned by MemoryProvider for ids it never
// issued.
var ErrUnknownPayment = errors.New("settlement: unknown payment")

// rejection is a caller mistake, not a provider outage. The breaker
// does not count it.
type rejection struct {
	message string
	base    error
}

func (r *rejection) Error() string     { return r.message }
func (r *rejection) Unwrap() error     { return r.base }
func (r *rejection) ClientError() bool { return true }

// MemoryProvider is an in-process Provider and recurring.Customers.
//
// Interactive payments start open and stay open until SetStatus.
// Recurring payments start pending and become paid on the first
// GetPayment. Script overrides the statuses successive GetPayment
// calls report. A paid first-sequence payment gives its customer a
// valid mandate, as a real provider does after the first charge.
type MemoryProvider struct {
	checkoutBase string

	mu        sync.Mutex
	payments  map[string]*memoryPayment
	customers map[string]recurring.Customer
	mandates  map[string][]recurring.ProviderMandate
	failure   error
	canceled  []string

	recurringScript []Status
}

type memoryPayment struct {
	payment  Payment
	sequence recurring.Sequence
	script   []Status
}

var (
	_ Provider            = (*MemoryProvider)(nil)
	_ recurring.Customers = (*MemoryProvider)(nil)
)

// NewMemoryProvider returns an empty provider. Checkout URLs are
// checkoutBase + "/" + payment id.
func NewMemoryProvider(checkoutBase string) *MemoryProvider {
	if checkoutBase == "" {
		checkoutBase = "https://checkout.invalid/pay"
	}
	return &MemoryProvider{
		checkoutBase: strings.TrimSuffix(checkoutBase, "/"),
		payments:     make(map[string]*memoryPayment),
		customers:    make(map[string]recurring.Customer),
		mandates:     make(map[string][]recurring.ProviderMandate),

		recurringScript: []Status{StatusPaid},
	}
}

// RecurringScript sets the statuses new recurring payments report on
// successive GetPayment calls. With none they stay pending.
func (p *MemoryProvider) RecurringScript(statuses ...Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recurringScript = append([]Status(nil), statuses...)
}

func memoryID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// Fail makes every later call return err, until Fail(nil).
func (p *MemoryProvider) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failure = err
}

func (p *MemoryProvider) checkLocked(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.failure
}

func (p *MemoryProvider) CreatePayment(ctx context.Context, request PaymentRequest) (Payment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkLocked(ctx); err != nil {
		return Payment{}, err
	}
	if !request.Amount.IsPositive() {
		return Payment{}, &rejection{message: "amount must be positive"}
	}
	if request.Sequence == recurring.SequenceRecurring {
		if request.CustomerID == "" || request.ProviderMandateID == "" {
			return Payment{}, &rejection{message: "recurring payment requires a customer and mandate"}
		}
	}

	id := memoryID("tr_")
	payment := Payment{
		ID:          id,
		Status:      StatusOpen,
		Amount:      request.Amount,
		Description: request.Description,
		Method:      string(request.Method),
		CustomerID:  request.CustomerID,
		MandateID:   request.ProviderMandateID,
		Metadata:    cloneMetadata(request.Metadata),
	}
	entry := &memoryPayment{payment: payment, sequence: request.Sequence}
	if request.Sequence == recurring.SequenceRecurring {
		entry.payment.Status = StatusPending
		entry.script = append([]Status(nil), p.recurringScript...)
	} else {
		entry.payment.CheckoutURL = p.checkoutBase + "/" + id
	}
	p.payments[id] = entry
	return entry.snapshot(), nil
}

func (p *MemoryProvider) GetPayment(ctx context.Context, id string) (Payment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkLocked(ctx); err != nil {
		return Payment{}, err
	}
	entry, ok := p.payments[id]
	if !ok {
		return Payment{}, unknownPayment(id)
	}
	if len(entry.script) > 0 {
		p.transitionLocked(entry, entry.script[0])
		entry.script = entry.script[1:]
	}
	return entry.snapshot(), nil
}

func (p *MemoryProvider) CancelPayment(ctx context.Context, id string) (Payment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkLocked(ctx); err != nil {
		return Payment{}, err
	}
	entry, ok := p.payments[id]
	if !ok {
		return Payment{}, unknownPayment(id)
	}
	switch entry.payment.Status {
	case StatusOpen, StatusPending, StatusAuthorized:
	default:
		return Payment{}, &rejection{
			message: fmt.Sprintf("payment %s is %s and cannot be canceled", id, entry.payment.Status),
		}
	}
	entry.payment.Status = StatusCanceled
	entry.script = nil
	p.canceled = append(p.canceled, id)
	return entry.snapshot(), nil
}

// SetStatus moves a payment to status, as the customer completing or
// abandoning a checkout would.
func (p *MemoryProvider) SetStatus(id string, status Status) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.payments[id]
	if !ok {
		return unknownPayment(id)
	}
	entry.script = nil
	p.transitionLocked(entry, status)
	return nil
}

// Script queues the statuses successive GetPayment calls report.
func (p *MemoryProvider) Script(id string, statuses ...Status) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.payments[id]
	if !ok {
		return unknownPayment(id)
	}
	entry.script = append([]Status(nil), statuses...)
	return nil
}

// Canceled lists the payment ids cancelled so far, in order.
func (p *MemoryProvider) Canceled() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.canceled...)
}

// Payment returns the current state of a payment without advancing
// its script.
func (p *MemoryProvider) Payment(id string) (Payment, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.payments[id]
	if !ok {
		return Payment{}, false
	}
	return entry.snapshot(), true
}

func (p *MemoryProvider) transitionLocked(entry *memoryPayment, status Status) {
	entry.payment.Status = status
	if status != StatusPaid || entry.sequence != recurring.SequenceFirst || entry.payment.CustomerID == "" {
		return
	}
	customerID := entry.payment.CustomerID
	for _, existing := range p.mandates[customerID] {
		if existing.Status == "valid" {
			return
		}
	}
	p.mandates[customerID] = append(p.mandates[customerID], recurring.ProviderMandate{
		ID:     memoryID("mdt_"),
		Status: "valid",
		Method: entry.payment.Method,
	})
}

func (p *MemoryProvider) CreateCustomer(ctx context.Context, name, email string) (recurring.Customer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkLocked(ctx); err != nil {
		return recurring.Customer{}, err
	}
	customer := recurring.Customer{ID: memoryID("cst_"), Name: name, Email: email}
	p.customers[customer.ID] = customer
	return customer, nil
}

func (p *MemoryProvider) ListMandates(ctx context.Context, customerID string) ([]recurring.ProviderMandate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkLocked(ctx); err != nil {
		return nil, err
	}
	if _, ok := p.customers[customerID]; !ok {
		return nil, &rejection{message: "unknown customer " + customerID}
	}
	return append([]recurring.ProviderMandate(nil), p.mandates[customerID]...), nil
}

func (m *memoryPayment) snapshot() Payment {
	payment := m.payment
	payment.Metadata = cloneMetadata(m.payment.Metadata)
	return payment
}

func unknownPayment(id string) error {
	return &rejection{message: fmt.Sprintf("payment %s not found", id), base: ErrUnknownPayment}
}

func cloneMetadata(metadata map[string]string) map[string]string {
	if metadata == nil {
		return nil
	}
	clone := make(map[string]string, len(metadata))
	for key, value := range metadata {
		clone[key] = value
	}
	return clone
}
